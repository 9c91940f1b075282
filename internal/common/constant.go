// Package common contains shared constants and sentinel errors used across
// NutriKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// LocalIDPrefix marks record ids minted on the device while the remote
// store was unreachable.
const LocalIDPrefix = "custom_"
