// Package remote is the client side of the optional remote document store.
//
// The store is treated as an unreliable collaborator: it may be unconfigured
// (Disabled), unreachable or erroring. Every failure is mapped to one of the
// package sentinels so the synchronizer can decide how to degrade without
// inspecting gRPC status codes.
package remote
