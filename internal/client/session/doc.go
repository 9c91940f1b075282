// Package session implements the device-local account and session lifecycle.
//
// Credentials and the single active session are persisted in a kvstore.Store
// passed in at construction:
//
//	credentials:<email>  one JSON Credential per registered (lower-cased) email
//	session              the active Session, overwritten on every login
//
// Passwords are never stored; an argon2id digest and a random 32-byte salt
// are kept instead. Every login failure returns common.ErrInvalidCredentials
// so callers cannot tell an unknown email from a wrong password.
//
// Expiry is lazy: CurrentSession purges a stale session the first time it
// reads one, so it must be called before every privileged operation.
package session
