// Package cryptox holds the password derivation used for locally stored
// credentials.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory is in KiB.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// DeriveKey stretches password with salt using argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashPassword derives the key for (password, salt) and returns it encoded
// with unpadded URL-safe base64, ready to be stored next to the salt.
func HashPassword(password []byte, salt string) string {
	return base64.RawURLEncoding.EncodeToString(DeriveKey(password, []byte(salt)))
}

// VerifyPassword recomputes the hash and compares it with the stored one in
// constant time.
func VerifyPassword(password []byte, salt string, storedHash string) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
