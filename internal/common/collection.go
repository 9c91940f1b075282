package common

import (
	"fmt"
	"strings"
)

// MaxCollectionNameLen is the longest collection name, in bytes, the client
// and the remote store accept.
const MaxCollectionNameLen = 128

// ValidateCollectionName rejects empty names, names longer than
// MaxCollectionNameLen and names containing ':' or whitespace. The error
// wraps ErrValidation.
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > MaxCollectionNameLen || strings.ContainsFunc(name, isReserved) {
		return fmt.Errorf("%w: bad collection name %q", ErrValidation, name)
	}
	return nil
}

func isReserved(r rune) bool {
	return r == ':' || r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}
