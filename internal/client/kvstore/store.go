// Package kvstore is the device-local, persistent, string-keyed store that
// backs both the session manager and the collection overlay.
//
// Every value is written as a single blob in one statement, so concurrent
// writers observe last-write-wins without torn partial updates. Stores may
// be bounded by a byte quota; exceeding it yields common.ErrQuotaExceeded,
// which callers can tell apart from other failures with errors.Is.
package kvstore

import "context"

// Store is a string-keyed blob store.
type Store interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// usage is the number of bytes a key/value pair counts against a quota.
func usage(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
