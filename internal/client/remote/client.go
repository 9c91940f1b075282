package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
)

var (
	ErrUnavailable   = fmt.Errorf("%w: server unavailable", common.ErrRemoteUnavailable)
	ErrNotConfigured = fmt.Errorf("%w: remote store not configured", common.ErrRemoteUnavailable)
	ErrUnauthorized  = errors.New("unauthorized")
)

// SnapshotFunc receives the full content of a subscribed collection. When
// the stream ends abnormally it is called once more with a nil slice and a
// non-nil error; no further calls follow.
type SnapshotFunc func(docs []rpc.Document, err error)

// Client is a namespaced document store.
type Client interface {
	List(ctx context.Context, collection string) ([]rpc.Document, error)
	// Get returns (nil, nil) when the document does not exist.
	Get(ctx context.Context, collection, id string) (*rpc.Document, error)
	// Create stores data under a server-assigned id.
	Create(ctx context.Context, collection string, data map[string]any) (*rpc.Document, error)
	// Update merges patch into the document. Missing documents yield
	// common.ErrNotFound.
	Update(ctx context.Context, collection, id string, patch map[string]any) (*rpc.Document, error)
	Delete(ctx context.Context, collection, id string) error
	// Subscribe attaches to collection and blocks until the first snapshot
	// has been delivered to fn or ctx is done. The returned func detaches.
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (func(), error)
	Close() error
}

// Disabled is the Client used when no remote store is configured.
type Disabled struct{}

func (Disabled) List(context.Context, string) ([]rpc.Document, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Get(context.Context, string, string) (*rpc.Document, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Create(context.Context, string, map[string]any) (*rpc.Document, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Update(context.Context, string, string, map[string]any) (*rpc.Document, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(context.Context, string, string) error {
	return ErrNotConfigured
}

func (Disabled) Subscribe(context.Context, string, SnapshotFunc) (func(), error) {
	return nil, ErrNotConfigured
}

func (Disabled) Close() error { return nil }

// IsConfigured reports whether c talks to a real remote store.
func IsConfigured(c Client) bool {
	switch c.(type) {
	case nil, Disabled, *Disabled:
		return false
	}
	return true
}
