package documents

import "context"

// Repository persists documents grouped by collection.
//
// List returns documents in creation order. Get, Modify and Delete return
// common.ErrNotFound for unknown ids. Modify runs fn on the current
// document and stores the result atomically with respect to other writers.
type Repository interface {
	List(ctx context.Context, collection string) ([]*Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Insert(ctx context.Context, doc *Document) error
	Modify(ctx context.Context, collection, id string, fn func(*Document) error) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
}
