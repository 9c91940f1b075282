package documents

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
)

// MemoryRepository keeps documents in process memory. It backs the server
// when no database is configured and is used in tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	collections map[string][]*Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{collections: make(map[string][]*Document)}
}

func (r *MemoryRepository) List(_ context.Context, collection string) ([]*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.collections[collection]
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, collection, id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil, common.ErrNotFound
	}
	return r.collections[collection][i].Clone(), nil
}

func (r *MemoryRepository) Insert(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index(doc.Collection, doc.ID) >= 0 {
		return fmt.Errorf("%w: document %s/%s already exists", common.ErrValidation, doc.Collection, doc.ID)
	}
	r.collections[doc.Collection] = append(r.collections[doc.Collection], doc.Clone())
	return nil
}

func (r *MemoryRepository) Modify(_ context.Context, collection, id string, fn func(*Document) error) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(collection, id)
	if i < 0 {
		return nil, common.ErrNotFound
	}

	doc := r.collections[collection][i].Clone()
	if err := fn(doc); err != nil {
		return nil, err
	}
	r.collections[collection][i] = doc
	return doc.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(collection, id)
	if i < 0 {
		return common.ErrNotFound
	}
	r.collections[collection] = slices.Delete(r.collections[collection], i, i+1)
	return nil
}

func (r *MemoryRepository) index(collection, id string) int {
	return slices.IndexFunc(r.collections[collection], func(d *Document) bool { return d.ID == id })
}
