// Package notify fans collection change events out to live subscribers,
// in process or across server replicas through Redis.
package notify

import (
	"context"
	"sync"
)

// Hub delivers change signals to the subscribers of a collection. Signals
// coalesce: a subscriber that has not consumed the previous one gets no
// second, which is enough for consumers that re-read the whole collection.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers for changes of collection. The returned function
// unregisters and is safe to call more than once.
func (h *Hub) Subscribe(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[chan struct{}]struct{})
	}
	h.subs[collection][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[collection], ch)
			if len(h.subs[collection]) == 0 {
				delete(h.subs, collection)
			}
		})
	}
}

// Publish signals every subscriber of collection. It never blocks.
func (h *Hub) Publish(_ context.Context, collection string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers of collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}
