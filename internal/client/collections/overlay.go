package collections

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
)

const overlayPrefix = "overlay:"

// overlayState is the persisted custom layer of one collection. It is
// stored as a single blob so concurrent writers never observe a torn state.
type overlayState struct {
	Records []models.Record `json:"records"`
	// Tombstones are ids removed locally whose remote delete has not been
	// confirmed. Remote copies with these ids stay hidden.
	Tombstones []string `json:"tombstones,omitempty"`
}

func (o *overlayState) index(id string) int {
	return slices.IndexFunc(o.Records, func(r models.Record) bool { return r.ID == id })
}

func (o *overlayState) find(id string) (models.Record, bool) {
	if i := o.index(id); i >= 0 {
		return o.Records[i], true
	}
	return models.Record{}, false
}

func (o *overlayState) upsert(r models.Record) {
	if i := o.index(r.ID); i >= 0 {
		o.Records[i] = r
		return
	}
	o.Records = append(o.Records, r)
}

func (o *overlayState) remove(id string) (models.Record, bool) {
	i := o.index(id)
	if i < 0 {
		return models.Record{}, false
	}
	r := o.Records[i]
	o.Records = slices.Delete(o.Records, i, i+1)
	return r, true
}

func (o *overlayState) addTombstone(id string) {
	if !slices.Contains(o.Tombstones, id) {
		o.Tombstones = append(o.Tombstones, id)
	}
}

func (o *overlayState) dropTombstone(id string) {
	o.Tombstones = slices.DeleteFunc(o.Tombstones, func(t string) bool { return t == id })
}

// hasPending reports unconfirmed local work: pending rows or tombstones.
func (o *overlayState) hasPending() bool {
	return len(o.Tombstones) > 0 || slices.ContainsFunc(o.Records, func(r models.Record) bool { return r.Pending })
}

func (s *Synchronizer) lock(name string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	return m
}

func (s *Synchronizer) loadOverlay(ctx context.Context, name string) (*overlayState, error) {
	raw, err := s.store.Get(ctx, overlayPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("read overlay %s: %w", name, err)
	}
	state := &overlayState{Records: []models.Record{}}
	if raw == nil {
		return state, nil
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", name, err)
	}
	return state, nil
}

func (s *Synchronizer) readOverlay(ctx context.Context, name string) (*overlayState, error) {
	m := s.lock(name)
	m.Lock()
	defer m.Unlock()

	return s.loadOverlay(ctx, name)
}

// mutateOverlay runs fn on the current overlay and persists the result.
// Cycles on the same collection never interleave. Nothing is written when
// fn fails.
func (s *Synchronizer) mutateOverlay(ctx context.Context, name string, fn func(*overlayState) error) (*overlayState, error) {
	m := s.lock(name)
	m.Lock()
	defer m.Unlock()

	state, err := s.loadOverlay(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode overlay %s: %w", name, err)
	}
	if err := s.store.Set(ctx, overlayPrefix+name, raw); err != nil {
		return nil, fmt.Errorf("write overlay %s: %w", name, err)
	}
	return state, nil
}

// reconcile makes docs the custom layer of state. A pending edit of a remote
// row stays in place of the remote copy until Sync or a remote update
// confirms it. Other remote rows win over local rows with the same id, and
// pending local rows the remote store does not know yet are kept after
// them. Remote rows that collide with a default id or a tombstone are
// dropped, and tombstones whose remote copy is gone are settled.
func (s *Synchronizer) reconcile(name string, state *overlayState, docs []rpc.Document) {
	tombstoned := make(map[string]bool, len(state.Tombstones))
	for _, id := range state.Tombstones {
		tombstoned[id] = true
	}

	edits := make(map[string]models.Record)
	for _, r := range state.Records {
		if r.Pending && !r.LocalOnly {
			edits[r.ID] = r
		}
	}

	seen := make(map[string]bool, len(docs))
	records := make([]models.Record, 0, len(docs)+len(state.Records))
	for _, d := range docs {
		if d.ID == "" || seen[d.ID] || s.defaults.Contains(name, d.ID) {
			continue
		}
		seen[d.ID] = true
		if tombstoned[d.ID] {
			continue
		}
		if r, ok := edits[d.ID]; ok {
			records = append(records, r)
			continue
		}
		records = append(records, recordFromDocument(d))
	}

	for _, r := range state.Records {
		if r.Pending && !seen[r.ID] {
			records = append(records, r)
		}
	}

	state.Records = records
	state.Tombstones = slices.DeleteFunc(state.Tombstones, func(id string) bool { return !seen[id] })
}

// compose merges the default layer with the custom rows of state. Default
// rows come first in compiled order and are never overwritten.
func (s *Synchronizer) compose(name string, state *overlayState) []models.Record {
	out := s.defaults.Records(name)
	for _, r := range state.Records {
		if s.defaults.Contains(name, r.ID) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

func recordFromDocument(d rpc.Document) models.Record {
	data := models.WithoutID(d.Data)
	return models.Record{
		ID:        d.ID,
		Layer:     models.LayerCustom,
		Data:      data,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
