package collections

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
)

// Create stores a new custom record. The remote store assigns the id; when
// it cannot, a local custom_<n> id is minted and the row is kept in the
// overlay only, marked Pending and LocalOnly.
func (s *Synchronizer) Create(ctx context.Context, name string, data map[string]any) (models.WriteResult, error) {
	if id, _ := data["id"].(string); id != "" && s.defaults.Contains(name, id) {
		return models.WriteResult{}, s.defaultDenied(name, id)
	}
	if err := s.checkWrite(ctx, name); err != nil {
		return models.WriteResult{}, err
	}

	payload := models.WithoutID(data)
	if len(payload) == 0 {
		return models.WriteResult{}, fmt.Errorf("%w: record data is empty", common.ErrValidation)
	}

	var rec models.Record
	remoteErr := remote.ErrNotConfigured
	if s.configured {
		s.setStatus(name, models.StatusSyncing)

		var doc *rpc.Document
		doc, remoteErr = s.remoteCreate(ctx, name, payload)
		if errors.Is(remoteErr, common.ErrValidation) {
			s.resettle(ctx, name)
			return models.WriteResult{}, remoteErr
		}
		if remoteErr == nil {
			rec = recordFromDocument(*doc)
		}
	}

	localOnly := remoteErr != nil
	if localOnly {
		now := s.now().UTC()
		rec = models.Record{
			ID:        s.mintID(),
			Layer:     models.LayerCustom,
			Data:      payload,
			Pending:   true,
			LocalOnly: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if s.configured {
			s.log.Warn(ctx, "remote create failed, saved locally only", "collection", name, "id", rec.ID, "error", remoteErr)
		}
	}

	state, err := s.mutateOverlay(ctx, name, func(st *overlayState) error {
		st.upsert(rec)
		return nil
	})
	if err != nil {
		s.resettle(ctx, name)
		return models.WriteResult{}, err
	}

	s.afterWrite(name, state, remoteErr)
	return models.WriteResult{Record: rec.Clone(), LocalOnly: localOnly}, nil
}

// Update merges patch into a custom record; nil values delete keys. The
// overlay copy is patched whatever the remote outcome, so the edit is
// visible immediately.
func (s *Synchronizer) Update(ctx context.Context, name, id string, patch map[string]any) (models.WriteResult, error) {
	if s.defaults.Contains(name, id) {
		return models.WriteResult{}, s.defaultDenied(name, id)
	}
	if err := s.checkWrite(ctx, name); err != nil {
		return models.WriteResult{}, err
	}
	if id == "" {
		return models.WriteResult{}, fmt.Errorf("%w: record id is required", common.ErrValidation)
	}

	patch = models.WithoutID(patch)
	if len(patch) == 0 {
		return models.WriteResult{}, fmt.Errorf("%w: patch is empty", common.ErrValidation)
	}

	current, found, err := s.lookup(ctx, name, id)
	if err != nil {
		return models.WriteResult{}, err
	}

	// rows minted locally have no remote counterpart to update
	skipRemote := found && current.LocalOnly

	var doc *rpc.Document
	var remoteErr error
	switch {
	case skipRemote:
	case !s.configured:
		remoteErr = remote.ErrNotConfigured
	default:
		s.setStatus(name, models.StatusSyncing)
		send := patch
		if found && current.Pending {
			// carry earlier unconfirmed edits along with this one
			merged := current.Clone()
			merged.Apply(patch)
			send = models.WithoutID(merged.Data)
			for k, v := range patch {
				if v == nil {
					send[k] = nil
				}
			}
		}
		doc, remoteErr = s.remoteUpdate(ctx, name, id, send)
		if errors.Is(remoteErr, common.ErrValidation) {
			s.resettle(ctx, name)
			return models.WriteResult{}, remoteErr
		}
	}
	pushed := !skipRemote && remoteErr == nil

	if !found && !pushed {
		if s.configured && !errors.Is(remoteErr, common.ErrNotFound) {
			s.setStatus(name, models.StatusError)
		} else {
			s.resettle(ctx, name)
		}
		return models.WriteResult{}, fmt.Errorf("%w: %s/%s", common.ErrNotFound, name, id)
	}

	var rec models.Record
	state, err := s.mutateOverlay(ctx, name, func(st *overlayState) error {
		if pushed {
			rec = recordFromDocument(*doc)
			st.upsert(rec)
			return nil
		}

		base, ok := st.find(id)
		if !ok {
			return fmt.Errorf("%w: %s/%s", common.ErrNotFound, name, id)
		}
		rec = base.Clone()
		rec.Apply(patch)
		rec.Pending = true
		rec.UpdatedAt = s.now().UTC()
		st.upsert(rec)
		return nil
	})
	if err != nil {
		s.resettle(ctx, name)
		return models.WriteResult{}, err
	}

	if remoteErr != nil && s.configured {
		s.log.Warn(ctx, "remote update failed, patched locally only", "collection", name, "id", id, "error", remoteErr)
	}

	s.afterWrite(name, state, remoteErr)
	return models.WriteResult{Record: rec.Clone(), LocalOnly: !pushed}, nil
}

// Remove deletes a custom record. The overlay row is removed whatever the
// remote outcome; when the remote delete fails a tombstone keeps the
// lingering remote copy hidden until Sync deletes it.
func (s *Synchronizer) Remove(ctx context.Context, name, id string) (models.WriteResult, error) {
	if s.defaults.Contains(name, id) {
		return models.WriteResult{}, s.defaultDenied(name, id)
	}
	if err := s.checkWrite(ctx, name); err != nil {
		return models.WriteResult{}, err
	}
	if id == "" {
		return models.WriteResult{}, fmt.Errorf("%w: record id is required", common.ErrValidation)
	}

	current, found, err := s.lookup(ctx, name, id)
	if err != nil {
		return models.WriteResult{}, err
	}

	skipRemote := found && current.LocalOnly

	var remoteErr error
	switch {
	case skipRemote:
	case !s.configured:
		remoteErr = remote.ErrNotConfigured
	default:
		s.setStatus(name, models.StatusSyncing)
		remoteErr = s.remoteDelete(ctx, name, id)
		if errors.Is(remoteErr, common.ErrNotFound) {
			if !found {
				s.resettle(ctx, name)
				return models.WriteResult{}, fmt.Errorf("%w: %s/%s", common.ErrNotFound, name, id)
			}
			remoteErr = nil
		}
	}

	if !found && remoteErr != nil {
		if s.configured {
			s.setStatus(name, models.StatusError)
		}
		return models.WriteResult{}, fmt.Errorf("%w: %s/%s", common.ErrNotFound, name, id)
	}

	removed := models.Record{ID: id, Layer: models.LayerCustom}
	state, err := s.mutateOverlay(ctx, name, func(st *overlayState) error {
		if r, ok := st.remove(id); ok {
			removed = r
		}
		if remoteErr != nil && !skipRemote {
			st.addTombstone(id)
		} else {
			st.dropTombstone(id)
		}
		return nil
	})
	if err != nil {
		s.resettle(ctx, name)
		return models.WriteResult{}, err
	}

	if remoteErr != nil && s.configured {
		s.log.Warn(ctx, "remote delete failed, removed locally only", "collection", name, "id", id, "error", remoteErr)
	}

	s.afterWrite(name, state, remoteErr)
	return models.WriteResult{Record: removed, LocalOnly: remoteErr != nil}, nil
}

func (s *Synchronizer) afterWrite(name string, state *overlayState, remoteErr error) {
	if remoteErr != nil {
		s.setStatus(name, models.StatusError)
	} else {
		s.settle(name, state)
	}
	s.notify(name)
}

func (s *Synchronizer) checkWrite(ctx context.Context, name string) error {
	if err := common.ValidateCollectionName(name); err != nil {
		return err
	}
	if s.guard != nil {
		return s.guard(ctx, name)
	}
	return nil
}

func (s *Synchronizer) defaultDenied(name, id string) error {
	return fmt.Errorf("%w: %s/%s is a default record", common.ErrPermissionDenied, name, id)
}

func (s *Synchronizer) lookup(ctx context.Context, name, id string) (models.Record, bool, error) {
	state, err := s.readOverlay(ctx, name)
	if err != nil {
		return models.Record{}, false, err
	}
	r, ok := state.find(id)
	return r, ok, nil
}

// mintID returns custom_<unix-nanos>, strictly increasing within the
// process even when the clock stalls.
func (s *Synchronizer) mintID() string {
	for {
		last := s.lastID.Load()
		n := s.now().UnixNano()
		if n <= last {
			n = last + 1
		}
		if s.lastID.CompareAndSwap(last, n) {
			return common.LocalIDPrefix + strconv.FormatInt(n, 10)
		}
	}
}

func (s *Synchronizer) remoteCreate(ctx context.Context, name string, data map[string]any) (*rpc.Document, error) {
	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	doc, err := s.remote.Create(rctx, name, data)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == "" || s.defaults.Contains(name, doc.ID) {
		return nil, fmt.Errorf("%w: unusable id from remote create", common.ErrRemoteUnavailable)
	}
	return doc, nil
}

func (s *Synchronizer) remoteUpdate(ctx context.Context, name, id string, patch map[string]any) (*rpc.Document, error) {
	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	doc, err := s.remote.Update(rctx, name, id, patch)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.ID != id {
		return nil, fmt.Errorf("%w: unexpected document from remote update", common.ErrRemoteUnavailable)
	}
	return doc, nil
}

func (s *Synchronizer) remoteDelete(ctx context.Context, name, id string) error {
	rctx, cancel := s.remoteContext(ctx)
	defer cancel()

	return s.remote.Delete(rctx, name, id)
}
