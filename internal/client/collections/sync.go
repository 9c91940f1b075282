package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
)

// SyncReport counts what a Sync pushed to the remote store.
type SyncReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Sync pushes unconfirmed local work of a collection: local-only rows are
// created remotely and re-keyed to the remote id, pending edits are sent as
// updates and tombstones as deletes. The collection is refreshed afterwards.
// Rows that still cannot be pushed stay pending and are counted as Failed.
func (s *Synchronizer) Sync(ctx context.Context, name string) (SyncReport, error) {
	var rep SyncReport

	if err := s.checkWrite(ctx, name); err != nil {
		return rep, err
	}
	if !s.configured {
		return rep, remote.ErrNotConfigured
	}

	state, err := s.readOverlay(ctx, name)
	if err != nil {
		return rep, err
	}

	s.setStatus(name, models.StatusSyncing)

	for _, r := range state.Records {
		if !r.Pending {
			continue
		}

		var (
			pushed bool
			err    error
		)
		if r.LocalOnly {
			pushed, err = s.pushCreate(ctx, name, r)
			if pushed {
				rep.Created++
			}
		} else {
			pushed, err = s.pushUpdate(ctx, name, r)
			if pushed {
				rep.Updated++
			}
		}
		if err != nil {
			s.resettle(ctx, name)
			return rep, err
		}
		if !pushed {
			rep.Failed++
		}
	}

	for _, id := range state.Tombstones {
		rctx, cancel := s.remoteContext(ctx)
		err := s.remote.Delete(rctx, name, id)
		cancel()
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "sync: remote delete failed", "collection", name, "id", id, "error", err)
			rep.Failed++
			continue
		}

		if _, err := s.mutateOverlay(ctx, name, func(st *overlayState) error {
			st.dropTombstone(id)
			return nil
		}); err != nil {
			s.resettle(ctx, name)
			return rep, err
		}
		rep.Deleted++
	}

	if s.attached(name) {
		s.resettle(ctx, name)
	} else if err := s.refresh(ctx, name); err != nil {
		return rep, err
	}
	if rep.Failed > 0 {
		s.setStatus(name, models.StatusError)
	}

	s.log.Info(ctx, "collection synced", "collection", name,
		"created", rep.Created, "updated", rep.Updated, "deleted", rep.Deleted, "failed", rep.Failed)

	s.notify(name)
	return rep, nil
}

// pushCreate creates a local-only row remotely and re-keys it. The returned
// error is a local storage failure; remote failures yield pushed=false.
func (s *Synchronizer) pushCreate(ctx context.Context, name string, r models.Record) (bool, error) {
	doc, err := s.remoteCreate(ctx, name, models.WithoutID(r.Data))
	if err != nil {
		s.log.Warn(ctx, "sync: remote create failed", "collection", name, "id", r.ID, "error", err)
		return false, nil
	}

	_, err = s.mutateOverlay(ctx, name, func(st *overlayState) error {
		s.replace(st, r, *doc)
		return nil
	})
	return err == nil, err
}

// pushUpdate sends a pending edit. A row the remote store no longer knows is
// created again under a new id.
func (s *Synchronizer) pushUpdate(ctx context.Context, name string, r models.Record) (bool, error) {
	doc, err := s.remoteUpdate(ctx, name, r.ID, models.WithoutID(r.Data))
	if errors.Is(err, common.ErrNotFound) {
		return s.pushCreate(ctx, name, r)
	}
	if err != nil {
		s.log.Warn(ctx, "sync: remote update failed", "collection", name, "id", r.ID, "error", err)
		return false, nil
	}

	_, err = s.mutateOverlay(ctx, name, func(st *overlayState) error {
		s.replace(st, r, *doc)
		return nil
	})
	return err == nil, err
}

// replace swaps the pushed row r for the confirmed doc. Edits made to r
// while the push was in flight are kept and stay pending. A row removed in
// the meantime is tombstoned so the fresh remote copy gets deleted too.
func (s *Synchronizer) replace(st *overlayState, r models.Record, doc rpc.Document) {
	confirmed := recordFromDocument(doc)

	i := st.index(r.ID)
	if i < 0 {
		if doc.ID != r.ID {
			st.addTombstone(doc.ID)
		}
		return
	}

	cur := st.Records[i]
	if cur.UpdatedAt.After(r.UpdatedAt) {
		confirmed.Data = cur.Data
		confirmed.Pending = true
		confirmed.UpdatedAt = cur.UpdatedAt
	}

	if doc.ID != r.ID {
		// a snapshot may already have mirrored the new id
		if j := st.index(doc.ID); j >= 0 {
			st.Records[j] = confirmed
			st.Records = append(st.Records[:i], st.Records[i+1:]...)
			return
		}
	}
	st.Records[i] = confirmed
}

func (r SyncReport) String() string {
	return fmt.Sprintf("created=%d updated=%d deleted=%d failed=%d", r.Created, r.Updated, r.Deleted, r.Failed)
}
