package collections

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/dataset"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/kvstore"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
)

// Synchronizer serves collections from the default, overlay and remote
// layers. It is safe for concurrent use.
type Synchronizer struct {
	defaults   *dataset.Dataset
	store      kvstore.Store
	remote     remote.Client
	configured bool

	log          logging.Logger
	now          func() time.Time
	timeout      time.Duration
	guard        WriteGuard
	reattachBase time.Duration
	reattachMax  time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	statusMu sync.Mutex
	status   map[string]models.SyncStatus
	offline  map[string]bool

	watchMu sync.Mutex
	watches map[string]*watchEntry

	lastID atomic.Int64
}

// New builds a Synchronizer. A nil remote client means local-only mode.
func New(defaults *dataset.Dataset, store kvstore.Store, rc remote.Client, opts ...Option) *Synchronizer {
	if rc == nil {
		rc = remote.Disabled{}
	}
	s := &Synchronizer{
		defaults:     defaults,
		store:        store,
		remote:       rc,
		configured:   remote.IsConfigured(rc),
		log:          logging.NopLogger{},
		now:          time.Now,
		timeout:      DefaultRemoteTimeout,
		reattachBase: defaultReattachBase,
		reattachMax:  defaultReattachMax,
		locks:        map[string]*sync.Mutex{},
		status:       map[string]models.SyncStatus{},
		offline:      map[string]bool{},
		watches:      map[string]*watchEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("module", "collections")
	return s
}

// View returns the merged collection. Remote failures are reflected in the
// status only; the error is reserved for local storage failures.
func (s *Synchronizer) View(ctx context.Context, name string) (models.View, error) {
	if err := common.ValidateCollectionName(name); err != nil {
		return models.View{}, err
	}

	// an attached subscription keeps the overlay current
	if s.configured && !s.attached(name) {
		if err := s.refresh(ctx, name); err != nil {
			return models.View{}, err
		}
	}

	return s.localView(ctx, name)
}

// Collections lists the collections that have a custom layer on this
// device, in lexical order.
func (s *Synchronizer) Collections(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, overlayPrefix)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(k, overlayPrefix)
	}
	return names, nil
}

// Status returns the sync status of a collection.
func (s *Synchronizer) Status(name string) models.SyncStatus {
	if !s.configured {
		return models.StatusOffline
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if st, ok := s.status[name]; ok {
		return st
	}
	return models.StatusIdle
}

// Pending lists the rows of a collection the remote store has not
// confirmed.
func (s *Synchronizer) Pending(ctx context.Context, name string) ([]models.Record, error) {
	if err := common.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	state, err := s.readOverlay(ctx, name)
	if err != nil {
		return nil, err
	}

	out := make([]models.Record, 0)
	for _, r := range state.Records {
		if r.Pending {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Close releases every remote subscription. Watchers stop receiving views.
func (s *Synchronizer) Close() error {
	s.watchMu.Lock()
	entries := make([]*watchEntry, 0, len(s.watches))
	for _, e := range s.watches {
		entries = append(entries, e)
	}
	s.watchMu.Unlock()

	for _, e := range entries {
		s.release(e, true)
	}
	return nil
}

func (s *Synchronizer) localView(ctx context.Context, name string) (models.View, error) {
	state, err := s.readOverlay(ctx, name)
	if err != nil {
		return models.View{}, err
	}
	return models.View{
		Collection: name,
		Records:    s.compose(name, state),
		Status:     s.Status(name),
	}, nil
}

// refresh pulls the remote rows into the overlay.
func (s *Synchronizer) refresh(ctx context.Context, name string) error {
	s.setStatus(name, models.StatusSyncing)

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	docs, err := s.remote.List(rctx, name)
	cancel()
	if err != nil {
		s.log.Warn(ctx, "remote list failed, serving local overlay", "collection", name, "error", err)
		s.setStatus(name, models.StatusError)
		return nil
	}

	state, err := s.mutateOverlay(ctx, name, func(st *overlayState) error {
		s.reconcile(name, st, docs)
		return nil
	})
	if err != nil {
		s.setStatus(name, models.StatusError)
		return err
	}

	s.settle(name, state)
	return nil
}

func (s *Synchronizer) setStatus(name string, st models.SyncStatus) {
	if !s.configured {
		return
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	// offline holds until a subscription attaches
	if s.offline[name] && (st == models.StatusSyncing || st == models.StatusSynced) {
		st = models.StatusOffline
	}
	s.status[name] = st
}

// settle records the outcome of a successful remote exchange: synced, or
// error while unconfirmed local work remains.
func (s *Synchronizer) settle(name string, state *overlayState) {
	if state.hasPending() {
		s.setStatus(name, models.StatusError)
		return
	}
	s.setStatus(name, models.StatusSynced)
}

func (s *Synchronizer) resettle(ctx context.Context, name string) {
	state, err := s.readOverlay(ctx, name)
	if err != nil {
		s.setStatus(name, models.StatusError)
		return
	}
	s.settle(name, state)
}

func (s *Synchronizer) goOffline(name string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.offline[name] = true
	s.status[name] = models.StatusOffline
}

func (s *Synchronizer) goOnline(name string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	delete(s.offline, name)
	s.status[name] = models.StatusSyncing
}

func (s *Synchronizer) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
