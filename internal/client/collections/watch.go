package collections

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"github.com/sethvargo/go-retry"
)

// watchEntry owns the single remote subscription of a collection and the
// watchers fed from it.
type watchEntry struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc

	// guarded by Synchronizer.watchMu
	watchers    map[uint64]*watcher
	next        uint64
	unsubscribe func()
	attached    bool
	retrying    bool
	closed      bool
	gen         uint64
}

// watcher delivers views on its own goroutine. Notifications coalesce: a
// burst of changes yields one callback with the latest view.
type watcher struct {
	fn      func(models.View)
	signal  chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

func (w *watcher) poke() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.done)
	}
}

func (s *Synchronizer) runWatcher(e *watchEntry, w *watcher) {
	for {
		select {
		case <-w.done:
			return
		case <-w.signal:
		}
		if w.stopped.Load() {
			return
		}

		view, err := s.localView(e.ctx, e.name)
		if err != nil {
			s.log.Error(e.ctx, "failed to build view for watcher", "collection", e.name, "error", err)
			continue
		}
		if w.stopped.Load() {
			return
		}
		w.fn(view)
	}
}

// Watch calls fn with the current view right away and again after every
// remote snapshot, status change and committed local write. All watchers of
// a collection share one remote subscription. fn runs on a goroutine owned
// by the watcher; after unsubscribe returns no new callback starts.
func (s *Synchronizer) Watch(ctx context.Context, name string, fn func(models.View)) (func(), error) {
	if err := common.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: watch callback is nil", common.ErrValidation)
	}

	w := &watcher{fn: fn, signal: make(chan struct{}, 1), done: make(chan struct{})}

	s.watchMu.Lock()
	e, ok := s.watches[name]
	first := !ok
	if first {
		ectx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		e = &watchEntry{name: name, ctx: ectx, cancel: cancel, watchers: map[uint64]*watcher{}}
		s.watches[name] = e
	}
	id := e.next
	e.next++
	e.watchers[id] = w
	s.watchMu.Unlock()

	go s.runWatcher(e, w)
	w.poke()

	if first {
		s.attach(e)
	}

	var once sync.Once
	return func() { once.Do(func() { s.unwatch(e, id) }) }, nil
}

// WatchCount is the number of live watchers of a collection.
func (s *Synchronizer) WatchCount(name string) int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if e, ok := s.watches[name]; ok {
		return len(e.watchers)
	}
	return 0
}

func (s *Synchronizer) attached(name string) bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	e, ok := s.watches[name]
	return ok && e.attached
}

func (s *Synchronizer) notify(name string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if e, ok := s.watches[name]; ok {
		for _, w := range e.watchers {
			w.poke()
		}
	}
}

func (s *Synchronizer) attach(e *watchEntry) {
	if !s.configured {
		s.notify(e.name)
		return
	}

	if err := s.subscribe(e); err != nil {
		s.log.Warn(e.ctx, "remote subscription failed, collection offline", "collection", e.name, "error", err)
		s.goOffline(e.name)
		s.notify(e.name)
		s.startReattach(e)
	}
}

// subscribe opens the remote subscription of e. The remote client delivers
// the first snapshot before returning, so success means attached.
func (s *Synchronizer) subscribe(e *watchEntry) error {
	s.watchMu.Lock()
	if e.closed {
		s.watchMu.Unlock()
		return nil
	}
	e.gen++
	gen := e.gen
	s.watchMu.Unlock()

	ctx, cancel := s.remoteContext(e.ctx)
	defer cancel()

	unsubscribe, err := s.remote.Subscribe(ctx, e.name, func(docs []rpc.Document, err error) {
		s.onSnapshot(e, gen, docs, err)
	})
	if err != nil {
		return err
	}

	s.watchMu.Lock()
	if e.closed || e.gen != gen {
		s.watchMu.Unlock()
		unsubscribe()
		return nil
	}
	e.unsubscribe = unsubscribe
	s.watchMu.Unlock()
	return nil
}

func (s *Synchronizer) onSnapshot(e *watchEntry, gen uint64, docs []rpc.Document, err error) {
	s.watchMu.Lock()
	if e.closed || e.gen != gen {
		s.watchMu.Unlock()
		return
	}
	if err != nil {
		e.attached = false
		e.unsubscribe = nil
		s.watchMu.Unlock()

		s.log.Warn(e.ctx, "remote subscription lost", "collection", e.name, "error", err)
		s.goOffline(e.name)
		s.notify(e.name)
		s.startReattach(e)
		return
	}
	wasAttached := e.attached
	e.attached = true
	s.watchMu.Unlock()

	if !wasAttached {
		s.log.Info(e.ctx, "remote subscription attached", "collection", e.name)
		s.goOnline(e.name)
	}

	state, err := s.mutateOverlay(e.ctx, e.name, func(st *overlayState) error {
		s.reconcile(e.name, st, docs)
		return nil
	})
	if err != nil {
		s.log.Error(e.ctx, "failed to mirror remote snapshot", "collection", e.name, "error", err)
		s.setStatus(e.name, models.StatusError)
	} else {
		s.settle(e.name, state)
	}
	s.notify(e.name)
}

// startReattach retries subscribe with exponential backoff until it
// attaches or the last watcher leaves. At most one loop runs per entry.
func (s *Synchronizer) startReattach(e *watchEntry) {
	s.watchMu.Lock()
	if e.closed || e.retrying {
		s.watchMu.Unlock()
		return
	}
	e.retrying = true
	s.watchMu.Unlock()

	go func() {
		for {
			b := retry.NewExponential(s.reattachBase)
			b = retry.WithJitterPercent(10, b)
			b = retry.WithCappedDuration(s.reattachMax, b)

			err := retry.Do(e.ctx, b, func(ctx context.Context) error {
				if err := s.subscribe(e); err != nil {
					s.log.Debug(ctx, "reattach attempt failed", "collection", e.name, "error", err)
					return retry.RetryableError(err)
				}
				return nil
			})

			s.watchMu.Lock()
			// a drop between attach and here is handled by another round
			if err != nil || e.closed || e.attached {
				e.retrying = false
				s.watchMu.Unlock()
				return
			}
			s.watchMu.Unlock()
		}
	}()
}

func (s *Synchronizer) unwatch(e *watchEntry, id uint64) {
	s.watchMu.Lock()
	w, ok := e.watchers[id]
	if ok {
		delete(e.watchers, id)
	}
	last := len(e.watchers) == 0
	s.watchMu.Unlock()

	if ok {
		w.stop()
	}
	if last {
		s.release(e, false)
	}
}

// release closes e and its remote subscription. Unless force is set it
// backs off when a watcher joined after the last one left.
func (s *Synchronizer) release(e *watchEntry, force bool) {
	s.watchMu.Lock()
	if e.closed {
		s.watchMu.Unlock()
		return
	}
	if !force && len(e.watchers) > 0 {
		s.watchMu.Unlock()
		return
	}
	e.closed = true
	if s.watches[e.name] == e {
		delete(s.watches, e.name)
	}
	watchers := e.watchers
	e.watchers = map[uint64]*watcher{}
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.attached = false
	s.watchMu.Unlock()

	e.cancel()
	for _, w := range watchers {
		w.stop()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	s.log.Debug(e.ctx, "remote subscription released", "collection", e.name)
}
