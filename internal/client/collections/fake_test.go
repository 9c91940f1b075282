package collections

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/dataset"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/kvstore"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake remote document store
 *************/

type fakeSub struct {
	collection string
	fn         remote.SnapshotFunc
}

type fakeRemote struct {
	mu sync.Mutex

	docs   map[string][]rpc.Document
	nextID int

	// failures injected per operation
	failAll       error
	failCreate    error
	failUpdate    error
	failDelete    error
	failSubscribe error
	// hang blocks List, Create, Update and Delete until the call context ends
	hang bool

	listCalls      int
	createCalls    int
	updateCalls    int
	deleteCalls    int
	subscribeCalls int
	unsubscribed   int

	subs   map[int]*fakeSub
	nextSu int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: map[string][]rpc.Document{}, subs: map[int]*fakeSub{}}
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) counts() (list, create, update, del, sub, unsub int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, f.updateCalls, f.deleteCalls, f.subscribeCalls, f.unsubscribed
}

func (f *fakeRemote) seed(collection string, docs ...rpc.Document) {
	f.mu.Lock()
	for i := range docs {
		docs[i].Collection = collection
	}
	f.docs[collection] = append(f.docs[collection], docs...)
	f.mu.Unlock()
	f.push(collection)
}

func (f *fakeRemote) snapshot(collection string) []rpc.Document {
	out := make([]rpc.Document, len(f.docs[collection]))
	for i, d := range f.docs[collection] {
		d.Data = models.CloneData(d.Data)
		out[i] = d
	}
	return out
}

// push delivers the current snapshot to every live subscriber.
func (f *fakeRemote) push(collection string) {
	f.mu.Lock()
	docs := f.snapshot(collection)
	var fns []remote.SnapshotFunc
	for _, s := range f.subs {
		if s.collection == collection {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(docs, nil)
	}
}

// drop terminates every subscription of collection with err.
func (f *fakeRemote) drop(collection string, err error) {
	f.mu.Lock()
	var fns []remote.SnapshotFunc
	for id, s := range f.subs {
		if s.collection == collection {
			fns = append(fns, s.fn)
			delete(f.subs, id)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(nil, err)
	}
}

func (f *fakeRemote) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// blocked reports whether the call should hang, and if so waits for ctx.
// It must be called without f.mu held.
func (f *fakeRemote) blocked(ctx context.Context) (bool, error) {
	f.mu.Lock()
	hang := f.hang
	f.mu.Unlock()
	if !hang {
		return false, nil
	}
	<-ctx.Done()
	return true, ctx.Err()
}

func (f *fakeRemote) List(ctx context.Context, collection string) ([]rpc.Document, error) {
	if hung, err := f.blocked(ctx); hung {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failAll != nil {
		return nil, f.failAll
	}
	return f.snapshot(collection), nil
}

func (f *fakeRemote) Get(_ context.Context, collection, id string) (*rpc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, d := range f.docs[collection] {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) Create(ctx context.Context, collection string, data map[string]any) (*rpc.Document, error) {
	if hung, err := f.blocked(ctx); hung {
		return nil, err
	}
	f.mu.Lock()
	f.createCalls++
	if err := firstErr(f.failAll, f.failCreate); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.nextID++
	now := time.Date(2025, 6, 1, 0, 0, f.nextID, 0, time.UTC)
	d := rpc.Document{
		ID:         fmt.Sprintf("doc-%d", f.nextID),
		Collection: collection,
		Data:       models.CloneData(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.docs[collection] = append(f.docs[collection], d)
	f.mu.Unlock()

	f.push(collection)
	return &d, nil
}

func (f *fakeRemote) Update(ctx context.Context, collection, id string, patch map[string]any) (*rpc.Document, error) {
	if hung, err := f.blocked(ctx); hung {
		return nil, err
	}
	f.mu.Lock()
	f.updateCalls++
	if err := firstErr(f.failAll, f.failUpdate); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	i := slices.IndexFunc(f.docs[collection], func(d rpc.Document) bool { return d.ID == id })
	if i < 0 {
		f.mu.Unlock()
		return nil, common.ErrNotFound
	}
	r := models.Record{Data: f.docs[collection][i].Data}
	r.Apply(patch)
	f.docs[collection][i].Data = r.Data
	d := f.docs[collection][i]
	d.Data = models.CloneData(d.Data)
	f.mu.Unlock()

	f.push(collection)
	return &d, nil
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	if hung, err := f.blocked(ctx); hung {
		return err
	}
	f.mu.Lock()
	f.deleteCalls++
	if err := firstErr(f.failAll, f.failDelete); err != nil {
		f.mu.Unlock()
		return err
	}
	i := slices.IndexFunc(f.docs[collection], func(d rpc.Document) bool { return d.ID == id })
	if i < 0 {
		f.mu.Unlock()
		return common.ErrNotFound
	}
	f.docs[collection] = slices.Delete(f.docs[collection], i, i+1)
	f.mu.Unlock()

	f.push(collection)
	return nil
}

func (f *fakeRemote) Subscribe(_ context.Context, collection string, fn remote.SnapshotFunc) (func(), error) {
	f.mu.Lock()
	f.subscribeCalls++
	if err := firstErr(f.failAll, f.failSubscribe); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.nextSu++
	id := f.nextSu
	f.subs[id] = &fakeSub{collection: collection, fn: fn}
	docs := f.snapshot(collection)
	f.mu.Unlock()

	fn(docs, nil)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				f.unsubscribed++
			}
		})
	}, nil
}

func (f *fakeRemote) Close() error { return nil }

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

/*************
 * Helpers
 *************/

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	sync   *Synchronizer
	remote *fakeRemote
	store  kvstore.Store
	clock  *fakeClock
	data   *dataset.Dataset
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	fx := &fixture{
		remote: newFakeRemote(),
		store:  kvstore.NewMemoryStore(0),
		clock:  &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		data:   dataset.MustLoad(),
	}
	opts = append([]Option{
		WithClock(fx.clock.Now),
		WithRemoteTimeout(time.Second),
		WithReattachBackoff(5*time.Millisecond, 20*time.Millisecond),
	}, opts...)
	fx.sync = New(fx.data, fx.store, fx.remote, opts...)
	t.Cleanup(func() { _ = fx.sync.Close() })
	return fx
}

// recorder collects views delivered to a watcher.
type recorder struct {
	mu    sync.Mutex
	views []models.View
}

func (r *recorder) fn(v models.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recorder) last() (models.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return models.View{}, false
	}
	return r.views[len(r.views)-1], true
}

// eventuallyView waits until the last delivered view satisfies cond.
func (r *recorder) eventuallyView(t *testing.T, cond func(models.View) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, ok := r.last()
		return ok && cond(v)
	}, 2*time.Second, 5*time.Millisecond)
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
