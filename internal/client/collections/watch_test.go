package collections

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/dataset"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/remote"
	"github.com/dmitrijs2005/nutrikeeper/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_TwoWatchersShareOneSubscription(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var (
		wg     sync.WaitGroup
		recs   [2]*recorder
		unsubs [2]func()
	)
	for i := range 2 {
		recs[i] = &recorder{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub, err := fx.sync.Watch(ctx, dataset.Foods, recs[i].fn)
			assert.NoError(t, err)
			unsubs[i] = unsub
		}()
	}
	wg.Wait()

	_, _, _, _, subscribes, _ := fx.remote.counts()
	assert.Equal(t, 1, subscribes)
	assert.Equal(t, 1, fx.remote.activeSubs())
	assert.Equal(t, 2, fx.sync.WatchCount(dataset.Foods))

	for _, r := range recs {
		r.eventuallyView(t, func(v models.View) bool {
			_, ok := v.Find("apple")
			return ok && v.Status == models.StatusSynced
		})
	}

	// a remote change fans out to both watchers
	fx.remote.seed(dataset.Foods, rpc.Document{ID: "r1", Data: map[string]any{"name": "Quinoa"}})
	for _, r := range recs {
		r.eventuallyView(t, func(v models.View) bool {
			_, ok := v.Find("r1")
			return ok
		})
	}

	unsubs[0]()
	assert.Equal(t, 1, fx.remote.activeSubs(), "subscription stays while a watcher remains")

	unsubs[1]()
	unsubs[1]()
	assert.Equal(t, 0, fx.remote.activeSubs())
	assert.Equal(t, 0, fx.sync.WatchCount(dataset.Foods))

	_, _, _, _, _, unsubscribed := fx.remote.counts()
	assert.Equal(t, 1, unsubscribed)

	// the next watcher opens a fresh subscription
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, func(models.View) {})
	require.NoError(t, err)
	defer unsub()

	_, _, _, _, subscribes, _ = fx.remote.counts()
	assert.Equal(t, 2, subscribes)
}

func TestWatch_EmitsAfterLocalWrite(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec := &recorder{}
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, rec.fn)
	require.NoError(t, err)
	defer unsub()

	fx.remote.set(func(f *fakeRemote) { f.failCreate = remote.ErrUnavailable })
	res, err := fx.sync.Create(ctx, dataset.Foods, map[string]any{"name": "Kiwi"})
	require.NoError(t, err)

	rec.eventuallyView(t, func(v models.View) bool {
		r, ok := v.Find(res.Record.ID)
		return ok && r.Pending && v.Status == models.StatusError
	})
}

func TestWatch_PendingEditSurvivesSnapshot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.sync.Create(ctx, dataset.Foods, map[string]any{"name": "Kiwi"})
	require.NoError(t, err)

	rec := &recorder{}
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, rec.fn)
	require.NoError(t, err)
	defer unsub()

	fx.remote.set(func(f *fakeRemote) { f.failUpdate = remote.ErrUnavailable })
	_, err = fx.sync.Update(ctx, dataset.Foods, res.Record.ID, map[string]any{"name": "edited"})
	require.NoError(t, err)

	// another device writes; the snapshot still carries the old Kiwi
	fx.remote.seed(dataset.Foods, rpc.Document{ID: "r1", Data: map[string]any{"name": "Quinoa"}})

	rec.eventuallyView(t, func(v models.View) bool {
		_, seen := v.Find("r1")
		row, ok := v.Find(res.Record.ID)
		return seen && ok && row.Pending && row.Data["name"] == "edited"
	})

	pending, err := fx.sync.Pending(ctx, dataset.Foods)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Record.ID}, ids(pending))
}

func TestWatch_StopsAfterUnsubscribe(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec := &recorder{}
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, rec.fn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 5*time.Millisecond)
	unsub()

	// let an in-flight callback finish before sampling
	time.Sleep(20 * time.Millisecond)
	n := rec.count()

	_, err = fx.sync.Create(ctx, dataset.Foods, map[string]any{"name": "Kiwi"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, n, rec.count())
}

func TestWatch_OfflineUntilSubscriptionAttaches(t *testing.T) {
	fx := newFixture(t)
	fx.remote.set(func(f *fakeRemote) { f.failSubscribe = remote.ErrUnavailable })
	ctx := context.Background()

	rec := &recorder{}
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, rec.fn)
	require.NoError(t, err)
	defer unsub()

	assert.Equal(t, models.StatusOffline, fx.sync.Status(dataset.Foods))
	rec.eventuallyView(t, func(v models.View) bool {
		_, ok := v.Find("apple")
		return ok && v.Status == models.StatusOffline
	})

	// a successful read does not leave offline
	v, err := fx.sync.View(ctx, dataset.Foods)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, v.Status)

	// a failed write is still reported
	fx.remote.set(func(f *fakeRemote) { f.failCreate = remote.ErrUnavailable })
	_, err = fx.sync.Create(ctx, dataset.Foods, map[string]any{"name": "Kiwi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, fx.sync.Status(dataset.Foods))

	// the reattach loop picks the subscription up once the store is back
	fx.remote.set(func(f *fakeRemote) {
		f.failSubscribe = nil
		f.failCreate = nil
	})
	rec.eventuallyView(t, func(v models.View) bool {
		return v.Status != models.StatusOffline && fx.remote.activeSubs() == 1
	})

	_, _, _, _, subscribes, _ := fx.remote.counts()
	assert.GreaterOrEqual(t, subscribes, 2)

	// the local-only row is still pending, so the collection reports error
	assert.Equal(t, models.StatusError, fx.sync.Status(dataset.Foods))

	_, err = fx.sync.Sync(ctx, dataset.Foods)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, fx.sync.Status(dataset.Foods))
}

func TestWatch_ReattachesAfterDrop(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec := &recorder{}
	unsub, err := fx.sync.Watch(ctx, dataset.Foods, rec.fn)
	require.NoError(t, err)
	defer unsub()

	require.Equal(t, models.StatusSynced, fx.sync.Status(dataset.Foods))

	fx.remote.set(func(f *fakeRemote) { f.failSubscribe = remote.ErrUnavailable })
	fx.remote.drop(dataset.Foods, remote.ErrUnavailable)

	assert.Equal(t, models.StatusOffline, fx.sync.Status(dataset.Foods))

	fx.remote.set(func(f *fakeRemote) { f.failSubscribe = nil })
	require.Eventually(t, func() bool {
		return fx.sync.Status(dataset.Foods) == models.StatusSynced && fx.remote.activeSubs() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatch_LastUnwatchStopsReattach(t *testing.T) {
	fx := newFixture(t)
	fx.remote.set(func(f *fakeRemote) { f.failSubscribe = remote.ErrUnavailable })
	ctx := context.Background()

	unsub, err := fx.sync.Watch(ctx, dataset.Foods, func(models.View) {})
	require.NoError(t, err)
	unsub()

	_, _, _, _, before, _ := fx.remote.counts()
	time.Sleep(60 * time.Millisecond)
	_, _, _, _, after, _ := fx.remote.counts()

	assert.LessOrEqual(t, after-before, 1, "no reattach attempts once nobody watches")
	assert.Equal(t, 0, fx.remote.activeSubs())
}

func TestWatch_LocalOnlyMode(t *testing.T) {
	fx := newFixture(t)
	s := New(fx.data, fx.store, nil)
	t.Cleanup(func() { _ = s.Close() })

	rec := &recorder{}
	unsub, err := s.Watch(context.Background(), dataset.Foods, rec.fn)
	require.NoError(t, err)
	defer unsub()

	rec.eventuallyView(t, func(v models.View) bool {
		_, ok := v.Find("apple")
		return ok && v.Status == models.StatusOffline
	})
}

func TestWatch_Validation(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.sync.Watch(context.Background(), dataset.Foods, nil)
	require.Error(t, err)

	_, err = fx.sync.Watch(context.Background(), "", func(models.View) {})
	require.Error(t, err)
}

func TestView_UsesAttachedSubscription(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	unsub, err := fx.sync.Watch(ctx, dataset.Foods, func(models.View) {})
	require.NoError(t, err)
	defer unsub()

	fx.remote.seed(dataset.Foods, rpc.Document{ID: "r1", Data: map[string]any{"name": "Quinoa"}})

	v, err := fx.sync.View(ctx, dataset.Foods)
	require.NoError(t, err)
	assert.Contains(t, ids(v.Records), "r1")

	lists, _, _, _, _, _ := fx.remote.counts()
	assert.Zero(t, lists)
}
