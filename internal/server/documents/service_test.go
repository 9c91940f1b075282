package documents

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, collection)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewService(NewMemoryRepository(), pub, logging.NopLogger{})

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
	n := 0
	svc.newID = func() string {
		n++
		return "doc-" + strconv.Itoa(n)
	}
	return svc, pub
}

func TestService_CreateAssignsIDAndPublishes(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "foods", map[string]any{"id": "client-picked", "name": "kale"})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, map[string]any{"name": "kale"}, doc.Data, "the id is never part of data")
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
	assert.Equal(t, []string{"foods"}, pub.published())

	got, err := svc.Get(ctx, "foods", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestService_ListKeepsCreationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, "foods", map[string]any{"name": name})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "recipes", map[string]any{"name": "x"})
	require.NoError(t, err)

	docs, err := svc.List(ctx, "foods")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].Data["name"])
	assert.Equal(t, "c", docs[2].Data["name"])

	docs, err = svc.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestService_UpdateMergesPatch(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "foods", map[string]any{"name": "kale", "kcal": 40, "note": "x"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "foods", doc.ID, map[string]any{"kcal": 49, "note": nil, "id": "other"})
	require.NoError(t, err)

	assert.Equal(t, doc.ID, updated.ID)
	assert.Equal(t, map[string]any{"name": "kale", "kcal": 49}, updated.Data)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt))
	assert.Equal(t, doc.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []string{"foods", "foods"}, pub.published())
}

func TestService_MissingDocuments(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "foods", "nope")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Update(ctx, "foods", "nope", map[string]any{"a": 1})
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, "foods", "nope"), common.ErrNotFound)
	assert.Empty(t, pub.published(), "failed mutations publish nothing")
}

func TestService_Delete(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "foods", map[string]any{"name": "kale"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "foods", doc.ID))

	docs, err := svc.List(ctx, "foods")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, []string{"foods", "foods"}, pub.published())
}

func TestService_RejectsBadCollectionNames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"", "a:b", "with space"} {
		_, err := svc.List(ctx, name)
		assert.ErrorIs(t, err, common.ErrValidation, name)

		_, err = svc.Create(ctx, name, map[string]any{"a": 1})
		assert.ErrorIs(t, err, common.ErrValidation, name)
	}
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = assert.AnError

	_, err := svc.Create(context.Background(), "foods", map[string]any{"name": "kale"})
	require.NoError(t, err)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &Document{ID: "a", Collection: "foods", Data: map[string]any{"n": 1}}))
	require.ErrorIs(t, repo.Insert(ctx, &Document{ID: "a", Collection: "foods"}), common.ErrValidation)

	got, err := repo.Get(ctx, "foods", "a")
	require.NoError(t, err)
	got.Data["n"] = 2

	again, err := repo.Get(ctx, "foods", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Data["n"])

	_, err = repo.Modify(ctx, "foods", "a", func(*Document) error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
}
