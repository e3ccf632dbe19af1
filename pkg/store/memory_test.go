package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expire-adapter/expire-go/pkg/model"
)

const testNamespace = "expire.0"

func watchedObject(id, typ string, enabled bool) *model.Object {
	return &model.Object{
		ID:   id,
		Type: model.ObjectTypeState,
		Common: model.Common{
			Type: typ,
			Custom: map[string]map[string]any{
				testNamespace: {"enabled": enabled, "interval": "5s", "state": false},
			},
		},
	}
}

type stateRecorder struct {
	mu     sync.Mutex
	ids    []string
	states []*model.State
}

func (r *stateRecorder) handle(id string, st *model.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.states = append(r.states, st)
}

func TestMemoryStoreStates(t *testing.T) {
	ctx := context.Background()
	clock := time.UnixMilli(1_700_000_000_000)
	s := NewMemoryStore(WithClock(func() time.Time { return clock }), WithWriter("test"))
	defer s.Close()

	_, err := s.GetState(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetState(ctx, "a", true, false))
	st, err := s.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, true, st.Val)
	assert.Equal(t, clock.UnixMilli(), st.TS)
	assert.Equal(t, clock.UnixMilli(), st.LC)
	assert.Equal(t, "test", st.From)

	// Same value: ts moves, lc stays
	first := clock
	clock = clock.Add(time.Second)
	require.NoError(t, s.SetState(ctx, "a", true, true))
	st, err = s.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, clock.UnixMilli(), st.TS)
	assert.Equal(t, first.UnixMilli(), st.LC)
	assert.True(t, st.Ack)

	// New value: lc moves
	clock = clock.Add(time.Second)
	require.NoError(t, s.SetState(ctx, "a", false, false))
	st, err = s.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, clock.UnixMilli(), st.LC)
}

func TestMemoryStoreStateNotifications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	rec := &stateRecorder{}
	s.SubscribeStates(rec.handle)

	require.NoError(t, s.SetState(ctx, "a", 1.0, false))
	require.NoError(t, s.PutState(ctx, "b", &model.State{Val: "x", TS: 42}))
	s.Flush()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, []string{"a", "b"}, rec.ids)
	assert.Equal(t, 1.0, rec.states[0].Val)
	assert.Equal(t, int64(42), rec.states[1].TS)
}

func TestMemoryStoreObjects(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	var mu sync.Mutex
	changes := map[string]*model.Object{}
	s.SubscribeObjects(func(id string, obj *model.Object) {
		mu.Lock()
		changes[id] = obj
		mu.Unlock()
	})

	require.NoError(t, s.SetObject(ctx, watchedObject("b", "boolean", true)))
	require.NoError(t, s.SetObject(ctx, watchedObject("a", "number", true)))
	require.NoError(t, s.SetObject(ctx, watchedObject("c", "string", false)))
	assert.ErrorIs(t, s.SetObject(ctx, &model.Object{}), ErrInvalidObject)

	watchable, err := s.EnumerateWatchable(ctx, testNamespace)
	require.NoError(t, err)
	require.Len(t, watchable, 2)
	assert.Equal(t, "a", watchable[0].ID)
	assert.Equal(t, "b", watchable[1].ID)

	none, err := s.EnumerateWatchable(ctx, "expire.1")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.Objects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.DeleteObject(ctx, "b"))
	assert.ErrorIs(t, s.DeleteObject(ctx, "b"), ErrNotFound)
	_, err = s.GetObject(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	s.Flush()
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, changes, "b")
	assert.Nil(t, changes["b"], "deletion is published as nil")
	assert.NotNil(t, changes["a"])
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.SetObject(ctx, watchedObject("a", "boolean", true)))
	obj, err := s.GetObject(ctx, "a")
	require.NoError(t, err)
	obj.Common.Custom[testNamespace]["enabled"] = false

	again, err := s.GetObject(ctx, "a")
	require.NoError(t, err)
	assert.True(t, again.EnabledFor(testNamespace))
}

func TestMemoryStoreSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetObject(ctx, watchedObject("a", "boolean", true)))
	require.NoError(t, s.PutState(ctx, "a", &model.State{Val: true, TS: 100}))

	snap := s.Snapshot()
	require.NoError(t, s.Close())

	restored := NewMemoryStore()
	defer restored.Close()

	rec := &stateRecorder{}
	restored.SubscribeStates(rec.handle)
	restored.Restore(snap)
	restored.Flush()

	st, err := restored.GetState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.TS)

	watchable, err := restored.EnumerateWatchable(ctx, testNamespace)
	require.NoError(t, err)
	assert.Len(t, watchable, 1)

	rec.mu.Lock()
	assert.Empty(t, rec.ids, "restore does not publish")
	rec.mu.Unlock()
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.GetState(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.SetState(ctx, "a", 1, false), ErrClosed)
	_, err = s.EnumerateWatchable(ctx, testNamespace)
	assert.ErrorIs(t, err, ErrClosed)
}
