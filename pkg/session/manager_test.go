package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/aretw0/lattice/pkg/sheet"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, defs ...domain.GroupDefinition) *lattice.Engine {
	t.Helper()
	if len(defs) == 0 {
		defs = sheet.All()
	}
	loader, err := memory.NewFromGroups(defs...)
	require.NoError(t, err)
	eng, err := lattice.New("", lattice.WithLoader(loader))
	require.NoError(t, err)
	return eng
}

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, snap)
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func TestManager_CreateAndDispatch(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())
	ctx := context.Background()

	snap, err := mgr.Create(ctx, sheet.GroupPosition, "")
	require.NoError(t, err)
	require.NotEmpty(t, snap.SessionID)
	assert.Equal(t, sheet.GroupPosition, snap.Group)
	assert.Equal(t, []string{"out"}, snap.Vector["position"])

	cs, next, err := mgr.Dispatch(ctx, snap.SessionID, domain.Message{Kind: "READY_TO_GO_FRONT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"position", "status"}, cs.Changed)
	assert.Equal(t, []string{"opening"}, next.Vector["status"])
	assert.Equal(t, 1, next.Dispatches)

	loaded, err := mgr.Load(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, next.Vector, loaded.Vector)
}

func TestManager_CreateRejectsExistingID(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())
	ctx := context.Background()

	_, err := mgr.Create(ctx, sheet.GroupSheet, "s1")
	require.NoError(t, err)
	_, err = mgr.Create(ctx, sheet.GroupSheet, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestManager_UnknownGroup(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())

	_, err := mgr.Create(context.Background(), "missing", "s1")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestManager_FailedDispatchIsNotSaved(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())
	ctx := context.Background()
	snap, err := mgr.Create(ctx, sheet.GroupSheet, "s1")
	require.NoError(t, err)

	_, _, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "OPEN", Context: map[string]any{"skipOpening": "yes"}})
	var invalid *domain.ContextValidationError
	require.ErrorAs(t, err, &invalid)

	loaded, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.Vector, loaded.Vector)
	assert.Equal(t, 0, loaded.Dispatches)
}

func TestManager_EpsilonCycleIsSaved(t *testing.T) {
	b := dsl.New("loop")
	m := b.Machine("m").Initial("a")
	m.State("a").On("GO", "b")
	m.State("b").Always("c")
	m.State("c").Always("b")
	mgr := session.NewManager(newEngine(t, b.Build()), memory.NewStore())
	ctx := context.Background()
	_, err := mgr.Create(ctx, "loop", "s1")
	require.NoError(t, err)

	_, snap, err := mgr.Dispatch(ctx, "s1", domain.Message{Kind: "GO"})
	var cycle *domain.EpsilonCycleError
	require.ErrorAs(t, err, &cycle)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"b"}, snap.Vector["m"])

	loaded, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, loaded.Vector["m"])
}

func TestManager_Reset(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())
	ctx := context.Background()
	_, err := mgr.Create(ctx, sheet.GroupPosition, "s1")
	require.NoError(t, err)
	_, _, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "TO_TRUE"})
	require.NoError(t, err)

	cs, snap, err := mgr.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, cs.Changed)
	assert.Equal(t, []string{"false"}, snap.Vector["active"])
	assert.Equal(t, 1, snap.Dispatches)
}

func TestManager_ResetRecoversFromEpsilonCycle(t *testing.T) {
	b := dsl.New("loop")
	m := b.Machine("m").Initial("a")
	m.State("a").On("GO", "ping").On("STEP", "d")
	m.State("ping").Always("pong")
	m.State("pong").Always("ping")
	m.State("d")
	mgr := session.NewManager(newEngine(t, b.Build()), memory.NewStore())
	ctx := context.Background()
	_, err := mgr.Create(ctx, "loop", "s1")
	require.NoError(t, err)

	_, _, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "GO"})
	var cycle *domain.EpsilonCycleError
	require.ErrorAs(t, err, &cycle)

	_, _, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "STEP"})
	require.ErrorAs(t, err, &cycle, "the stored vector sits inside the cycle")

	cs, snap, err := mgr.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, cs.Changed)
	assert.Equal(t, []string{"a"}, snap.Vector["m"])
	assert.Equal(t, 1, snap.Dispatches)

	cs, snap, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "STEP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, cs.Changed)
	assert.Equal(t, []string{"d"}, snap.Vector["m"])
}

func TestManager_ResetLeavesSilentMachinesOutOfChanges(t *testing.T) {
	mgr := session.NewManager(newEngine(t), memory.NewStore())
	ctx := context.Background()
	_, err := mgr.Create(ctx, sheet.GroupSheet, "s1")
	require.NoError(t, err)
	_, _, err = mgr.Dispatch(ctx, "s1", domain.Message{Kind: "TOUCH_START"})
	require.NoError(t, err)

	cs, snap, err := mgr.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cs.Changed)
	assert.NotContains(t, cs.Prior, "scrollContainerTouch")
	assert.Equal(t, []string{"ended"}, snap.Vector["scrollContainerTouch"])
}

func TestManager_Locking(t *testing.T) {
	store := SlowStore{Store: memory.NewStore()}
	mgr := session.NewManager(newEngine(t), store)
	ctx := context.Background()
	_, err := mgr.Create(ctx, sheet.GroupPosition, "race")
	require.NoError(t, err)

	// Every dispatch is a read-modify-write; without serialization updates get lost.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := mgr.Dispatch(ctx, "race", domain.Message{Kind: "TO_TRUE"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := mgr.Load(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Dispatches)
}

func TestManager_LoadOrCreate(t *testing.T) {
	mgr := session.NewManager(newEngine(t), SlowStore{Store: memory.NewStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := mgr.LoadOrCreate(ctx, sheet.GroupSheet, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"atomic-init"}, ids)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("redis down")
}

func TestManager_DistributedLock(t *testing.T) {
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		mgr := session.NewManager(newEngine(t), memory.NewStore(),
			session.WithLocker(redis.NewLocker(client, "")),
			session.WithLockTTL(time.Second))

		_, err := mgr.Create(context.Background(), sheet.GroupSheet, "s1")
		require.NoError(t, err)
		assert.Empty(t, mr.Keys(), "the lock must be released after the call")
	})

	t.Run("acquire failure", func(t *testing.T) {
		mgr := session.NewManager(newEngine(t), memory.NewStore(), session.WithLocker(failingLocker{}))

		_, err := mgr.Create(context.Background(), sheet.GroupSheet, "s1")
		assert.ErrorContains(t, err, "failed to acquire distributed lock")
	})
}
