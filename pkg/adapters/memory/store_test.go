package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

func TestMemoryStore_IsolatesVectors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	snap := &domain.Snapshot{SessionID: "s", Group: "g", Vector: domain.Vector{"m": {"a"}}}
	require.NoError(t, store.Save(ctx, "s", snap))

	snap.Vector["m"][0] = "mutated"
	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.Vector["m"])

	loaded.Vector["m"] = []string{"b"}
	again, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Vector["m"])
}

func TestMemoryTextStore_Contract(t *testing.T) {
	ports.RunTextStoreContract(t, memory.NewTextStore())
}

func TestMemoryNotificationQuery_Contract(t *testing.T) {
	ports.RunNotificationQueryContract(t, memory.NewNotificationQuery(ports.ContractNotificationData()))
}

func TestMemoryNotificationQuery_MarkRead(t *testing.T) {
	ctx := context.Background()
	q := memory.NewNotificationQuery(ports.ContractNotificationData())
	viewer := ports.ContractViewer()

	q.MarkRead(8, 10)
	n, err := q.UnreadHighPriorityCount(ctx, viewer)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = q.NewPersonalMessagesCount(ctx, viewer)
	require.NoError(t, err)
	assert.Zero(t, n)
}
