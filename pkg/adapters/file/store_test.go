package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_AtomicWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := file.NewStore(dir)

	snap := &domain.Snapshot{SessionID: "s1", Group: "sheet", Vector: domain.Vector{"staging": {"none"}}}
	require.NoError(t, store.Save(ctx, "s1", snap))
	snap.Vector["staging"] = []string{"opening"}
	require.NoError(t, store.Save(ctx, "s1", snap))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	assert.Equal(t, "s1.json", entries[0].Name())

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"opening"}, loaded.Vector["staging"])
}

func TestFileStore_RejectsPathsAsIDs(t *testing.T) {
	ctx := context.Background()
	store := file.NewStore(t.TempDir())

	for _, id := range []string{"", "..", "a/b", filepath.Join("..", "x")} {
		assert.Error(t, store.Save(ctx, id, &domain.Snapshot{}), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileTextStore_Contract(t *testing.T) {
	ports.RunTextStoreContract(t, file.NewTextStore(filepath.Join(t.TempDir(), "llms", "llms.txt")))
}
