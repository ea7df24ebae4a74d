package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doorYAML = `name: door
machines:
  - name: door
    initial: closed
    states:
      - name: closed
        on:
          OPEN: open
      - name: open
        on:
          CLOSE: closed
`

func TestNewEngine_Builtin(t *testing.T) {
	engine, err := NewEngine(EngineOptions{Loader: LoaderBuiltin}, logging.NewNop())
	require.NoError(t, err)

	defs, err := engine.Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, sheet.GroupSheet, defs[0].Name)
	assert.Equal(t, sheet.GroupPosition, defs[1].Name)
}

func TestNewEngine_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "door.yaml"), []byte(doorYAML), 0o644))

	engine, err := NewEngine(EngineOptions{RepoPath: dir, Loader: LoaderFile, Debug: true}, logging.NewNop())
	require.NoError(t, err)

	g, err := engine.NewGroup(context.Background(), "door")
	require.NoError(t, err)
	cs, err := g.Dispatch(context.Background(), "OPEN", nil)
	require.NoError(t, err)
	assert.Equal(t, "open", cs.Next.Path("door"))
}

func TestNewEngine_UnknownLoader(t *testing.T) {
	_, err := NewEngine(EngineOptions{RepoPath: ".", Loader: "git"}, logging.NewNop())
	assert.ErrorContains(t, err, `unknown loader "git"`)
}

func TestNewSnapshotStore(t *testing.T) {
	t.Run("file under the repository", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewSnapshotStore(dir, "")
		require.NoError(t, err)
		require.IsType(t, &file.Store{}, store)
		assert.Equal(t, filepath.Join(dir, ".lattice", "sessions"), store.(*file.Store).BasePath)
	})

	t.Run("redis when a url is given", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := NewSnapshotStore("", "redis://"+mr.Addr())
		require.NoError(t, err)
		assert.IsType(t, &redis.Store{}, store)
	})
}
