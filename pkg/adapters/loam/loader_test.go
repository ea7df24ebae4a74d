package loam

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/dto"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports/tests"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toggleDoc = `---
name: toggle
machines:
  - name: light
    initial: "off"
    states:
      - name: "off"
        on: {FLIP: "on"}
      - name: "on"
        on:
          FLIP: "off"
          BURN: [{guard: overloaded, target: "off"}]
guards:
  overloaded: {flag: overloaded}
contexts:
  BURN: {overloaded: bool}
---
A light that **flips**.`

const doorDoc = `---
machines:
  - name: door
    initial: closed
    states:
      - {name: closed, on: {OPEN: open}}
      - {name: open, on: {CLOSE: closed}}
---
`

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return New(loam.NewTypedRepository[dto.GroupDocument](repo))
}

func TestLoader_Contract(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"toggle.md": toggleDoc,
		"door.md":   doorDoc,
	})

	toggle, err := loader.GetGroup("toggle")
	require.NoError(t, err)
	door, err := loader.GetGroup("door")
	require.NoError(t, err)

	tests.GroupLoaderContractTest(t, loader, map[string][]byte{
		"toggle": toggle,
		"door":   door,
	})
}

func TestLoader_GetGroup_Decodes(t *testing.T) {
	loader := newLoader(t, map[string]string{"toggle.md": toggleDoc})

	raw, err := loader.GetGroup("toggle")
	require.NoError(t, err)
	def, err := compiler.NewParser().Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "A light that **flips**.", def.Description, "the body becomes the description")
	require.Len(t, def.Machines, 1)
	assert.Equal(t, []domain.Candidate{{Guard: "overloaded", Target: "off"}}, def.Machines[0].States[1].Messages["BURN"])
	assert.Equal(t, map[string]string{"overloaded": "bool"}, def.Contexts["BURN"])

	chart, err := compiler.Compile(def, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BURN", "FLIP"}, chart.Kinds())
}

func TestLoader_ListGroups_UsesDeclaredNames(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"light-switch.md": toggleDoc,
		"door.md":         doorDoc,
		"README.md":       "# Groups\n",
	})

	names, err := loader.ListGroups()
	require.NoError(t, err)
	assert.Equal(t, []string{"door", "toggle"}, names)

	_, err = loader.GetGroup("toggle")
	assert.NoError(t, err, "lookup falls back to the declared name")
}

func TestLoader_ListGroups_DetectsCollisions(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"a.md": toggleDoc,
		"b.md": toggleDoc,
	})

	_, err := loader.ListGroups()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "toggle")
}

func TestLoader_GetGroup_NotFound(t *testing.T) {
	loader := newLoader(t, map[string]string{"door.md": doorDoc})
	_, err := loader.GetGroup("window")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}
