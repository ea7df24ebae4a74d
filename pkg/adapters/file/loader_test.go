package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/dto"
	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/domain"
	contract "github.com/aretw0/lattice/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toggleYAML = `
name: toggle
machines:
  light:
    initial: "off"
    states:
      "off": {on: {FLIP: "on"}}
      "on": {on: {FLIP: "off"}}
`

const doorJSON = `{
  "name": "door",
  "machines": [
    {"name": "door", "initial": "closed", "states": [
      {"name": "closed", "on": {"OPEN": "open"}},
      {"name": "open", "on": {"CLOSE": "closed"}}
    ]}
  ]
}`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func canonical(t *testing.T, doc string) []byte {
	t.Helper()
	def, err := dto.DecodeYAML([]byte(doc))
	require.NoError(t, err)
	bytes, err := dto.Marshal(def)
	require.NoError(t, err)
	return bytes
}

func TestFileLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"toggle.yaml":       toggleYAML,
		"nested/door.json":  doorJSON,
		"README.md":         "# not a group",
		".hidden/skip.yaml": "not: [valid",
	})

	contract.GroupLoaderContractTest(t, file.NewLoader(dir), map[string][]byte{
		"toggle": canonical(t, toggleYAML),
		"door":   canonical(t, doorJSON),
	})
}

func TestFileLoader_OutputCompiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"toggle.yml": toggleYAML})

	raw, err := file.NewLoader(dir).GetGroup("toggle")
	require.NoError(t, err)
	def, err := compiler.NewParser().Parse(raw)
	require.NoError(t, err)
	chart, err := compiler.Compile(def, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"FLIP"}, chart.Kinds())
}

func TestFileLoader_DetectsCollisions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml": toggleYAML,
		"b.yaml": toggleYAML,
	})

	_, err := file.NewLoader(dir).ListGroups()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "toggle")
}

func TestFileLoader_ReportsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"broken.yaml": "name: x\nmachines: [{name: m, bogus: 1}]"})

	_, err := file.NewLoader(dir).GetGroup("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.NotErrorIs(t, err, domain.ErrGroupNotFound)
}
