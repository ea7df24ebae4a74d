package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lattice version ")
}

func TestValidate_Builtin(t *testing.T) {
	out, err := execute(t, "validate", "--loader", "builtin")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ sheet (")
	assert.Contains(t, out, "✓ sheet-position (")
	assert.Contains(t, out, "All groups are valid!")
}

func TestValidate_ReportsUnreachableStates(t *testing.T) {
	dir := t.TempDir()
	doc := `name: door
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
      - name: jammed
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "door.yaml"), []byte(doc), 0o644))

	out, err := execute(t, "validate", "--loader", "file", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: door: jammed: state is unreachable")

	_, err = execute(t, "validate", "--loader", "file", "--dir", dir, "--strict")
	assert.ErrorContains(t, err, "1 unreachable states")
	validateCmd.Flags().Set("strict", "false")
}

func TestGraph_Builtin(t *testing.T) {
	out, err := execute(t, "graph", "sheet-position", "--loader", "builtin")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stateDiagram-v2"))
}

func TestDescribe_Raw(t *testing.T) {
	out, err := execute(t, "describe", "sheet", "--loader", "builtin", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# sheet")
	assert.Contains(t, out, "**openness**")
}

func TestSession_EmptyStore(t *testing.T) {
	out, err := execute(t, "session", "ls", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}
