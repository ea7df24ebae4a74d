package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeMarkdown_Sheet(t *testing.T) {
	def := sheet.PositionMachines()
	chart, err := compiler.Compile(def, sheet.Guards())
	require.NoError(t, err)

	md := DescribeMarkdown(def, chart)
	assert.Contains(t, md, "# sheet-position")
	assert.Contains(t, md, "- **position**, starts at `out`")
	assert.Contains(t, md, "`come-back` on always")
	assert.Contains(t, md, "- `READY_TO_GO_FRONT` (`skipOpening: bool?`)")
	assert.NotContains(t, md, "Unreachable")

	var buf bytes.Buffer
	require.NoError(t, Describe(&buf, def, chart, true))
	assert.Equal(t, md, buf.String())
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m), l)
		lines = append(lines, m)
	}
	return lines
}

func TestRunSession_JSONPersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	opts := RunOptions{
		EngineOptions: EngineOptions{RepoPath: dir, Loader: LoaderBuiltin},
		Group:         sheet.GroupPosition,
		SessionID:     "s1",
		JSON:          true,
	}

	var out bytes.Buffer
	opts.Stdin = strings.NewReader(`{"kind":"READY_TO_GO_FRONT","context":{"skipOpening":true}}` + "\n")
	opts.Stdout = &out
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))

	lines := decodeLines(t, out.String())
	require.Len(t, lines, 1)
	assert.Equal(t, "READY_TO_GO_FRONT", lines[0]["kind"])

	out.Reset()
	opts.Stdin = strings.NewReader(`{"command":"vector"}` + "\n")
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))

	lines = decodeLines(t, out.String())
	require.Len(t, lines, 1)
	vector := lines[0]["vector"].(map[string]any)
	assert.Equal(t, []any{"front"}, vector["position"])
	assert.Equal(t, []any{"idle"}, vector["status"])
}

func TestRunSession_FreshStartsOver(t *testing.T) {
	dir := t.TempDir()
	opts := RunOptions{
		EngineOptions: EngineOptions{RepoPath: dir, Loader: LoaderBuiltin},
		Group:         sheet.GroupPosition,
		SessionID:     "s1",
		JSON:          true,
		Stdin:         strings.NewReader(`{"kind":"READY_TO_GO_FRONT"}` + "\n"),
		Stdout:        &bytes.Buffer{},
	}
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))

	var out bytes.Buffer
	opts.Fresh = true
	opts.Stdin = strings.NewReader(`{"command":"vector"}` + "\n")
	opts.Stdout = &out
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))

	vector := decodeLines(t, out.String())[0]["vector"].(map[string]any)
	assert.Equal(t, []any{"out"}, vector["position"])
}

func TestRunSession_RejectsForeignSession(t *testing.T) {
	dir := t.TempDir()
	opts := RunOptions{
		EngineOptions: EngineOptions{RepoPath: dir, Loader: LoaderBuiltin},
		Group:         sheet.GroupPosition,
		SessionID:     "s1",
		JSON:          true,
		Stdin:         strings.NewReader(""),
		Stdout:        &bytes.Buffer{},
	}
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))

	opts.Group = sheet.GroupSheet
	err := RunSession(context.Background(), opts)
	assert.ErrorContains(t, err, `belongs to group "sheet-position"`)
}

func TestRunSession_TextWithoutSession(t *testing.T) {
	var out bytes.Buffer
	opts := RunOptions{
		EngineOptions: EngineOptions{Loader: LoaderBuiltin},
		Group:         sheet.GroupSheet,
		Headless:      true,
		Stdin:         strings.NewReader("OPEN skipOpening=true\nexit\n"),
		Stdout:        &out,
	}
	require.NoError(t, handleExecutionError(RunSession(context.Background(), opts)))
	assert.Contains(t, out.String(), "preparing-open")
}
