package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSheet(t *testing.T) *lattice.Group {
	t.Helper()
	g, err := lattice.NewGroup(context.Background(), sheet.Machines())
	require.NoError(t, err)
	return g
}

func decodeLines(t *testing.T, out string) []runner.JSONResult {
	t.Helper()
	var results []runner.JSONResult
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var res runner.JSONResult
		require.NoError(t, json.Unmarshal([]byte(line), &res), line)
		results = append(results, res)
	}
	return results
}

func TestRunner_JSONFlow(t *testing.T) {
	g := newSheet(t)
	in := strings.NewReader(`{"kind":"OPEN","context":{"skipOpening":true}}
{"kind":"PREPARED"}
{"kind":"NOPE"}
{"command":"vector"}
`)
	var out bytes.Buffer

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(in, &out)),
		runner.WithHeadless(true),
	)
	require.NoError(t, r.Run(context.Background(), runner.NewGroupDispatcher(g)))

	results := decodeLines(t, out.String())
	require.Len(t, results, 4)

	assert.Equal(t, "OPEN", results[0].Kind)
	assert.Equal(t, []string{"openness"}, results[0].Changed)
	assert.Equal(t, []string{"preparing-open"}, results[0].Next["openness"])

	assert.Contains(t, results[1].Changed, "openness")
	assert.Equal(t, []string{"open"}, results[1].Next["openness"])

	assert.Empty(t, results[2].Changed)
	assert.Empty(t, results[2].Error)

	assert.Equal(t, "vector", results[3].Command)
	assert.Equal(t, []string{"open"}, results[3].Vector["openness"])
	assert.Equal(t, g.CurrentVector(), results[3].Vector)
}

func TestRunner_TextFlow(t *testing.T) {
	g := newSheet(t)
	in := strings.NewReader("OPEN\n\nPREPARED\n:reset\n:vector\nexit\nOPEN\n")
	var out bytes.Buffer

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(in, &out, runner.WithPrompt(""))),
		runner.WithHeadless(true),
	)
	require.NoError(t, r.Run(context.Background(), runner.NewGroupDispatcher(g)))

	text := out.String()
	assert.Contains(t, text, "preparing-opening")
	assert.Contains(t, text, "staging")
	// exit stops reading, so the trailing OPEN never runs.
	assert.True(t, g.CurrentVector().In("openness", "closed", "safe-to-unmount"))
}

func TestRunner_InterceptorRejects(t *testing.T) {
	g := newSheet(t)
	in := strings.NewReader(`{"kind":"OPEN"}` + "\n")
	var out bytes.Buffer

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(in, &out)),
		runner.WithInterceptor(runner.AllowKinds("CLOSE")),
		runner.WithHeadless(true),
	)
	require.NoError(t, r.Run(context.Background(), runner.NewGroupDispatcher(g)))

	results := decodeLines(t, out.String())
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "not allowed")
	assert.True(t, g.CurrentVector().In("openness", "closed"))
}

func TestRunner_StopOnError(t *testing.T) {
	g := newSheet(t)
	in := strings.NewReader(`{"kind":"OPEN"}` + "\n" + `{"kind":"OPEN"}` + "\n")
	var out bytes.Buffer

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(in, &out)),
		runner.WithInterceptor(runner.AllowKinds()),
		runner.WithHeadless(true),
		runner.WithStopOnError(),
	)
	err := r.Run(context.Background(), runner.NewGroupDispatcher(g))
	require.Error(t, err)
	assert.Len(t, decodeLines(t, out.String()), 1)
}

func TestRunner_GreetsUnlessHeadless(t *testing.T) {
	var out bytes.Buffer
	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(""), &out)),
	)
	require.NoError(t, r.Run(context.Background(), runner.NewGroupDispatcher(newSheet(t))))

	results := decodeLines(t, out.String())
	require.Len(t, results, 1)
	assert.Contains(t, results[0].System, ":vector")
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(`{"kind":"OPEN"}`+"\n"), &bytes.Buffer{})),
		runner.WithHeadless(true),
	)
	assert.NoError(t, r.Run(ctx, runner.NewGroupDispatcher(newSheet(t))))
}

func TestRunner_SessionDispatcherPersists(t *testing.T) {
	ctx := context.Background()
	loader, err := memory.NewFromGroups(sheet.Machines())
	require.NoError(t, err)
	eng, err := lattice.New("", lattice.WithLoader(loader))
	require.NoError(t, err)

	store := memory.NewStore()
	mgr := session.NewManager(eng, store)
	_, err = mgr.Create(ctx, sheet.GroupSheet, "s1")
	require.NoError(t, err)

	in := strings.NewReader(`{"kind":"OPEN"}` + "\n" + `{"command":"vector"}` + "\n")
	var out bytes.Buffer
	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewJSONHandler(in, &out)),
		runner.WithHeadless(true),
	)
	require.NoError(t, r.Run(ctx, runner.NewSessionDispatcher(mgr, "s1")))

	snap, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Dispatches)
	assert.Equal(t, []string{"preparing-opening"}, snap.Vector["openness"])

	results := decodeLines(t, out.String())
	require.Len(t, results, 2)
	assert.Equal(t, snap.Vector, results[1].Vector)
}
