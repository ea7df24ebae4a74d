package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnDispatch: func(context.Context, *domain.DispatchEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnDispatch:   func(context.Context, *domain.DispatchEvent) { calls = append(calls, "b") },
		OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "t") },
	}

	h := observability.Combine(a, domain.LifecycleHooks{}, b)
	h.OnDispatch(context.Background(), &domain.DispatchEvent{})
	h.OnTransition(context.Background(), &domain.TransitionEvent{})

	assert.Equal(t, []string{"a", "b", "t"}, calls)
	assert.Nil(t, h.OnMachineCreate)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, observability.OutcomeNoop, observability.Outcome(&domain.DispatchEvent{}))
	assert.Equal(t, observability.OutcomeChanged, observability.Outcome(&domain.DispatchEvent{
		Changes: domain.ChangeSet{Changed: []string{"active"}},
	}))
	assert.Equal(t, observability.OutcomeError, observability.Outcome(&domain.DispatchEvent{Err: errors.New("boom")}))
	assert.Equal(t, observability.OutcomeEpsilonCycle, observability.Outcome(&domain.DispatchEvent{
		Err: &domain.EpsilonCycleError{Limit: 32},
	}))
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	g, err := lattice.NewGroup(ctx, sheet.Machines(), lattice.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	for _, kind := range []string{"OPEN", "PREPARED", "ANIMATION_COMPLETE", "NOTHING"} {
		_, err := g.Dispatch(ctx, kind, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Dispatches.WithLabelValues(sheet.GroupSheet, observability.OutcomeChanged)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dispatches.WithLabelValues(sheet.GroupSheet, observability.OutcomeNoop)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues(sheet.GroupSheet, "openness")))
	// Four top-level machines, then open hosts scroll, afterPaintEffectsRun, move, swipe
	// and the two evaluate machines.
	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.LiveMachines.WithLabelValues(sheet.GroupSheet)))

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	g, err := lattice.NewGroup(ctx, sheet.PositionMachines(), lattice.WithLifecycleHooks(observability.LoggingHooks(logger)))
	require.NoError(t, err)
	_, err = g.Dispatch(ctx, "TO_TRUE", nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=dispatch")
	assert.Contains(t, out, "kind=TO_TRUE")
	assert.Contains(t, out, "machine=active from=false to=true")
}

func TestBroker(t *testing.T) {
	broker := observability.NewBroker(4)
	ctx, cancel := context.WithCancel(context.Background())
	events := broker.Subscribe(ctx)

	g, err := lattice.NewGroup(context.Background(), sheet.PositionMachines(), lattice.WithLifecycleHooks(broker.Hooks()))
	require.NoError(t, err)
	_, err = g.Dispatch(context.Background(), "TO_TRUE", nil)
	require.NoError(t, err)
	_, err = g.Dispatch(context.Background(), "", nil)
	require.Error(t, err)

	select {
	case e := <-events:
		assert.Equal(t, "TO_TRUE", e.Kind)
		assert.Equal(t, []string{"active"}, e.Changes.Changed)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
