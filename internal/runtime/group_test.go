package runtime_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroup(t *testing.T, def domain.GroupDefinition, guards *registry.Registry, opts ...runtime.Option) *runtime.Group {
	t.Helper()
	chart, err := compiler.Compile(def, guards)
	require.NoError(t, err)
	g, err := runtime.New(context.Background(), chart, opts...)
	require.NoError(t, err)
	return g
}

func dispatch(t *testing.T, g *runtime.Group, kind string, data map[string]any) domain.ChangeSet {
	t.Helper()
	cs, err := g.Dispatch(context.Background(), kind, data)
	require.NoError(t, err)
	return cs
}

func TestGroup_InitialVector(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())

	assert.Equal(t, domain.Vector{
		"staging":              {"none"},
		"longRunning":          {"false"},
		"openness":             {"closed", "safe-to-unmount"},
		"scrollContainerTouch": {"ended"},
	}, g.CurrentVector())
	assert.Equal(t, sheet.GroupSheet, g.Name())
}

func TestGroup_ToggleChangesOnlyItsMachine(t *testing.T) {
	g := newGroup(t, sheet.PositionMachines(), sheet.Guards())

	cs := dispatch(t, g, "TO_TRUE", nil)

	assert.Equal(t, []string{"active"}, cs.Changed)
	assert.Equal(t, []string{"false"}, cs.Prior["active"])
	assert.Equal(t, []string{"true"}, cs.Next["active"])
	assert.Equal(t, []string{"out"}, cs.Next["position"])
}

func TestGroup_OpenFromClosedHonorsSkipOpening(t *testing.T) {
	t.Run("without skipOpening", func(t *testing.T) {
		g := newGroup(t, sheet.Machines(), sheet.Guards())
		cs := dispatch(t, g, "OPEN", nil)
		assert.Equal(t, []string{"openness"}, cs.Changed)
		assert.Equal(t, []string{"preparing-opening"}, g.CurrentVector()["openness"])
	})

	t.Run("with skipOpening", func(t *testing.T) {
		g := newGroup(t, sheet.Machines(), sheet.Guards())
		cs := dispatch(t, g, "OPEN", map[string]any{"skipOpening": true})
		assert.Equal(t, []string{"openness"}, cs.Changed)
		assert.Equal(t, []string{"preparing-open"}, g.CurrentVector()["openness"])
	})

	t.Run("pending prefers its own candidates", func(t *testing.T) {
		g := newGroup(t, sheet.Machines(), sheet.Guards())
		openSheet(t, g)
		dispatch(t, g, "SWIPE_OUT", nil)
		require.Equal(t, []string{"closed", "pending"}, g.CurrentVector()["openness"])

		dispatch(t, g, "OPEN", map[string]any{"skipOpening": true})
		assert.Equal(t, []string{"closed", "flushing-to-preparing-open"}, g.CurrentVector()["openness"])
		dispatch(t, g, "FLUSH_COMPLETE", nil)
		assert.Equal(t, []string{"preparing-open"}, g.CurrentVector()["openness"])
	})
}

func openSheet(t *testing.T, g *runtime.Group) {
	t.Helper()
	dispatch(t, g, "OPEN", map[string]any{"skipOpening": true})
	cs := dispatch(t, g, "PREPARED", nil)
	require.Equal(t, []string{"open"}, g.CurrentVector()["openness"])
	assert.Equal(t, []string{"move", "openness", "scroll"}, cs.Changed, "created nested machines are part of the change")
}

func TestGroup_NestedMachinesFollowTheirHost(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	openSheet(t, g)
	require.Equal(t, []string{"false"}, g.CurrentVector()["afterPaintEffectsRun"])

	cs := dispatch(t, g, "SCROLL_START", nil)

	assert.Equal(t, []string{"scroll"}, cs.Changed)
	assert.Equal(t, []string{"ongoing"}, cs.Next["scroll"])
	assert.Equal(t, cs.Prior["openness"], cs.Next["openness"])
	assert.NotContains(t, g.CurrentVector(), "afterPaintEffectsRun", "exiting the host destroys nested machines")

	dispatch(t, g, "SCROLL_END", nil)
	assert.Equal(t, []string{"false"}, g.CurrentVector()["afterPaintEffectsRun"])
}

func TestGroup_EpsilonSettlesInSameDispatch(t *testing.T) {
	g := newGroup(t, sheet.PositionMachines(), sheet.Guards())
	dispatch(t, g, "READY_TO_GO_FRONT", nil)
	dispatch(t, g, "NEXT", nil)
	dispatch(t, g, "READY_TO_GO_DOWN", nil)
	require.Equal(t, []string{"covered"}, g.CurrentVector()["position"])
	require.Equal(t, []string{"going-down"}, g.CurrentVector()["status"])
	dispatch(t, g, "NEXT", nil)

	require.Equal(t, []string{"idle"}, g.CurrentVector()["status"])

	cs := dispatch(t, g, "READY_TO_GO_DOWN", map[string]any{"skipOpening": true})

	assert.Equal(t, []string{"status"}, cs.Changed, "come-back was entered and left within the dispatch")
	assert.Equal(t, []string{"idle"}, cs.Next["status"])
	assert.Equal(t, []string{"covered"}, cs.Next["position"])
}

func TestGroup_GuardRejectsWithoutFallback(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	before := g.CurrentVector()

	cs := dispatch(t, g, "ACTUALLY_CLOSE", map[string]any{"skipClosing": true})

	assert.True(t, cs.IsEmpty())
	assert.Equal(t, before, g.CurrentVector())

	cs = dispatch(t, g, "ACTUALLY_CLOSE", nil)
	assert.Equal(t, []string{"staging"}, cs.Changed)
	assert.Equal(t, []string{"closing"}, cs.Next["staging"])
}

func TestGroup_CrossMachineSeedsNestedMachine(t *testing.T) {
	g := newGroup(t, sheet.PositionMachines(), sheet.Guards())

	cs := dispatch(t, g, "READY_TO_GO_FRONT", map[string]any{"skipOpening": true})
	assert.Equal(t, []string{"position", "status"}, cs.Changed)
	assert.Equal(t, []string{"front"}, cs.Next["position"])
	assert.Equal(t, []string{"idle"}, cs.Next["status"])

	// front.status -> covered.status: the front instance is destroyed, the covered one seeded.
	cs = dispatch(t, g, "READY_TO_GO_DOWN", map[string]any{"skipOpening": true})
	assert.Equal(t, []string{"covered"}, cs.Next["position"])
	assert.Equal(t, []string{"idle"}, cs.Next["status"])

	cs = dispatch(t, g, "GOTO_FRONT_IDLE", nil)
	assert.Equal(t, []string{"front"}, cs.Next["position"])
	assert.Equal(t, []string{"idle"}, cs.Next["status"])

	// Both position (front) and status (idle) handle GO_OUT; leaving front drops the status selection.
	cs = dispatch(t, g, "GO_OUT", nil)
	assert.Equal(t, domain.Vector{"active": {"false"}, "position": {"out"}}, cs.Next)
	assert.Equal(t, []string{"position", "status"}, cs.Changed)
}

func TestGroup_SilentMachinesAreHidden(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())

	cs := dispatch(t, g, "TOUCH_START", nil)
	assert.True(t, cs.IsEmpty())
	assert.NotContains(t, cs.Next, "scrollContainerTouch")
	assert.Equal(t, []string{"ongoing"}, g.CurrentVector()["scrollContainerTouch"])

	openSheet(t, g)
	cs = dispatch(t, g, "SWIPE_START", nil)
	assert.True(t, cs.IsEmpty())
	assert.Equal(t, []string{"ongoing"}, g.CurrentVector()["swipe"])
}

func TestGroup_SelfTransitionResetsNestedMachines(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	openSheet(t, g)
	dispatch(t, g, "MOVE_START", nil)
	require.Equal(t, []string{"ongoing"}, g.CurrentVector()["move"])

	cs := dispatch(t, g, "STEP", nil)

	assert.Equal(t, []string{"open"}, cs.Next["openness"])
	assert.Equal(t, []string{"ended"}, cs.Next["move"])
	assert.Contains(t, cs.Changed, "openness")
	assert.Contains(t, cs.Changed, "move")
	// evaluateStepMessage was recreated by the re-entry, so its own STEP selection is dropped.
	assert.Equal(t, []string{"false"}, g.CurrentVector()["evaluateStepMessage"])
}

func TestGroup_NoMatchIsIdempotent(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	before := g.CurrentVector()

	for range 3 {
		cs := dispatch(t, g, "NOT_A_KIND", nil)
		assert.True(t, cs.IsEmpty())
		assert.Equal(t, cs.Prior, cs.Next)
	}
	assert.Equal(t, before, g.CurrentVector())
}

func TestGroup_EmptyKind(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	_, err := g.Dispatch(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyKind)
	_, err = g.DispatchMessage(context.Background(), domain.Message{})
	assert.ErrorIs(t, err, domain.ErrEmptyKind)
}

func TestGroup_StrictKinds(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards(), runtime.WithStrictKinds())

	_, err := g.Dispatch(context.Background(), "OPN", nil)
	var unknown *domain.UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "OPEN", unknown.Suggestion)
}

func TestGroup_ContextValidation(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	before := g.CurrentVector()

	_, err := g.Dispatch(context.Background(), "OPEN", map[string]any{"skipOpening": "yes"})
	var invalid *domain.ContextValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "OPEN", invalid.Kind)
	assert.Equal(t, before, g.CurrentVector())
}

func TestGroup_GuardsSeePriorVector(t *testing.T) {
	b := dsl.New("g")
	a := b.Machine("a").Initial("x")
	a.State("x").On("GO", "y")
	a.State("y").On("GO", "x")
	follower := b.Machine("b").Initial("idle")
	follower.State("idle").When("GO", "aWasX", "saw-x").On("GO", "saw-y")
	follower.State("saw-x").On("GO", "idle")
	follower.State("saw-y").On("GO", "idle")

	guards := registry.NewRegistry().MustRegister("aWasX", registry.InState("a", "x"))
	g := newGroup(t, b.Build(), guards)

	cs := dispatch(t, g, "GO", nil)
	assert.Equal(t, []string{"y"}, cs.Next["a"])
	assert.Equal(t, []string{"saw-x"}, cs.Next["b"], "guard must see a=x even though a moved first")
}

func TestGroup_GuardOrderIsDeterministic(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("s")
	m.State("s").When("GO", "yes", "first").When("GO", "yes", "second").On("GO", "third")
	m.State("first")
	m.State("second")
	m.State("third")

	calls := 0
	guards := registry.NewRegistry().MustRegister("yes", func(domain.Vector, domain.Message) (bool, error) {
		calls++
		return true, nil
	})
	g := newGroup(t, b.Build(), guards)

	cs := dispatch(t, g, "GO", nil)
	assert.Equal(t, []string{"first"}, cs.Next["m"])
	assert.Equal(t, 1, calls, "later candidates are not evaluated")
}

func TestGroup_FailedLeafGuardDoesNotFallBackToAncestor(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("outer.inner")
	outer := m.State("outer").Initial("inner").On("GO", "elsewhere")
	outer.State("inner").When("GO", "never", "other")
	outer.State("other")
	m.State("elsewhere")

	guards := registry.NewRegistry().MustRegister("never", func(domain.Vector, domain.Message) (bool, error) { return false, nil })
	g := newGroup(t, b.Build(), guards)

	cs := dispatch(t, g, "GO", nil)
	assert.Empty(t, cs.Changed)
	assert.Equal(t, []string{"outer", "inner"}, g.CurrentVector()["m"])
}

func TestGroup_AncestorHandlesKindLeafDoesNotDeclare(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("outer.inner")
	outer := m.State("outer").Initial("inner").On("GO", "elsewhere")
	outer.State("inner").On("STAY", "other")
	outer.State("other")
	m.State("elsewhere")

	g := newGroup(t, b.Build(), registry.NewRegistry())

	cs := dispatch(t, g, "GO", nil)
	assert.Equal(t, []string{"m"}, cs.Changed)
	assert.Equal(t, []string{"elsewhere"}, cs.Next["m"])
}

func TestGroup_GuardErrorLeavesStateUnchanged(t *testing.T) {
	b := dsl.New("g")
	a := b.Machine("a").Initial("x")
	a.State("x").On("GO", "y")
	a.State("y")
	c := b.Machine("c").Initial("x")
	c.State("x").When("GO", "broken", "y")
	c.State("y")

	cause := errors.New("lookup failed")
	guards := registry.NewRegistry().MustRegister("broken", func(domain.Vector, domain.Message) (bool, error) {
		return false, cause
	})
	g := newGroup(t, b.Build(), guards)
	before := g.CurrentVector()

	_, err := g.Dispatch(context.Background(), "GO", nil)
	var evalErr *domain.GuardEvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, before, g.CurrentVector())
}

func TestGroup_CrossMachineTargetMissingRollsBack(t *testing.T) {
	b := dsl.New("g")
	a := b.Machine("a").Initial("x")
	a.State("x").On("GO", "y")
	a.State("y")
	host := b.Machine("host").Initial("off")
	host.State("off").On("GO", "n:q")
	on := host.State("on")
	n := on.Machine("n").Initial("p")
	n.State("p")
	n.State("q")

	g := newGroup(t, b.Build(), nil)
	before := g.CurrentVector()

	_, err := g.Dispatch(context.Background(), "GO", nil)
	var missing *domain.CrossMachineTargetMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "n", missing.Machine)
	assert.Equal(t, before, g.CurrentVector(), "a must not keep its transition")
}

func TestGroup_EpsilonCycle(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("start")
	m.State("start").On("GO", "ping")
	m.State("ping").Always("pong")
	m.State("pong").Always("ping")
	other := b.Machine("other").Initial("x")
	other.State("x").On("GO", "y")
	other.State("y")

	g := newGroup(t, b.Build(), nil, runtime.WithEpsilonLimit(4))

	cs, err := g.Dispatch(context.Background(), "GO", nil)
	var cycle *domain.EpsilonCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, 4, cycle.Limit)
	assert.Equal(t, []string{"m"}, cycle.Machines)

	assert.Equal(t, []string{"ping"}, g.CurrentVector()["m"], "state as of the end of applying")
	assert.Equal(t, []string{"y"}, g.CurrentVector()["other"])
	assert.Equal(t, []string{"m", "other"}, cs.Changed)
}

func TestGroup_EpsilonAtConstruction(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("boot")
	m.State("boot").When("", "ready", "ready").Always("waiting")
	m.State("waiting")
	m.State("ready")
	guards := registry.NewRegistry().MustRegister("ready", registry.InState("m", "boot"))

	g := newGroup(t, b.Build(), guards)
	assert.Equal(t, []string{"ready"}, g.CurrentVector()["m"])

	b2 := dsl.New("loop")
	l := b2.Machine("l").Initial("a")
	l.State("a").Always("b")
	l.State("b").Always("a")
	chart, err := compiler.Compile(b2.Build(), nil)
	require.NoError(t, err)
	_, err = runtime.New(context.Background(), chart)
	var cycle *domain.EpsilonCycleError
	assert.ErrorAs(t, err, &cycle)
}

func TestGroup_EpsilonAfterNestedInstantiation(t *testing.T) {
	b := dsl.New("g")
	m := b.Machine("m").Initial("off")
	m.State("off").On("GO", "on")
	on := m.State("on")
	n := on.Machine("n").Initial("boot")
	n.State("boot").Always("running")
	n.State("running")

	g := newGroup(t, b.Build(), nil)
	cs := dispatch(t, g, "GO", nil)
	assert.Equal(t, []string{"running"}, cs.Next["n"])
	assert.Equal(t, []string{"m", "n"}, cs.Changed)
}

func TestGroup_Hooks(t *testing.T) {
	var (
		transitions []string
		created     []string
		destroyed   []string
		dispatches  []string
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			transitions = append(transitions, e.Machine+":"+e.To[len(e.To)-1])
		},
		OnMachineCreate: func(_ context.Context, e *domain.MachineEvent) {
			created = append(created, e.Machine)
		},
		OnMachineDestroy: func(_ context.Context, e *domain.MachineEvent) {
			destroyed = append(destroyed, e.Machine)
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			dispatches = append(dispatches, e.Kind)
		},
	}
	g := newGroup(t, sheet.PositionMachines(), sheet.Guards(), runtime.WithLifecycleHooks(hooks))
	assert.Equal(t, []string{"active", "position"}, created, "construction reports the initial machines")

	created = nil
	dispatch(t, g, "READY_TO_GO_FRONT", nil)
	dispatch(t, g, "GO_OUT", nil)

	assert.Equal(t, []string{"position:front", "position:out"}, transitions)
	assert.Equal(t, []string{"status"}, created)
	assert.Equal(t, []string{"status"}, destroyed)
	assert.Equal(t, []string{"READY_TO_GO_FRONT", "GO_OUT"}, dispatches)
}

func TestGroup_Reset(t *testing.T) {
	g := newGroup(t, sheet.Machines(), sheet.Guards())
	openSheet(t, g)

	cs, err := g.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"closed", "safe-to-unmount"}, g.CurrentVector()["openness"])
	assert.Equal(t, []string{"move", "openness", "scroll"}, cs.Changed)
}

func TestGroup_RestoreRoundTrip(t *testing.T) {
	chart, err := compiler.Compile(sheet.Machines(), sheet.Guards())
	require.NoError(t, err)
	g, err := runtime.New(context.Background(), chart)
	require.NoError(t, err)
	for _, kind := range []string{"OPEN", "PREPARED", "ANIMATION_COMPLETE", "SCROLL_START", "SWIPE_START"} {
		dispatch(t, g, kind, nil)
	}

	restored, err := runtime.Restore(context.Background(), chart, g.CurrentVector())
	require.NoError(t, err)
	assert.Equal(t, g.CurrentVector(), restored.CurrentVector())

	// Both copies keep running independently and agree.
	a := dispatch(t, g, "SCROLL_END", nil)
	b := dispatch(t, restored, "SCROLL_END", nil)
	assert.Equal(t, a, b)
}

func TestGroup_RestoreSettlesEpsilon(t *testing.T) {
	chart, err := compiler.Compile(sheet.PositionMachines(), sheet.Guards())
	require.NoError(t, err)

	g, err := runtime.Restore(context.Background(), chart, domain.Vector{
		"active":   {"false"},
		"position": {"covered"},
		"status":   {"come-back"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"idle"}, g.CurrentVector()["status"])
}

func TestGroup_RestoreRejectsInvalidVectors(t *testing.T) {
	chart, err := compiler.Compile(sheet.PositionMachines(), sheet.Guards())
	require.NoError(t, err)

	tests := []struct {
		name    string
		vector  domain.Vector
		machine string
	}{
		{
			name:    "missing machine",
			vector:  domain.Vector{"position": {"out"}},
			machine: "active",
		},
		{
			name:    "empty path",
			vector:  domain.Vector{"active": {}, "position": {"out"}},
			machine: "active",
		},
		{
			name:    "unknown state",
			vector:  domain.Vector{"active": {"maybe"}, "position": {"out"}},
			machine: "active",
		},
		{
			name:    "nested machine missing",
			vector:  domain.Vector{"active": {"true"}, "position": {"front"}},
			machine: "status",
		},
		{
			name:    "nested machine not live",
			vector:  domain.Vector{"active": {"true"}, "position": {"out"}, "status": {"idle"}},
			machine: "status",
		},
		{
			name:    "state of the wrong host",
			vector:  domain.Vector{"active": {"true"}, "position": {"front"}, "status": {"going-down"}},
			machine: "status",
		},
		{
			name:    "unknown machine",
			vector:  domain.Vector{"active": {"true"}, "position": {"out"}, "ghost": {"x"}},
			machine: "ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.Restore(context.Background(), chart, tt.vector)
			var target *domain.InvalidVectorError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.machine, target.Machine)
		})
	}
}

func TestGroup_RestoreRejectsCompositeLeaf(t *testing.T) {
	chart, err := compiler.Compile(sheet.Machines(), sheet.Guards())
	require.NoError(t, err)

	v := newGroup(t, sheet.Machines(), sheet.Guards()).CurrentVector()
	v["openness"] = []string{"closed"}

	_, err = runtime.Restore(context.Background(), chart, v)
	var target *domain.InvalidVectorError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "openness", target.Machine)
	assert.Contains(t, target.Reason, "composite")
}

// TestGroup_RandomSequences drives both bundled groups with seeded random kinds and
// checks the properties every dispatch must keep.
func TestGroup_RandomSequences(t *testing.T) {
	kinds := []string{
		"OPEN", "OPEN_PREPARED", "PREPARED", "ANIMATION_COMPLETE", "CLOSE", "STEP", "SWIPE_OUT",
		"FLUSH_COMPLETE", "ACTUALLY_CLOSE", "ACTUALLY_STEP", "GO_DOWN", "GO_UP", "NEXT",
		"TO_TRUE", "TO_FALSE", "SCROLL_START", "SCROLL_END", "MOVE_START", "MOVE_END",
		"SWIPE_START", "SWIPE_END", "SWIPE_RESET", "OCCURRED", "RESET", "TOUCH_START", "TOUCH_END",
		"READY_TO_GO_FRONT", "READY_TO_GO_DOWN", "READY_TO_GO_UP", "READY_TO_GO_OUT", "GO_OUT",
		"GOTO_COVERED_IDLE", "GOTO_FRONT_IDLE", "UNKNOWN",
	}

	for _, def := range sheet.All() {
		t.Run(def.Name, func(t *testing.T) {
			chart, err := compiler.Compile(def, sheet.Guards())
			require.NoError(t, err)
			g, err := runtime.New(context.Background(), chart)
			require.NoError(t, err)

			rng := rand.New(rand.NewPCG(42, uint64(len(def.Name))))
			for i := range 500 {
				kind := kinds[rng.IntN(len(kinds))]
				var data map[string]any
				if rng.IntN(2) == 0 {
					data = map[string]any{"skipOpening": rng.IntN(2) == 0, "skipClosing": rng.IntN(2) == 0}
				}

				cs, err := g.Dispatch(context.Background(), kind, data)
				require.NoError(t, err, "step %d: %s", i, kind)

				assert.True(t, slices.IsSorted(cs.Changed), "step %d: changed must be sorted", i)
				for name := range cs.Prior {
					if !slices.Equal(cs.Prior[name], cs.Next[name]) {
						assert.Contains(t, cs.Changed, name, "step %d: %s", i, kind)
					}
				}
				for name := range cs.Next {
					if _, ok := cs.Prior[name]; !ok {
						assert.Contains(t, cs.Changed, name, "step %d: %s", i, kind)
					}
				}
				if cs.IsEmpty() {
					assert.Equal(t, cs.Prior, cs.Next, "step %d: %s", i, kind)
				}

				restored, err := runtime.Restore(context.Background(), chart, g.CurrentVector())
				require.NoError(t, err, "step %d: vector must stay restorable", i)
				require.Equal(t, g.CurrentVector(), restored.CurrentVector())
			}
		})
	}
}
