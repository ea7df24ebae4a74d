// Package sheet bundles the machine groups that drive a modal sheet: its staging,
// openness and gesture tracking (Machines) and its position in a stack of sheets
// (PositionMachines).
package sheet

import (
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
	"github.com/aretw0/lattice/pkg/registry"
)

// Group names.
const (
	GroupSheet    = "sheet"
	GroupPosition = "sheet-position"
)

// Guard names.
const (
	GuardNotSkipClosing = "notSkipClosing"
	GuardSkipOpening    = "skipOpening"
	GuardSkipClosing    = "skipClosing"
)

// Guards returns a registry with the sheet guards.
func Guards() *registry.Registry {
	return registry.NewRegistry().
		MustRegister(GuardNotSkipClosing, registry.NotContextFlag("skipClosing")).
		MustRegister(GuardSkipOpening, registry.ContextFlag("skipOpening")).
		MustRegister(GuardSkipClosing, registry.ContextFlag("skipClosing"))
}

// Machines returns the sheet group.
func Machines() domain.GroupDefinition {
	g := dsl.New(GroupSheet).
		Describe("Staging, openness and gesture tracking of a sheet.").
		Context("OPEN", "skipOpening", "bool?").
		Context("ACTUALLY_CLOSE", "skipClosing", "bool?")

	staging := g.Machine("staging").Initial("none")
	staging.State("none").
		On("OPEN_PREPARED", "opening").
		When("ACTUALLY_CLOSE", GuardNotSkipClosing, "closing").
		On("ACTUALLY_STEP", "stepping").
		On("GO_DOWN", "going-down").
		On("GO_UP", "going-up")
	for _, s := range []string{"opening", "stepping", "closing", "going-down", "going-up"} {
		staging.State(s).On("NEXT", "none")
	}

	toggle(g.Machine("longRunning"), "TO_TRUE", "TO_FALSE")

	openness := g.Machine("openness").Initial("closed.safe-to-unmount")
	closed := openness.State("closed").
		Initial("safe-to-unmount").
		When("OPEN", GuardSkipOpening, "preparing-open").
		On("OPEN", "preparing-opening")
	closed.State("safe-to-unmount")
	closed.State("pending").
		When("OPEN", GuardSkipOpening, "openness:closed.flushing-to-preparing-open").
		On("OPEN", "openness:closed.flushing-to-preparing-opening").
		On("FLUSH_COMPLETE", "openness:closed.safe-to-unmount")
	closed.State("flushing-to-preparing-opening").On("FLUSH_COMPLETE", "openness:preparing-opening")
	closed.State("flushing-to-preparing-open").On("FLUSH_COMPLETE", "openness:preparing-open")

	openness.State("preparing-opening").On("PREPARED", "opening")
	openness.State("preparing-open").On("PREPARED", "open")
	openness.State("opening").On("ANIMATION_COMPLETE", "open")

	open := openness.State("open").
		On("CLOSE", "closing").
		On("STEP", "open").
		On("SWIPE_OUT", "openness:closed.pending")

	scroll := open.Machine("scroll").Initial("ended")
	ended := scroll.State("ended").On("SCROLL_START", "ongoing")
	toggle(ended.Machine("afterPaintEffectsRun").Silent(), "OCCURRED", "RESET")
	scroll.State("ongoing").On("SCROLL_END", "ended")

	move := open.Machine("move").Initial("ended")
	move.State("ended").On("MOVE_START", "ongoing")
	move.State("ongoing").On("MOVE_END", "ended")

	swipe := open.Machine("swipe").Initial("unstarted").Silent()
	swipe.State("unstarted").On("SWIPE_START", "ongoing")
	swipe.State("ongoing").On("SWIPE_END", "ended")
	swipe.State("ended").On("SWIPE_START", "ongoing").On("SWIPE_RESET", "unstarted")

	flip(open.Machine("evaluateCloseMessage").Silent(), "CLOSE")
	flip(open.Machine("evaluateStepMessage").Silent(), "STEP")

	openness.State("closing").On("ANIMATION_COMPLETE", "openness:closed.pending")

	touch := g.Machine("scrollContainerTouch").Initial("ended").Silent()
	touch.State("ended").On("TOUCH_START", "ongoing")
	touch.State("ongoing").On("TOUCH_END", "ended")

	return g.Build()
}

// PositionMachines returns the position group.
func PositionMachines() domain.GroupDefinition {
	g := dsl.New(GroupPosition).
		Describe("Position of a sheet within a stack of sheets.").
		Context("READY_TO_GO_FRONT", "skipOpening", "bool?").
		Context("READY_TO_GO_DOWN", "skipOpening", "bool?")

	toggle(g.Machine("active"), "TO_TRUE", "TO_FALSE")

	position := g.Machine("position").Initial("out")
	position.State("out").
		When("READY_TO_GO_FRONT", GuardSkipOpening, "position:front.status:idle").
		On("READY_TO_GO_FRONT", "position:front.status:opening")

	front := position.State("front").On("GO_OUT", "position:out")
	status := front.Machine("status").Initial("opening")
	status.State("opening").On("NEXT", "idle")
	status.State("closing").On("NEXT", "position:out")
	status.State("idle").
		When("READY_TO_GO_DOWN", GuardSkipOpening, "position:covered.status:idle").
		On("READY_TO_GO_DOWN", "position:covered.status:going-down").
		On("READY_TO_GO_OUT", "closing").
		On("GO_OUT", "position:out")

	covered := position.State("covered").Machine("status").Initial("going-down")
	covered.State("going-down").On("NEXT", "idle")
	covered.State("going-up").On("NEXT", "indeterminate")
	covered.State("indeterminate").
		On("GOTO_COVERED_IDLE", "idle").
		On("GOTO_FRONT_IDLE", "position:front.status:idle")
	covered.State("idle").
		When("READY_TO_GO_DOWN", GuardSkipOpening, "come-back").
		On("READY_TO_GO_DOWN", "going-down").
		On("READY_TO_GO_UP", "going-up").
		On("GO_UP", "indeterminate").
		On("GOTO_FRONT_IDLE", "position:front.status:idle")
	covered.State("come-back").Always("idle")

	return g.Build()
}

// All returns every bundled group.
func All() []domain.GroupDefinition {
	return []domain.GroupDefinition{Machines(), PositionMachines()}
}

// toggle builds a two-state false/true machine.
func toggle(m *dsl.MachineBuilder, on, off string) {
	m.Initial("false")
	m.State("false").On(on, "true")
	m.State("true").On(off, "false")
}

// flip builds a false/true machine that alternates on a single kind.
func flip(m *dsl.MachineBuilder, kind string) {
	m.Initial("false")
	m.State("false").On(kind, "true")
	m.State("true").On(kind, "false")
}
