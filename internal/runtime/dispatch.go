package runtime

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// Dispatch resolves one message against every live machine, applies the selected
// transitions, settles epsilon transitions and returns the observable change.
//
// On *domain.GuardEvaluationError and *domain.CrossMachineTargetMissingError the group
// is left unchanged. On *domain.EpsilonCycleError the transitions selected by the message
// itself are kept and their change-set is returned along with the error.
func (g *Group) Dispatch(ctx context.Context, kind string, data map[string]any) (domain.ChangeSet, error) {
	if kind == domain.EpsilonKind {
		return domain.ChangeSet{}, domain.ErrEmptyKind
	}
	return g.DispatchMessage(ctx, domain.Message{Kind: kind, Context: data})
}

// DispatchMessage is Dispatch for a ready-made message.
func (g *Group) DispatchMessage(ctx context.Context, msg domain.Message) (cs domain.ChangeSet, err error) {
	start := time.Now()
	defer func() {
		if g.hooks.OnDispatch != nil {
			g.hooks.OnDispatch(ctx, &domain.DispatchEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDispatch, Group: g.chart.Name},
				Kind:      msg.Kind,
				Changes:   cs,
				Duration:  time.Since(start),
				Err:       err,
			})
		}
	}()

	if msg.IsEpsilon() {
		return domain.ChangeSet{}, domain.ErrEmptyKind
	}
	if g.strict && !g.chart.Declares(msg.Kind) {
		return domain.ChangeSet{Kind: msg.Kind}, &domain.UnknownKindError{
			Kind:       msg.Kind,
			Suggestion: compiler.Suggest(msg.Kind, g.chart.Kinds()),
		}
	}
	if s, ok := g.chart.Contexts[msg.Kind]; ok {
		if err := schema.Validate(s, msg.Context); err != nil {
			return domain.ChangeSet{Kind: msg.Kind}, &domain.ContextValidationError{Kind: msg.Kind, Err: err}
		}
	}

	// Resolving: every guard sees the same prior vector.
	prior := g.state.vector(true)
	selected, err := g.resolve(g.state, msg, prior, nil)
	if err != nil {
		g.logger.Warn("dispatch aborted while resolving", "kind", msg.Kind, "error", err)
		return domain.ChangeSet{Kind: msg.Kind}, err
	}
	if len(selected) == 0 {
		g.logger.Debug("dispatch matched no transition", "kind", msg.Kind)
		observable := g.state.vector(false)
		return domain.ChangeSet{Kind: msg.Kind, Changed: []string{}, Prior: observable, Next: observable.Clone()}, nil
	}

	// Applying: sequential on a working copy.
	x := g.begin(g.state.clone(), msg)
	for _, sel := range selected {
		if err := x.apply(sel); err != nil {
			g.logger.Warn("dispatch aborted while applying", "kind", msg.Kind, "error", err)
			return domain.ChangeSet{Kind: msg.Kind}, err
		}
	}
	applied := x.checkpoint()

	// EpsilonSettling.
	err = g.settle(x, msg.Context)
	var cycle *domain.EpsilonCycleError
	switch {
	case errors.As(err, &cycle):
		g.logger.Warn("epsilon transitions did not settle", "kind", msg.Kind, "error", err)
		x = applied
	case err != nil:
		g.logger.Warn("dispatch aborted while settling", "kind", msg.Kind, "error", err)
		return domain.ChangeSet{Kind: msg.Kind}, err
	}

	cs = x.changeSet(g.state, msg.Kind)
	g.state = x.w
	x.fire(ctx)
	g.logger.Debug("dispatch", "kind", msg.Kind, "changed", cs.Changed)
	return cs, err
}

type selection struct {
	node *compiler.MachineNode
	id   uint64
	t    *compiler.Transition
}

func (g *Group) resolve(w *world, msg domain.Message, prior domain.Vector, only map[*compiler.MachineNode]bool) ([]selection, error) {
	var out []selection
	for _, in := range w.ordered(g.chart) {
		if only != nil && !only[in.node] {
			continue
		}
		t, err := g.choose(in, msg, prior)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, selection{node: in.node, id: in.id, t: t})
		}
	}
	return out, nil
}

// choose finds the closest enclosing state that declares the kind: the leaf first,
// then its ancestors outward. Only that state's candidates are tried, in order; when
// all of their guards fail the message is a no-op for the machine.
func (g *Group) choose(in *instance, msg domain.Message, prior domain.Vector) (*compiler.Transition, error) {
	for i := len(in.path) - 1; i >= 0; i-- {
		candidates := in.path[i].Transitions[msg.Kind]
		if len(candidates) == 0 {
			continue
		}
		for _, t := range candidates {
			if t.Guard == "" {
				return t, nil
			}
			ok, err := g.chart.Guards.Evaluate(t.Guard, prior, msg)
			if err != nil {
				return nil, err
			}
			if ok {
				return t, nil
			}
		}
		return nil, nil
	}
	return nil, nil
}

// settle runs epsilon rounds until no touched machine has an enabled epsilon transition.
func (g *Group) settle(x *tx, data map[string]any) error {
	msg := domain.Message{Kind: domain.EpsilonKind, Context: data}
	x.msg = msg
	for round := 0; ; round++ {
		if len(x.touched) == 0 {
			return nil
		}
		only := x.touched
		x.touched = make(map[*compiler.MachineNode]bool)

		selected, err := g.resolve(x.w, msg, x.w.vector(true), only)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			return nil
		}
		if round >= g.epsilonLimit {
			names := make([]string, 0, len(selected))
			for _, sel := range selected {
				names = append(names, sel.node.Name)
			}
			slices.Sort(names)
			return &domain.EpsilonCycleError{Limit: g.epsilonLimit, Machines: slices.Compact(names)}
		}
		for _, sel := range selected {
			if err := x.apply(sel); err != nil {
				return err
			}
		}
	}
}

// tx is the working state of one dispatch.
type tx struct {
	g       *Group
	w       *world
	msg     domain.Message
	touched map[*compiler.MachineNode]bool
	changed map[string]bool
	events  []event
}

func (g *Group) begin(w *world, msg domain.Message) *tx {
	return &tx{
		g:       g,
		w:       w,
		msg:     msg,
		touched: make(map[*compiler.MachineNode]bool),
		changed: make(map[string]bool),
	}
}

func (x *tx) checkpoint() *tx {
	return &tx{
		g:       x.g,
		w:       x.w.clone(),
		msg:     x.msg,
		touched: maps.Clone(x.touched),
		changed: maps.Clone(x.changed),
		events:  slices.Clone(x.events),
	}
}

func (x *tx) apply(sel selection) error {
	src := x.w.live[sel.node]
	if src == nil || src.id != sel.id {
		x.g.logger.Debug("skipping transition of a replaced machine", "machine", sel.node.Name, "kind", sel.t.Kind)
		return nil
	}
	target := src
	if sel.t.Target.Machine != sel.node {
		target = x.w.live[sel.t.Target.Machine]
		if target == nil {
			return &domain.CrossMachineTargetMissingError{
				Source:  src.describe(),
				Target:  sel.t.Target.Raw,
				Machine: sel.t.Target.Machine.Name,
			}
		}
	}
	x.move(target, sel.t)
	return nil
}

// move re-enters the addressed state of t in the target instance. The kept prefix is
// the common prefix of the old and new paths, capped so that the addressed state itself
// is always exited and entered again.
func (x *tx) move(in *instance, t *compiler.Transition) {
	from := in.names()
	addressed := t.Target.State.Lineage()
	kept := 0
	for kept < len(in.path) && kept < len(addressed)-1 && in.path[kept] == addressed[kept] {
		kept++
	}

	for i := len(in.path) - 1; i >= kept; i-- {
		x.destroyHosted(in.path[i])
	}
	entry := t.Target.State.EntryPath()
	in.path = append(slices.Clone(in.path[:kept]), entry[kept:]...)
	for _, s := range in.path[kept:] {
		x.createHosted(s, t.Target)
	}

	x.touched[in.node] = true
	x.mark(in.node)
	x.record(event{kind: domain.EventTransition, node: in.node, from: from, to: in.names(), msg: x.msg.Kind, guard: t.Guard})
}

// createHosted instantiates the machines hosted by s. A seed whose state is s selects
// the entry state of the matching nested machine.
func (x *tx) createHosted(s *compiler.StateNode, seed *compiler.Target) {
	for _, nested := range s.Machines {
		var next *compiler.Target
		if seed != nil && seed.State == s && seed.Next != nil && seed.Next.Machine == nested {
			next = seed.Next
		}
		x.create(nested, next)
	}
}

func (x *tx) create(m *compiler.MachineNode, seed *compiler.Target) {
	if old := x.w.live[m]; old != nil {
		x.destroy(old)
	}
	entryState := m.Initial
	if seed != nil {
		entryState = seed.State
	}
	in := &instance{node: m, path: entryState.EntryPath(), id: x.w.nextID()}
	x.w.live[m] = in
	x.touched[m] = true
	x.mark(m)
	x.record(event{kind: domain.EventMachineCreate, node: m, to: in.names()})

	for _, s := range in.path {
		x.createHosted(s, seed)
	}
}

func (x *tx) destroyHosted(s *compiler.StateNode) {
	for _, nested := range s.Machines {
		if in := x.w.live[nested]; in != nil {
			x.destroy(in)
		}
	}
}

func (x *tx) destroy(in *instance) {
	for i := len(in.path) - 1; i >= 0; i-- {
		x.destroyHosted(in.path[i])
	}
	delete(x.w.live, in.node)
	delete(x.touched, in.node)
	x.mark(in.node)
	x.record(event{kind: domain.EventMachineDestroy, node: in.node, from: in.names()})
}

func (x *tx) mark(m *compiler.MachineNode) {
	if !m.Silent {
		x.changed[m.Name] = true
	}
}

func (x *tx) changeSet(before *world, kind string) domain.ChangeSet {
	changed := slices.Sorted(maps.Keys(x.changed))
	if changed == nil {
		changed = []string{}
	}
	return domain.ChangeSet{
		Kind:    kind,
		Changed: changed,
		Prior:   before.vector(false),
		Next:    x.w.vector(false),
	}
}
