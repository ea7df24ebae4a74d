package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

// DefaultEpsilonLimit bounds the epsilon rounds of a single dispatch.
const DefaultEpsilonLimit = 32

// Group runs a compiled chart.
//
// A Group performs no locking: a dispatch runs to completion and concurrent callers
// must be serialized externally (see pkg/session).
type Group struct {
	chart        *compiler.Chart
	state        *world
	epsilonLimit int
	strict       bool
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
}

// Option defines a functional option for configuring a Group.
type Option func(*Group)

// WithEpsilonLimit sets how many epsilon rounds a dispatch may take before failing
// with *domain.EpsilonCycleError.
func WithEpsilonLimit(limit int) Option {
	return func(g *Group) {
		if limit > 0 {
			g.epsilonLimit = limit
		}
	}
}

// WithStrictKinds makes kinds no state declares fail with *domain.UnknownKindError
// instead of being a no-op.
func WithStrictKinds() Option {
	return func(g *Group) {
		g.strict = true
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Group) {
		g.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Group) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func newGroup(chart *compiler.Chart, opts []Option) *Group {
	g := &Group{
		chart:        chart,
		epsilonLimit: DefaultEpsilonLimit,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New instantiates every top-level machine at its initial state and settles epsilon
// transitions of the initial vector.
func New(ctx context.Context, chart *compiler.Chart, opts ...Option) (*Group, error) {
	if chart == nil {
		return nil, fmt.Errorf("chart is required")
	}
	g := newGroup(chart, opts)
	w, err := g.initial(ctx)
	if err != nil {
		return nil, err
	}
	g.state = w
	return g, nil
}

// Restore rebuilds a group from a persisted vector. Every path must exist in the chart,
// end at a leaf, and every host state on it must come with its nested machines.
func Restore(ctx context.Context, chart *compiler.Chart, v domain.Vector, opts ...Option) (*Group, error) {
	if chart == nil {
		return nil, fmt.Errorf("chart is required")
	}
	g := newGroup(chart, opts)
	w, err := g.restore(v)
	if err != nil {
		return nil, err
	}
	x := g.begin(w, domain.Message{Kind: domain.EpsilonKind})
	for _, in := range w.live {
		x.touched[in.node] = true
	}
	if err := g.settle(x, nil); err != nil {
		return nil, err
	}
	x.fire(ctx)
	g.state = x.w
	return g, nil
}

func (g *Group) initial(ctx context.Context) (*world, error) {
	x := g.begin(newWorld(), domain.Message{Kind: domain.EpsilonKind})
	for _, m := range g.chart.Machines {
		x.create(m, nil)
	}
	if err := g.settle(x, nil); err != nil {
		return nil, err
	}
	x.fire(ctx)
	return x.w, nil
}

func (g *Group) restore(v domain.Vector) (*world, error) {
	w := newWorld()
	used := make(map[string]bool, len(v))

	var place func(m *compiler.MachineNode) error
	place = func(m *compiler.MachineNode) error {
		names, ok := v[m.Name]
		if !ok {
			return &domain.InvalidVectorError{Machine: m.Name, Reason: "machine is missing"}
		}
		if len(names) == 0 {
			return &domain.InvalidVectorError{Machine: m.Name, Reason: "path is empty"}
		}
		path := make([]*compiler.StateNode, 0, len(names))
		var cur *compiler.StateNode
		for _, name := range names {
			var next *compiler.StateNode
			if cur == nil {
				next = m.Root(name)
			} else {
				next = cur.Child(name)
			}
			if next == nil {
				return &domain.InvalidVectorError{Machine: m.Name, Reason: fmt.Sprintf("unknown state %q in %v", name, names)}
			}
			cur = next
			path = append(path, cur)
		}
		if cur.IsComposite() {
			return &domain.InvalidVectorError{Machine: m.Name, Reason: fmt.Sprintf("path ends at composite state %q", cur.DottedPath())}
		}
		w.live[m] = &instance{node: m, path: path, id: w.nextID()}
		used[m.Name] = true
		for _, s := range path {
			for _, nested := range s.Machines {
				if err := place(nested); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, m := range g.chart.Machines {
		if err := place(m); err != nil {
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(v)) {
		if !used[name] {
			return nil, &domain.InvalidVectorError{Machine: name, Reason: "machine is not live in this vector"}
		}
	}
	return w, nil
}

// Reset returns the group to its initial vector.
func (g *Group) Reset(ctx context.Context) (domain.ChangeSet, error) {
	prior := g.state
	w, err := g.initial(ctx)
	if err != nil {
		return domain.ChangeSet{}, err
	}
	g.state = w
	return diff(prior.vector(false), w.vector(false)), nil
}

// ChangesFrom compares a vector the group was not running, such as a stored one, with
// the current vector. Silent machines of the chart are left out of both sides.
func (g *Group) ChangesFrom(prior domain.Vector) domain.ChangeSet {
	audible := make(domain.Vector, len(prior))
	for name, path := range prior {
		if !g.chart.IsSilent(name) {
			audible[name] = slices.Clone(path)
		}
	}
	return diff(audible, g.state.vector(false))
}

func diff(prior, next domain.Vector) domain.ChangeSet {
	cs := domain.ChangeSet{Changed: []string{}, Prior: prior, Next: next}
	for name := range prior {
		if !slices.Equal(prior[name], next[name]) {
			cs.Changed = append(cs.Changed, name)
		}
	}
	for name := range next {
		if _, ok := prior[name]; !ok {
			cs.Changed = append(cs.Changed, name)
		}
	}
	slices.Sort(cs.Changed)
	return cs
}

// CurrentVector returns a snapshot of every live machine, silent ones included.
func (g *Group) CurrentVector() domain.Vector {
	return g.state.vector(true)
}

// Chart returns the compiled chart the group runs.
func (g *Group) Chart() *compiler.Chart {
	return g.chart
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.chart.Name
}
