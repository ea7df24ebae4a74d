package runtime

import (
	"slices"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/domain"
)

// instance is one live activation of a machine.
type instance struct {
	node *compiler.MachineNode
	path []*compiler.StateNode
	// id changes whenever the machine is destroyed and created again.
	id uint64
}

func (in *instance) names() []string {
	return compiler.Names(in.path)
}

func (in *instance) describe() string {
	return in.node.QualifiedName() + ":" + in.path[len(in.path)-1].DottedPath()
}

// world holds every live instance of a group, keyed by definition.
// Same-name machines are mutually exclusive, so at most one instance per name is live.
type world struct {
	live   map[*compiler.MachineNode]*instance
	serial uint64
}

func newWorld() *world {
	return &world{live: make(map[*compiler.MachineNode]*instance)}
}

func (w *world) clone() *world {
	out := &world{
		live:   make(map[*compiler.MachineNode]*instance, len(w.live)),
		serial: w.serial,
	}
	for node, in := range w.live {
		out.live[node] = &instance{node: node, path: slices.Clone(in.path), id: in.id}
	}
	return out
}

func (w *world) nextID() uint64 {
	w.serial++
	return w.serial
}

// ordered returns live instances in dispatch order: top-level machines in declaration
// order, each followed depth-first by the machines nested under its current path.
func (w *world) ordered(chart *compiler.Chart) []*instance {
	out := make([]*instance, 0, len(w.live))
	var visit func(m *compiler.MachineNode)
	visit = func(m *compiler.MachineNode) {
		in := w.live[m]
		if in == nil {
			return
		}
		out = append(out, in)
		for _, s := range in.path {
			for _, nested := range s.Machines {
				visit(nested)
			}
		}
	}
	for _, m := range chart.Machines {
		visit(m)
	}
	return out
}

// vector renders the world; silent machines are included only when withSilent is set.
func (w *world) vector(withSilent bool) domain.Vector {
	v := make(domain.Vector, len(w.live))
	for node, in := range w.live {
		if node.Silent && !withSilent {
			continue
		}
		v[node.Name] = in.names()
	}
	return v
}
