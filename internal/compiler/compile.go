package compiler

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// Compile validates a group definition against a guard registry and resolves it into a Chart.
//
// Declarative guards of the definition are registered on a clone of guards, so the
// caller's registry is never mutated. Every problem found is reported: the returned error
// joins one *domain.InvalidDefinitionError per issue.
func Compile(def domain.GroupDefinition, guards *registry.Registry) (*Chart, error) {
	if guards == nil {
		guards = registry.NewRegistry()
	}
	c := &compiler{
		chart: &Chart{
			Name:        def.Name,
			Description: def.Description,
			Guards:      guards.Clone(),
			kinds:       make(map[string]struct{}),
		},
	}

	if len(def.Machines) == 0 {
		c.fail(def.Name, "group declares no machines", "")
	}
	c.registerGuards(def.Guards)
	c.parseContexts(def.Contexts)

	for _, md := range def.Machines {
		c.chart.Machines = append(c.chart.Machines, c.buildMachine(md, nil, ""))
	}
	c.checkNames()
	for _, p := range c.pending {
		c.resolveTransition(p)
	}

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return c.chart, nil
}

type pendingCandidate struct {
	source    *StateNode
	kind      string
	candidate domain.Candidate
	location  string
}

type compiler struct {
	chart   *Chart
	pending []pendingCandidate
	errs    []error
}

func (c *compiler) fail(location, reason, suggestion string) {
	c.errs = append(c.errs, &domain.InvalidDefinitionError{
		Location:   location,
		Reason:     reason,
		Suggestion: suggestion,
	})
}

func (c *compiler) registerGuards(specs map[string]domain.GuardSpec) {
	err := c.chart.Guards.RegisterSpecs(specs)
	if err == nil {
		return
	}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var spec *registry.SpecError
		if errors.As(e, &spec) {
			c.fail("guards/"+spec.Guard, spec.Err.Error(), "")
		}
	}
}

func (c *compiler) parseContexts(contexts map[string]map[string]string) {
	if len(contexts) == 0 {
		return
	}
	parsed, err := schema.ParseKinds(contexts)
	if err != nil {
		c.fail("contexts", err.Error(), "")
		return
	}
	c.chart.Contexts = parsed
}

func validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name must not be empty")
	case strings.ContainsAny(name, ":./"):
		return fmt.Errorf("name %q must not contain ':', '.' or '/'", name)
	}
	return nil
}

func (c *compiler) buildMachine(def domain.MachineDefinition, host *StateNode, prefix string) *MachineNode {
	loc := prefix + def.Name
	m := &MachineNode{
		Name:   def.Name,
		Silent: def.SilentOnly || (host != nil && host.Machine.Silent),
		Host:   host,
		states: make(map[string]*StateNode),
	}
	if err := validName(def.Name); err != nil {
		c.fail(loc, "machine "+err.Error(), "")
	}
	c.chart.all = append(c.chart.all, m)

	if len(def.States) == 0 {
		c.fail(loc, "machine declares no states", "")
		return m
	}
	m.Roots = c.buildStates(def.States, m, nil, loc)

	if def.Initial == "" {
		c.fail(loc, "machine has no initial state", "")
		return m
	}
	initial, err := descend(m.Roots, domain.SplitPath(def.Initial))
	if err != nil {
		c.fail(loc, fmt.Sprintf("initial %q: %s", def.Initial, err.reason), err.suggestion)
		return m
	}
	m.Initial = initial
	return m
}

func (c *compiler) buildStates(defs []domain.StateDefinition, m *MachineNode, parent *StateNode, prefix string) []*StateNode {
	seen := make(map[string]bool, len(defs))
	out := make([]*StateNode, 0, len(defs))
	for _, sd := range defs {
		loc := prefix + "/" + sd.Name
		if err := validName(sd.Name); err != nil {
			c.fail(loc, "state "+err.Error(), "")
			continue
		}
		if seen[sd.Name] {
			c.fail(loc, fmt.Sprintf("duplicate state %q", sd.Name), "")
			continue
		}
		seen[sd.Name] = true

		s := &StateNode{
			Name:        sd.Name,
			Machine:     m,
			Parent:      parent,
			Transitions: make(map[string][]*Transition),
		}
		if parent != nil {
			s.Path = append(slices.Clone(parent.Path), sd.Name)
		} else {
			s.Path = []string{sd.Name}
		}
		m.states[s.DottedPath()] = s
		out = append(out, s)

		s.Children = c.buildStates(sd.States, m, s, loc)
		switch {
		case sd.IsComposite() && sd.Initial == "":
			c.fail(loc, "composite state has no initial child", "")
		case sd.IsComposite():
			if s.Initial = s.Child(sd.Initial); s.Initial == nil {
				c.fail(loc, fmt.Sprintf("initial child %q does not exist", sd.Initial),
					Suggest(sd.Initial, Names(s.Children)))
			}
		case sd.Initial != "":
			c.fail(loc, fmt.Sprintf("leaf state declares initial child %q", sd.Initial), "")
		}

		for _, nd := range sd.Machines {
			s.Machines = append(s.Machines, c.buildMachine(nd, s, loc+"/"))
		}

		for _, kind := range slices.Sorted(maps.Keys(sd.Messages)) {
			candidates := sd.Messages[kind]
			if len(candidates) == 0 {
				c.fail(fmt.Sprintf("%s on %q", loc, kind), "empty candidate list", "")
			}
			if kind != domain.EpsilonKind {
				c.chart.kinds[kind] = struct{}{}
			}
			for i, cand := range candidates {
				c.pending = append(c.pending, pendingCandidate{
					source:    s,
					kind:      kind,
					candidate: cand,
					location:  fmt.Sprintf("%s on %q[%d]", loc, kind, i),
				})
			}
		}
	}
	return out
}

func (c *compiler) resolveTransition(p pendingCandidate) {
	if p.candidate.Guard != "" && !c.chart.Guards.Has(p.candidate.Guard) {
		c.fail(p.location, fmt.Sprintf("unknown guard %q", p.candidate.Guard),
			Suggest(p.candidate.Guard, c.chart.Guards.Names()))
		return
	}
	target, err := c.resolveAddress(p.source, p.candidate.Target)
	if err != nil {
		c.fail(p.location, fmt.Sprintf("target %q: %s", p.candidate.Target, err.reason), err.suggestion)
		return
	}
	p.source.Transitions[p.kind] = append(p.source.Transitions[p.kind], &Transition{
		Source: p.source,
		Kind:   p.kind,
		Guard:  p.candidate.Guard,
		Target: target,
	})
}

// checkNames rejects machines sharing a name unless they can never be live together,
// i.e. their hosts are mutually exclusive states of one machine.
func (c *compiler) checkNames() {
	byName := make(map[string][]*MachineNode)
	for _, m := range c.chart.all {
		byName[m.Name] = append(byName[m.Name], m)
	}
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		nodes := byName[name]
		for i := range nodes {
			for j := i + 1; j < len(nodes); j++ {
				if !exclusive(nodes[i], nodes[j]) {
					c.fail(nodes[j].QualifiedName(),
						fmt.Sprintf("machine name %q is already used by %s, which can be live at the same time",
							name, nodes[i].QualifiedName()), "")
				}
			}
		}
	}
}

func hostChain(m *MachineNode) []*StateNode {
	var chain []*StateNode
	for h := m.Host; h != nil; h = h.Machine.Host {
		chain = append(chain, h)
	}
	slices.Reverse(chain)
	return chain
}

func exclusive(a, b *MachineNode) bool {
	ca, cb := hostChain(a), hostChain(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		ha, hb := ca[i], cb[i]
		if ha.Machine != hb.Machine {
			return false
		}
		if !ha.Contains(hb) && !hb.Contains(ha) {
			return true
		}
	}
	return false
}
