package compiler

import (
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/schema"
)

// Chart is the compiled, immutable form of a group definition.
// Every address, initial state and guard reference has been resolved.
type Chart struct {
	Name        string
	Description string
	// Machines are the top-level machines in declaration order.
	Machines []*MachineNode
	Guards   *registry.Registry
	Contexts map[string]schema.Schema

	all   []*MachineNode
	kinds map[string]struct{}
}

// AllMachines returns every machine node in pre-order (nested machines follow their host).
func (c *Chart) AllMachines() []*MachineNode {
	return c.all
}

// Kinds returns the message kinds declared anywhere in the chart, sorted. Epsilon is excluded.
func (c *Chart) Kinds() []string {
	out := make([]string, 0, len(c.kinds))
	for k := range c.kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Declares reports whether any state handles the kind.
func (c *Chart) Declares(kind string) bool {
	_, ok := c.kinds[kind]
	return ok
}

// Lookup returns the machine nodes with the given name.
func (c *Chart) Lookup(name string) []*MachineNode {
	var out []*MachineNode
	for _, m := range c.all {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// IsSilent reports whether every machine named name is silent.
func (c *Chart) IsSilent(name string) bool {
	nodes := c.Lookup(name)
	if len(nodes) == 0 {
		return false
	}
	for _, m := range nodes {
		if !m.Silent {
			return false
		}
	}
	return true
}

// MachineNode is a compiled machine definition.
type MachineNode struct {
	Name   string
	Silent bool
	// Host is the state whose activation owns instances of this machine; nil at top level.
	Host    *StateNode
	Roots   []*StateNode
	Initial *StateNode

	states map[string]*StateNode
}

// State returns the state at the dotted path, or nil.
func (m *MachineNode) State(path string) *StateNode {
	return m.states[path]
}

// Root returns the root state named name, or nil.
func (m *MachineNode) Root(name string) *StateNode {
	return findState(m.Roots, name)
}

// Scope returns the machines m runs alongside, itself included.
func (m *MachineNode) Scope(c *Chart) []*MachineNode {
	if m.Host == nil {
		return c.Machines
	}
	return m.Host.Machines
}

// QualifiedName renders the machine with its host chain, e.g. "position/covered/status".
func (m *MachineNode) QualifiedName() string {
	if m.Host == nil {
		return m.Name
	}
	return m.Host.Machine.QualifiedName() + "/" + strings.Join(m.Host.Path, "/") + "/" + m.Name
}

// StateNode is a compiled state.
type StateNode struct {
	Name    string
	Path    []string
	Machine *MachineNode
	Parent  *StateNode
	// Children are the sub-states of a composite state; Initial is set whenever Children is not empty.
	Children []*StateNode
	Initial  *StateNode
	// Machines run in parallel while this state is active.
	Machines    []*MachineNode
	Transitions map[string][]*Transition
}

// IsComposite reports whether the state has children.
func (s *StateNode) IsComposite() bool {
	return len(s.Children) > 0
}

// IsHost reports whether the state owns nested machines.
func (s *StateNode) IsHost() bool {
	return len(s.Machines) > 0
}

// Contains reports whether o is s or one of its descendants.
func (s *StateNode) Contains(o *StateNode) bool {
	for n := o; n != nil; n = n.Parent {
		if n == s {
			return true
		}
	}
	return false
}

// Child returns the direct child named name, or nil.
func (s *StateNode) Child(name string) *StateNode {
	return findState(s.Children, name)
}

// Nested returns the nested machine hosted by s named name, or nil.
func (s *StateNode) Nested(name string) *MachineNode {
	for _, m := range s.Machines {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Lineage returns the states from the root down to s.
func (s *StateNode) Lineage() []*StateNode {
	var out []*StateNode
	for n := s; n != nil; n = n.Parent {
		out = append(out, n)
	}
	slices.Reverse(out)
	return out
}

// EntryPath returns the full path entered when s is targeted: its lineage followed by
// the initial descendants of s.
func (s *StateNode) EntryPath() []*StateNode {
	path := s.Lineage()
	for n := s; n.Initial != nil; n = n.Initial {
		path = append(path, n.Initial)
	}
	return path
}

// DottedPath renders the path of s.
func (s *StateNode) DottedPath() string {
	return strings.Join(s.Path, domain.PathSeparator)
}

// Transition is one resolved candidate.
type Transition struct {
	Source *StateNode
	Kind   string
	Guard  string
	Target *Target
}

// Target is a resolved address. Next seeds a nested machine hosted by State.
type Target struct {
	Raw     string
	Machine *MachineNode
	State   *StateNode
	Next    *Target
}

func findState(states []*StateNode, name string) *StateNode {
	for _, s := range states {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Names returns the names of the given states.
func Names(states []*StateNode) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.Name
	}
	return out
}
