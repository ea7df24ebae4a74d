package dsl

import "github.com/aretw0/lattice/pkg/domain"

// MachineBuilder provides a fluent API for configuring a machine.
type MachineBuilder struct {
	name    string
	initial string
	silent  bool
	states  []*StateBuilder
}

// NewMachine starts a standalone machine, to be added with Builder.Add or
// StateBuilder.Nest.
func NewMachine(name string) *MachineBuilder {
	return &MachineBuilder{name: name}
}

// Initial sets the initial state. A dotted path selects a descendant directly.
func (m *MachineBuilder) Initial(path string) *MachineBuilder {
	m.initial = path
	return m
}

// Silent hides the machine from change-sets.
func (m *MachineBuilder) Silent() *MachineBuilder {
	m.silent = true
	return m
}

// State appends a root state and returns its builder.
// If the state already exists, it returns the existing builder.
func (m *MachineBuilder) State(name string) *StateBuilder {
	for _, s := range m.states {
		if s.name == name {
			return s
		}
	}
	s := &StateBuilder{name: name}
	m.states = append(m.states, s)
	return s
}

// Build returns the underlying machine definition.
func (m *MachineBuilder) Build() domain.MachineDefinition {
	def := domain.MachineDefinition{
		Name:       m.name,
		Initial:    m.initial,
		SilentOnly: m.silent,
	}
	for _, s := range m.states {
		def.States = append(def.States, s.Build())
	}
	return def
}

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	name     string
	initial  string
	states   []*StateBuilder
	machines []*MachineBuilder
	messages map[string][]domain.Candidate
}

// Initial names the initial child of a composite state.
func (s *StateBuilder) Initial(child string) *StateBuilder {
	s.initial = child
	return s
}

// On adds an unguarded candidate for kind.
func (s *StateBuilder) On(kind, target string) *StateBuilder {
	return s.When(kind, "", target)
}

// When adds a guarded candidate for kind. Candidates are tried in the order they were added.
func (s *StateBuilder) When(kind, guard, target string) *StateBuilder {
	if s.messages == nil {
		s.messages = make(map[string][]domain.Candidate)
	}
	s.messages[kind] = append(s.messages[kind], domain.Candidate{Guard: guard, Target: target})
	return s
}

// Always adds an epsilon candidate, taken without any message once the state is entered.
func (s *StateBuilder) Always(target string) *StateBuilder {
	return s.On(domain.EpsilonKind, target)
}

// State appends a child state and returns its builder.
// If the child already exists, it returns the existing builder.
func (s *StateBuilder) State(name string) *StateBuilder {
	for _, c := range s.states {
		if c.name == name {
			return c
		}
	}
	c := &StateBuilder{name: name}
	s.states = append(s.states, c)
	return c
}

// Machine declares a nested machine that runs while this state is active.
func (s *StateBuilder) Machine(name string) *MachineBuilder {
	m := NewMachine(name)
	s.machines = append(s.machines, m)
	return m
}

// Nest attaches machines built elsewhere.
func (s *StateBuilder) Nest(machines ...*MachineBuilder) *StateBuilder {
	s.machines = append(s.machines, machines...)
	return s
}

// Build returns the underlying state definition.
func (s *StateBuilder) Build() domain.StateDefinition {
	def := domain.StateDefinition{
		Name:     s.name,
		Initial:  s.initial,
		Messages: s.messages,
	}
	for _, c := range s.states {
		def.States = append(def.States, c.Build())
	}
	for _, m := range s.machines {
		def.Machines = append(def.Machines, m.Build())
	}
	return def
}
