package dsl

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
)

// Builder manages the construction of a machine group.
type Builder struct {
	name        string
	description string
	machines    []*MachineBuilder
	guards      map[string]domain.GuardSpec
	contexts    map[string]map[string]string
}

// New creates a new group builder.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Describe sets the human readable description of the group.
func (b *Builder) Describe(text string) *Builder {
	b.description = text
	return b
}

// Machine appends a top-level machine to the group.
func (b *Builder) Machine(name string) *MachineBuilder {
	m := NewMachine(name)
	b.machines = append(b.machines, m)
	return m
}

// Add appends machines built elsewhere (e.g. shared between groups).
func (b *Builder) Add(machines ...*MachineBuilder) *Builder {
	b.machines = append(b.machines, machines...)
	return b
}

// Guard declares a guard as data.
func (b *Builder) Guard(name string, spec domain.GuardSpec) *Builder {
	if b.guards == nil {
		b.guards = make(map[string]domain.GuardSpec)
	}
	b.guards[name] = spec
	return b
}

// Context declares the type of a context field for a message kind.
func (b *Builder) Context(kind, field, typ string) *Builder {
	if b.contexts == nil {
		b.contexts = make(map[string]map[string]string)
	}
	if b.contexts[kind] == nil {
		b.contexts[kind] = make(map[string]string)
	}
	b.contexts[kind][field] = typ
	return b
}

// Build returns the group definition.
func (b *Builder) Build() domain.GroupDefinition {
	def := domain.GroupDefinition{
		Name:        b.name,
		Description: b.description,
		Guards:      b.guards,
		Contexts:    b.contexts,
	}
	for _, m := range b.machines {
		def.Machines = append(def.Machines, m.Build())
	}
	return def
}

// Loader builds the group into an in-memory loader.
func (b *Builder) Loader() (*memory.Loader, error) {
	loader, err := memory.NewFromGroups(b.Build())
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
