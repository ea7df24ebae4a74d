package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Predicate decides whether a guarded transition may fire.
// It receives the vector as it was before the dispatch started and the message being
// dispatched. Predicates must be pure: no I/O, no mutation of their arguments.
type Predicate func(prior domain.Vector, msg domain.Message) (bool, error)

// Registry manages the available guards.
type Registry struct {
	mu     sync.RWMutex
	guards map[string]Predicate
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		guards: make(map[string]Predicate),
	}
}

// Register adds a guard to the registry.
// Registering a name twice fails with *domain.DuplicateGuardError.
func (r *Registry) Register(name string, fn Predicate) error {
	if name == "" {
		return fmt.Errorf("guard name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("guard %q: predicate must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.guards[name]; exists {
		return &domain.DuplicateGuardError{Name: name}
	}
	r.guards[name] = fn
	return nil
}

// MustRegister is like Register but panics on error. Meant for package-level setup.
func (r *Registry) MustRegister(name string, fn Predicate) *Registry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Has reports whether a guard is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.guards[name]
	return ok
}

// Names returns the registered guard names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.guards))
}

// Clone returns an independent registry holding the same guards.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{guards: maps.Clone(r.guards)}
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, error) {
	r.mu.RLock()
	fn, ok := r.guards[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.UnknownGuardError{Name: name}
	}
	return fn, nil
}

// Evaluate looks up a guard by name and runs it.
// A predicate error or panic is reported as *domain.GuardEvaluationError.
func (r *Registry) Evaluate(name string, prior domain.Vector, msg domain.Message) (bool, error) {
	fn, err := r.Lookup(name)
	if err != nil {
		return false, err
	}
	return Call(name, fn, prior, msg)
}

// Call runs fn, turning errors and panics into *domain.GuardEvaluationError.
func Call(name string, fn Predicate, prior domain.Vector, msg domain.Message) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			err = &domain.GuardEvaluationError{Guard: name, Kind: msg.Kind, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	ok, err = fn(prior, msg)
	if err != nil {
		return false, &domain.GuardEvaluationError{Guard: name, Kind: msg.Kind, Err: err}
	}
	return ok, nil
}
