package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// ContextFlag is true when the message context holds a truthy value for key.
func ContextFlag(key string) Predicate {
	return func(_ domain.Vector, msg domain.Message) (bool, error) {
		return msg.Flag(key), nil
	}
}

// NotContextFlag is the negation of ContextFlag.
func NotContextFlag(key string) Predicate {
	return Not(ContextFlag(key))
}

// InState is true when machine was live before the dispatch and its path started with states.
func InState(machine string, states ...string) Predicate {
	return func(prior domain.Vector, _ domain.Message) (bool, error) {
		return prior.In(machine, states...), nil
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(prior domain.Vector, msg domain.Message) (bool, error) {
		ok, err := p(prior, msg)
		return !ok && err == nil, err
	}
}

// All is true when every predicate is true. An empty list is true.
func All(ps ...Predicate) Predicate {
	return func(prior domain.Vector, msg domain.Message) (bool, error) {
		for _, p := range ps {
			ok, err := p(prior, msg)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Any is true when at least one predicate is true. An empty list is false.
func Any(ps ...Predicate) Predicate {
	return func(prior domain.Vector, msg domain.Message) (bool, error) {
		for _, p := range ps {
			ok, err := p(prior, msg)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// FromSpec builds a predicate from its declarative form.
func FromSpec(spec domain.GuardSpec) (Predicate, error) {
	var (
		p     Predicate
		kinds int
	)
	if spec.Flag != "" {
		kinds++
		p = ContextFlag(spec.Flag)
	}
	if spec.State != "" {
		kinds++
		machine, path, ok := strings.Cut(spec.State, ":")
		if !ok || machine == "" || path == "" {
			return nil, fmt.Errorf("state guard %q: expected machine:path", spec.State)
		}
		p = InState(machine, domain.SplitPath(path)...)
	}
	if len(spec.All) > 0 {
		kinds++
		ps, err := fromSpecs(spec.All)
		if err != nil {
			return nil, err
		}
		p = All(ps...)
	}
	if len(spec.Any) > 0 {
		kinds++
		ps, err := fromSpecs(spec.Any)
		if err != nil {
			return nil, err
		}
		p = Any(ps...)
	}
	switch {
	case kinds == 0:
		return nil, fmt.Errorf("guard spec is empty")
	case kinds > 1:
		return nil, fmt.Errorf("guard spec mixes flag, state, all and any")
	}
	if spec.Negate {
		p = Not(p)
	}
	return p, nil
}

func fromSpecs(specs []domain.GuardSpec) ([]Predicate, error) {
	out := make([]Predicate, 0, len(specs))
	for i, s := range specs {
		p, err := FromSpec(s)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SpecError reports a declarative guard that could not be registered.
type SpecError struct {
	Guard string
	Err   error
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("guard %q: %v", e.Guard, e.Err)
}

func (e *SpecError) Unwrap() error { return e.Err }

// RegisterSpecs registers every declarative guard of a group document, in name order.
// A failing guard does not stop the others: the result joins one *SpecError per failure.
func (r *Registry) RegisterSpecs(specs map[string]domain.GuardSpec) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		p, err := FromSpec(specs[name])
		if err == nil {
			err = r.Register(name, p)
		}
		if err != nil {
			errs = append(errs, &SpecError{Guard: name, Err: err})
		}
	}
	return errors.Join(errs...)
}
