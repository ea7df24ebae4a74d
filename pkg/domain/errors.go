package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyKind is returned when an external caller dispatches the reserved epsilon kind.
var ErrEmptyKind = errors.New("message kind must not be empty")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session under an ID already in use.
var ErrSessionExists = errors.New("session already exists")

// ErrGroupNotFound is returned when a loader has no group with the requested name.
var ErrGroupNotFound = errors.New("group not found")

// ErrTextNotSet is returned by text stores when no text is stored.
var ErrTextNotSet = errors.New("text not set")

// InvalidDefinitionError reports a problem found while compiling a definition.
// Construction collects every problem and joins them with errors.Join.
type InvalidDefinitionError struct {
	Location   string // e.g. "openness/closed/OPEN[0]"
	Reason     string
	Suggestion string
}

func (e *InvalidDefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("invalid definition")
	if e.Location != "" {
		b.WriteString(" at ")
		b.WriteString(e.Location)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	return b.String()
}

// DuplicateGuardError is returned when a guard name is registered twice.
type DuplicateGuardError struct {
	Name string
}

func (e *DuplicateGuardError) Error() string {
	return fmt.Sprintf("guard %q already registered", e.Name)
}

// UnknownGuardError is returned when a guard name is not registered.
type UnknownGuardError struct {
	Name string
}

func (e *UnknownGuardError) Error() string {
	return fmt.Sprintf("unknown guard %q", e.Name)
}

// GuardEvaluationError wraps a predicate failure. The dispatch that hit it
// leaves the group unchanged.
type GuardEvaluationError struct {
	Guard string
	Kind  string
	Err   error
}

func (e *GuardEvaluationError) Error() string {
	return fmt.Sprintf("guard %q failed on %q: %v", e.Guard, e.Kind, e.Err)
}

func (e *GuardEvaluationError) Unwrap() error { return e.Err }

// CrossMachineTargetMissingError is returned when a transition targets a
// machine that is not live at dispatch time.
type CrossMachineTargetMissingError struct {
	Source  string
	Target  string
	Machine string
}

func (e *CrossMachineTargetMissingError) Error() string {
	return fmt.Sprintf("transition from %s to %s: machine %q is not live", e.Source, e.Target, e.Machine)
}

// EpsilonCycleError is returned when epsilon transitions do not settle within the limit.
type EpsilonCycleError struct {
	Limit    int
	Machines []string
}

func (e *EpsilonCycleError) Error() string {
	return fmt.Sprintf("epsilon transitions did not settle after %d rounds (machines: %s)",
		e.Limit, strings.Join(e.Machines, ", "))
}

// UnknownKindError is returned in strict mode for kinds no state declares.
type UnknownKindError struct {
	Kind       string
	Suggestion string
}

func (e *UnknownKindError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown message kind %q (did you mean %q?)", e.Kind, e.Suggestion)
	}
	return fmt.Sprintf("unknown message kind %q", e.Kind)
}

// InvalidVectorError is returned when a persisted vector does not fit the chart.
type InvalidVectorError struct {
	Machine string
	Reason  string
}

func (e *InvalidVectorError) Error() string {
	if e.Machine == "" {
		return "invalid vector: " + e.Reason
	}
	return fmt.Sprintf("invalid vector for machine %q: %s", e.Machine, e.Reason)
}

// ContextValidationError is returned when a message context does not match
// the declared field types of its kind.
type ContextValidationError struct {
	Kind string
	Err  error
}

func (e *ContextValidationError) Error() string {
	return fmt.Sprintf("invalid context for %q: %v", e.Kind, e.Err)
}

func (e *ContextValidationError) Unwrap() error { return e.Err }

// TextTooLongError is returned when a text blob exceeds the store's limit.
type TextTooLongError struct {
	Length int
	Max    int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("text is too long (%d characters, maximum is %d)", e.Length, e.Max)
}
