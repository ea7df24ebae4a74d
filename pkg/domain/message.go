package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// EpsilonKind is the reserved kind of messageless transitions.
const EpsilonKind = ""

// PathSeparator joins state names of a path when rendered as a single string.
const PathSeparator = "."

// Message is the unit of input to a machine group.
type Message struct {
	Kind    string         `json:"kind"`
	Context map[string]any `json:"context,omitempty"`
}

// IsEpsilon reports whether the message is an internal epsilon message.
func (m Message) IsEpsilon() bool {
	return m.Kind == EpsilonKind
}

// Value returns the context entry for key, or nil.
func (m Message) Value(key string) any {
	if m.Context == nil {
		return nil
	}
	return m.Context[key]
}

// Flag reports whether the context entry for key is truthy.
// Booleans are taken as is, strings are true unless empty, "0" or "false",
// numbers are true unless zero. Anything else counts as present-and-true.
func (m Message) Flag(key string) bool {
	v, ok := m.Context[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	}
	return true
}

// Vector maps each live machine to its current state path (outermost first).
type Vector map[string][]string

// Clone returns a deep copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for k, p := range v {
		out[k] = slices.Clone(p)
	}
	return out
}

// Machines returns the machine names of the vector in sorted order.
func (v Vector) Machines() []string {
	return slices.Sorted(maps.Keys(v))
}

// Path returns the dotted path of a machine, or "" when the machine is not live.
func (v Vector) Path(machine string) string {
	return JoinPath(v[machine])
}

// In reports whether machine is live and its path starts with the given states.
func (v Vector) In(machine string, states ...string) bool {
	p, ok := v[machine]
	if !ok || len(states) > len(p) {
		return false
	}
	return slices.Equal(p[:len(states)], states)
}

// Equal reports whether both vectors hold the same machines at the same paths.
func (v Vector) Equal(other Vector) bool {
	return maps.EqualFunc(v, other, func(a, b []string) bool { return slices.Equal(a, b) })
}

// JoinPath turns ["a", "b", "c"] into "a.b.c".
func JoinPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// SplitPath turns "a.b.c" into ["a", "b", "c"].
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// ChangeSet is the observable result of one dispatch.
//
// Changed holds, in sorted order, every non-silent machine that transitioned,
// was entered, created or destroyed. Prior and Next hold non-silent machines only.
type ChangeSet struct {
	Kind    string   `json:"kind"`
	Changed []string `json:"changed"`
	Prior   Vector   `json:"prior"`
	Next    Vector   `json:"next"`
}

// IsEmpty reports whether the dispatch produced no observable change.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Changed) == 0
}

// Has reports whether machine is part of the change.
func (c ChangeSet) Has(machine string) bool {
	_, found := slices.BinarySearch(c.Changed, machine)
	return found
}
