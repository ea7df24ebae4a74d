// Package validator lints compiled charts for problems the compiler accepts.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/lattice/internal/compiler"
)

// Finding is one lint result.
type Finding struct {
	Machine string
	State   string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Machine, f.State, f.Message)
}

// Unreachable reports every state that no sequence of messages can enter.
//
// The walk starts from the initial states of the top-level machines. Entering a state
// enters its lineage, its initial descendants and the initial states of the machines it
// hosts; every transition of an entered state enters its target. Guards are assumed to
// pass. States inside an unreachable host are not reported separately.
func Unreachable(chart *compiler.Chart) []Finding {
	seen := make(map[*compiler.StateNode]bool)
	var queue []*compiler.StateNode

	enter := func(s *compiler.StateNode) {
		for _, n := range s.EntryPath() {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}

	for _, m := range chart.Machines {
		enter(m.Initial)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for _, nested := range s.Machines {
			enter(nested.Initial)
		}
		for _, candidates := range s.Transitions {
			for _, t := range candidates {
				for target := t.Target; target != nil; target = target.Next {
					enter(target.State)
				}
			}
		}
	}

	var out []Finding
	for _, m := range chart.AllMachines() {
		if m.Host != nil && !seen[m.Host] {
			continue
		}
		for _, s := range walk(m.Roots) {
			if seen[s] || (s.Parent != nil && !seen[s.Parent]) {
				continue
			}
			out = append(out, Finding{
				Machine: m.QualifiedName(),
				State:   s.DottedPath(),
				Message: "state is unreachable",
			})
		}
	}
	slices.SortFunc(out, func(a, b Finding) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// walk returns states and their descendants in pre-order.
func walk(states []*compiler.StateNode) []*compiler.StateNode {
	var out []*compiler.StateNode
	for _, s := range states {
		out = append(out, s)
		out = append(out, walk(s.Children)...)
	}
	return out
}
