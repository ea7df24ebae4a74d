package compiler

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/aretw0/lattice/pkg/domain"
)

// Address grammar:
//
//	sibling            a state next to the declaring state
//	sibling.child      descend through children
//	machine:a.b        a root path of another (or the same) machine
//	machine:a.n:x      inside a middle segment the last component names a machine
//	                   nested under a (here: machine n hosted by state a, at state x)

type addrError struct {
	reason     string
	suggestion string
}

func (c *compiler) resolveAddress(source *StateNode, raw string) (*Target, *addrError) {
	if raw == "" {
		return nil, &addrError{reason: "empty address"}
	}
	if !strings.Contains(raw, ":") {
		siblings := source.Machine.Roots
		if source.Parent != nil {
			siblings = source.Parent.Children
		}
		state, err := descend(siblings, domain.SplitPath(raw))
		if err != nil {
			return nil, err
		}
		return &Target{Raw: raw, Machine: source.Machine, State: state}, nil
	}

	segments := strings.Split(raw, ":")
	machine, err := c.lookupMachine(source.Machine, segments[0])
	if err != nil {
		return nil, err
	}
	root := &Target{Raw: raw, Machine: machine}
	cur := root
	for i, seg := range segments[1:] {
		parts := domain.SplitPath(seg)
		if len(parts) == 0 {
			return nil, &addrError{reason: fmt.Sprintf("empty segment %d", i+1)}
		}
		if i == len(segments)-2 {
			state, err := descend(cur.Machine.Roots, parts)
			if err != nil {
				return nil, err
			}
			cur.State = state
			break
		}
		if len(parts) < 2 {
			return nil, &addrError{reason: fmt.Sprintf("segment %q must name a host state and a nested machine", seg)}
		}
		host, err := descend(cur.Machine.Roots, parts[:len(parts)-1])
		if err != nil {
			return nil, err
		}
		nestedName := parts[len(parts)-1]
		nested := host.Nested(nestedName)
		if nested == nil {
			names := make([]string, len(host.Machines))
			for j, m := range host.Machines {
				names[j] = m.Name
			}
			return nil, &addrError{
				reason:     fmt.Sprintf("state %q hosts no machine %q", host.DottedPath(), nestedName),
				suggestion: Suggest(nestedName, names),
			}
		}
		cur.State = host
		cur.Next = &Target{Raw: raw, Machine: nested}
		cur = cur.Next
	}
	return root, nil
}

// lookupMachine resolves a machine name lexically: the scope of from, then each enclosing
// scope outward, then a unique definition anywhere in the chart.
func (c *compiler) lookupMachine(from *MachineNode, name string) (*MachineNode, *addrError) {
	for m := from; m != nil; {
		for _, candidate := range m.Scope(c.chart) {
			if candidate.Name == name {
				return candidate, nil
			}
		}
		if m.Host == nil {
			break
		}
		m = m.Host.Machine
	}

	matches := c.chart.Lookup(name)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		names := make([]string, 0, len(c.chart.all))
		for _, m := range c.chart.all {
			names = append(names, m.Name)
		}
		return nil, &addrError{reason: fmt.Sprintf("unknown machine %q", name), suggestion: Suggest(name, names)}
	}
	return nil, &addrError{reason: fmt.Sprintf("machine %q is ambiguous here; qualify it with its host state", name)}
}

// descend walks path starting from a set of sibling states.
func descend(siblings []*StateNode, path []string) (*StateNode, *addrError) {
	if len(path) == 0 {
		return nil, &addrError{reason: "empty path"}
	}
	var cur *StateNode
	level := siblings
	for _, name := range path {
		next := findState(level, name)
		if next == nil {
			where := "here"
			if cur != nil {
				where = fmt.Sprintf("under %q", cur.DottedPath())
			}
			return nil, &addrError{
				reason:     fmt.Sprintf("no state %q %s", name, where),
				suggestion: Suggest(name, Names(level)),
			}
		}
		cur = next
		level = cur.Children
	}
	return cur, nil
}

// Suggest returns the closest candidate within a small edit distance, or "".
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, cand := range candidates {
		if cand == name {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(cand))
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}
