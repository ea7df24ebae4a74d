package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Vector marks every live machine and the states on its path.
	Vector domain.Vector
}

// GenerateMermaid produces a Mermaid stateDiagram-v2 of a compiled chart.
// Each machine is a composite state; nested machines are concurrent regions of their host.
// Silent machines are drawn dashed. Transitions are labeled with their kind and guard;
// epsilon transitions with "ε". With an overlay, the active states are highlighted.
func GenerateMermaid(chart *compiler.Chart, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	if chart.Description != "" {
		fmt.Fprintf(&sb, "    %%%% %s\n", firstLine(chart.Description))
	}

	for _, m := range chart.Machines {
		writeMachine(&sb, m, 1)
	}

	sb.WriteString("\n")
	for _, m := range chart.AllMachines() {
		for _, s := range states(m) {
			writeTransitions(&sb, s)
		}
	}

	silent := make([]string, 0)
	for _, m := range chart.AllMachines() {
		if m.Silent {
			silent = append(silent, machineID(m))
		}
	}
	if len(silent) > 0 {
		sb.WriteString("\n    classDef silent stroke-dasharray:4 4,color:#666;\n")
		fmt.Fprintf(&sb, "    class %s silent\n", strings.Join(silent, ","))
	}

	if overlay != nil && len(overlay.Vector) > 0 {
		if active := activeIDs(chart, overlay.Vector); len(active) > 0 {
			sb.WriteString("\n    %% Overlay Styles\n")
			// Black text keeps contrast on light fills in both themes.
			sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:3px,color:#000;\n")
			fmt.Fprintf(&sb, "    class %s current\n", strings.Join(active, ","))
		}
	}

	return sb.String()
}

func writeMachine(sb *strings.Builder, m *compiler.MachineNode, depth int) {
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(sb, "%sstate \"%s\" as %s {\n", indent, m.Name, machineID(m))
	writeStates(sb, m.Roots, m.Initial.Lineage()[0], depth+1)
	fmt.Fprintf(sb, "%s}\n", indent)
}

func writeStates(sb *strings.Builder, list []*compiler.StateNode, initial *compiler.StateNode, depth int) {
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(sb, "%s[*] --> %s\n", indent, stateID(initial))
	for _, s := range list {
		if !s.IsComposite() && !s.IsHost() {
			fmt.Fprintf(sb, "%sstate \"%s\" as %s\n", indent, s.Name, stateID(s))
			continue
		}

		fmt.Fprintf(sb, "%sstate \"%s\" as %s {\n", indent, s.Name, stateID(s))
		regions := 0
		if s.IsComposite() {
			writeStates(sb, s.Children, s.Initial, depth+1)
			regions++
		}
		for _, nested := range s.Machines {
			if regions > 0 {
				fmt.Fprintf(sb, "%s    --\n", indent)
			}
			writeMachine(sb, nested, depth+1)
			regions++
		}
		fmt.Fprintf(sb, "%s}\n", indent)
	}
}

func writeTransitions(sb *strings.Builder, s *compiler.StateNode) {
	for _, kind := range slices.Sorted(maps.Keys(s.Transitions)) {
		for _, t := range s.Transitions[kind] {
			label := kind
			if kind == domain.EpsilonKind {
				label = "ε"
			}
			if t.Guard != "" {
				label += " [" + t.Guard + "]"
			}
			fmt.Fprintf(sb, "    %s --> %s : %s\n", stateID(s), stateID(targetLeaf(t.Target)), label)
		}
	}
}

// targetLeaf follows seeds down to the deepest addressed state.
func targetLeaf(t *compiler.Target) *compiler.StateNode {
	for t.Next != nil {
		t = t.Next
	}
	return t.State
}

func states(m *compiler.MachineNode) []*compiler.StateNode {
	var out []*compiler.StateNode
	var walk func([]*compiler.StateNode)
	walk = func(list []*compiler.StateNode) {
		for _, s := range list {
			out = append(out, s)
			walk(s.Children)
		}
	}
	walk(m.Roots)
	return out
}

// activeIDs walks the vector from the top-level machines down through the hosts on each
// live path, so reused machine names resolve to the instance that is actually live.
func activeIDs(chart *compiler.Chart, v domain.Vector) []string {
	var ids []string
	var visit func(m *compiler.MachineNode)
	visit = func(m *compiler.MachineNode) {
		path, ok := v[m.Name]
		if !ok {
			return
		}
		ids = append(ids, machineID(m))
		var cur *compiler.StateNode
		for _, name := range path {
			if cur == nil {
				cur = m.Root(name)
			} else {
				cur = cur.Child(name)
			}
			if cur == nil {
				return
			}
			ids = append(ids, stateID(cur))
			for _, nested := range cur.Machines {
				visit(nested)
			}
		}
	}
	for _, m := range chart.Machines {
		visit(m)
	}
	return ids
}

func machineID(m *compiler.MachineNode) string {
	return sanitizeMermaidID(m.QualifiedName())
}

func stateID(s *compiler.StateNode) string {
	return sanitizeMermaidID(s.Machine.QualifiedName() + "__" + strings.Join(s.Path, "__"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_", ":", "_").Replace(id)
}
