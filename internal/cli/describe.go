package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/domain"
)

// DescribeMarkdown renders a group as Markdown: its machines as nested lists, the
// message kinds it handles with their context fields, and any unreachable states.
func DescribeMarkdown(def domain.GroupDefinition, chart *compiler.Chart) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", chart.Name)
	if chart.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", chart.Description)
	}

	sb.WriteString("## Machines\n\n")
	for _, m := range chart.Machines {
		writeMachine(&sb, m, 0)
	}

	sb.WriteString("\n## Messages\n\n")
	for _, kind := range chart.Kinds() {
		fmt.Fprintf(&sb, "- `%s`", kind)
		if fields := def.Contexts[kind]; len(fields) > 0 {
			parts := make([]string, 0, len(fields))
			for _, name := range slices.Sorted(maps.Keys(fields)) {
				parts = append(parts, fmt.Sprintf("`%s: %s`", name, fields[name]))
			}
			fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}

	if findings := validator.Unreachable(chart); len(findings) > 0 {
		sb.WriteString("\n## Unreachable states\n\n")
		for _, f := range findings {
			fmt.Fprintf(&sb, "- `%s` in `%s`\n", f.State, f.Machine)
		}
	}
	return sb.String()
}

func writeMachine(sb *strings.Builder, m *compiler.MachineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s- **%s**", indent, m.Name)
	if m.Silent {
		sb.WriteString(" _(silent)_")
	}
	fmt.Fprintf(sb, ", starts at `%s`\n", m.Initial.DottedPath())
	for _, s := range m.Roots {
		writeState(sb, s, depth+1)
	}
}

func writeState(sb *strings.Builder, s *compiler.StateNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s- `%s`", indent, s.Name)
	if kinds := slices.Sorted(maps.Keys(s.Transitions)); len(kinds) > 0 {
		labels := make([]string, 0, len(kinds))
		for _, k := range kinds {
			if k == domain.EpsilonKind {
				k = "always"
			}
			labels = append(labels, k)
		}
		fmt.Fprintf(sb, " on %s", strings.Join(labels, ", "))
	}
	sb.WriteString("\n")
	for _, c := range s.Children {
		writeState(sb, c, depth+1)
	}
	for _, m := range s.Machines {
		writeMachine(sb, m, depth+1)
	}
}

// Describe writes the group description, rendered for the terminal unless raw.
func Describe(w io.Writer, def domain.GroupDefinition, chart *compiler.Chart, raw bool) error {
	md := DescribeMarkdown(def, chart)
	if !raw {
		out, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		md = out
	}
	_, err := io.WriteString(w, md)
	return err
}
