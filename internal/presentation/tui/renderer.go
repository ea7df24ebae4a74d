package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
// When the renderer cannot be built the markdown is returned unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// ChangePrinter writes change-sets one machine per line, colored on terminals.
type ChangePrinter struct {
	out *termenv.Output
}

// NewChangePrinter creates a printer writing to w.
func NewChangePrinter(w io.Writer) *ChangePrinter {
	return &ChangePrinter{out: termenv.NewOutput(w)}
}

// Print writes "machine: prior -> next" for every changed machine, or "(no change)".
func (p *ChangePrinter) Print(cs domain.ChangeSet) {
	if cs.IsEmpty() {
		fmt.Fprintln(p.out, p.out.String("(no change)").Faint())
		return
	}
	for _, name := range cs.Changed {
		prior, next := cs.Prior.Path(name), cs.Next.Path(name)
		if prior == "" {
			prior = "∅"
		}
		if next == "" {
			next = "∅"
		}
		fmt.Fprintf(p.out, "%s: %s -> %s\n",
			p.out.String(name).Bold(),
			p.out.String(prior).Foreground(p.out.Color("#f87171")),
			p.out.String(next).Foreground(p.out.Color("#34d399")),
		)
	}
}

// PrintVector writes every machine of v in name order.
func (p *ChangePrinter) PrintVector(v domain.Vector) {
	width := 0
	for _, name := range v.Machines() {
		width = max(width, len(name))
	}
	for _, name := range v.Machines() {
		fmt.Fprintf(p.out, "%s%s  %s\n", name, strings.Repeat(" ", width-len(name)), v.Path(name))
	}
}
