package runner

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// Commands understood by the Runner besides plain messages.
const (
	CommandVector = "vector"
	CommandReset  = "reset"
	CommandHelp   = "help"
)

// Request is one unit of input: a message to dispatch or a command.
type Request struct {
	Message domain.Message
	Command string
}

// Result reports the outcome of one request.
type Result struct {
	Kind      string
	Command   string
	ChangeSet domain.ChangeSet
	Vector    domain.Vector
	Err       error
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next request. It returns io.EOF when the input is exhausted or
	// the user asked to leave.
	Input(ctx context.Context) (Request, error)

	// Output presents the result of a request.
	Output(ctx context.Context, res Result) error

	// SystemOutput presents a meta-message to the user (e.g. help, status updates).
	// This is distinct from results.
	SystemOutput(ctx context.Context, msg string) error
}
