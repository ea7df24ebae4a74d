package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/lattice/pkg/domain"
)

const helpText = `**Lattice runner**

- ` + "`KIND key=value ...`" + ` dispatches a message, e.g. ` + "`OPEN skipOpening=true`" + `
- ` + "`KIND {\"key\": \"value\"}`" + ` dispatches a message with a JSON context
- ` + "`:vector`" + ` prints the current vector
- ` + "`:reset`" + ` returns every machine to its initial state
- ` + "`exit`" + ` leaves`

// Runner handles the read, dispatch and report loop using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler on Stdin/Stdout is used.
	Handler IOHandler

	// Interceptor inspects messages before they are dispatched.
	Interceptor Interceptor

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	Headless    bool
	StopOnError bool
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads requests until the input ends or ctx is cancelled.
// Input exhaustion and cancellation end the loop without error.
func (r *Runner) Run(ctx context.Context, d Dispatcher) error {
	handler := r.resolveHandler()
	interceptor := r.Interceptor
	if interceptor == nil {
		interceptor = PassThrough()
	}

	if !r.Headless {
		if err := handler.SystemOutput(ctx, helpText); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	for {
		req, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("runner stopped", "reason", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		res := r.handle(ctx, d, interceptor, req)
		if err := handler.Output(ctx, res); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if res.Err != nil && r.StopOnError {
			return res.Err
		}
	}
}

func (r *Runner) handle(ctx context.Context, d Dispatcher, interceptor Interceptor, req Request) Result {
	res := Result{Command: req.Command}
	switch req.Command {
	case CommandHelp:
		res.Err = r.resolveHandler().SystemOutput(ctx, helpText)
		return res
	case CommandVector:
		res.Vector, res.Err = d.Vector(ctx)
		return res
	case CommandReset:
		res.ChangeSet, res.Err = d.Reset(ctx)
		return res
	}

	msg, err := interceptor(ctx, req.Message)
	res.Kind = msg.Kind
	if err != nil {
		res.Err = err
		return res
	}
	res.ChangeSet, res.Err = d.Dispatch(ctx, msg)

	var cycle *domain.EpsilonCycleError
	switch {
	case errors.As(res.Err, &cycle):
		r.Logger.Warn("epsilon cycle", "kind", msg.Kind, "machines", cycle.Machines)
	case res.Err != nil:
		r.Logger.Debug("dispatch failed", "kind", msg.Kind, "error", res.Err)
	default:
		r.Logger.Debug("dispatched", "kind", msg.Kind, "changed", res.ChangeSet.Changed)
	}
	return res
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}
