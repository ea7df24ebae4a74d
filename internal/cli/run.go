package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/lattice/pkg/runner"
	"golang.org/x/term"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	EngineOptions
	Group     string
	SessionID string
	Fresh     bool
	JSON      bool
	Headless  bool
	Watch     bool
	RedisURL  string
	// AllowKinds restricts the kinds the runner forwards. Empty allows all.
	AllowKinds []string

	Stdin  io.Reader
	Stdout io.Writer
}

// Execute handles the run command, dispatching to session or watch mode.
func Execute(opts RunOptions) error {
	if opts.Group == "" {
		return fmt.Errorf("a group name is required")
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	// Piped input defaults to NDJSON.
	if f, ok := opts.Stdin.(*os.File); ok && !opts.JSON && !term.IsTerminal(int(f.Fd())) {
		opts.JSON = true
		opts.Headless = true
	}

	if opts.Watch {
		if opts.Headless || opts.JSON {
			return fmt.Errorf("--watch needs an interactive terminal")
		}
		return RunWatch(opts)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	err := RunSession(sigCtx, opts)
	if !opts.JSON && !opts.Headless {
		logCompletion(opts.Stdout, sigCtx.Signal())
	}
	return handleExecutionError(err)
}

func newHandler(opts RunOptions) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(opts.Stdin, opts.Stdout)
	}
	return runner.NewTextHandler(opts.Stdin, opts.Stdout)
}

func newRunner(opts RunOptions, handler runner.IOHandler, logger *slog.Logger) *runner.Runner {
	interceptors := []runner.Interceptor{runner.LoggingInterceptor(logger)}
	if len(opts.AllowKinds) > 0 {
		interceptors = append(interceptors, runner.AllowKinds(opts.AllowKinds...))
	}
	return runner.NewRunner(
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithInterceptor(runner.MultiInterceptor(interceptors...)),
		runner.WithHeadless(opts.Headless || opts.JSON),
	)
}
