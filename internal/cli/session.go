package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/aretw0/lattice/pkg/session"
)

// RunSession runs one group until the input ends or ctx is cancelled.
// Without a session ID the group lives in memory only; with one, every change is
// persisted and a later run resumes where this one stopped.
func RunSession(ctx context.Context, opts RunOptions) error {
	logger := createLogger(opts.Debug)
	quiet := opts.JSON || opts.Headless
	if !quiet {
		tui.PrintBanner(opts.Stdout)
	}

	engine, err := NewEngine(opts.EngineOptions, logger)
	if err != nil {
		return err
	}

	d, err := openDispatcher(ctx, engine, opts, logger, quiet)
	if err != nil {
		return err
	}
	return newRunner(opts, newHandler(opts), logger).Run(ctx, d)
}

// openDispatcher returns a dispatcher over a fresh group or a persisted session.
func openDispatcher(ctx context.Context, engine *lattice.Engine, opts RunOptions, logger *slog.Logger, quiet bool) (runner.Dispatcher, error) {
	if opts.SessionID == "" {
		g, err := engine.NewGroup(ctx, opts.Group)
		if err != nil {
			return nil, err
		}
		return runner.NewGroupDispatcher(g), nil
	}

	store, err := NewSnapshotStore(opts.RepoPath, opts.RedisURL)
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(engine, store, session.WithLogger(logger))

	if opts.Fresh {
		if err := mgr.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	snap, err := resumeSession(ctx, mgr, opts)
	if err != nil {
		return nil, err
	}
	logSessionStatus(opts.Stdout, logger, snap, quiet)
	return runner.NewSessionDispatcher(mgr, opts.SessionID), nil
}

// resumeSession loads the session, creating it when it does not exist yet.
// A session created for another group is an error.
func resumeSession(ctx context.Context, mgr *session.Manager, opts RunOptions) (*domain.Snapshot, error) {
	snap, err := mgr.LoadOrCreate(ctx, opts.Group, opts.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to init session: %w", err)
	}
	if snap.Group != opts.Group {
		return nil, fmt.Errorf("session %q belongs to group %q, not %q", opts.SessionID, snap.Group, opts.Group)
	}
	return snap, nil
}

func logSessionStatus(w io.Writer, logger *slog.Logger, snap *domain.Snapshot, quiet bool) {
	resumed := snap.Dispatches > 0
	logger.Info("Session ready", "session_id", snap.SessionID, "group", snap.Group, "resumed", resumed)
	if quiet {
		return
	}
	if resumed {
		printSystemMessage(w, "Resuming session '%s' after %d dispatches.", snap.SessionID, snap.Dispatches)
		return
	}
	printSystemMessage(w, "Session '%s' active.", snap.SessionID)
}
