package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/aretw0/lattice/pkg/session"
)

// reloadDelay lets editors finish writing before the group is recompiled.
const reloadDelay = 100 * time.Millisecond

// RunWatch runs the group in development mode, reloading on definition changes.
// The vector lives in a session so it survives reloads; when it no longer fits the
// edited group the session starts over.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner(opts.Stdout)

	// Scoped by path so projects do not share a session.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(opts.RepoPath + "\x00" + opts.Group))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	engine, err := NewEngine(opts.EngineOptions, logger)
	if err != nil {
		return err
	}
	store, err := NewSnapshotStore(opts.RepoPath, opts.RedisURL)
	if err != nil {
		return err
	}
	mgr := session.NewManager(engine, store, session.WithLogger(logger))

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	changes, err := engine.Watch(sigCtx)
	if err != nil {
		return err
	}

	if opts.Fresh {
		_ = mgr.Delete(sigCtx, opts.SessionID)
	}
	logger.Info("Starting watcher", "path", opts.RepoPath, "session_id", opts.SessionID)
	printSystemMessage(opts.Stdout, "Watching '%s' in session '%s'.", opts.Group, opts.SessionID)

	// One handler for every iteration so a single reader owns stdin.
	handler := newHandler(opts)
	for {
		reload, err := runWatchIteration(sigCtx, engine, mgr, opts, handler, changes, logger)
		if err != nil {
			return err
		}
		if !reload {
			break
		}
		logger.Info("Watcher restarting")
	}
	logCompletion(opts.Stdout, sigCtx.Signal())
	return nil
}

// runWatchIteration runs until the input ends, a signal arrives or a definition
// changes. It reports whether the caller should start another iteration.
func runWatchIteration(parent *SignalContext, engine *lattice.Engine, mgr *session.Manager, opts RunOptions, handler runner.IOHandler, changes <-chan string, logger *slog.Logger) (bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := prepareWatchSession(ctx, engine, mgr, opts, logger); err != nil {
		logger.Error("Group failed to load", "err", err)
		printSystemMessage(opts.Stdout, "Error: %v. Waiting for changes...", err)
		select {
		case <-parent.Done():
			return false, nil
		case _, ok := <-changes:
			return ok, nil
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- newRunner(opts, handler, logger).Run(ctx, runner.NewSessionDispatcher(mgr, opts.SessionID))
	}()

	select {
	case <-parent.Done():
		cancel()
		<-done
		return false, nil
	case name, ok := <-changes:
		cancel()
		<-done
		if !ok {
			return false, nil
		}
		logger.Info("Change detected, triggering reload", "group", name)
		fmt.Fprintln(opts.Stdout)
		printSystemMessage(opts.Stdout, "Change detected in '%s'.", name)
		time.Sleep(reloadDelay)
		return true, nil
	case err := <-done:
		return false, handleExecutionError(err)
	}
}

// prepareWatchSession compiles the group and makes sure the session vector still fits it.
func prepareWatchSession(ctx context.Context, engine *lattice.Engine, mgr *session.Manager, opts RunOptions, logger *slog.Logger) error {
	if _, err := engine.Chart(opts.Group); err != nil {
		return err
	}
	if _, err := resumeSession(ctx, mgr, opts); err != nil {
		return err
	}
	_, err := mgr.Group(ctx, opts.SessionID)
	var invalid *domain.InvalidVectorError
	if !errors.As(err, &invalid) {
		return err
	}

	logger.Warn("Session no longer fits the group, starting over", "session_id", opts.SessionID, "err", err)
	printSystemMessage(opts.Stdout, "Session vector no longer fits '%s'; starting over.", opts.Group)
	if err := mgr.Delete(ctx, opts.SessionID); err != nil {
		return err
	}
	_, err = resumeSession(ctx, mgr, opts)
	return err
}
