package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/sheet"
)

// Loader names accepted by --loader.
const (
	LoaderLoam    = "loam"
	LoaderFile    = "file"
	LoaderBuiltin = "builtin"
)

// EngineOptions selects where group definitions come from and how the engine reports.
type EngineOptions struct {
	RepoPath     string
	Loader       string
	Debug        bool
	EpsilonLimit int
	StrictKinds  bool
}

// NewEngine builds an engine with the CLI conventions: Loam repository by default,
// plain files or the bundled sheet groups on request.
func NewEngine(opts EngineOptions, logger *slog.Logger, extra ...lattice.Option) (*lattice.Engine, error) {
	engineOpts := []lattice.Option{lattice.WithLogger(logger)}
	if opts.Debug {
		engineOpts = append(engineOpts, lattice.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}
	if opts.EpsilonLimit > 0 {
		engineOpts = append(engineOpts, lattice.WithEpsilonLimit(opts.EpsilonLimit))
	}
	if opts.StrictKinds {
		engineOpts = append(engineOpts, lattice.WithStrictKinds())
	}

	repoPath := opts.RepoPath
	switch opts.Loader {
	case "", LoaderLoam:
	case LoaderFile:
		engineOpts = append(engineOpts, lattice.WithLoader(file.NewLoader(repoPath)))
	case LoaderBuiltin:
		loader, err := memory.NewFromGroups(sheet.All()...)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, lattice.WithLoader(loader))
		repoPath = ""
	default:
		return nil, fmt.Errorf("unknown loader %q (want %s, %s or %s)", opts.Loader, LoaderLoam, LoaderFile, LoaderBuiltin)
	}

	engine, err := lattice.New(repoPath, append(engineOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// NewSnapshotStore returns a Redis store when redisURL is set, else a file store
// under <repo>/.lattice/sessions.
func NewSnapshotStore(repoPath, redisURL string) (ports.SnapshotStore, error) {
	if redisURL != "" {
		return redis.New(redisURL)
	}
	if repoPath == "" {
		repoPath = "."
	}
	return file.NewStore(filepath.Join(repoPath, ".lattice", "sessions")), nil
}
