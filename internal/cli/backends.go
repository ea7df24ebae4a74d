package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/adapters/postgres"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
)

// Backends are the stores a server process runs on.
//
// Postgres, when configured, holds snapshots, the llms.txt blob and notifications.
// Redis holds whatever Postgres does not, and always provides the session lock.
// Without either, snapshots and the blob live under <dir>/.lattice.
type Backends struct {
	Store         ports.SnapshotStore
	Texts         ports.TextStore
	Notifications ports.NotificationQuery
	Locker        ports.DistributedLocker

	closers []func()
}

// OpenBackends connects the stores described by cfg, migrating Postgres first.
func OpenBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.PGURL != "" {
		pgCfg := postgres.DefaultConfig(cfg.PGURL)
		pool, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool, pgCfg, logger); err != nil {
			b.Close()
			return nil, err
		}
		b.Store = postgres.NewStore(pool)
		b.Texts = postgres.NewTextStore(pool)
		b.Notifications = postgres.NewNotificationQuery(pool)
		logger.Info("Postgres backend ready")
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		b.Locker = redis.NewLocker(client, "lattice:lock:")
		if b.Store == nil {
			b.Store = redis.NewFromClient(client)
		}
		if b.Texts == nil {
			b.Texts = redis.NewTextStore(client, "")
		}
		logger.Info("Redis backend ready")
	}

	if b.Store == nil {
		b.Store = file.NewStore(filepath.Join(cfg.Dir, ".lattice", "sessions"))
	}
	if b.Texts == nil {
		b.Texts = file.NewTextStore(filepath.Join(cfg.Dir, ".lattice", "llms.txt"))
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		b.Close()
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
			AllowPlain:   cfg.AllowPlainText,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Store = middleware.Chain(b.Store, mw)
		logger.Info("Snapshot encryption enabled", "fallback_keys", len(fallback))
	}
	return b, nil
}

// SessionOptions returns the manager options matching the backends.
func (b *Backends) SessionOptions(logger *slog.Logger) []session.Option {
	opts := []session.Option{session.WithLogger(logger)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return opts
}

// Close releases every connection, most recent first.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
