package cli

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/config"
	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	"github.com/aretw0/lattice/pkg/adapters/mcp"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is a fully wired server process: engine, session manager and the stores behind them.
type App struct {
	Engine   *lattice.Engine
	Sessions *session.Manager
	Backends *Backends
	Broker   *observability.Broker
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// NewApp wires an engine over cfg.Dir, the configured backends, metrics and the event broker.
func NewApp(ctx context.Context, cfg config.Config, loader string, logger *slog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	broker := observability.NewBroker(64)

	engine, err := NewEngine(EngineOptions{
		RepoPath:     cfg.Dir,
		Loader:       loader,
		EpsilonLimit: cfg.EpsilonLimit,
		StrictKinds:  cfg.StrictKinds,
	}, logger, lattice.WithLifecycleHooks(observability.Combine(
		observability.LoggingHooks(logger),
		metrics.Hooks(),
		broker.Hooks(),
	)))
	if err != nil {
		return nil, err
	}

	backends, err := OpenBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Engine:   engine,
		Sessions: session.NewManager(engine, backends.Store, backends.SessionOptions(logger)...),
		Backends: backends,
		Broker:   broker,
		Registry: reg,
		Logger:   logger,
	}, nil
}

// HTTPHandler builds the REST API, guarding admin routes with adminToken.
func (a *App) HTTPHandler(adminToken string) (http.Handler, error) {
	opts := []httpAdapter.Option{
		httpAdapter.WithTextStore(a.Backends.Texts),
		httpAdapter.WithBroker(a.Broker),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})),
		httpAdapter.WithAdminToken(adminToken),
		httpAdapter.WithLogger(a.Logger),
	}
	if a.Backends.Notifications != nil {
		opts = append(opts, httpAdapter.WithNotifications(a.Backends.Notifications))
	}
	return httpAdapter.NewHandler(a.Engine, a.Sessions, opts...)
}

// MCPServer exposes the same engine and sessions as MCP tools.
func (a *App) MCPServer() *mcp.Server {
	return mcp.NewServer(a.Engine, a.Sessions, a.Backends.Texts)
}

// Close releases the backends.
func (a *App) Close() {
	a.Backends.Close()
}
