package lattice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/dto"
	"github.com/aretw0/lattice/internal/runtime"
	loamAdapter "github.com/aretw0/lattice/pkg/adapters/loam"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/aretw0/loam"
)

// Version is the library version reported by the CLI and the HTTP API.
const Version = "0.4.0"

// Engine is the high-level entry point for the lattice library.
// It loads group definitions, compiles them once and hands out running groups.
type Engine struct {
	loader      ports.GroupLoader
	guards      *registry.Registry
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.Option
	Name        string

	mu     sync.RWMutex
	charts map[string]*compiler.Chart
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every group the engine creates.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom GroupLoader, bypassing the default Loam initialization.
func WithLoader(l ports.GroupLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithGuards replaces the guard registry. The default holds the sheet guards.
func WithGuards(r *registry.Registry) Option {
	return func(e *Engine) {
		e.guards = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEpsilonLimit bounds the number of epsilon rounds per dispatch.
func WithEpsilonLimit(limit int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEpsilonLimit(limit))
	}
}

// WithStrictKinds makes dispatching a kind no state declares an error.
func WithStrictKinds() Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStrictKinds())
	}
}

// New initializes a new Engine.
// By default, it reads group documents from a Loam repository at the given path.
// If WithLoader option is provided, repoPath can be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := newEngine(opts)

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}

		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		// Strict mode keeps numbers as json.Number; the engine never writes definitions.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.loader = loamAdapter.New(loam.NewTypedRepository[dto.GroupDocument](repo))
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("repo", eng.Name)
	}
	return eng, nil
}

func newEngine(opts []Option) *Engine {
	eng := &Engine{charts: make(map[string]*compiler.Chart)}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.guards == nil {
		eng.guards = sheet.Guards()
	}
	// Never hand a nil logger to the runtime.
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return eng
}

// NewGroup compiles a code-defined group and instantiates it, without a loader.
func NewGroup(ctx context.Context, def domain.GroupDefinition, opts ...Option) (*Group, error) {
	eng := newEngine(opts)
	chart, err := compiler.Compile(def, eng.guards)
	if err != nil {
		return nil, err
	}
	return eng.start(ctx, chart)
}

// NewGroup instantiates the named group at its initial vector.
func (e *Engine) NewGroup(ctx context.Context, name string) (*Group, error) {
	chart, err := e.Chart(name)
	if err != nil {
		return nil, err
	}
	return e.start(ctx, chart)
}

// Restore rebuilds the named group from a persisted vector.
func (e *Engine) Restore(ctx context.Context, name string, v domain.Vector) (*Group, error) {
	chart, err := e.Chart(name)
	if err != nil {
		return nil, err
	}
	g, err := runtime.Restore(ctx, chart, v, e.groupOptions(chart)...)
	if err != nil {
		return nil, err
	}
	return &Group{rt: g}, nil
}

func (e *Engine) start(ctx context.Context, chart *compiler.Chart) (*Group, error) {
	g, err := runtime.New(ctx, chart, e.groupOptions(chart)...)
	if err != nil {
		return nil, err
	}
	return &Group{rt: g}, nil
}

func (e *Engine) groupOptions(chart *compiler.Chart) []runtime.Option {
	opts := []runtime.Option{
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger.With("group", chart.Name)),
	}
	return append(opts, e.runtimeOpts...)
}

// Chart returns the compiled chart of a group, compiling it on first use.
func (e *Engine) Chart(name string) (*compiler.Chart, error) {
	e.mu.RLock()
	chart, ok := e.charts[name]
	e.mu.RUnlock()
	if ok {
		return chart, nil
	}

	def, err := e.Definition(name)
	if err != nil {
		return nil, err
	}
	chart, err = compiler.Compile(def, e.guards)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", name, err)
	}

	e.mu.Lock()
	e.charts[name] = chart
	e.mu.Unlock()
	return chart, nil
}

// Definition loads and parses one group definition without compiling it.
func (e *Engine) Definition(name string) (domain.GroupDefinition, error) {
	raw, err := e.loader.GetGroup(name)
	if err != nil {
		return domain.GroupDefinition{}, err
	}
	return compiler.NewParser().Parse(raw)
}

// Definitions returns every group the loader knows, in name order.
func (e *Engine) Definitions() ([]domain.GroupDefinition, error) {
	names, err := e.loader.ListGroups()
	if err != nil {
		return nil, err
	}
	defs := make([]domain.GroupDefinition, 0, len(names))
	for _, name := range names {
		def, err := e.Definition(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Invalidate drops the compiled chart of a group so the next use reloads it.
// An empty name drops every chart.
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name == "" {
		clear(e.charts)
		return
	}
	delete(e.charts, name)
}

// Watch returns a channel that receives the name of every changed group document.
// Compiled charts are invalidated before the name is delivered.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		for name := range changes {
			// A renamed document may have changed which names it declares.
			e.Invalidate("")
			select {
			case out <- name:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Loader returns the underlying GroupLoader used by the engine.
func (e *Engine) Loader() ports.GroupLoader {
	return e.loader
}

// Guards returns the guard registry charts are compiled against.
func (e *Engine) Guards() *registry.Registry {
	return e.guards
}

// Group is a running instance of a machine group.
// A Group is not safe for concurrent use; pkg/session serializes access per session.
type Group struct {
	rt *runtime.Group
}

// Dispatch delivers a message of the given kind with optional context.
func (g *Group) Dispatch(ctx context.Context, kind string, data map[string]any) (domain.ChangeSet, error) {
	return g.rt.Dispatch(ctx, kind, data)
}

// DispatchMessage delivers msg.
func (g *Group) DispatchMessage(ctx context.Context, msg domain.Message) (domain.ChangeSet, error) {
	return g.rt.DispatchMessage(ctx, msg)
}

// CurrentVector returns every live machine's current path, silent machines included.
func (g *Group) CurrentVector() domain.Vector {
	return g.rt.CurrentVector()
}

// Reset returns the group to its initial vector.
func (g *Group) Reset(ctx context.Context) (domain.ChangeSet, error) {
	return g.rt.Reset(ctx)
}

// ChangesFrom reports how the current vector differs from prior, typically a stored
// vector the group replaced.
func (g *Group) ChangesFrom(prior domain.Vector) domain.ChangeSet {
	return g.rt.ChangesFrom(prior)
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.rt.Name()
}

// Chart returns the compiled chart, for presentation and introspection.
func (g *Group) Chart() *compiler.Chart {
	return g.rt.Chart()
}
