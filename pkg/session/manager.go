package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL is how long a distributed session lock lives when its holder dies.
const DefaultLockTTL = 30 * time.Second

// Groups instantiates and restores running groups. *lattice.Engine implements it.
type Groups interface {
	NewGroup(ctx context.Context, name string) (*lattice.Group, error)
	Restore(ctx context.Context, name string, v domain.Vector) (*lattice.Group, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	groups Groups
	store  ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager running groups from groups and persisting
// their vectors in store.
func NewManager(groups Groups, store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		groups:  groups,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a session of the named group at its initial vector. An empty sessionID
// gets a random one.
func (m *Manager) Create(ctx context.Context, group, sessionID string) (*domain.Snapshot, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, sessionID)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		g, err := m.groups.NewGroup(ctx, group)
		if err != nil {
			return err
		}
		snap = m.snapshot(sessionID, g, 0)
		if err := m.store.Save(ctx, sessionID, snap); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return snap, err
}

// LoadOrCreate loads a session, creating it from the named group when it does not exist.
func (m *Manager) LoadOrCreate(ctx context.Context, group, sessionID string) (*domain.Snapshot, error) {
	snap, err := m.Load(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	snap, err = m.Create(ctx, group, sessionID)
	if errors.Is(err, domain.ErrSessionExists) {
		// Lost the race to a concurrent creator.
		return m.Load(ctx, sessionID)
	}
	return snap, err
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Dispatch restores the session's group, delivers msg and persists the resulting vector.
// A failed dispatch leaves the stored session untouched, except for an epsilon cycle whose
// committed state is saved and returned together with the error.
func (m *Manager) Dispatch(ctx context.Context, sessionID string, msg domain.Message) (domain.ChangeSet, *domain.Snapshot, error) {
	var (
		cs   domain.ChangeSet
		snap *domain.Snapshot
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		g, prev, err := m.restore(ctx, sessionID)
		if err != nil {
			return err
		}

		var dispatchErr error
		cs, dispatchErr = g.DispatchMessage(ctx, msg)
		var cycle *domain.EpsilonCycleError
		if dispatchErr != nil && !errors.As(dispatchErr, &cycle) {
			return dispatchErr
		}

		snap = m.snapshot(sessionID, g, prev.Dispatches+1)
		if err := m.store.Save(ctx, sessionID, snap); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return dispatchErr
	})
	return cs, snap, err
}

// Reset returns the session to its group's initial vector. The stored vector is not
// restored, so a session saved mid epsilon cycle or against an older group can be reset.
func (m *Manager) Reset(ctx context.Context, sessionID string) (domain.ChangeSet, *domain.Snapshot, error) {
	var (
		cs   domain.ChangeSet
		snap *domain.Snapshot
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		g, err := m.groups.NewGroup(ctx, prev.Group)
		if err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		cs = g.ChangesFrom(prev.Vector)
		snap = m.snapshot(sessionID, g, prev.Dispatches)
		return m.store.Save(ctx, sessionID, snap)
	})
	return cs, snap, err
}

// Group restores the session's running group, for read-only inspection.
func (m *Manager) Group(ctx context.Context, sessionID string) (*lattice.Group, error) {
	var g *lattice.Group
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		g, _, err = m.restore(ctx, sessionID)
		return err
	})
	return g, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

func (m *Manager) restore(ctx context.Context, sessionID string) (*lattice.Group, *domain.Snapshot, error) {
	prev, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	g, err := m.groups.Restore(ctx, prev.Group, prev.Vector)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return g, prev, nil
}

func (m *Manager) snapshot(sessionID string, g *lattice.Group, dispatches int) *domain.Snapshot {
	return &domain.Snapshot{
		SessionID:  sessionID,
		Group:      g.Name(),
		Vector:     g.CurrentVector(),
		Dispatches: dispatches,
		UpdatedAt:  m.now().UTC(),
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
