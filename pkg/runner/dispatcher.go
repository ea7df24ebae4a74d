package runner

import (
	"context"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/session"
)

// Dispatcher is what the Runner drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message) (domain.ChangeSet, error)
	Reset(ctx context.Context) (domain.ChangeSet, error)
	Vector(ctx context.Context) (domain.Vector, error)
}

type groupDispatcher struct {
	g *lattice.Group
}

// NewGroupDispatcher drives an in-memory group. Nothing is persisted.
func NewGroupDispatcher(g *lattice.Group) Dispatcher {
	return groupDispatcher{g: g}
}

func (d groupDispatcher) Dispatch(ctx context.Context, msg domain.Message) (domain.ChangeSet, error) {
	return d.g.DispatchMessage(ctx, msg)
}

func (d groupDispatcher) Reset(ctx context.Context) (domain.ChangeSet, error) {
	return d.g.Reset(ctx)
}

func (d groupDispatcher) Vector(context.Context) (domain.Vector, error) {
	return d.g.CurrentVector(), nil
}

type sessionDispatcher struct {
	mgr *session.Manager
	id  string
}

// NewSessionDispatcher drives a stored session; every dispatch is persisted.
func NewSessionDispatcher(mgr *session.Manager, sessionID string) Dispatcher {
	return sessionDispatcher{mgr: mgr, id: sessionID}
}

func (d sessionDispatcher) Dispatch(ctx context.Context, msg domain.Message) (domain.ChangeSet, error) {
	cs, _, err := d.mgr.Dispatch(ctx, d.id, msg)
	return cs, err
}

func (d sessionDispatcher) Reset(ctx context.Context) (domain.ChangeSet, error) {
	cs, _, err := d.mgr.Reset(ctx, d.id)
	return cs, err
}

func (d sessionDispatcher) Vector(ctx context.Context) (domain.Vector, error) {
	snap, err := d.mgr.Load(ctx, d.id)
	if err != nil {
		return nil, err
	}
	return snap.Vector, nil
}
