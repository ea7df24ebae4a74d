package runtime

import (
	"context"
	"time"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/domain"
)

// event is recorded while a dispatch runs and delivered once it committed.
type event struct {
	kind  domain.EventType
	node  *compiler.MachineNode
	from  []string
	to    []string
	msg   string
	guard string
}

func (x *tx) record(e event) {
	x.events = append(x.events, e)
}

func (x *tx) fire(ctx context.Context) {
	hooks := x.g.hooks
	now := time.Now()
	for _, e := range x.events {
		base := domain.EventBase{Timestamp: now, Type: e.kind, Group: x.g.chart.Name}
		switch e.kind {
		case domain.EventTransition:
			if hooks.OnTransition != nil {
				hooks.OnTransition(ctx, &domain.TransitionEvent{
					EventBase: base,
					Machine:   e.node.Name,
					Kind:      e.msg,
					From:      e.from,
					To:        e.to,
					Guard:     e.guard,
					Silent:    e.node.Silent,
				})
			}
		case domain.EventMachineCreate:
			if hooks.OnMachineCreate != nil {
				hooks.OnMachineCreate(ctx, &domain.MachineEvent{EventBase: base, Machine: e.node.Name, Path: e.to, Silent: e.node.Silent})
			}
		case domain.EventMachineDestroy:
			if hooks.OnMachineDestroy != nil {
				hooks.OnMachineDestroy(ctx, &domain.MachineEvent{EventBase: base, Machine: e.node.Name, Path: e.from, Silent: e.node.Silent})
			}
		}
	}
	x.events = nil
}
