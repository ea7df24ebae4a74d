package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/pkg/domain"
)

// Combine returns hooks that call every non-nil callback of hooks, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnDispatch = chain(out.OnDispatch, h.OnDispatch)
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnMachineCreate = chain(out.OnMachineCreate, h.OnMachineCreate)
		out.OnMachineDestroy = chain(out.OnMachineDestroy, h.OnMachineDestroy)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LoggingHooks logs dispatches at info level (warn when they fail) and every transition
// and machine lifecycle event at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "dispatch failed",
					"group", e.Group,
					"kind", e.Kind,
					"error", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "dispatch",
				"group", e.Group,
				"kind", e.Kind,
				"changed", e.Changes.Changed,
				"duration", e.Duration,
			)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"group", e.Group,
				"machine", e.Machine,
				"from", domain.JoinPath(e.From),
				"to", domain.JoinPath(e.To),
				"guard", e.Guard,
			)
		},
		OnMachineCreate: func(ctx context.Context, e *domain.MachineEvent) {
			logger.DebugContext(ctx, "machine created", "group", e.Group, "machine", e.Machine)
		},
		OnMachineDestroy: func(ctx context.Context, e *domain.MachineEvent) {
			logger.DebugContext(ctx, "machine destroyed", "group", e.Group, "machine", e.Machine)
		},
	}
}
