package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
)

// Interceptor inspects a message before it is dispatched. It may rewrite the message or
// reject it with an error, which is reported to the user without stopping the Runner.
type Interceptor func(ctx context.Context, msg domain.Message) (domain.Message, error)

// MultiInterceptor chains multiple interceptors.
func MultiInterceptor(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, msg domain.Message) (domain.Message, error) {
		for _, interceptor := range interceptors {
			var err error
			if msg, err = interceptor(ctx, msg); err != nil {
				return msg, err
			}
		}
		return msg, nil
	}
}

// PassThrough allows everything.
func PassThrough() Interceptor {
	return func(_ context.Context, msg domain.Message) (domain.Message, error) {
		return msg, nil
	}
}

// AllowKinds rejects messages whose kind is not listed.
func AllowKinds(kinds ...string) Interceptor {
	return func(_ context.Context, msg domain.Message) (domain.Message, error) {
		if !slices.Contains(kinds, msg.Kind) {
			return msg, fmt.Errorf("message kind %q is not allowed", msg.Kind)
		}
		return msg, nil
	}
}

// DefaultContext fills context keys the message does not set.
func DefaultContext(defaults map[string]any) Interceptor {
	return func(_ context.Context, msg domain.Message) (domain.Message, error) {
		merged := make(map[string]any, len(defaults)+len(msg.Context))
		for k, v := range defaults {
			merged[k] = v
		}
		for k, v := range msg.Context {
			merged[k] = v
		}
		msg.Context = merged
		return msg, nil
	}
}

// LoggingInterceptor logs every message at debug level.
func LoggingInterceptor(logger *slog.Logger) Interceptor {
	return func(ctx context.Context, msg domain.Message) (domain.Message, error) {
		logger.DebugContext(ctx, "message received", "kind", msg.Kind, "context", msg.Context)
		return msg, nil
	}
}
