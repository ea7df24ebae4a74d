package observability

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Broker fans dispatch events out to subscribers, e.g. server-sent event streams.
// Slow subscribers miss events instead of blocking dispatch.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan *domain.DispatchEvent]struct{}
	buffer int
}

// NewBroker creates a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	return &Broker{subs: make(map[chan *domain.DispatchEvent]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events that is closed when ctx is done.
func (b *Broker) Subscribe(ctx context.Context) <-chan *domain.DispatchEvent {
	ch := make(chan *domain.DispatchEvent, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// Publish delivers e to every subscriber with room for it.
func (b *Broker) Publish(e *domain.DispatchEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Hooks returns hooks that publish successful dispatches.
func (b *Broker) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			if e.Err == nil {
				b.Publish(e)
			}
		},
	}
}
