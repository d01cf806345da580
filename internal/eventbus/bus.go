// Package eventbus provides an in-process pub/sub bus for query events.
// The executor publishes after each translation or execution; subscribers
// process events asynchronously.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/relplan/internal/event"
)

const defaultBufSize = 256

// Handler processes an event. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.QueryEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.QueryEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.QueryEvent) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	closed      bool
	events      chan event.QueryEvent
	done        chan struct{}
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = defaultBufSize
	}
	return &Bus{
		events: make(chan event.QueryEvent, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full or
// the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.QueryEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		log.Warn().Str("event", evt.EventType).Str("id", evt.ID).Msg("eventbus: stopped, dropping event")
		return
	}
	select {
	case b.events <- evt:
	default:
		log.Warn().Str("event", evt.EventType).Str("id", evt.ID).Msg("eventbus: buffer full, dropping event")
	}
}

// Start begins the consumer goroutine. It processes events until Stop is
// called or ctx is cancelled, draining what is buffered before returning.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.QueryEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Warn().Err(err).Str("handler", s.name).Str("event", evt.EventType).Msg("eventbus: handler error")
		}
	}
}
