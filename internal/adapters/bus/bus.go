// Package bus provides the named-event publish/subscribe transport the race
// coordinator broadcasts through.
//
// The in-memory implementation stands in for a genuine bidirectional
// channel: publish is asynchronous relative to the caller with a small fixed
// delay simulating network latency, while delivery to a given event's
// subscribers is synchronous per publish and ordered across publishes.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
	"github.com/okian/keysprint/pkg/metrics"
)

// Default bus configuration constants.
const (
	defaultLatency    = 50 * time.Millisecond
	defaultBufferSize = 1024
)

// Handler receives a published payload. All subscribers to one event get
// the same payload reference, so handlers must not mutate it.
type Handler func(ctx context.Context, payload any)

// Bus is the transport contract consumed by the coordinator and clients.
type Bus interface {
	// Subscribe registers a handler for an event and returns the
	// subscription id used to unsubscribe.
	Subscribe(event string, h Handler) string

	// Unsubscribe removes a subscription. Returns false if it was unknown.
	Unsubscribe(event, id string) bool

	// Publish schedules a payload for delivery to all current subscribers
	// of the event. Returns false if the bus is closed or full.
	Publish(ctx context.Context, event string, payload any) bool

	// Len returns the number of publishes awaiting delivery.
	Len(ctx context.Context) int

	// Close shuts the bus down. Pending publishes are still delivered.
	Close() error

	// IsClosed returns true once the bus no longer accepts publishes.
	IsClosed() bool
}

type envelope struct {
	event   string
	payload any
}

type subscription struct {
	id string
	h  Handler
}

// InMemoryBus implements Bus with a single dispatcher goroutine draining a
// bounded delivery channel.
type InMemoryBus struct {
	clock      clockwork.Clock
	latency    time.Duration
	bufferSize int
	logger     logger.Logger

	deliveries chan envelope
	done       chan struct{}

	mu     sync.RWMutex
	subs   map[string][]subscription
	closed bool
}

// NewInMemoryBus creates a bus with configuration options and starts its
// dispatcher.
func NewInMemoryBus(opts ...Option) *InMemoryBus {
	b := &InMemoryBus{
		clock:      clockwork.NewRealClock(),
		latency:    defaultLatency,
		bufferSize: defaultBufferSize,
		logger:     logger.Get().Named("bus"),
		done:       make(chan struct{}),
		subs:       make(map[string][]subscription),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.deliveries = make(chan envelope, b.bufferSize)

	metrics.UpdateBusSubscribers(0)

	go b.dispatch()

	return b
}

// Subscribe registers a handler for an event.
func (b *InMemoryBus) Subscribe(event string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.subs[event] = append(b.subs[event], subscription{id: id, h: h})
	metrics.UpdateBusSubscribers(b.subscriberCount())
	return id
}

// Unsubscribe removes a subscription by event name and id.
func (b *InMemoryBus) Unsubscribe(event, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, s := range subs {
		if s.id == id {
			b.subs[event] = append(subs[:i], subs[i+1:]...)
			if len(b.subs[event]) == 0 {
				delete(b.subs, event)
			}
			metrics.UpdateBusSubscribers(b.subscriberCount())
			return true
		}
	}
	return false
}

// subscriberCount counts subscriptions across all events.
// Must be called with b.mu held.
func (b *InMemoryBus) subscriberCount() int {
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Publish schedules a payload for asynchronous delivery.
func (b *InMemoryBus) Publish(ctx context.Context, event string, payload any) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		metrics.RecordBusDropped()
		return false
	}

	select {
	case b.deliveries <- envelope{event: event, payload: payload}:
		metrics.RecordBusPublished(event)
		return true
	case <-ctx.Done():
		metrics.RecordBusDropped()
		return false
	default:
		metrics.RecordBusDropped()
		b.logger.Warn(ctx, "delivery buffer full, dropping publish", logger.String("event", event))
		return false
	}
}

// dispatch drains the delivery channel in publish order, applying the
// simulated latency before each delivery.
func (b *InMemoryBus) dispatch() {
	defer close(b.done)

	for env := range b.deliveries {
		if b.latency > 0 {
			b.clock.Sleep(b.latency)
		}
		b.deliver(env)
	}
}

// deliver invokes every handler subscribed to the envelope's event, in
// subscription order, with the same payload reference.
func (b *InMemoryBus) deliver(env envelope) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[env.event]))
	copy(subs, b.subs[env.event])
	b.mu.RUnlock()

	ctx := context.Background()
	for _, s := range subs {
		s.h(ctx, env.payload)
		metrics.RecordBusDelivery()
	}
}

// Len returns the number of publishes awaiting delivery.
func (b *InMemoryBus) Len(_ context.Context) int {
	return len(b.deliveries)
}

// Close stops accepting publishes. The dispatcher drains what was already
// accepted before exiting.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	close(b.deliveries)
	b.closed = true

	return nil
}

// IsClosed returns true if the bus has been closed.
func (b *InMemoryBus) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Drained returns a channel closed once every accepted publish has been
// delivered after Close.
func (b *InMemoryBus) Drained() <-chan struct{} {
	return b.done
}
