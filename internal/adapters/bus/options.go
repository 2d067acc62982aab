package bus

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
)

// Option applies a configuration option to the InMemoryBus.
type Option func(*InMemoryBus)

// WithLatency sets the simulated network delay applied before each
// delivery. Zero disables the delay.
func WithLatency(latency time.Duration) Option {
	return func(b *InMemoryBus) {
		if latency >= 0 {
			b.latency = latency
		}
	}
}

// WithClock sets the clock used for the latency delay.
func WithClock(clock clockwork.Clock) Option {
	return func(b *InMemoryBus) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithBufferSize bounds the delivery channel.
func WithBufferSize(size int) Option {
	return func(b *InMemoryBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the bus.
func WithLogger(l logger.Logger) Option {
	return func(b *InMemoryBus) {
		if l != nil {
			b.logger = l
		}
	}
}
