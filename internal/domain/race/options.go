package race

import (
	"math/rand"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithPublisher sets the transport the coordinator broadcasts through.
func WithPublisher(pub Publisher) Option {
	return func(c *Coordinator) {
		if pub != nil {
			c.pub = pub
		}
	}
}

// WithClock sets the clock driving every room timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTextSource sets the passage generator.
func WithTextSource(src TextSource) Option {
	return func(c *Coordinator) {
		if src != nil {
			c.textSource = src
		}
	}
}

// WithWordCount sets the passage length per round.
func WithWordCount(count int) Option {
	return func(c *Coordinator) {
		if count > 0 {
			c.wordCount = count
		}
	}
}

// WithTimings replaces the lifecycle timings wholesale.
func WithTimings(t Timings) Option {
	return func(c *Coordinator) {
		if t.BotJoinDelay > 0 &&
			t.PreCountdownDelay > 0 &&
			t.CountdownFrom > 0 &&
			t.CountdownInterval > 0 &&
			t.BotTickInterval > 0 &&
			t.RestartDelay > 0 {
			c.timings = t
		}
	}
}

// WithBotProfile shapes the synthetic opponent.
func WithBotProfile(p BotProfile) Option {
	return func(c *Coordinator) {
		if p.Name != "" && p.MeanWPM > 0 && p.FloorWPM > 0 {
			c.botProfile = p
		}
	}
}

// WithRand sets the random source for bot jitter, allowing deterministic
// ticks in tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Coordinator) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger sets a custom logger for the coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIntentBuffer bounds the intent channel.
func WithIntentBuffer(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}
