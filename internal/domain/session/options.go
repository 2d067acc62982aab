package session

import (
	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/domain/stats"
	"github.com/okian/keysprint/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithClock sets the session clock. Intended for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEngine sets the stats engine used for live and final computation.
func WithEngine(e *stats.Engine) Option {
	return func(s *Session) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
