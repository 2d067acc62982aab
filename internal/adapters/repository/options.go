// Package repository persists finished typing results to a local
// append-only log.
package repository

import (
	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithClock sets the clock used to stamp results. Intended for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *FileStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
