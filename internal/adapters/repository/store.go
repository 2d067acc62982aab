// Package repository persists finished typing results to a local
// append-only log.
package repository

import (
	"context"
	"time"

	"github.com/okian/keysprint/internal/domain/stats"
)

// Result is one persisted row of the result log.
type Result struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	// Mode records how the round was run: "race", "time" or "words".
	Mode string `json:"mode"`
	// Target is the mode option the round was started with, e.g. 30 for a
	// thirty-second time round or 25 for a 25-word round. Zero for races.
	Target int         `json:"target,omitempty"`
	Stats  stats.Stats `json:"stats"`
}

// Store provides append and read access to the result log.
type Store interface {
	// Append persists a result. A missing ID or Date is filled in before
	// the write and the stored row is returned.
	Append(ctx context.Context, r Result) (Result, error)

	// Recent returns up to limit results, newest first.
	// Returns ErrInvalidLimit when limit is not positive.
	Recent(ctx context.Context, limit int) ([]Result, error)

	// Count returns the number of results in the log.
	Count(ctx context.Context) int

	// Close flushes and releases the underlying log file. The store
	// rejects writes afterwards.
	Close() error
}
