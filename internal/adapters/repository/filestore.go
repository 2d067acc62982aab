package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
	"github.com/okian/keysprint/pkg/metrics"
)

// FileStore is a JSON-lines append log with an in-memory read cache.
//
// One marshalled result per line. The whole log is read once at open time;
// afterwards every read is served from memory and every append goes to both
// the cache and the file, so a crash loses at most the row being written.
type FileStore struct {
	path   string
	clock  clockwork.Clock
	logger logger.Logger

	mu      sync.RWMutex
	file    *os.File
	writer  *bufio.Writer
	results []Result
	closed  bool
}

// guard the interface contract.
var _ Store = (*FileStore)(nil)

const logFileMode = 0o600

// NewFileStore opens (creating if needed) the result log at path and loads
// the existing rows. Corrupt lines are skipped with a warning rather than
// failing the open, so one bad row cannot brick the history.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		clock:  clockwork.NewRealClock(),
		logger: logger.Get().Named("repository"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create result log directory: %w", err)
		}
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	s.file = f
	s.writer = bufio.NewWriter(f)

	metrics.UpdateResultLogSize(len(s.results))

	return s, nil
}

// load reads the existing log into the cache. A missing file is an empty
// history, not an error.
func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read result log: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r Result
		if err := json.Unmarshal(raw, &r); err != nil {
			s.logger.Warn(context.Background(), "skipping corrupt result row",
				logger.String("path", s.path),
				logger.Int("line", line),
				logger.Error(err),
			)
			continue
		}
		s.results = append(s.results, r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan result log: %w", err)
	}
	return nil
}

// Append persists a result, filling in identity and timestamp when absent.
func (s *FileStore) Append(ctx context.Context, r Result) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrClosed
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date.IsZero() {
		r.Date = s.clock.Now().UTC()
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return Result{}, fmt.Errorf("marshal result: %w", err)
	}
	if _, err := s.writer.Write(append(raw, '\n')); err != nil {
		return Result{}, fmt.Errorf("write result: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return Result{}, fmt.Errorf("flush result log: %w", err)
	}

	s.results = append(s.results, r)
	metrics.RecordResultAppended()
	metrics.UpdateResultLogSize(len(s.results))

	s.logger.Debug(ctx, "result appended",
		logger.String("result_id", r.ID),
		logger.String("mode", r.Mode),
		logger.Int("wpm", r.Stats.WPM),
	)

	return r, nil
}

// Recent returns up to limit results, newest first.
func (s *FileStore) Recent(_ context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.results)
	if limit > n {
		limit = n
	}
	out := make([]Result, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

// Count returns the number of results in the log.
func (s *FileStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Close flushes and releases the log file. Safe to call twice.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.writer.Flush(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("flush result log: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close result log: %w", err)
	}
	return nil
}
