// Package session runs a single-player typing round: a timed sprint or a
// fixed word count, measured live against the passage.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/domain/stats"
	"github.com/okian/keysprint/pkg/logger"
)

// Mode selects how a solo round ends.
type Mode string

// Solo round modes.
const (
	// ModeTime ends the round after a fixed number of seconds.
	ModeTime Mode = "time"
	// ModeWords ends the round once the whole passage is typed.
	ModeWords Mode = "words"
)

// Permitted mode targets.
var (
	timeTargets = []int{15, 30, 60}
	wordTargets = []int{10, 25, 50}
)

// timeModeWordCount sizes the passage for timed rounds. Generously above
// what a fast typist clears in sixty seconds so the text never runs out.
const timeModeWordCount = 120

// Settings selects the mode and its target for a solo round.
type Settings struct {
	Mode Mode `json:"mode"`
	// Target is seconds for ModeTime and the word count for ModeWords.
	Target int `json:"target"`
}

// Validate checks the mode and target against the permitted combinations.
func (s Settings) Validate() error {
	var allowed []int
	switch s.Mode {
	case ModeTime:
		allowed = timeTargets
	case ModeWords:
		allowed = wordTargets
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, s.Mode)
	}

	for _, t := range allowed {
		if s.Target == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %d for mode %q", ErrInvalidTarget, s.Target, s.Mode)
}

// TextSource produces the passage for a round.
type TextSource interface {
	Generate(wordCount int) (string, error)
}

// Result is the one-time outcome of a finished round.
type Result struct {
	Mode   Mode        `json:"mode"`
	Target int         `json:"target"`
	Stats  stats.Stats `json:"stats"`
}

// Session is a single solo round. Not safe for concurrent use; a round
// belongs to one typist.
type Session struct {
	settings Settings
	clock    clockwork.Clock
	engine   *stats.Engine
	logger   logger.Logger

	text      string
	startedAt *time.Time
	correct   int
	typed     int
	finished  bool
}

// New builds a session for the given settings and generates its passage.
func New(ctx context.Context, settings Settings, source TextSource, opts ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrNoTextSource
	}

	s := &Session{
		settings: settings,
		clock:    clockwork.NewRealClock(),
		logger:   logger.Get().Named("session"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.engine == nil {
		s.engine = stats.NewEngine(stats.WithClock(s.clock))
	}

	wordCount := settings.Target
	if settings.Mode == ModeTime {
		wordCount = timeModeWordCount
	}
	text, err := source.Generate(wordCount)
	if err != nil {
		return nil, fmt.Errorf("generate session text: %w", err)
	}
	s.text = text

	s.logger.Debug(ctx, "session created",
		logger.String("mode", string(settings.Mode)),
		logger.Int("target", settings.Target),
		logger.Int("text_length", len(text)),
	)

	return s, nil
}

// Text returns the passage for this round.
func (s *Session) Text() string {
	return s.text
}

// Settings returns the round settings.
func (s *Session) Settings() Settings {
	return s.settings
}

// Started reports whether the first keystroke has been recorded.
func (s *Session) Started() bool {
	return s.startedAt != nil
}

// Finished reports whether the round has ended.
func (s *Session) Finished() bool {
	return s.finished
}

// Update folds the latest keystroke tallies into the round. The first call
// stamps the start instant. It returns the live stats and whether this
// update ended the round.
func (s *Session) Update(correctChars, totalTyped int) (stats.Stats, bool, error) {
	if s.finished {
		return stats.Stats{}, false, ErrFinished
	}

	if s.startedAt == nil {
		now := s.clock.Now()
		s.startedAt = &now
	}

	if correctChars < 0 {
		correctChars = 0
	}
	if totalTyped < correctChars {
		totalTyped = correctChars
	}
	s.correct = correctChars
	s.typed = totalTyped

	live := s.engine.Compute(s.correct, s.typed, s.startedAt)
	if s.done(live) {
		s.finished = true
	}
	return live, s.finished, nil
}

// done checks the mode-specific completion condition.
func (s *Session) done(live stats.Stats) bool {
	switch s.settings.Mode {
	case ModeTime:
		return live.TimeElapsed >= s.settings.Target
	case ModeWords:
		return s.correct >= len(s.text)
	}
	return false
}

// Result returns the outcome of a finished round.
func (s *Session) Result(ctx context.Context) (Result, error) {
	if s.startedAt == nil {
		return Result{}, ErrNotStarted
	}
	if !s.finished {
		return Result{}, ErrNotFinished
	}

	final := s.engine.Compute(s.correct, s.typed, s.startedAt)
	// A timed round reports exactly its target duration even if the last
	// update landed a beat late.
	if s.settings.Mode == ModeTime && final.TimeElapsed > s.settings.Target {
		final.TimeElapsed = s.settings.Target
	}

	s.logger.Info(ctx, "session finished",
		logger.String("mode", string(s.settings.Mode)),
		logger.Int("target", s.settings.Target),
		logger.Int("wpm", final.WPM),
		logger.Int("accuracy", final.Accuracy),
	)

	return Result{
		Mode:   s.settings.Mode,
		Target: s.settings.Target,
		Stats:  final,
	}, nil
}
