// Package stats computes typing performance figures from raw keystroke
// counts. Both solo and race modes report speed through this package.
package stats

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scoring constants.
const (
	// charsPerWord is the standard convention: one "word" equals five
	// characters regardless of actual word boundaries.
	charsPerWord = 5

	fullAccuracy = 100
)

// Stats is the value type produced for every keystroke event. It carries no
// identity and is never persisted by this package.
type Stats struct {
	WPM            int `json:"wpm"`
	RawWPM         int `json:"raw_wpm"`
	Accuracy       int `json:"accuracy"`
	CorrectChars   int `json:"correct_chars"`
	IncorrectChars int `json:"incorrect_chars"`
	TimeElapsed    int `json:"time_elapsed"` // whole seconds
}

// Engine computes Stats against an injectable clock so timing logic is
// testable without real sleeps.
type Engine struct {
	clock clockwork.Clock
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the clock used to measure elapsed time.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock: clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Compute converts raw keystroke counts and the race start instant into
// performance figures.
//
// A nil startedAt means typing has not begun: the result is zeroed with full
// accuracy, which is a defined outcome rather than an error. Elapsed time
// under one second yields zero rates so a near-zero denominator never
// produces an infinite or undefined value.
func (e *Engine) Compute(correctChars, totalTyped int, startedAt *time.Time) Stats {
	if correctChars < 0 {
		correctChars = 0
	}
	if totalTyped < 0 {
		totalTyped = 0
	}
	if correctChars > totalTyped {
		correctChars = totalTyped
	}

	if startedAt == nil {
		return Stats{Accuracy: fullAccuracy}
	}

	errors := totalTyped - correctChars

	accuracy := fullAccuracy
	if totalTyped > 0 {
		accuracy = int(math.Round(float64(correctChars) / float64(totalTyped) * fullAccuracy))
	}

	elapsed := e.clock.Since(*startedAt)
	elapsedSec := elapsed.Seconds()

	out := Stats{
		Accuracy:       accuracy,
		CorrectChars:   correctChars,
		IncorrectChars: errors,
		TimeElapsed:    int(math.Round(elapsedSec)),
	}

	if elapsed < time.Second {
		return out
	}

	elapsedMin := elapsedSec / 60

	// Gross WPM: (total keystrokes / 5) / minutes.
	gross := float64(totalTyped) / charsPerWord / elapsedMin

	// Net WPM penalizes every erroneous keystroke equally.
	net := gross - float64(errors)/elapsedMin

	out.RawWPM = int(math.Round(gross))
	out.WPM = int(math.Max(0, math.Round(net)))

	return out
}
