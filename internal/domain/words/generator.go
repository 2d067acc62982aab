// Package words produces the random passages players race against.
package words

import (
	"math/rand"
	"strings"
	"time"
)

// Generator samples race passages from a fixed vocabulary. Sampling is
// uniform with replacement, so consecutive rounds are not guaranteed to be
// collision free.
type Generator struct {
	vocabulary []string
	rng        *rand.Rand
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithVocabulary replaces the default vocabulary. Empty or whitespace-only
// entries are skipped.
func WithVocabulary(vocabulary []string) Option {
	return func(g *Generator) {
		cleaned := make([]string, 0, len(vocabulary))
		for _, w := range vocabulary {
			if strings.TrimSpace(w) != "" {
				cleaned = append(cleaned, w)
			}
		}
		if len(cleaned) > 0 {
			g.vocabulary = cleaned
		}
	}
}

// WithRand sets the random source, allowing deterministic passages in tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// NewGenerator creates a Generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		vocabulary: DefaultVocabulary(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // passage sampling needs no crypto randomness
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns wordCount independent uniform selections from the
// vocabulary joined by single spaces.
func (g *Generator) Generate(wordCount int) (string, error) {
	if wordCount <= 0 {
		return "", ErrInvalidWordCount
	}
	if len(g.vocabulary) == 0 {
		return "", ErrEmptyVocabulary
	}

	selected := make([]string, wordCount)
	for i := range selected {
		selected[i] = g.vocabulary[g.rng.Intn(len(g.vocabulary))]
	}
	return strings.Join(selected, " "), nil
}
