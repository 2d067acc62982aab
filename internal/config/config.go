// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BusLatencyMS simulates transport latency on every broadcast.
	BusLatencyMS int `koanf:"bus_latency_ms"`

	// BusBufferSize bounds the in-memory broadcast queue.
	BusBufferSize int `koanf:"bus_buffer_size"`

	// WordCount sets the length of generated race passages.
	WordCount int `koanf:"word_count"`

	// IntentBufferSize bounds the coordinator intent queue.
	IntentBufferSize int `koanf:"intent_buffer_size"`

	// Room lifecycle timings, all in milliseconds except CountdownFrom.
	BotJoinDelayMS      int `koanf:"bot_join_delay_ms"`
	PreCountdownDelayMS int `koanf:"pre_countdown_delay_ms"`
	CountdownFrom       int `koanf:"countdown_from"`
	CountdownIntervalMS int `koanf:"countdown_interval_ms"`
	BotTickIntervalMS   int `koanf:"bot_tick_interval_ms"`
	RestartDelayMS      int `koanf:"restart_delay_ms"`

	// Synthetic opponent shape.
	BotName      string  `koanf:"bot_name"`
	BotMeanWPM   float64 `koanf:"bot_mean_wpm"`
	BotJitterWPM float64 `koanf:"bot_jitter_wpm"`
	BotFloorWPM  float64 `koanf:"bot_floor_wpm"`

	// ResultPath locates the local result log.
	ResultPath string `koanf:"result_path"`

	// MaxRecentResults caps GET /results?limit.
	MaxRecentResults int `koanf:"max_recent_results"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		BusLatencyMS:        50,
		BusBufferSize:       1024,
		WordCount:           30,
		IntentBufferSize:    64,
		BotJoinDelayMS:      1500,
		PreCountdownDelayMS: 1000,
		CountdownFrom:       3,
		CountdownIntervalMS: 1000,
		BotTickIntervalMS:   1000,
		RestartDelayMS:      1000,
		BotName:             "Bot_Racer_9000",
		BotMeanWPM:          60,
		BotJitterWPM:        5,
		BotFloorWPM:         10,
		ResultPath:          "keysprint_results.jsonl",
		MaxRecentResults:    100,
	}
	return c
}

// BusLatency returns the simulated transport latency as a duration.
func (c *Config) BusLatency() time.Duration {
	return time.Duration(c.BusLatencyMS) * time.Millisecond
}

// BotJoinDelay returns the bot admission delay as a duration.
func (c *Config) BotJoinDelay() time.Duration {
	return time.Duration(c.BotJoinDelayMS) * time.Millisecond
}

// PreCountdownDelay returns the bot-to-countdown gap as a duration.
func (c *Config) PreCountdownDelay() time.Duration {
	return time.Duration(c.PreCountdownDelayMS) * time.Millisecond
}

// CountdownInterval returns the countdown decrement period as a duration.
func (c *Config) CountdownInterval() time.Duration {
	return time.Duration(c.CountdownIntervalMS) * time.Millisecond
}

// BotTickInterval returns the bot update period as a duration.
func (c *Config) BotTickInterval() time.Duration {
	return time.Duration(c.BotTickIntervalMS) * time.Millisecond
}

// RestartDelay returns the reset-to-countdown gap as a duration.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMS) * time.Millisecond
}
