package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if KEYSPRINT_CONFIG is set
//  3. env (prefix KEYSPRINT_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("KEYSPRINT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: KEYSPRINT_ADDR, KEYSPRINT_WORD_COUNT, ...
	// Map env keys like KEYSPRINT_WORD_COUNT -> word_count (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("KEYSPRINT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "keysprint_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the runtime cannot operate under.
func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.BusLatencyMS < 0 {
		return fmt.Errorf("%w: bus_latency_ms must not be negative", ErrInvalidConfig)
	}
	if cfg.BusBufferSize <= 0 {
		return fmt.Errorf("%w: bus_buffer_size must be positive", ErrInvalidConfig)
	}
	if cfg.WordCount <= 0 {
		return fmt.Errorf("%w: word_count must be positive", ErrInvalidConfig)
	}
	if cfg.IntentBufferSize <= 0 {
		return fmt.Errorf("%w: intent_buffer_size must be positive", ErrInvalidConfig)
	}
	if cfg.CountdownFrom <= 0 {
		return fmt.Errorf("%w: countdown_from must be positive", ErrInvalidConfig)
	}
	for name, ms := range map[string]int{
		"bot_join_delay_ms":      cfg.BotJoinDelayMS,
		"pre_countdown_delay_ms": cfg.PreCountdownDelayMS,
		"countdown_interval_ms":  cfg.CountdownIntervalMS,
		"bot_tick_interval_ms":   cfg.BotTickIntervalMS,
		"restart_delay_ms":       cfg.RestartDelayMS,
	} {
		if ms <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if cfg.ResultPath == "" {
		return fmt.Errorf("%w: result_path must not be empty", ErrInvalidConfig)
	}
	if cfg.MaxRecentResults <= 0 {
		return fmt.Errorf("%w: max_recent_results must be positive", ErrInvalidConfig)
	}
	return nil
}
