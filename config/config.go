// Package config gathers the environment variables and CLI flags named
// in spec.md §6 into a single struct that is constructed once at
// startup and threaded through the scheduler and its subsystems. No
// core package reads the environment directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the process-wide settings for one run of the scheduler.
type Config struct {
	// Seed makes a run deterministic, per spec.md §8 "Determinism".
	Seed uint64

	// NumWorkers, when > 1, switches the scheduler to parallel
	// worker-pool tick mode (spec.md §5).
	NumWorkers int

	// TickRate is the wall-clock interval between ticks.
	TickRate time.Duration

	// LogLevel controls the verbosity of Logger.
	LogLevel zerolog.Level

	// Logger is the single structured logger threaded through
	// construction; no package holds a package-level logger.
	Logger zerolog.Logger
}

// Default returns a Config with conservative defaults: single
// worker, 100ms ticks, info logging, and a fixed seed of 1.
func Default() Config {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return Config{
		Seed:       1,
		NumWorkers: 1,
		TickRate:   100 * time.Millisecond,
		LogLevel:   zerolog.InfoLevel,
		Logger:     logger,
	}
}

// FromEnv overlays SEED, NUM_WORKERS, TICK_MS, and LOG_LEVEL from the
// process environment onto a base Config, returning the result. Unset
// variables leave the base value untouched.
func FromEnv(base Config) (Config, error) {
	cfg := base

	if v, ok := os.LookupEnv("SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, err
		}
		cfg.Seed = seed
	}

	if v, ok := os.LookupEnv("NUM_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, err
		}
		cfg.NumWorkers = n
	}

	if v, ok := os.LookupEnv("TICK_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, err
		}
		cfg.TickRate = time.Duration(ms) * time.Millisecond
	}

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = lvl
	}

	cfg.Logger = cfg.Logger.Level(cfg.LogLevel)
	return cfg, nil
}
