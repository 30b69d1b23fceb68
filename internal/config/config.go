package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// DefaultSliceLimit is used whenever ACTION_SLICE_LIMIT is unset or unusable.
const DefaultSliceLimit = 200

// DefaultConcurrency is the number of slice jobs processed in parallel.
const DefaultConcurrency = 4

// ErrInvalidLimit indicates a limit value that could not be used.
// ParseLimit returns it together with DefaultSliceLimit so callers can warn.
var ErrInvalidLimit = errors.New("invalid slice limit")

// Config holds all configuration values.
type Config struct {
	// Slicing
	SliceLimit  int
	DataDir     string
	Concurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level

	// LimitErr is set when ACTION_SLICE_LIMIT was present but unusable.
	LimitErr error
}

// Load reads configuration from environment variables.
func Load() Config {
	limit, limitErr := ParseLimit(os.Getenv("ACTION_SLICE_LIMIT"))

	return Config{
		SliceLimit:  limit,
		DataDir:     getEnv("PROPSLICE_DATA_DIR", "data"),
		Concurrency: parseConcurrency(getEnv("PROPSLICE_CONCURRENCY", "")),

		LogFile:  getEnv("PROPSLICE_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("PROPSLICE_LOG_LEVEL", "WARN")),

		LimitErr: limitErr,
	}
}

// ParseLimit converts a raw limit override into a positive entity count.
// Empty input yields the default without error. Values that are not numbers,
// not finite, or below 1 after truncation yield the default and ErrInvalidLimit.
func ParseLimit(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultSliceLimit, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultSliceLimit, fmt.Errorf("%w: %q is not a finite number", ErrInvalidLimit, raw)
	}

	f = math.Trunc(f)
	if f < 1 {
		return DefaultSliceLimit, fmt.Errorf("%w: %q is not positive", ErrInvalidLimit, raw)
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(f), nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseConcurrency(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return DefaultConcurrency
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
