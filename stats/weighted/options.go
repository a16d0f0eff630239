package weighted

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

const defaultMinChunk = 4096

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// NonFinitePolicy selects how NaN and infinite results are treated.
type NonFinitePolicy int

const (
	// NonFinitePropagate returns NaN/Inf results as present values. Only an
	// exact zero total weight is rejected.
	NonFinitePropagate NonFinitePolicy = iota

	// NonFiniteReject turns a NaN/Inf weighted sum, total weight or quotient
	// into ErrNonFinite.
	NonFiniteReject
)

// String returns the policy name as accepted by ParseNonFinitePolicy.
func (p NonFinitePolicy) String() string {
	switch p {
	case NonFinitePropagate:
		return "propagate"
	case NonFiniteReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseNonFinitePolicy parses "propagate" or "reject" (case-insensitive).
func ParseNonFinitePolicy(s string) (NonFinitePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "propagate":
		return NonFinitePropagate, nil
	case "reject":
		return NonFiniteReject, nil
	default:
		return NonFinitePropagate, fmt.Errorf("unknown non-finite policy %q", s)
	}
}

// Report describes one Compute call.
type Report struct {
	Length   int // len(values)
	Chunks   int // number of reduced chunks, 0 if validation failed
	Duration time.Duration
	Err      error // nil on success
}

// Observer receives a Report after every Compute call. Implementations must
// be safe for concurrent use if the same Config is shared across goroutines.
type Observer interface {
	ObserveCompute(Report)
}

// Config defines execution settings for a weighted reduction.
type Config struct {
	Workers   int
	MinChunk  int
	Logger    *slog.Logger
	NonFinite NonFinitePolicy
	Observer  Observer
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns GOMAXPROCS workers, 4096-element minimum chunks,
// diagnostics on stderr and NaN propagation.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.GOMAXPROCS(0),
		MinChunk:  defaultMinChunk,
		Logger:    defaultLogger,
		NonFinite: NonFinitePropagate,
	}
}

// WithWorkers sets the size of the worker pool. 1 runs a sequential fold.
func WithWorkers(workers int) Option {
	return func(cfg *Config) {
		if workers > 0 {
			cfg.Workers = workers
		}
	}
}

// WithMinChunk sets the minimum number of elements per chunk.
func WithMinChunk(minChunk int) Option {
	return func(cfg *Config) {
		if minChunk > 0 {
			cfg.MinChunk = minChunk
		}
	}
}

// WithLogger sets the diagnostic stream used by Average.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// WithNonFinitePolicy sets the NaN/Inf handling policy.
func WithNonFinitePolicy(policy NonFinitePolicy) Option {
	return func(cfg *Config) {
		cfg.NonFinite = policy
	}
}

// WithObserver installs a per-call observer.
func WithObserver(o Observer) Option {
	return func(cfg *Config) {
		cfg.Observer = o
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
