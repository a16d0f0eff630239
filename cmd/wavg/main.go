// Command wavg computes the weighted average of a synthetic dataset.
//
// Usage:
//
//	wavg [flags]
//
// Without flags it averages values[i] = weights[i] = i for i in 1..1000000
// and prints the result to stdout. Diagnostics go to stderr.
//
// Examples:
//
//	wavg
//	wavg -n 1000 -workers 4
//	wavg -config wavg.yaml -metrics wavg.prom
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-vecmath/cpu"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-wavg/internal/config"
	"github.com/cwbudde/algo-wavg/internal/dataset"
	"github.com/cwbudde/algo-wavg/internal/metrics"
	"github.com/cwbudde/algo-wavg/stats/weighted"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wavg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config file")
	length := fs.Int("n", config.DefaultLength, "dataset length")
	workers := fs.Int("workers", 0, "worker pool size (0 = GOMAXPROCS)")
	minChunk := fs.Int("min-chunk", 0, "minimum elements per chunk (0 = library default)")
	reject := fs.Bool("reject-non-finite", false, "treat NaN or infinite results as failures")
	metricsFile := fs.String("metrics", "", "write Prometheus text metrics to this file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wavg [flags]\n\n")
		fmt.Fprintf(stderr, "Computes the weighted average of the ramp 1..n weighted by itself.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	boot := slog.New(slog.NewTextHandler(stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("failed to load config", "error", err)
		return 1
	}

	// Explicit flags win over file and environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.Dataset.Length = *length
		case "workers":
			cfg.Reduction.Workers = *workers
		case "min-chunk":
			cfg.Reduction.MinChunk = *minChunk
		case "reject-non-finite":
			if *reject {
				cfg.Reduction.NonFinite = weighted.NonFiniteReject.String()
			} else {
				cfg.Reduction.NonFinite = weighted.NonFinitePropagate.String()
			}
		case "metrics":
			cfg.Metrics.File = *metricsFile
		}
	})

	if err := cfg.Validate(); err != nil {
		boot.Error("invalid config", "error", err)
		return 1
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		boot.Error("invalid logging config", "error", err)
		return 1
	}

	opts, err := cfg.Options()
	if err != nil {
		logger.Error("invalid reduction config", "error", err)
		return 1
	}
	opts = append(opts, weighted.WithLogger(logger))

	var reg *prometheus.Registry
	if cfg.Metrics.File != "" {
		reg = prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			logger.Error("failed to set up metrics", "error", err)
			return 1
		}
		opts = append(opts, weighted.WithObserver(collector))
	}

	logger.Debug("starting",
		"length", cfg.Dataset.Length,
		"workers", weighted.ApplyOptions(opts...).Workers,
		"simd", simdLevel(cpu.DetectFeatures()).String())

	values, weights := dataset.Pair(cfg.Dataset.Length)
	if avg, ok := weighted.Average(values, weights, opts...); ok {
		fmt.Fprintf(stdout, "The weighted average is: %s\n", strconv.FormatFloat(avg, 'f', -1, 64))
	} else {
		fmt.Fprintln(stdout, "Failed to calculate weighted average.")
	}

	if reg != nil {
		if err := metrics.WriteFile(cfg.Metrics.File, reg); err != nil {
			logger.Error("failed to write metrics", "path", cfg.Metrics.File, "error", err)
			return 1
		}
		logger.Debug("metrics written", "path", cfg.Metrics.File)
	}

	return 0
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}
}

// simdLevel returns the widest instruction set the vecmath kernels can use
// on this machine.
func simdLevel(f cpu.Features) cpu.SIMDLevel {
	for _, level := range []cpu.SIMDLevel{cpu.SIMDAVX512, cpu.SIMDAVX2, cpu.SIMDAVX, cpu.SIMDNEON, cpu.SIMDSSE2} {
		if cpu.Supports(f, level) {
			return level
		}
	}
	return cpu.SIMDNone
}
