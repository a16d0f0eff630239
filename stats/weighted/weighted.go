package weighted

import (
	"errors"
	"math"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-wavg/internal/reduce"
)

// Partial is the (Σ v*w, Σ w) pair of a chunk. The zero value is the
// identity of Merge.
type Partial struct {
	Sum    float64
	Weight float64
}

// Merge returns the element-wise sum of p and q.
func (p Partial) Merge(q Partial) Partial {
	return Partial{Sum: p.Sum + q.Sum, Weight: p.Weight + q.Weight}
}

// Mean returns Sum/Weight, or false if Weight is exactly zero.
func (p Partial) Mean() (float64, bool) {
	if p.Weight == 0 {
		return 0, false
	}
	return p.Sum / p.Weight, true
}

// Average returns Σ(values[i]*weights[i]) / Σ(weights[i]).
//
// The second result is false if the slices differ in length, if the weights
// sum to exactly zero (including empty input), or if the result is rejected
// by NonFiniteReject. Each failure writes one error record to the configured
// logger. Nothing is logged on success.
func Average(values, weights []float64, opts ...Option) (float64, bool) {
	cfg := ApplyOptions(opts...)

	avg, p, err := compute(values, weights, &cfg)
	if err != nil {
		logFailure(&cfg, err, len(values), len(weights), p)
		return 0, false
	}

	return avg, true
}

// Compute is Average with failures reported as errors instead of
// diagnostics. The error matches ErrLengthMismatch, ErrZeroTotalWeight or
// ErrNonFinite via errors.Is.
func Compute(values, weights []float64, opts ...Option) (float64, error) {
	cfg := ApplyOptions(opts...)
	avg, _, err := compute(values, weights, &cfg)
	return avg, err
}

// Reduce returns the combined (Σ v*w, Σ w) pair without dividing. Only the
// length check applies.
func Reduce(values, weights []float64, opts ...Option) (Partial, error) {
	if err := validateLengths(values, weights); err != nil {
		return Partial{}, err
	}
	cfg := ApplyOptions(opts...)
	p, _ := reducePairs(values, weights, &cfg)
	return p, nil
}

func compute(values, weights []float64, cfg *Config) (float64, Partial, error) {
	start := time.Now()

	var (
		avg    float64
		p      Partial
		chunks int
	)
	err := validateLengths(values, weights)
	if err == nil {
		p, chunks = reducePairs(values, weights, cfg)
		avg, err = finish(p, cfg.NonFinite)
	}

	if cfg.Observer != nil {
		cfg.Observer.ObserveCompute(Report{
			Length:   len(values),
			Chunks:   chunks,
			Duration: time.Since(start),
			Err:      err,
		})
	}

	return avg, p, err
}

// reducePairs runs the fork-join reduction and returns the merged pair and
// the number of chunks.
func reducePairs(values, weights []float64, cfg *Config) (Partial, int) {
	ranges := reduce.Split(len(values), cfg.Workers, cfg.MinChunk)
	parts := reduce.Map(ranges, cfg.Workers, func(r reduce.Range) Partial {
		v, w := values[r.Lo:r.Hi], weights[r.Lo:r.Hi]
		return Partial{
			Sum:    vecmath.DotProduct(v, w),
			Weight: vecmath.Sum(w),
		}
	})

	p, _ := reduce.Pairwise(parts, Partial.Merge)
	return p, len(ranges)
}

func finish(p Partial, policy NonFinitePolicy) (float64, error) {
	avg, ok := p.Mean()
	if !ok {
		return 0, ErrZeroTotalWeight
	}

	if policy == NonFiniteReject && (!isFinite(p.Sum) || !isFinite(p.Weight) || !isFinite(avg)) {
		return 0, ErrNonFinite
	}

	return avg, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func logFailure(cfg *Config, err error, nValues, nWeights int, p Partial) {
	switch {
	case errors.Is(err, ErrLengthMismatch):
		cfg.Logger.Error("length of values and weights must be the same",
			"values", nValues, "weights", nWeights)
	case errors.Is(err, ErrZeroTotalWeight):
		cfg.Logger.Error("total weight is zero, cannot compute weighted average",
			"length", nValues)
	case errors.Is(err, ErrNonFinite):
		cfg.Logger.Error("weighted average is not finite",
			"sum", p.Sum, "weight", p.Weight)
	default:
		cfg.Logger.Error("weighted average failed", "error", err)
	}
}
