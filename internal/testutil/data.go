package testutil

import "math/rand"

// DeterministicUniform returns length values drawn uniformly from [lo, hi)
// with a fixed seed.
func DeterministicUniform(seed int64, lo, hi float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = lo + rng.Float64()*(hi-lo)
	}
	return out
}

// Constant returns a slice of length n filled with value.
func Constant(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
