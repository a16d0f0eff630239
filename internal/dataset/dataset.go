// Package dataset builds the synthetic inputs used by the wavg command.
package dataset

// Ramp returns 1, 2, ..., n as float64. n <= 0 yields an empty slice.
func Ramp(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// Pair returns two independent ramps of length n for use as values and
// weights.
func Pair(n int) (values, weights []float64) {
	return Ramp(n), Ramp(n)
}

// RampMean returns the closed-form weighted average of Pair(n):
// Σi² / Σi = (2n+1)/3. It returns false for n <= 0.
func RampMean(n int) (float64, bool) {
	if n <= 0 {
		return 0, false
	}
	return float64(2*n+1) / 3, true
}
