package testutil

import (
	"math"
	"testing"
)

const defaultEpsilon = 1e-12

// NearlyEqual reports whether a and b are equal within eps, either as an
// absolute difference or relative to the larger magnitude. NaNs compare
// equal to each other, as do infinities of the same sign.
func NearlyEqual(a, b, eps float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	return diff/largest <= eps
}

// RequireNearlyEqual fails t if got and want are not NearlyEqual.
func RequireNearlyEqual(t *testing.T, got, want, eps float64) {
	t.Helper()
	if !NearlyEqual(got, want, eps) {
		t.Fatalf("got %v, want %v (eps %v)", got, want, eps)
	}
}

// ReductionTolerance returns a relative tolerance for a float64 sum of n
// same-signed terms, independent of how the additions are grouped.
func ReductionTolerance(n int) float64 {
	const unitRoundoff = 0x1p-53
	return math.Max(4*float64(max(n, 1))*unitRoundoff, defaultEpsilon)
}
