// Package weighted computes weighted averages over paired float64 slices.
//
// The reduction is data-parallel: the index range is split into chunks, each
// chunk's (Σ v*w, Σ w) pair is computed on a bounded worker pool with SIMD
// kernels from algo-vecmath, and the partial pairs are merged pairwise.
// Grouping depends on the chunk layout, so results obtained with different
// worker counts agree within floating-point tolerance but are not guaranteed
// to be bit-identical.
//
// Two outcomes are expected failures rather than panics: slices of different
// length and a total weight of exactly zero. Average reports them as an
// absent result plus a diagnostic on the configured slog.Logger; Compute
// returns them as sentinel errors.
package weighted
