package reduce

import (
	"golang.org/x/sync/errgroup"
)

// Range is the half-open index interval [Lo, Hi).
type Range struct {
	Lo int
	Hi int
}

// Len returns the number of indices covered by r.
func (r Range) Len() int {
	return r.Hi - r.Lo
}

// Split partitions [0, n) into contiguous ranges for at most workers tasks.
//
// The chunk size is max(ceil(n/workers), minChunk), so small inputs collapse
// into a single range. Non-positive workers or minChunk are treated as 1.
// Returns nil for n <= 0.
func Split(n, workers, minChunk int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if minChunk < 1 {
		minChunk = 1
	}

	size := max((n+workers-1)/workers, minChunk)
	ranges := make([]Range, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		ranges = append(ranges, Range{Lo: lo, Hi: min(lo+size, n)})
	}

	return ranges
}

// Map evaluates fn for every range and returns the results in range order.
//
// At most workers calls run concurrently. With a single range or a single
// worker the calls run sequentially on the calling goroutine.
func Map[T any](ranges []Range, workers int, fn func(Range) T) []T {
	out := make([]T, len(ranges))
	if len(ranges) == 0 {
		return out
	}

	if workers <= 1 || len(ranges) == 1 {
		for i, r := range ranges {
			out[i] = fn(r)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range ranges {
		g.Go(func() error {
			out[i] = fn(r)
			return nil
		})
	}
	// Tasks never fail; Wait is only the join point.
	_ = g.Wait()

	return out
}

// Pairwise combines parts by merging adjacent pairs, level by level, until
// one value remains. An odd element at the end of a level is carried up
// unchanged. The merge order is fixed for a given len(parts).
//
// Returns false if parts is empty. parts is used as scratch space.
func Pairwise[T any](parts []T, merge func(a, b T) T) (T, bool) {
	if len(parts) == 0 {
		var zero T
		return zero, false
	}

	for n := len(parts); n > 1; {
		half := n / 2
		for i := range half {
			parts[i] = merge(parts[2*i], parts[2*i+1])
		}
		if n%2 == 1 {
			parts[half] = parts[n-1]
			half++
		}
		n = half
	}

	return parts[0], true
}
