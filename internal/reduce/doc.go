// Package reduce provides the fork-join building blocks behind the parallel
// reductions in this module.
//
// A reduction is expressed in three steps: Split partitions an index range
// into contiguous chunks, Map evaluates a function on every chunk using a
// bounded pool of goroutines, and Pairwise merges the per-chunk results
// level by level until a single value remains.
//
// Tasks only read shared inputs and write their own result slot, so no
// locking is involved. All calls block until every task has finished.
package reduce
