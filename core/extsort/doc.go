// Package extsort implements a bounded-memory external merge sort.
//
// Items are (key, payload) pairs added in input order. The sorter buffers
// items until the configured byte budget is reached, stable-sorts the buffer
// by key and spills it to a run file in a scratch directory. Merge then
// k-way merges the runs, so memory use depends on the buffer size and the
// merge fan-in, never on the input size.
//
// # Ordering
//
// Output is ascending by key. Items with equal keys come out in the order
// they were added: each run is stable-sorted, runs are numbered in spill
// order, and the merge breaks ties by run number. When there are more runs
// than the fan-in, consecutive groups are merged first so the run order,
// and with it stability, is preserved across passes.
//
// # Run format
//
// A run is a sequence of frames, optionally wrapped in an lz4 stream:
//
//	key     uint64  little-endian
//	length  uint32  little-endian
//	payload [length]byte
package extsort
