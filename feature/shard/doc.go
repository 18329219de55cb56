// Package shard partitions the raw corpus into fixed-width identifier-range
// shards and sorts each shard by identifier.
//
// Phase A streams every corpus file, decompressing on the fly, and appends
// each line verbatim to the unsorted file of the shard covering its id.
// Shard files are written through an LRU-bounded pool of append handles.
//
// Phase B validates and sorts each unsorted shard with an external merge
// sort, commits the sorted file atomically and removes the unsorted one.
// Shards are sorted in parallel.
//
// The completion marker is written only after every shard is sorted. Without
// it the whole stage is redone from the corpus, and any shard file already on
// disk is discarded first.
package shard
