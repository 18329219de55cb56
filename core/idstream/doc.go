// Package idstream provides forward-only streams of sorted identifiers.
//
// Two on-disk encodings are supported:
//
//   - packed: consecutive 4-byte little-endian unsigned integers, ascending,
//     no header and no delimiter.
//   - text: one decimal identifier per line.
//
// Streams never hold more than one buffered block in memory, which is what
// lets the gap extractor and reconciliation walk lists far larger than RAM.
package idstream
