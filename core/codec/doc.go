// Package codec maps corpus file names to stream codecs.
//
// Raw corpus files are JSON-lines, either plain or file-level compressed.
// The codec is chosen from the file extension:
//
//	results-0001.jsonl       plain
//	results-0001.jsonl.gz    gzip
//	results-0001.jsonl.zst   zstd
//	results-0001.jsonl.lz4   lz4 frame
//	results-0001.jsonl.sz    snappy framed
//
// Readers decompress as a forward-only stream; the decompressed content is
// never materialized. The same codecs are used for writing, which the
// external sorter relies on for compressed spill runs.
package codec
