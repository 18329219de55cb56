// Package audit re-checks the pipeline's guarantees on committed artifacts.
//
// Every check streams its inputs and never writes. Checks whose artifacts do
// not exist yet are skipped. The checks are:
//
//   - packed: each packed list is ascending and decodes to its sorted text list
//   - partition: every id in [1, maxObserved] is in exactly one of the public
//     list, the private list and the gap set (an id in both lists is only a
//     warning)
//   - shards: every sorted shard holds valid records, in range, non-decreasing
//   - missing: every missing id is public, not a gap, and absent from the corpus
package audit
