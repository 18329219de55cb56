// Package reconcile provides the streaming set engine behind gap extraction,
// missing-record reconciliation and the artifact audit.
//
// Every operation is a single forward walk over ascending identifier streams
// with O(1) extra memory, so inputs of any size can be reconciled:
//
//   - Complement: identifiers in [1, max] absent from a stream.
//   - Difference: identifiers of one stream absent from another.
//   - Intersection: identifiers present in both streams.
//
// # Usage Example
//
//	union := idstream.Union(public, private)
//	sum, err := reconcile.Complement(union, gaps.Write)
//
//	sum, err = reconcile.Difference(public, corpus, missing.Write)
package reconcile
