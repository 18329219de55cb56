// Package gaps computes the identifiers that neither list contains.
//
// The two packed lists are merged as ascending streams and the complement
// of their union over [1, maxObserved] is written as decimal text. Memory
// use is constant. The stage is skipped when the gap file exists.
package gaps
