// Package inventory validates that the pipeline's inputs exist.
//
// Only the immediate entries of the target directory are listed; nothing is
// read recursively. The check requires both identifier lists and at least
// one raw corpus file (plain or compressed JSON-lines matching the corpus
// prefix). It is stateless and runs on every invocation, before any other
// stage, so a missing input fails the run without creating any state.
package inventory
