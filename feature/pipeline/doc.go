// Package pipeline wires the corpus validation stages together.
//
// A Service registers, in order, the inventory check, identifier packing,
// gap extraction, shard partition and sort, and reconciliation with a
// loader.Manager. Every stage except the inventory is skipped when its
// output artifact already exists, so a run can be repeated or resumed after
// a crash. Status reports the state of each stage without writing anything.
package pipeline
