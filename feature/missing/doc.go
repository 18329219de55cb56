// Package missing reconciles the successfully scraped identifiers against
// the sorted corpus.
//
// The public packed list and the concatenation of every sorted shard are
// walked in lock-step; each public id absent from the corpus is written to
// the missing set. Private ids and gap ids are expected to be absent and are
// never reported. The shard completion marker must exist before this stage
// can run.
package missing
