// Package metrics provides Prometheus metrics for pipeline runs.
//
// The pipeline is a batch job, so metrics live in a private registry and are
// exported once per run through the node-exporter textfile collector
// convention: when a textfile path is configured, the registry is written
// there (atomically) after the run, whether it succeeded or not.
//
// All recording methods are safe on a nil *Metrics, so stages can be built
// without metrics in tests.
package metrics
