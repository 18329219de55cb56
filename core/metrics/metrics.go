package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "corpus"

// Metrics holds the counters and gauges recorded by the pipeline.
type Metrics struct {
	gatherer prometheus.Gatherer

	// StageRuns counts stage outcomes.
	// Labels: stage, outcome (ran, skipped, failed)
	StageRuns *prometheus.CounterVec

	// StageDuration records the wall time of the last execution of a stage.
	// Labels: stage
	StageDuration *prometheus.GaugeVec

	// PackedIDs is the number of identifiers written per packed list.
	// Labels: list
	PackedIDs *prometheus.GaugeVec

	// Gaps is the size of the gap set.
	Gaps prometheus.Gauge

	// MaxObserved is the largest identifier across both lists.
	MaxObserved prometheus.Gauge

	// DroppedLines is the number of corpus lines dropped as malformed.
	DroppedLines prometheus.Gauge

	// ShardsSorted counts shards that reached their sorted form.
	ShardsSorted prometheus.Counter

	// SpilledRuns counts run files written by external sorts.
	SpilledRuns prometheus.Counter

	// MissingIDs is the size of the missing set.
	MissingIDs prometheus.Gauge
}

// New creates metrics in a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates metrics registered with reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		StageRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Stage outcomes by stage name.",
		}, []string{"stage", "outcome"}),
		StageDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last execution of each stage.",
		}, []string{"stage"}),
		PackedIDs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lists",
			Name:      "packed_ids",
			Help:      "Identifiers written per packed list.",
		}, []string{"list"}),
		Gaps: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lists",
			Name:      "gap_ids",
			Help:      "Identifiers in range but absent from both lists.",
		}),
		MaxObserved: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lists",
			Name:      "max_observed_id",
			Help:      "Largest identifier across both lists.",
		}),
		DroppedLines: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "shards",
			Name:      "dropped_lines",
			Help:      "Corpus lines dropped as malformed during partition and sort.",
		}),
		ShardsSorted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shards",
			Name:      "sorted_total",
			Help:      "Shards that reached their sorted form.",
		}),
		SpilledRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sort",
			Name:      "spilled_runs_total",
			Help:      "Run files written by external sorts.",
		}),
		MissingIDs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "missing_ids",
			Help:      "Successfully scraped identifiers absent from the corpus.",
		}),
	}
}

// StageSkipped records a stage short-circuited by its completion check.
func (m *Metrics) StageSkipped(name string) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(name, "skipped").Inc()
}

// StageFinished records a stage execution.
func (m *Metrics) StageFinished(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ran"
	if err != nil {
		outcome = "failed"
	}
	m.StageRuns.WithLabelValues(name, outcome).Inc()
	m.StageDuration.WithLabelValues(name).Set(elapsed.Seconds())
}

// SetPacked records the identifier count of a packed list.
func (m *Metrics) SetPacked(list string, n int64) {
	if m == nil {
		return
	}
	m.PackedIDs.WithLabelValues(list).Set(float64(n))
}

// SetGaps records the gap-set size and the observed maximum.
func (m *Metrics) SetGaps(n int64, maxObserved uint32) {
	if m == nil {
		return
	}
	m.Gaps.Set(float64(n))
	m.MaxObserved.Set(float64(maxObserved))
}

// SetDropped records the dropped-line count.
func (m *Metrics) SetDropped(n int64) {
	if m == nil {
		return
	}
	m.DroppedLines.Set(float64(n))
}

// ShardSorted records one sorted shard and the runs its sort spilled.
func (m *Metrics) ShardSorted(spills int) {
	if m == nil {
		return
	}
	m.ShardsSorted.Inc()
	m.SpilledRuns.Add(float64(spills))
}

// AddSpills records run files written outside shard sorts.
func (m *Metrics) AddSpills(spills int) {
	if m == nil {
		return
	}
	m.SpilledRuns.Add(float64(spills))
}

// SetMissing records the missing-set size.
func (m *Metrics) SetMissing(n int64) {
	if m == nil {
		return
	}
	m.MissingIDs.Set(float64(n))
}

// WriteTextfile writes the registry in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
