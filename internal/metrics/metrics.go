// Package metrics holds the Prometheus instruments for log syncs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "questsync"

// Metrics groups all instruments on a private registry so several engines
// can coexist in one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SyncBatches       prometheus.Counter
	Events            *prometheus.CounterVec
	UnmatchedEvents   prometheus.Counter
	ParseErrors       prometheus.Counter
	SuppressedEvents  prometheus.Counter
	AutoCompleted     prometheus.Counter
	PendingDecisions  prometheus.Gauge
	SyncDuration      prometheus.Histogram
	LastSyncTimestamp prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SyncBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sync_batches_total",
			Help:      "Log sync batches applied.",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Quest lifecycle events applied by type.",
		}, []string{"type"}),
		UnmatchedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unmatched_events_total",
			Help:      "Events referencing an unknown quest id.",
		}),
		ParseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "parse_errors_total",
			Help:      "Notification records with an unusable payload.",
		}),
		SuppressedEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suppressed_events_total",
			Help:      "Events withheld from historical log backlog.",
		}),
		AutoCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "prerequisites_auto_completed_total",
			Help:      "Prerequisites marked done as a side effect of an event.",
		}),
		PendingDecisions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "alternative_groups_pending",
			Help:      "Alternative groups reported by the last sync.",
		}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sync_duration_ms",
			Help:      "Time to apply one sync batch in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		LastSyncTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last applied sync batch.",
		}),
	}
}

// Batch is what one sync contributes to the instruments.
type Batch struct {
	Started, Completed, Failed int
	Unmatched                  int
	ParseErrors                int
	Suppressed                 int
	AutoCompleted              int
	AlternativeGroups          int
	Duration                   time.Duration
	At                         time.Time
}

// ObserveBatch records one applied sync.
func (m *Metrics) ObserveBatch(b Batch) {
	if m == nil {
		return
	}
	m.SyncBatches.Inc()
	m.Events.WithLabelValues("started").Add(float64(b.Started))
	m.Events.WithLabelValues("completed").Add(float64(b.Completed))
	m.Events.WithLabelValues("failed").Add(float64(b.Failed))
	m.UnmatchedEvents.Add(float64(b.Unmatched))
	m.ParseErrors.Add(float64(b.ParseErrors))
	m.SuppressedEvents.Add(float64(b.Suppressed))
	m.AutoCompleted.Add(float64(b.AutoCompleted))
	m.PendingDecisions.Set(float64(b.AlternativeGroups))
	m.SyncDuration.Observe(float64(b.Duration.Microseconds()) / 1000)
	if !b.At.IsZero() {
		m.LastSyncTimestamp.Set(float64(b.At.Unix()))
	}
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format,
// for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
