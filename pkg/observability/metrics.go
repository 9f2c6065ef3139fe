package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	EventsIngested      prometheus.Counter
	ConnectionsInferred *prometheus.CounterVec
	CandidatesDropped   prometheus.Counter
	RepositoryFailures  *prometheus.CounterVec
	InferenceDuration   prometheus.Histogram
}

// NewMetrics creates and registers the engine's collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serendipity",
			Name:      "events_ingested_total",
			Help:      "Number of events inserted into the graph",
		}),
		ConnectionsInferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serendipity",
			Name:      "connections_inferred_total",
			Help:      "Number of committed inferred connections by heuristic type",
		}, []string{"type"}),
		CandidatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serendipity",
			Name:      "candidates_dropped_total",
			Help:      "Number of inferred candidates dropped due to persistence failures",
		}),
		RepositoryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serendipity",
			Name:      "repository_failures_total",
			Help:      "Number of repository operations that failed",
		}, []string{"operation"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "serendipity",
			Name:      "inference_duration_seconds",
			Help:      "Time spent scoring a new event against the graph",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsIngested,
			m.ConnectionsInferred,
			m.CandidatesDropped,
			m.RepositoryFailures,
			m.InferenceDuration,
		)
	}
	return m
}

// ObserveInference records the duration of one inference pass
func (m *Metrics) ObserveInference(start time.Time) {
	m.InferenceDuration.Observe(time.Since(start).Seconds())
}
