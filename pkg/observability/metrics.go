package observability

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	nodeErrors   *prometheus.CounterVec
	pauses       *prometheus.CounterVec
	runs         *prometheus.CounterVec
	checkpoints  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendril",
			Name:      "node_visits_total",
			Help:      "Total number of node invocations.",
		}, []string{"node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tendril",
			Name:      "node_duration_seconds",
			Help:      "Duration of node transforms.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendril",
			Name:      "node_errors_total",
			Help:      "Node transforms that returned an error.",
		}, []string{"node"}),
		pauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendril",
			Name:      "pauses_total",
			Help:      "Runs paused before a gated node.",
		}, []string{"node"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendril",
			Name:      "runs_total",
			Help:      "Finished invocations by outcome.",
		}, []string{"status"}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tendril",
			Name:      "checkpoints_saved_total",
			Help:      "Checkpoints committed by the engine.",
		}),
	}
	reg.MustRegister(m.nodeVisits, m.nodeDuration, m.nodeErrors, m.pauses, m.runs, m.checkpoints)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.nodeErrors.WithLabelValues(e.NodeID).Inc()
			}
		},
		OnPause: func(_ context.Context, e *domain.NodeEvent) {
			m.pauses.WithLabelValues(e.NodeID).Inc()
		},
		OnCheckpoint: func(context.Context, *domain.CheckpointEvent) {
			m.checkpoints.Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Status)).Inc()
		},
	}
}
