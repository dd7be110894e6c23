package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the collectors used by NewMetricsMiddleware.
type StoreMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewStoreMetrics creates and registers the store collectors on reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tendril",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of checkpoint store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendril",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Checkpoint store operations that failed. Missing sessions are not counted.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.duration, m.errors)
	return m
}

// NewMetricsMiddleware records latency and failures of every store call.
func NewMetricsMiddleware(m *StoreMetrics) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &metricsMiddleware{next: next, m: m}
	}
}

type metricsMiddleware struct {
	next ports.CheckpointStore
	m    *StoreMetrics
}

func (s *metricsMiddleware) observe(op string, start time.Time, err error) {
	s.m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.m.errors.WithLabelValues(op).Inc()
	}
}

func (s *metricsMiddleware) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) (err error) {
	defer func(start time.Time) { s.observe("save", start, err) }(time.Now())
	return s.next.Save(ctx, sessionID, cp)
}

func (s *metricsMiddleware) Load(ctx context.Context, sessionID string) (cp *domain.Checkpoint, err error) {
	defer func(start time.Time) { s.observe("load", start, err) }(time.Now())
	return s.next.Load(ctx, sessionID)
}

func (s *metricsMiddleware) Delete(ctx context.Context, sessionID string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, sessionID)
}

func (s *metricsMiddleware) List(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.List(ctx)
}
