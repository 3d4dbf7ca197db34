package observability

import (
	"context"
	"errors"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "flowgraph"

// Metrics holds the collectors fed by graph execution.
type Metrics struct {
	NodeRuns          *prometheus.CounterVec
	NodeErrors        *prometheus.CounterVec
	NodeDuration      *prometheus.HistogramVec
	Traversals        *prometheus.CounterVec
	TraversalDuration prometheus.Histogram
	ActiveTraversals  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_runs_total",
			Help:      "Node executions completed, by command.",
		}, []string{"command"}),
		NodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_errors_total",
			Help:      "Node executions that failed, by command.",
		}, []string{"command"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "node_duration_seconds",
			Help:      "Time from entering a node to leaving it, including waits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		Traversals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "traversals_total",
			Help:      "Finished walks, by outcome.",
		}, []string{"outcome"}),
		TraversalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "traversal_duration_seconds",
			Help:      "Duration of finished walks.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveTraversals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "traversals_active",
			Help:      "Walks started and not yet finished.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.NodeRuns, m.NodeErrors, m.NodeDuration, m.Traversals, m.TraversalDuration, m.ActiveTraversals,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeRuns.WithLabelValues(e.Command).Inc()
			m.NodeDuration.WithLabelValues(e.Command).Observe(e.Elapsed.Seconds())
		},
		OnNodeError: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeErrors.WithLabelValues(e.Command).Inc()
		},
		OnTraversalStart: func(context.Context, *domain.TraversalEvent) {
			m.ActiveTraversals.Inc()
		},
		OnTraversalEnd: func(_ context.Context, e *domain.TraversalEvent) {
			m.ActiveTraversals.Dec()
			m.Traversals.WithLabelValues(outcome(e.Err)).Inc()
			m.TraversalDuration.Observe(e.Elapsed.Seconds())
		},
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
