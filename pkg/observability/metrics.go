package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records lifecycle events as Prometheus series.
type Metrics struct {
	statuses    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	runsEnded   *prometheus.CounterVec
	active      prometheus.Gauge
	duration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		statuses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_status_changes_total",
				Help: "Total number of status changes raised by steps and sequences",
			},
			[]string{"sequence", "node", "status"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_transitions_total",
				Help: "Total number of branching transitions taken",
			},
			[]string{"sequence", "from", "to"},
		),
		runsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepwise_runs_ended_total",
				Help: "Total number of runs that reached Completed, by end reason",
			},
			[]string{"sequence", "reason"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepwise_runs_active",
			Help: "Number of runs currently started",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepwise_run_duration_seconds",
				Help:    "Wall-clock duration of runs from Begin to Completed",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"sequence"},
		),
		started: make(map[string]time.Time),
	}

	for _, c := range []prometheus.Collector{m.statuses, m.transitions, m.runsEnded, m.active, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStatus: func(_ context.Context, e *domain.StatusEvent) {
			m.statuses.WithLabelValues(e.Sequence, e.Node, e.Status.String()).Inc()
			if e.Kind == domain.KindStep {
				return
			}
			if e.Status != domain.StatusStarted {
				return
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.started[e.RunID]; !ok {
				m.active.Inc()
			}
			m.started[e.RunID] = e.Timestamp
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.Sequence, e.From, e.To).Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.runsEnded.WithLabelValues(e.Sequence, string(e.Reason)).Inc()

			m.mu.Lock()
			defer m.mu.Unlock()
			at, ok := m.started[e.RunID]
			if !ok {
				return
			}
			delete(m.started, e.RunID)
			m.active.Dec()
			if e.Reason != domain.ReasonReset && e.Reason != domain.ReasonRestarted {
				m.duration.WithLabelValues(e.Sequence).Observe(e.Timestamp.Sub(at).Seconds())
			}
		},
	}
}
