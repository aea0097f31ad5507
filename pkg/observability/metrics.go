package observability

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what previews do.
type Metrics struct {
	NodeVisits *prometheus.CounterVec
	Suspends   prometheus.Counter
	Replies    prometheus.Counter
	Terminals  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatflow_node_visits_total",
				Help: "Total number of nodes reached by previews, by node kind",
			},
			[]string{"kind"},
		),
		Suspends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatflow_suspends_total",
			Help: "Total number of times a preview waited for a reply",
		}),
		Replies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatflow_replies_total",
			Help: "Total number of replies submitted to previews",
		}),
		Terminals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatflow_terminal_runs_total",
			Help: "Total number of previews that reached the end of their flow",
		}),
	}

	for _, c := range []prometheus.Collector{m.NodeVisits, m.Suspends, m.Replies, m.Terminals} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.Kind)).Inc()
		},
		OnSuspend: func(context.Context, *domain.NodeEvent) {
			m.Suspends.Inc()
		},
		OnReply: func(context.Context, *domain.NodeEvent) {
			m.Replies.Inc()
		},
		OnTerminal: func(context.Context, string, string) {
			m.Terminals.Inc()
		},
	}
}
