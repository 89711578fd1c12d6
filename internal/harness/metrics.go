package harness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts executions by outcome.
type Metrics struct {
	Executions *prometheus.CounterVec
	RowsRead   prometheus.Counter
}

// NewMetrics creates the harness counters and registers them with reg.
// A nil reg leaves them unregistered, which keeps parallel tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "querypipe",
			Subsystem: "harness",
			Name:      "executions_total",
			Help:      "Query executions by classification outcome.",
		}, []string{"outcome"}),
		RowsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "querypipe",
			Subsystem: "harness",
			Name:      "rows_drained_total",
			Help:      "Rows drained from passing executions.",
		}),
	}
}

func (m *Metrics) observe(res Result) {
	m.Executions.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == OutcomePassed {
		m.RowsRead.Add(float64(res.Rows))
	}
}
