package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the nomination module.
type Metrics struct {
	Created        prometheus.Counter
	Submitted      prometheus.Counter
	CommitDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_nominations_created_total",
			Help: "Total number of nomination drafts created",
		}),
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_nominations_submitted_total",
			Help: "Total number of nominations committed to submitted",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ovation_nomination_commit_duration_seconds",
			Help:    "Duration of nomination commits (create-or-update plus status flip)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCommit records the duration of a commit. Call with time.Now()
// captured at the start of the operation.
func (m *Metrics) ObserveCommit(start time.Time) {
	m.CommitDuration.Observe(time.Since(start).Seconds())
}
