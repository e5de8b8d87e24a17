package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	Created        prometheus.Counter
	Committed      prometheus.Counter
	Cancelled      prometheus.Counter
	CommitDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_registrations_created_total",
			Help: "Total number of registration drafts created",
		}),
		Committed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_registrations_committed_total",
			Help: "Total number of registrations committed at review",
		}),
		Cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_registrations_cancelled_total",
			Help: "Total number of registrations cancelled before payment",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ovation_registration_commit_duration_seconds",
			Help:    "Duration of registration commits at the review step",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) ObserveCommit(start time.Time) {
	m.CommitDuration.Observe(time.Since(start).Seconds())
}
