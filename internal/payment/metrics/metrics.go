package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment module.
type Metrics struct {
	Initiated         prometheus.Counter
	Verified          prometheus.Counter
	Failed            prometheus.Counter
	AmountMismatches  prometheus.Counter
	ReconcileDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Initiated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_payments_initiated_total",
			Help: "Total number of payment attempts initiated",
		}),
		Verified: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_payments_verified_total",
			Help: "Total number of payment attempts verified as settled",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_payments_failed_total",
			Help: "Total number of payment attempts that ended failed",
		}),
		AmountMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "ovation_payment_amount_mismatches_total",
			Help: "Total number of attempts failed because the settled amount disagreed with the snapshot",
		}),
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ovation_payment_reconcile_duration_seconds",
			Help:    "Duration of payment reconciliations including the gateway verify call",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) ObserveReconcile(start time.Time) {
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}
