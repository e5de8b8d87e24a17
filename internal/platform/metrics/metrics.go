package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides HTTP-level observability shared across module routers.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates the platform metrics, registered with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ovation_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "status"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ovation_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "status"}),
	}
}

// ObserveRequest records one finished request. Call with time.Now() captured
// at the start of the request.
func (m *Metrics) ObserveRequest(method string, status int, start time.Time) {
	code := strconv.Itoa(status)
	m.RequestDuration.WithLabelValues(method, code).Observe(time.Since(start).Seconds())
	m.RequestsTotal.WithLabelValues(method, code).Inc()
}
