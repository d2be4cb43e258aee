// Package promadapter implements obsmetrics.Metrics on top of
// github.com/prometheus/client_golang.
package promadapter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yhgu2000/strandhttp/internal/obsmetrics"
)

// Adapter exports the toolkit's measurements as Prometheus collectors.
// Safe for concurrent use; every Prometheus metric type is goroutine-safe.
type Adapter struct {
	acceptTotal       prometheus.Counter
	connectionsActive prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	poolSize          *prometheus.GaugeVec
	retryTotal        *prometheus.CounterVec
}

// New constructs an Adapter and registers its collectors with reg. A nil
// reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, ns, sub string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		acceptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "accept_total", Help: "Accepted connections.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "connections_active", Help: "Currently open connections.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "requests_total", Help: "Handled requests by status code.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name: "request_duration_seconds", Help: "Request handling latency.",
			Buckets: prometheus.DefBuckets,
		}),
		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "pool_size", Help: "Current pool occupancy by pool name.",
		}, []string{"pool"}),
		retryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "retry_total", Help: "Client retries by failed step.",
		}, []string{"step"}),
	}
	reg.MustRegister(
		a.acceptTotal, a.connectionsActive, a.requestsTotal,
		a.requestDuration, a.poolSize, a.retryTotal,
	)
	return a
}

func (a *Adapter) AcceptTotal() { a.acceptTotal.Inc() }

func (a *Adapter) ConnectionsActive(delta int) { a.connectionsActive.Add(float64(delta)) }

func (a *Adapter) RequestsTotal(status int) {
	a.requestsTotal.WithLabelValues(statusLabel(status)).Inc()
}

func (a *Adapter) RequestDuration(seconds float64) { a.requestDuration.Observe(seconds) }

func (a *Adapter) PoolSize(name string, count int) {
	a.poolSize.WithLabelValues(name).Set(float64(count))
}

func (a *Adapter) RetryTotal(step string) { a.retryTotal.WithLabelValues(step).Inc() }

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

var _ obsmetrics.Metrics = (*Adapter)(nil)
