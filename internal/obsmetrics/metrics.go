// Package obsmetrics defines the small set of measurements the server and
// client packages emit, independent of any particular backend. PoolSize
// has no caller in this module.
// The default is NopMetrics; internal/obsmetrics/promadapter supplies a
// Prometheus-backed implementation.
package obsmetrics

// Metrics is implemented by whatever backend a Server or Client is
// configured with.
type Metrics interface {
	// AcceptTotal counts one accepted connection.
	AcceptTotal()
	// ConnectionsActive adjusts the live-connection gauge by delta (+1
	// when the server starts serving an accepted connection, -1 when it
	// closes it); the client does not report its connections.
	ConnectionsActive(delta int)
	// RequestsTotal counts one handled request, labeled by the response
	// status code.
	RequestsTotal(status int)
	// RequestDuration observes the wall-clock time a request spent in
	// the handler, from request-read-complete to response-write-start.
	RequestDuration(seconds float64)
	// PoolSize reports the current count of a named pool (e.g. the
	// client's keep-alive connection pool).
	PoolSize(name string, count int)
	// RetryTotal counts one client-side retry, labeled by the step that
	// failed: "connect" (a failed address resolution included) or "write".
	RetryTotal(step string)
}

// NopMetrics discards every measurement. Safe for concurrent use.
type NopMetrics struct{}

func (NopMetrics) AcceptTotal()                    {}
func (NopMetrics) ConnectionsActive(delta int)      {}
func (NopMetrics) RequestsTotal(status int)         {}
func (NopMetrics) RequestDuration(seconds float64)  {}
func (NopMetrics) PoolSize(name string, count int)  {}
func (NopMetrics) RetryTotal(step string)           {}

var _ Metrics = NopMetrics{}
