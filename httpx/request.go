package httpx

import "context"

// Request is an HTTP/1.1 request value: method, request-target, version,
// headers and a byte-vector body. Unlike net/http, Body is not a stream —
// the request/handler state machines read the whole body before handing a
// Request to a handler, so its body is owned exclusively by whichever
// state currently holds the value (see the server and client packages).
type Request struct {
	Method  string
	Target  string // request-URI, e.g. "/path?query"
	Proto   string // "HTTP/1.1"
	Header  Header
	Body    []byte
	Host    string

	// RequestID identifies this request for logging/metrics correlation.
	RequestID string

	ctx context.Context
}

// Context returns the request's context, or context.Background if none
// was attached.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}
