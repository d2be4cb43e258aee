package httpx

import (
	"strconv"
	"strings"
	"time"
)

// keepAliveDefault reports whether proto defaults to a persistent
// connection absent any Connection header: true for HTTP/1.1 and later,
// false for HTTP/1.0 and earlier.
func keepAliveDefault(proto string) bool {
	return proto != "HTTP/1.0"
}

// connectionKeepAlive applies proto's default persistence and the
// Connection header's override (explicit "close" or "keep-alive") to
// decide whether the connection the message arrived on should stay
// open.
func connectionKeepAlive(proto string, header Header) bool {
	v := strings.ToLower(strings.TrimSpace(header.Get("Connection")))
	switch v {
	case "close":
		return false
	case "keep-alive":
		return true
	default:
		return keepAliveDefault(proto)
	}
}

// KeepAlive reports whether the client that sent r asked to keep the
// connection open: true for HTTP/1.1 unless Connection: close is
// present, false for HTTP/1.0 unless Connection: keep-alive is present.
func (r *Request) KeepAlive() bool {
	return connectionKeepAlive(r.Proto, r.Header)
}

// KeepAlive reports whether the server that sent r asked to keep the
// connection open, using the same Connection-header rules as Request.
func (r *Response) KeepAlive() bool {
	return connectionKeepAlive(r.Proto, r.Header)
}

// KeepAliveTimeout parses the "timeout=<seconds>" parameter of r's
// Keep-Alive header, if present. ok is false if the header is absent or
// carries no timeout parameter, in which case the caller should fall
// back to its own configured default.
func (r *Response) KeepAliveTimeout() (d time.Duration, ok bool) {
	secs, found := keepAliveParam(r.Header, "timeout")
	if !found {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// KeepAliveMax parses the "max=<requests>" parameter of r's Keep-Alive
// header: how many further requests the server is willing to serve on
// this connection. ok is false if the header is absent or carries no
// max parameter.
func (r *Response) KeepAliveMax() (n uint32, ok bool) {
	v, found := keepAliveParam(r.Header, "max")
	if !found || v < 0 {
		return 0, false
	}
	return uint32(v), true
}

// keepAliveParam finds param (case-insensitive) among the Keep-Alive
// header's comma-separated key=value parameters.
func keepAliveParam(header Header, param string) (v int, ok bool) {
	for _, part := range strings.Split(header.Get("Keep-Alive"), ",") {
		k, val, found := strings.Cut(part, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(k), param) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
