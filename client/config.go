package client

import "time"

// Config configures one Client's target endpoint and connection policy.
type Config struct {
	// Host and Port name the target server.
	Host string
	Port string

	// BufferLimit bounds the response header-plus-body section read back
	// for any single request, in bytes.
	BufferLimit int

	// DialTimeout bounds the TCP connect of a fresh connection and the
	// write of each request; a connect or write that exceeds it is a
	// failure subject to retry. Address resolution is not bounded by it.
	DialTimeout time.Duration

	// MaxRetry is how many times a failed connect (address resolution
	// included) or write may be retried, each time on another connection
	// (an idle pooled one if any, else a newly dialed one), before the
	// request is reported as failed. A
	// failed read is never retried: the request may already have taken
	// effect on the server.
	MaxRetry uint32

	// KeepAliveTimeout is how long an idle pooled connection may sit
	// unused before it is dropped rather than reused.
	KeepAliveTimeout time.Duration
}

// DefaultConfig returns baseline client settings for host:port.
func DefaultConfig(host, port string) Config {
	return Config{
		Host:             host,
		Port:             port,
		BufferLimit:      8 << 10,
		DialTimeout:      3 * time.Second,
		MaxRetry:         1,
		KeepAliveTimeout: 3 * time.Second,
	}
}
