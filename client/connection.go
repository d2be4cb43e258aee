package client

import (
	"bufio"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yhgu2000/strandhttp/internal/obslog"
)

// connection is one pooled TCP connection to a Client's configured
// endpoint. Grounded on original_source/lib/MyHttp/Client.hpp's
// Connection (a My::Pooled<Connection> wrapping a resolver, a timer and a
// socket); the resolver is not cached here (see resolve.go for the
// coalescing that replaces it), and the timer is realized as a plain
// deadline checked at take-time rather than a scheduled callback, since
// the pool is only ever drained synchronously from Http/AsyncHttp.
type connection struct {
	id  string
	raw *net.TCPConn
	br  *bufio.Reader
	bw  *bufio.Writer

	// idleSince is when this connection was last given back to the pool.
	// A connection idle longer than idleTimeout is dropped instead of
	// reused.
	idleSince time.Time

	// idleTimeout is the server's negotiated Keep-Alive timeout for this
	// connection, parsed from the last response's Keep-Alive header; it
	// falls back to Config.KeepAliveTimeout when the server didn't send
	// one.
	idleTimeout time.Duration
}

func newConnection(raw *net.TCPConn) *connection {
	return &connection{
		id:  uuid.NewString(),
		raw: raw,
		br:  bufio.NewReader(raw),
		bw:  bufio.NewWriter(raw),
	}
}

func (c *connection) expired() bool {
	return time.Since(c.idleSince) > c.idleTimeout
}

// close drops the connection abruptly, with no attempt at a clean
// TCP shutdown: appropriate when the connection is already known to be in
// a bad state (a failed write or read, an expired idle timer whose peer
// may have already closed its side) per spec's keep-alive-expiry policy.
func (c *connection) close() error {
	return c.raw.Close()
}

// closeGraceful half-closes both directions before closing, per the
// client's graceful-shutdown policy for a connection the peer declared it
// will not keep alive: shutdown errors are logged at notice but not
// returned, since the following Close finishes the job regardless.
func (c *connection) closeGraceful(log *obslog.Logger) {
	if err := c.raw.CloseWrite(); err != nil {
		log.Noti("graceful shutdown: write half-close failed", zap.String("conn", c.id), zap.Error(err))
	}
	if err := c.raw.CloseRead(); err != nil {
		log.Noti("graceful shutdown: read half-close failed", zap.String("conn", c.id), zap.Error(err))
	}
	if err := c.raw.Close(); err != nil {
		log.Noti("graceful shutdown: close failed", zap.String("conn", c.id), zap.Error(err))
	}
}
