package server

import "math"

// KeepAliveUnbounded marks Config.KeepAliveMax as having no cap on the
// number of requests served per connection.
const KeepAliveUnbounded = math.MaxUint32

// Config configures one Server's connection handling. Immutable once a
// Server has started.
type Config struct {
	// BufferLimit bounds, in bytes, the request line on its own and the
	// header section plus body of any single request.
	BufferLimit int
	// KeepAliveTimeout is how long an idle connection may wait for the
	// next request before the server closes it, in seconds.
	KeepAliveTimeout uint32
	// KeepAliveMax is the number of responses on one connection that may
	// declare keep-alive; the response after them carries Connection:
	// close and the server then closes the connection, so a connection
	// serves at most KeepAliveMax+1 requests even when every request asks
	// for keep-alive. KeepAliveUnbounded means no cap.
	KeepAliveMax uint32
	// Backlog records the listen backlog, but Start does not apply it:
	// the listener is opened with net.Listen, which uses the operating
	// system's default backlog.
	Backlog int
}

// DefaultConfig returns the toolkit's baseline configuration.
func DefaultConfig() Config {
	return Config{
		BufferLimit:      8 << 10,
		KeepAliveTimeout: 3,
		KeepAliveMax:     KeepAliveUnbounded,
		Backlog:          128,
	}
}
