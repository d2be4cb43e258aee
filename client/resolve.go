package client

import (
	"context"
	"net"

	"github.com/yhgu2000/strandhttp/client/internal/coalesce"
)

// resolveGroup coalesces concurrent resolutions of the same host:port
// across every Client in the process, mirroring the effect of the
// original resolver being created once per connection but trading the
// per-connection resolver object for a process-wide cache of in-flight
// lookups keyed by address.
var resolveGroup coalesce.Group[string, *net.TCPAddr]

func resolveTCPAddr(ctx context.Context, host, port string) (*net.TCPAddr, error) {
	key := net.JoinHostPort(host, port)
	return resolveGroup.Do(ctx, key, func() (*net.TCPAddr, error) {
		return net.ResolveTCPAddr("tcp", key)
	})
}
