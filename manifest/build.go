package manifest

import (
	"fmt"
	"net"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/internal/obslog"
	"github.com/yhgu2000/strandhttp/internal/obsmetrics"
	"github.com/yhgu2000/strandhttp/server"
	"github.com/yhgu2000/strandhttp/server/handler"
)

// Build constructs one server.Server per manifest entry, wired to the
// shared exec/log/metrics, but does not start any of them.
func (m Manifest) Build(exec *executor.Executor, log *obslog.Logger, metrics obsmetrics.Metrics) (map[string]*server.Server, error) {
	out := make(map[string]*server.Server, len(m))
	for name, cfg := range m {
		h, err := newHandler(cfg.Type)
		if err != nil {
			return nil, fmt.Errorf("manifest: server %q: %w", name, err)
		}

		scfg := server.DefaultConfig()
		scfg.BufferLimit = int(cfg.Details.BufferLimit)
		scfg.KeepAliveTimeout = uint32(cfg.Details.KeepAliveTimeout)
		if cfg.Details.KeepAliveMax == nil {
			scfg.KeepAliveMax = server.KeepAliveUnbounded
		} else {
			scfg.KeepAliveMax = uint32(*cfg.Details.KeepAliveMax)
		}
		if cfg.Backlog > 0 {
			scfg.Backlog = cfg.Backlog
		}

		var childLog *obslog.Logger
		if log != nil {
			childLog = log.With(name)
		}
		out[name] = server.New(exec, h, scfg, childLog, metrics)
	}
	return out, nil
}

func newHandler(typ string) (handler.Handler, error) {
	switch typ {
	case "helloworld":
		return handler.HelloWorld{}, nil
	case "matrixpower":
		return handler.MatrixPower{}, nil
	default:
		return nil, fmt.Errorf("unknown handler type %q", typ)
	}
}

// Endpoint formats the listen address for a ServerConfig.
func (cfg ServerConfig) Endpoint() string {
	return net.JoinHostPort(cfg.Host, fmt.Sprint(uint16(cfg.Port)))
}
