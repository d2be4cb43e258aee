// Package server implements the accept loop and per-connection state
// machine of an HTTP/1.1 server: reading a request, dispatching it to a
// handler.Handler, writing the response, and either reading the next
// request on the same connection (keep-alive) or closing it.
//
// Grounded on original_source/lib/MyHttp/Server.hpp and its do_accept/
// on_accept callback pair: each accepted connection gets its own
// executor.Strand so that connection is always processed by at most one
// goroutine at a time, mirroring the original's make_strand(mEx) per
// socket. That strand is a NewDedicatedStrand, not one sharing the
// server's fixed-size Executor: a connection's read/handle/write/
// keep-alive loop runs as ordinary blocking calls for as long as the
// connection stays alive, and pinning one of the Executor's N workers for
// that whole lifetime would let the (N+1)th concurrent keep-alive
// connection starve behind it. A dedicated strand's private goroutine
// costs little in Go and is released the moment the connection closes.
package server

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/internal/obslog"
	"github.com/yhgu2000/strandhttp/internal/obsmetrics"
	"github.com/yhgu2000/strandhttp/server/handler"
)

// Server listens on one address and dispatches accepted connections to a
// Handler. The zero value is not usable; construct with New.
type Server struct {
	Config  Config
	Handler handler.Handler
	Exec    *executor.Executor
	Log     *obslog.Logger
	Metrics obsmetrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	work     *executor.Work
}

// New constructs a Server. log and metrics may be nil, in which case
// no-op implementations are used.
func New(exec *executor.Executor, h handler.Handler, cfg Config, log *obslog.Logger, metrics obsmetrics.Metrics) *Server {
	if log == nil {
		log = obslog.Nop()
	}
	if metrics == nil {
		metrics = obsmetrics.NopMetrics{}
	}
	return &Server{Config: cfg, Handler: h, Exec: exec, Log: log, Metrics: metrics}
}

// Start opens a listener on addr and begins accepting connections.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server: already started")
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.Log.Info("listen failed", zap.Error(err))
		return err
	}
	s.listener = lis
	s.work = s.Exec.StartWork()
	s.Log.Noti("started", zap.String("addr", lis.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits for the accept loop to exit. It does
// not touch connections already accepted: each keeps serving requests,
// keep-alive ones included, until it closes on its own (peer close, read
// timeout, KeepAliveMax, or an error).
func (s *Server) Stop() error {
	s.mu.Lock()
	lis := s.listener
	s.listener = nil
	s.mu.Unlock()

	if lis == nil {
		return nil
	}
	err := lis.Close()
	s.wg.Wait()
	s.Log.Noti("stopped")
	return err
}

// Addr returns the listener's bound address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer s.work.Release()

	for {
		raw, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.Log.Info("accept failed", zap.Error(err))
			return
		}

		s.Metrics.AcceptTotal()
		s.Log.Verb("accepted", zap.String("remote", raw.RemoteAddr().String()))

		strand := executor.NewDedicatedStrand()
		c := newConn(raw, s, strand)
		strand.Post(c.start)
	}
}
