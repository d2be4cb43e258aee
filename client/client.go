// Package client implements a connection-pooling HTTP/1.1 client: a
// blocking Http call safe for concurrent use, and an AsyncHttp wrapper
// that runs it on a goroutine of its own, counted as outstanding work on
// an executor.Executor, and reports the result through a callback.
//
// Grounded on original_source/lib/MyHttp/Client.hpp/.cpp's
// _Client<AsyncHttp> continuation chain (do_request/on_resolve/
// on_connect/on_write/on_read) and its connection-pool give/take-on-
// completion policy. As in server, the CPS chain for socket I/O is
// collapsed into ordinary blocking calls: Go's cheap goroutines make
// running a blocking Http call on its own goroutine, as AsyncHttp does,
// equivalent in effect to chaining async_resolve/async_connect/
// async_write/async_read callbacks, without the extra state machine.
package client

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/httpx"
	"github.com/yhgu2000/strandhttp/internal/http1"
	"github.com/yhgu2000/strandhttp/internal/obslog"
	"github.com/yhgu2000/strandhttp/internal/obsmetrics"
	"github.com/yhgu2000/strandhttp/pool"
	"github.com/yhgu2000/strandhttp/timing"
)

// Client sends requests to one configured endpoint, reusing TCP
// connections across requests via an internal pool. The zero value is
// not usable; construct with New.
type Client struct {
	Config  Config
	Exec    *executor.Executor
	Log     *obslog.Logger
	Metrics obsmetrics.Metrics

	pool *pool.Pool[*connection]
}

// New constructs a Client. log and metrics may be nil, in which case
// no-op implementations are used.
func New(exec *executor.Executor, cfg Config, log *obslog.Logger, metrics obsmetrics.Metrics) *Client {
	if log == nil {
		log = obslog.Nop()
	}
	if metrics == nil {
		metrics = obsmetrics.NopMetrics{}
	}
	return &Client{
		Config:  cfg,
		Exec:    exec,
		Log:     log,
		Metrics: metrics,
		pool:    pool.New[*connection](),
	}
}

// ClearConnections drops every pooled connection, closing each one.
func (c *Client) ClearConnections() {
	for {
		node := c.pool.Take()
		if node == nil {
			return
		}
		_ = node.Value().close()
	}
}

// Http sends req and blocks for the response. Safe for concurrent use by
// multiple goroutines. A failed connect (address resolution included) or
// write is retried, on another connection (an idle pooled one if any,
// else a newly dialed one), up to Config.MaxRetry times; a failed read is never
// retried, since the request may already have taken effect on the
// server.
func (c *Client) Http(ctx context.Context, req *httpx.Request) (*httpx.Response, error) {
	timing.Mark("client.http")
	var retry uint32
	for {
		conn, err := c.takeConnection(ctx)
		if err != nil {
			if retry < c.Config.MaxRetry {
				retry++
				c.Metrics.RetryTotal("connect")
				c.Log.Info("connect failed, retrying", zap.Error(err), zap.Uint32("retry", retry))
				continue
			}
			c.Log.Warn("connect failed", zap.Error(err))
			return nil, err
		}

		if err := c.writeRequest(conn, req); err != nil {
			_ = conn.close()
			if retry < c.Config.MaxRetry {
				retry++
				c.Metrics.RetryTotal("write")
				c.Log.Info("write failed, retrying", zap.String("conn", conn.id), zap.Error(err), zap.Uint32("retry", retry))
				continue
			}
			c.Log.Warn("write failed", zap.String("conn", conn.id), zap.Error(err))
			return nil, err
		}

		resp, err := c.readResponse(conn)
		if err != nil {
			_ = conn.close()
			c.Log.Warn("read failed", zap.String("conn", conn.id), zap.Error(err))
			return nil, err
		}

		c.giveBack(conn, resp)
		return resp, nil
	}
}

// AsyncHttp runs req on a goroutine of its own and invokes cb with the
// result once it completes. Safe for concurrent use.
//
// The request runs on its own goroutine rather than on one of c.Exec's
// fixed workers because Http blocks for the request's full
// resolve/connect/write/read duration: pinning a bounded worker for that
// long would let a burst of concurrent AsyncHttp calls queue up behind
// each other instead of overlapping at I/O suspension points, the same
// starvation server.Server avoids with a dedicated per-connection strand.
// c.Exec still tracks the request as outstanding work, so
// executor.Executor.Wait observes it.
func (c *Client) AsyncHttp(req *httpx.Request, cb func(resp *httpx.Response, err error)) {
	work := c.Exec.StartWork()
	go func() {
		defer work.Release()
		resp, err := c.Http(req.Context(), req)
		cb(resp, err)
	}()
}

func (c *Client) takeConnection(ctx context.Context) (*connection, error) {
	for {
		node := c.pool.Take()
		if node == nil {
			return c.dial(ctx)
		}
		conn := node.Value()
		if conn.expired() {
			_ = conn.close()
			continue
		}
		return conn, nil
	}
}

func (c *Client) dial(ctx context.Context) (*connection, error) {
	addr, err := resolveTCPAddr(ctx, c.Config.Host, c.Config.Port)
	if err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, c.Config.DialTimeout)
	defer cancel()
	raw, err := (&net.Dialer{}).DialContext(dctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}
	return newConnection(raw.(*net.TCPConn)), nil
}

func (c *Client) writeRequest(conn *connection, req *httpx.Request) error {
	if req.Header == nil {
		req.Header = httpx.Header{}
	}
	if req.Header.Get("Host") == "" {
		host := req.Host
		if host == "" {
			host = c.Config.Host
		}
		req.Header.Set("Host", host)
	}
	_ = conn.raw.SetWriteDeadline(time.Now().Add(c.Config.DialTimeout))
	return http1.WriteRequest(conn.bw, req.Method, req.Target, req.Header, req.Body)
}

func (c *Client) readResponse(conn *connection) (*httpx.Response, error) {
	_ = conn.raw.SetReadDeadline(time.Now().Add(c.Config.KeepAliveTimeout))
	r := &http1.Reader{BR: conn.br, MaxBytes: c.Config.BufferLimit}
	parsed, err := r.ReadResponse()
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: parsed.StatusCode,
		Proto:      parsed.Proto,
		Header:     httpx.Header(parsed.Header),
		Body:       parsed.Body,
	}, nil
}

// giveBack returns conn to the pool if resp asked to keep the
// connection alive, using resp's Keep-Alive: timeout=<seconds> and
// max=<requests> when present and Config.KeepAliveTimeout otherwise;
// closes conn instead if the server declared it has no requests left to
// serve on this connection (max=0).
func (c *Client) giveBack(conn *connection, resp *httpx.Response) {
	if !resp.KeepAlive() {
		conn.closeGraceful(c.Log)
		return
	}
	if max, ok := resp.KeepAliveMax(); ok && max == 0 {
		conn.closeGraceful(c.Log)
		return
	}
	timeout, ok := resp.KeepAliveTimeout()
	if !ok {
		timeout = c.Config.KeepAliveTimeout
	}
	conn.idleTimeout = timeout
	conn.idleSince = time.Now()
	c.pool.Give(pool.NewNode(conn))
}
