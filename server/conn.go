package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/httpx"
	"github.com/yhgu2000/strandhttp/internal/http1"
	"github.com/yhgu2000/strandhttp/internal/obslog"
	"github.com/yhgu2000/strandhttp/timing"
)

// conn drives one accepted connection through the reading, handling,
// writing and closing states described by the handler state machine.
// Every method here runs on c.strand — a dedicated strand with its own
// private goroutine, not one of the server's fixed Executor workers, so a
// connection waiting out its keep-alive timeout never occupies a worker
// another connection needs — so no two steps for the same connection ever
// execute concurrently.
type conn struct {
	raw    net.Conn
	server *Server
	strand *executor.Strand
	br     *bufio.Reader
	bw     *bufio.Writer
	log    *obslog.Logger

	keepAliveCount uint32
	reqKeepAlive   bool
	begin          time.Time
	handleBegin    time.Time
}

func newConn(raw net.Conn, s *Server, strand *executor.Strand) *conn {
	return &conn{
		raw:    raw,
		server: s,
		strand: strand,
		br:     bufio.NewReader(raw),
		bw:     bufio.NewWriter(raw),
		log:    s.Log.With(uuid.NewString()),
		begin:  time.Now(),
	}
}

func (c *conn) start() {
	timing.Mark("conn.start")
	c.log.Verb("start", zap.String("remote", c.raw.RemoteAddr().String()))
	c.server.Metrics.ConnectionsActive(1)
	c.doRead()
}

func (c *conn) doRead() {
	timing.Mark("conn.read")
	timeout := time.Duration(c.server.Config.KeepAliveTimeout) * time.Second
	_ = c.raw.SetReadDeadline(time.Now().Add(timeout))

	r := &http1.Reader{BR: c.br, MaxBytes: c.server.Config.BufferLimit}
	parsed, err := r.ReadRequest()
	if err != nil {
		c.onReadError(err)
		return
	}

	hdr := httpx.Header(parsed.Header)
	req := &httpx.Request{
		Method:    parsed.Method,
		Target:    parsed.Target,
		Proto:     parsed.Proto,
		Header:    hdr,
		Body:      parsed.Body,
		Host:      hdr.Get("Host"),
		RequestID: httpx.NewID(),
	}
	c.reqKeepAlive = req.KeepAlive()
	c.handleBegin = time.Now()
	c.doHandle(req)
}

func (c *conn) onReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.doClose("eof")
	case errors.As(err, &netErr) && netErr.Timeout():
		c.log.Verb("read timeout")
		c.doClose("timeout")
	case errors.Is(err, http1.ErrHeaderTooLarge), errors.Is(err, http1.ErrBodyTooLarge):
		c.writeErrorAndClose(413, err)
	case errors.Is(err, http1.ErrMalformed):
		c.writeErrorAndClose(400, err)
	default:
		c.log.Warn("read failed", zap.Error(err))
		c.doClose("read-error")
	}
}

func (c *conn) doHandle(req *httpx.Request) {
	timing.Mark("conn.handle")
	var called atomic.Bool
	onHandle := func(resp *httpx.Response, err error) {
		if !called.CompareAndSwap(false, true) {
			doubleHandleDetected("on_handle called more than once for " + req.RequestID)
			return
		}
		c.onHandled(req, resp, err)
	}

	defer func() {
		if r := recover(); r != nil {
			if called.CompareAndSwap(false, true) {
				c.onHandled(req, nil, fmt.Errorf("handler panic: %v", r))
			}
		}
	}()
	c.server.Handler.DoHandle(req, onHandle)
}

func (c *conn) onHandled(req *httpx.Request, resp *httpx.Response, err error) {
	if err != nil || resp == nil {
		msg := "handler returned no response"
		if err != nil {
			msg = err.Error()
		}
		c.log.Verb("handler error", zap.String("error", msg))
		resp = &httpx.Response{StatusCode: 500, Header: httpx.Header{}, Body: []byte(msg)}
	}

	elapsed := time.Since(c.handleBegin)
	c.server.Metrics.RequestsTotal(resp.StatusCode)
	c.server.Metrics.RequestDuration(elapsed.Seconds())
	c.log.Info("handled",
		zap.String("method", req.Method),
		zap.String("target", req.Target),
		zap.Uint32("keep_alive_count", c.keepAliveCount),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	c.doWrite(resp)
}

func (c *conn) doWrite(resp *httpx.Response) {
	timing.Mark("conn.write")
	if resp.Header == nil {
		resp.Header = httpx.Header{}
	}
	keepAlive := c.reqKeepAlive && c.keepAliveCount < c.server.Config.KeepAliveMax
	if keepAlive {
		resp.Header.Set("Keep-Alive", fmt.Sprintf("timeout=%d, max=%d", c.server.Config.KeepAliveTimeout, c.server.Config.KeepAliveMax))
	}
	resp.Header.Set("Server", "strandhttpd")
	resp.Finalize()

	_ = c.raw.SetWriteDeadline(time.Time{})
	if err := http1.WriteResponse(c.bw, resp.StatusCode, resp.StatusText(), resp.Header, resp.Body, keepAlive); err != nil {
		c.log.Warn("write failed", zap.Error(err))
		c.doClose("write-error")
		return
	}

	if !keepAlive {
		c.doClose("finished")
		return
	}
	c.keepAliveCount++
	c.doRead()
}

func (c *conn) writeErrorAndClose(status int, err error) {
	resp := &httpx.Response{StatusCode: status, Header: httpx.Header{}, Body: []byte(err.Error())}
	resp.Finalize()
	_ = http1.WriteResponse(c.bw, resp.StatusCode, resp.StatusText(), resp.Header, resp.Body, false)
	c.doClose("protocol-error")
}

func (c *conn) doClose(reason string) {
	timing.Mark("conn.close")
	c.server.Metrics.ConnectionsActive(-1)
	_ = c.raw.Close()
	c.log.Verb("done", zap.String("reason", reason), zap.Duration("lifetime", time.Since(c.begin)))
	c.strand.Close()
}
