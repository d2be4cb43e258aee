package server

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"testing"
	"time"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/httpx"
	"github.com/yhgu2000/strandhttp/server/handler"
)

func startTestServer(t *testing.T, h handler.Handler, cfg Config) (*Server, net.Addr) {
	t.Helper()
	exec := executor.New(4, 16, nil)
	exec.Start(4)
	t.Cleanup(exec.Stop)

	s := New(exec, h, cfg, nil, nil)
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s, s.Addr()
}

func rawRequest(t *testing.T, addr net.Addr, req string) (conn net.Conn, rd *textproto.Reader) {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := c.Write([]byte(req)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return c, textproto.NewReader(bufio.NewReader(c))
}

func readStatusLine(t *testing.T, rd *textproto.Reader) string {
	t.Helper()
	line, err := rd.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	return line
}

// readBody consumes the Content-Length body that follows hdr, so the next
// response on the same connection can be read.
func readBody(t *testing.T, rd *textproto.Reader, hdr textproto.MIMEHeader) {
	t.Helper()
	n, err := strconv.Atoi(hdr.Get("Content-Length"))
	if err != nil {
		t.Fatalf("Content-Length: %v", err)
	}
	if _, err := io.ReadFull(rd.R, make([]byte, n)); err != nil {
		t.Fatalf("reading body: %v", err)
	}
}

func TestServer_HelloWorldRespondsOK(t *testing.T) {
	_, addr := startTestServer(t, handler.HelloWorld{}, DefaultConfig())

	c, rd := rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	defer c.Close()

	status := readStatusLine(t, rd)
	if status != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", status)
	}
}

func TestServer_KeepAliveReusesConnectionAcrossRequests(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveMax = 5
	_, addr := startTestServer(t, handler.HelloWorld{}, cfg)

	c, rd := rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("first status = %q", s)
	}
	firstHdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("first ReadMIMEHeader: %v", err)
	}
	readBody(t, rd, firstHdr)

	if _, err := c.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("second status = %q", s)
	}
	hdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("ReadMIMEHeader: %v", err)
	}
	if hdr.Get("Connection") != "close" {
		t.Fatalf("expected Connection: close once the request asked for it, got %q", hdr.Get("Connection"))
	}
}

func TestServer_RequestConnectionCloseIsHonoredEvenUnderKeepAliveMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveMax = 100
	_, addr := startTestServer(t, handler.HelloWorld{}, cfg)

	c, rd := rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", s)
	}
	hdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("ReadMIMEHeader: %v", err)
	}
	if hdr.Get("Connection") != "close" {
		t.Fatalf("a request sending Connection: close must get Connection: close back, got %q", hdr.Get("Connection"))
	}
}

func TestServer_HTTP10WithoutKeepAliveHeaderIsClosed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveMax = 100
	_, addr := startTestServer(t, handler.HelloWorld{}, cfg)

	c, rd := rawRequest(t, addr, "GET / HTTP/1.0\r\nHost: x\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", s)
	}
	hdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("ReadMIMEHeader: %v", err)
	}
	if hdr.Get("Connection") != "close" {
		t.Fatalf("an HTTP/1.0 request without Connection: keep-alive must get Connection: close back, got %q", hdr.Get("Connection"))
	}
}

func TestServer_KeepAliveMaxClosesAfterLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveMax = 1
	_, addr := startTestServer(t, handler.HelloWorld{}, cfg)

	c, rd := rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	defer c.Close()

	// KeepAliveMax counts the responses that may keep the connection open,
	// so with a limit of 1 the first response keeps it and the second
	// closes it.
	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("first status = %q", s)
	}
	firstHdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("first ReadMIMEHeader: %v", err)
	}
	if firstHdr.Get("Connection") != "keep-alive" {
		t.Fatalf("expected Connection: keep-alive below KeepAliveMax, got %q", firstHdr.Get("Connection"))
	}
	readBody(t, rd, firstHdr)

	if _, err := c.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("second status = %q", s)
	}
	hdr, err := rd.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("ReadMIMEHeader: %v", err)
	}
	if hdr.Get("Connection") != "close" {
		t.Fatalf("expected Connection: close once KeepAliveMax is reached, got %q", hdr.Get("Connection"))
	}
}

func TestServer_MalformedRequestReturns400(t *testing.T) {
	_, addr := startTestServer(t, handler.HelloWorld{}, DefaultConfig())

	c, rd := rawRequest(t, addr, "NOT A REQUEST LINE\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 400 Bad Request" {
		t.Fatalf("status = %q", s)
	}
}

func TestServer_HandlerPanicReturns500(t *testing.T) {
	panicky := handler.Func(func(req *httpx.Request, onHandle func(*httpx.Response, error)) {
		panic("boom")
	})
	_, addr := startTestServer(t, panicky, DefaultConfig())

	c, rd := rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 500 Internal Server Error" {
		t.Fatalf("status = %q", s)
	}
}

func TestServer_BufferLimitExceededIsRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferLimit = 16
	_, addr := startTestServer(t, handler.HelloWorld{}, cfg)

	body := bytes.Repeat([]byte("x"), 64)
	req := "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 64\r\n\r\n" + string(body)
	c, rd := rawRequest(t, addr, req)
	defer c.Close()

	status := readStatusLine(t, rd)
	if status != "HTTP/1.1 413 Payload Too Large" && status != "HTTP/1.1 400 Bad Request" {
		t.Fatalf("status = %q", status)
	}
}

func TestServer_MoreKeepAliveConnectionsThanExecutorWorkersAllGetServed(t *testing.T) {
	// A single-worker Executor: if a connection's read/handle/write loop
	// pinned that worker for its whole lifetime, only one of these
	// concurrently-open keep-alive connections could ever be served, and
	// the rest would hang forever waiting for a worker that never frees
	// up. Each connection must instead get its own dedicated strand.
	exec := executor.New(1, 4, nil)
	exec.Start(1)
	t.Cleanup(exec.Stop)

	cfg := DefaultConfig()
	cfg.KeepAliveMax = 100
	s := New(exec, handler.HelloWorld{}, cfg, nil, nil)
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	addr := s.Addr()

	const n = 8
	conns := make([]net.Conn, n)
	readers := make([]*textproto.Reader, n)
	for i := 0; i < n; i++ {
		conns[i], readers[i] = rawRequest(t, addr, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			if s := readStatusLine(t, readers[i]); s != "HTTP/1.1 200 OK" {
				t.Errorf("connection %d: status = %q", i, s)
			}
			_, _ = readers[i].ReadMIMEHeader()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every concurrently open keep-alive connection was served by a single-worker executor")
	}
}

func TestServer_MatrixPowerComputesOverTheWire(t *testing.T) {
	_, addr := startTestServer(t, handler.MatrixPower{}, DefaultConfig())

	c, rd := rawRequest(t, addr, "GET /matpowsum?k=4&n=7 HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	defer c.Close()

	if s := readStatusLine(t, rd); s != "HTTP/1.1 200 OK" {
		t.Fatalf("status = %q", s)
	}
}
