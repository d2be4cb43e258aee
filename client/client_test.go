package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/httpx"
)

// serveOnce accepts exactly one connection and handles requests on it
// with a fixed response until the connection closes, simulating just
// enough of a server to exercise the client without depending on the
// server package.
func serveOnce(t *testing.T, lis net.Listener, keepAlive bool, status int, body string) {
	t.Helper()
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, err := conn.Read(buf)
			if err != nil || n == 0 {
				return
			}
			connHdr := "close"
			if keepAlive {
				connHdr = "keep-alive"
			}
			resp := "HTTP/1.1 " + itoa(status) + " OK\r\nContent-Length: " + itoa(len(body)) + "\r\nConnection: " + connHdr + "\r\n\r\n" + body
			if _, err := conn.Write([]byte(resp)); err != nil {
				return
			}
			if !keepAlive {
				return
			}
		}
	}()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func newTestClient(t *testing.T, lis net.Listener) *Client {
	t.Helper()
	host, port, err := net.SplitHostPort(lis.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	exec := executor.New(2, 8, nil)
	exec.Start(2)
	t.Cleanup(exec.Stop)
	return New(exec, DefaultConfig(host, port), nil, nil)
}

func TestClient_HttpReturnsResponseBody(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()
	serveOnce(t, lis, false, 200, "hi")

	c := newTestClient(t, lis)
	resp, err := c.Http(context.Background(), &httpx.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1"})
	if err != nil {
		t.Fatalf("Http: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "hi" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestClient_KeepAliveConnectionIsReusedFromPool(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()
	serveOnce(t, lis, true, 200, "ok")

	c := newTestClient(t, lis)
	for i := 0; i < 3; i++ {
		resp, err := c.Http(context.Background(), &httpx.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1"})
		if err != nil {
			t.Fatalf("Http[%d]: %v", i, err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("resp[%d] = %+v", i, resp)
		}
	}
	if c.pool.Count() != 1 {
		t.Fatalf("expected one pooled connection, got %d", c.pool.Count())
	}
}

func TestClient_GiveBackUsesResponseKeepAliveTimeoutOverConfigDefault(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	c := newTestClient(t, lis)
	c.Config.KeepAliveTimeout = time.Hour

	raw, err := net.Dial("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := newConnection(raw.(*net.TCPConn))

	resp := &httpx.Response{
		StatusCode: 200,
		Proto:      "HTTP/1.1",
		Header:     httpx.Header{"Keep-Alive": []string{"timeout=0, max=5"}},
	}
	c.giveBack(conn, resp)
	defer conn.close()

	if conn.idleTimeout != 0 {
		t.Fatalf("idleTimeout = %v, want 0 (parsed from response, not the hour-long config default)", conn.idleTimeout)
	}
	if !conn.expired() {
		t.Fatal("expected a connection with a zero Keep-Alive timeout to be immediately expired")
	}
}

func TestClient_GiveBackFallsBackToConfigWhenResponseOmitsKeepAlive(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	c := newTestClient(t, lis)
	c.Config.KeepAliveTimeout = time.Hour

	raw, err := net.Dial("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := newConnection(raw.(*net.TCPConn))

	resp := &httpx.Response{StatusCode: 200, Proto: "HTTP/1.1", Header: httpx.Header{}}
	c.giveBack(conn, resp)
	defer conn.close()

	if conn.idleTimeout != time.Hour {
		t.Fatalf("idleTimeout = %v, want the config default of 1h", conn.idleTimeout)
	}
}

func TestClient_GiveBackDropsConnectionWhenServerDeclaresMaxExhausted(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	c := newTestClient(t, lis)

	raw, err := net.Dial("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := newConnection(raw.(*net.TCPConn))

	resp := &httpx.Response{
		StatusCode: 200,
		Proto:      "HTTP/1.1",
		Header:     httpx.Header{"Keep-Alive": []string{"timeout=30, max=0"}},
	}
	c.giveBack(conn, resp)

	if node := c.pool.Take(); node != nil {
		t.Fatal("expected no connection to be pooled once the server declared max=0")
	}
}

func TestClient_ConnectFailureIsNotRetriedPastMaxRetry(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close() // nothing is listening anymore

	host, port, _ := net.SplitHostPort(addr)
	exec := executor.New(1, 4, nil)
	exec.Start(1)
	t.Cleanup(exec.Stop)
	cfg := DefaultConfig(host, port)
	cfg.MaxRetry = 1
	cfg.DialTimeout = 200 * time.Millisecond
	c := New(exec, cfg, nil, nil)

	_, err = c.Http(context.Background(), &httpx.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1"})
	if err == nil {
		t.Fatal("expected error dialing a closed listener")
	}
}

// serveConcurrentlyWithDelay accepts any number of connections and, on
// each, waits delay before responding once and closing — enough to prove
// that concurrent requests overlap rather than serialize.
func serveConcurrentlyWithDelay(t *testing.T, lis net.Listener, delay time.Duration, status int, body string) {
	t.Helper()
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 4096)
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				if _, err := conn.Read(buf); err != nil {
					return
				}
				time.Sleep(delay)
				resp := "HTTP/1.1 " + itoa(status) + " OK\r\nContent-Length: " + itoa(len(body)) + "\r\nConnection: close\r\n\r\n" + body
				_, _ = conn.Write([]byte(resp))
			}()
		}
	}()
}

func TestClient_AsyncHttpRequestsOverlapRatherThanPinAnExecutorWorker(t *testing.T) {
	// A single-worker Executor: if AsyncHttp posted the whole blocking
	// Http call onto c.Exec, N concurrent requests would run one at a
	// time behind that one worker, taking roughly N*delay. Run on
	// goroutines of their own, they should all finish in about one delay.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	const delay = 200 * time.Millisecond
	const n = 5
	serveConcurrentlyWithDelay(t, lis, delay, 200, "ok")

	host, port, _ := net.SplitHostPort(lis.Addr().String())
	exec := executor.New(1, 4, nil)
	exec.Start(1)
	t.Cleanup(exec.Stop)
	c := New(exec, DefaultConfig(host, port), nil, nil)

	done := make(chan struct{}, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		c.AsyncHttp(&httpx.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1"}, func(resp *httpx.Response, err error) {
			done <- struct{}{}
		})
	}

	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("not every AsyncHttp call completed")
		}
	}

	if elapsed := time.Since(start); elapsed > time.Duration(n)*delay {
		t.Fatalf("elapsed %v looks serialized behind a single executor worker, want close to one delay (%v)", elapsed, delay)
	}
}

func TestClient_AsyncHttpInvokesCallback(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()
	serveOnce(t, lis, false, 200, "async")

	c := newTestClient(t, lis)
	done := make(chan struct{})
	var status int
	c.AsyncHttp(&httpx.Request{Method: "GET", Target: "/", Proto: "HTTP/1.1"}, func(resp *httpx.Response, err error) {
		if err == nil {
			status = resp.StatusCode
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for AsyncHttp callback")
	}
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
}
