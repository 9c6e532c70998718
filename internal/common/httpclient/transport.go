package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// newTransport builds the pooled transport of a Connector. All calls go to one route, so the
// pool is bounded by the smaller of the total and per-route limits.
func newTransport(cfg *Configuration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	size := cfg.poolSize()
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return newIdleTimeoutConn(conn, cfg.SocketTimeout), nil
		},
		MaxIdleConns:        size,
		MaxIdleConnsPerHost: size,
		MaxConnsPerHost:     size,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}
}

// idleTimeoutConn pushes the connection deadline forward before every read and write, which
// bounds the inactivity between two packets rather than the length of the whole exchange.
// A streamed import may run for a long time as long as it keeps writing.
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func newIdleTimeoutConn(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &idleTimeoutConn{Conn: conn, timeout: timeout}
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// withAcquireTimeout bounds the time a request waits for a connection from the pool. The
// timer stops as soon as the transport starts resolving or dialing a new connection or
// hands out an idle one, so connect and read time are governed by their own timeouts.
// The returned cancel func must be called once the response body is no longer needed.
func withAcquireTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	if timeout <= 0 {
		return ctx, func() { cancel(nil) }
	}
	timer := time.AfterFunc(timeout, func() { cancel(ErrPoolTimeout) })
	var once sync.Once
	acquired := func() { once.Do(func() { timer.Stop() }) }
	trace := &httptrace.ClientTrace{
		DNSStart:     func(httptrace.DNSStartInfo) { acquired() },
		ConnectStart: func(string, string) { acquired() },
		GotConn:      func(httptrace.GotConnInfo) { acquired() },
	}
	return httptrace.WithClientTrace(ctx, trace), func() {
		timer.Stop()
		cancel(nil)
	}
}
