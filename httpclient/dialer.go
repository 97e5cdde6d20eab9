package httpclient

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/proxy"
)

const (
	defaultDialTimeout = 30 * time.Second
	defaultKeepAlive   = 30 * time.Second
	// maxChallengeBodyBytes bounds how much of a rejected CONNECT reply is drained
	maxChallengeBodyBytes = 64 << 10
)

// proxyDialer opens connections through the configured proxy. For HTTP proxies
// it dials the proxy directly when the transport asks for the proxy address and
// opens a CONNECT tunnel for every other target. For SOCKS proxies every
// connection goes through a SOCKS5 handshake, which carries the target host name
// unresolved.
type proxyDialer struct {
	desc   *proxy.Descriptor
	auth   proxy.Authenticator
	direct *net.Dialer
	socks  xproxy.ContextDialer
	log    logger.Logger
}

func newProxyDialer(desc *proxy.Descriptor, auth proxy.Authenticator, log logger.Logger) (*proxyDialer, error) {
	d := &proxyDialer{
		desc: desc,
		auth: auth,
		direct: &net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultKeepAlive,
		},
		log: log,
	}

	if desc.Type == proxy.TypeSOCKS {
		var socksAuth *xproxy.Auth
		if desc.Auth != nil {
			socksAuth = &xproxy.Auth{User: desc.Auth.Username, Password: desc.Auth.Password}
		}
		dialer, err := xproxy.SOCKS5("tcp", desc.Addr, socksAuth, d.direct)
		if err != nil {
			return nil, NewConfigError("proxy", "cannot create SOCKS5 dialer", err)
		}
		cd, ok := dialer.(xproxy.ContextDialer)
		if !ok {
			return nil, NewConfigError("proxy", "SOCKS5 dialer does not support contexts", nil)
		}
		d.socks = cd
	}

	return d, nil
}

// DialContext matches http.Transport.DialContext.
func (d *proxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	switch d.desc.Type {
	case proxy.TypeSOCKS:
		return d.socks.DialContext(ctx, network, addr)
	case proxy.TypeHTTP:
		if addr == d.desc.Addr {
			return d.direct.DialContext(ctx, network, addr)
		}
		return d.connect(ctx, network, addr)
	default:
		return d.direct.DialContext(ctx, network, addr)
	}
}

// connect opens a CONNECT tunnel to addr, answering 407 challenges through the
// authenticator. Each attempt uses a fresh proxy connection.
func (d *proxyDialer) connect(ctx context.Context, network, addr string) (net.Conn, error) {
	req := (&http.Request{
		Method:     http.MethodConnect,
		URL:        &url.URL{Opaque: addr},
		Host:       addr,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
	}).WithContext(ctx)

	var failed *proxy.Attempt
	for attempt := 1; ; attempt++ {
		conn, err := d.direct.DialContext(ctx, network, d.desc.Addr)
		if err != nil {
			return nil, err
		}

		resp, tunnel, err := d.handshake(ctx, conn, req)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			d.log.Debug().
				Str("proxy", d.desc.String()).
				Str("target", addr).
				Int("attempts", attempt).
				Msg("Opened proxy tunnel")
			return tunnel, nil
		}

		drain(resp)
		_ = conn.Close()

		connectErr := &ProxyConnectError{
			Proxy:      d.desc.String(),
			Target:     addr,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Attempts:   attempt,
		}
		if resp.StatusCode != http.StatusProxyAuthRequired || d.auth == nil {
			return nil, connectErr
		}

		failed = failed.Next(resp)
		next := d.auth.Authenticate(proxy.Route{Proxy: d.desc, Target: addr}, failed)
		if next == nil {
			d.log.Warn().
				Str("proxy", d.desc.String()).
				Str("target", addr).
				Int("attempts", attempt).
				Msg("Proxy authentication gave up")
			return nil, connectErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d.log.Debug().
			Str("proxy", d.desc.String()).
			Int("prior_failures", failed.PriorCount()).
			Msg("Retrying CONNECT with proxy credentials")
		req = next
	}
}

// handshake writes req on conn and reads the proxy's reply. Cancelling ctx
// interrupts blocked reads and writes.
func (d *proxyDialer) handshake(ctx context.Context, conn net.Conn, req *http.Request) (*http.Response, net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := req.Write(conn); err != nil {
		return nil, nil, contextErr(ctx, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, nil, contextErr(ctx, err)
	}

	if !stop() {
		// the deadline may already be set; the tunnel is unusable
		return nil, nil, ctx.Err()
	}

	if resp.StatusCode == http.StatusOK && br.Buffered() > 0 {
		return resp, &bufferedConn{Conn: conn, r: br}, nil
	}
	return resp, conn, nil
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxChallengeBodyBytes))
	_ = resp.Body.Close()
}

// bufferedConn serves bytes the proxy sent right after its 200 reply before
// reading from the connection again.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.r.Buffered() > 0 {
		return c.r.Read(p)
	}
	return c.Conn.Read(p)
}
