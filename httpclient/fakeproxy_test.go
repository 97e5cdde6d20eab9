package httpclient

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talkwire/talkhttp/proxy"
)

// fakeConnectProxy is an HTTP proxy that only supports CONNECT and demands
// the configured credentials before opening a tunnel.
type fakeConnectProxy struct {
	ln       net.Listener
	want     proxy.Credentials
	attempts atomic.Int32

	mu      sync.Mutex
	targets []string
}

func startConnectProxy(t *testing.T, want proxy.Credentials) *fakeConnectProxy {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &fakeConnectProxy{ln: ln, want: want}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go p.serve(conn)
		}
	}()
	return p
}

func (p *fakeConnectProxy) serve(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	p.attempts.Add(1)

	if req.Method != http.MethodConnect {
		_, _ = io.WriteString(conn, "HTTP/1.1 405 Method Not Allowed\r\nContent-Length: 0\r\n\r\n")
		return
	}
	if p.want != "" && req.Header.Get(proxy.HeaderProxyAuthorization) != string(p.want) {
		_, _ = io.WriteString(conn, "HTTP/1.1 407 Proxy Authentication Required\r\n"+
			"Proxy-Authenticate: Basic realm=\"talk\"\r\nContent-Length: 6\r\n\r\ndenied")
		return
	}

	p.mu.Lock()
	p.targets = append(p.targets, req.Host)
	p.mu.Unlock()

	target, err := net.Dial("tcp", req.Host)
	if err != nil {
		_, _ = io.WriteString(conn, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n")
		return
	}
	defer target.Close()

	_, _ = io.WriteString(conn, "HTTP/1.1 200 Connection established\r\n\r\n")
	pipe(conn, br, target)
}

func (p *fakeConnectProxy) port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

func (p *fakeConnectProxy) seenTargets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.targets...)
}

// fakeSOCKS5 is a SOCKS5 server with optional username/password auth. It
// records the destination requested by the client and always connects to
// origin instead.
type fakeSOCKS5 struct {
	ln       net.Listener
	user     string
	password string
	origin   string

	mu        sync.Mutex
	requested []string
}

func startSOCKS5(t *testing.T, user, password, origin string) *fakeSOCKS5 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSOCKS5{ln: ln, user: user, password: password, origin: origin}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSOCKS5) serve(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)

	// greeting: VER NMETHODS METHODS...
	greeting := make([]byte, 2)
	if _, err := io.ReadFull(br, greeting); err != nil || greeting[0] != 5 {
		return
	}
	if _, err := io.ReadFull(br, make([]byte, greeting[1])); err != nil {
		return
	}

	if s.user == "" {
		_, _ = conn.Write([]byte{5, 0})
	} else {
		_, _ = conn.Write([]byte{5, 2})
		if !s.checkPassword(br, conn) {
			return
		}
	}

	// request: VER CMD RSV ATYP DST.ADDR DST.PORT
	header := make([]byte, 4)
	if _, err := io.ReadFull(br, header); err != nil {
		return
	}
	var host string
	switch header[3] {
	case 1:
		ip := make([]byte, net.IPv4len)
		_, _ = io.ReadFull(br, ip)
		host = net.IP(ip).String()
	case 3:
		n, _ := br.ReadByte()
		name := make([]byte, n)
		_, _ = io.ReadFull(br, name)
		host = string(name)
	case 4:
		ip := make([]byte, net.IPv6len)
		_, _ = io.ReadFull(br, ip)
		host = net.IP(ip).String()
	default:
		return
	}
	portBytes := make([]byte, 2)
	if _, err := io.ReadFull(br, portBytes); err != nil {
		return
	}

	s.mu.Lock()
	s.requested = append(s.requested, net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(portBytes)))))
	s.mu.Unlock()

	target, err := net.Dial("tcp", s.origin)
	if err != nil {
		_, _ = conn.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
		return
	}
	defer target.Close()

	_, _ = conn.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
	pipe(conn, br, target)
}

// checkPassword runs the username/password sub-negotiation.
func (s *fakeSOCKS5) checkPassword(br *bufio.Reader, conn net.Conn) bool {
	version, err := br.ReadByte()
	if err != nil || version != 1 {
		return false
	}
	ulen, _ := br.ReadByte()
	user := make([]byte, ulen)
	_, _ = io.ReadFull(br, user)
	plen, _ := br.ReadByte()
	password := make([]byte, plen)
	_, _ = io.ReadFull(br, password)

	if string(user) != s.user || string(password) != s.password {
		_, _ = conn.Write([]byte{1, 1})
		return false
	}
	_, _ = conn.Write([]byte{1, 0})
	return true
}

func (s *fakeSOCKS5) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSOCKS5) requestedTargets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

// pipe copies in both directions until either side closes.
func pipe(client net.Conn, clientReader io.Reader, target net.Conn) {
	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(target, clientReader)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(client, target)
		done <- struct{}{}
	}()
	<-done
}
