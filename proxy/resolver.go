package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// HostResolver looks up the addresses of a host name. *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Auth holds the raw proxy username and password.
// SOCKS5 needs them in the clear for its own handshake.
type Auth struct {
	Username string
	Password string
}

// Descriptor is the resolved proxy the transport connects through.
// A nil *Descriptor means no proxy. Descriptors are never modified after Resolve returns.
type Descriptor struct {
	Type Type
	Host string
	Port int
	// Addr is the dial address. For HTTP proxies it carries the resolved IP when
	// lookup succeeded; for SOCKS it always keeps the literal host name.
	Addr     string
	Resolved bool

	Auth        *Auth
	Credentials Credentials
}

// HasCredentials reports whether the descriptor carries proxy credentials.
func (d *Descriptor) HasCredentials() bool {
	return d != nil && d.Auth != nil
}

// URL returns the proxy URL used for absolute-form requests through an HTTP proxy.
// Credentials are deliberately left out: they are only sent after a challenge.
func (d *Descriptor) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: d.Addr}
}

func (d *Descriptor) String() string {
	if d == nil {
		return "no proxy"
	}
	s := fmt.Sprintf("%s %s", d.Type, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
	if d.Resolved && d.Addr != net.JoinHostPort(d.Host, strconv.Itoa(d.Port)) {
		s += " (" + d.Addr + ")"
	}
	if d.HasCredentials() {
		s += " with credentials"
	}
	return s
}

// Resolve derives the descriptor for pref.
//
// An empty host, or the DIRECT type, yields (nil, nil). SOCKS proxies keep the
// literal host so the proxy performs name resolution at connect time. HTTP proxies
// are resolved eagerly through resolver; if that lookup fails the literal host is
// kept with Resolved=false and the dial will report the DNS error.
// An unknown type or an out of range port is a configuration error.
func Resolve(ctx context.Context, pref Preference, resolver HostResolver) (*Descriptor, error) {
	if !pref.Enabled() {
		return nil, nil
	}

	typ, err := ParseType(string(pref.Type))
	if err != nil {
		return nil, err
	}
	if pref.Port < 0 || pref.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, pref.Port)
	}
	if typ == TypeDirect {
		return nil, nil
	}

	d := &Descriptor{
		Type: typ,
		Host: pref.Host,
		Port: pref.Port,
		Addr: net.JoinHostPort(pref.Host, strconv.Itoa(pref.Port)),
	}
	if pref.HasCredentials() {
		d.Auth = &Auth{Username: pref.Username, Password: pref.Password}
		d.Credentials = BasicCredentials(pref.Username, pref.Password)
	}

	if typ == TypeHTTP {
		if ip, ok := resolveHost(ctx, pref.Host, resolver); ok {
			d.Addr = net.JoinHostPort(ip, strconv.Itoa(pref.Port))
			d.Resolved = true
		}
	}

	return d, nil
}

func resolveHost(ctx context.Context, host string, resolver HostResolver) (string, bool) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), true
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return "", false
	}
	return addrs[0], true
}
