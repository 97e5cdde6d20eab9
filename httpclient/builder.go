package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/talkwire/talkhttp/cache"
	"github.com/talkwire/talkhttp/cache/disk"
	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/proxy"
)

// Builder assembles a Client. The zero configuration produces a client with the
// mandatory headers, no proxy beyond the environment's, and no cache.
type Builder struct {
	log                logger.Logger
	proxy              *proxy.Descriptor
	cacheDir           string
	cacheMaxBytes      int64
	store              cache.Store
	debug              bool
	userAgent          string
	timeout            time.Duration
	tracing            bool
	telemetry          Telemetry
	base               http.RoundTripper
	interceptors       []RequestInterceptor
	maxPayloadLogBytes int
}

// NewBuilder creates a builder logging through log.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		log:           log,
		cacheMaxBytes: DefaultCacheSize,
		userAgent:     UserAgent(DefaultVersion),
		timeout:       DefaultTimeout,
	}
}

// WithConfig applies every field of cfg that is set.
func (b *Builder) WithConfig(cfg Config) *Builder {
	if cfg.UserAgent != "" {
		b.userAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		b.timeout = cfg.Timeout
	}
	if cfg.CacheDir != "" {
		b.WithCache(cfg.CacheDir, cfg.CacheMaxBytes)
	}
	if cfg.MaxPayloadLogBytes > 0 {
		b.maxPayloadLogBytes = cfg.MaxPayloadLogBytes
	}
	b.debug = cfg.Debug
	b.tracing = cfg.Tracing
	return b
}

// WithProxy routes traffic through desc. A nil descriptor means no proxy.
func (b *Builder) WithProxy(desc *proxy.Descriptor) *Builder {
	b.proxy = desc
	return b
}

// WithCache enables the disk cache under dir/http holding at most maxBytes.
// A non-positive maxBytes selects DefaultCacheSize.
func (b *Builder) WithCache(dir string, maxBytes int64) *Builder {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheSize
	}
	b.cacheDir = dir
	b.cacheMaxBytes = maxBytes
	return b
}

// WithCacheStore caches responses in store instead of on disk.
func (b *Builder) WithCacheStore(store cache.Store) *Builder {
	b.store = store
	return b
}

// WithDebug enables request and response logging.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.debug = debug
	return b
}

// WithMaxPayloadLogBytes caps the body bytes logged in debug mode.
func (b *Builder) WithMaxPayloadLogBytes(n int) *Builder {
	b.maxPayloadLogBytes = n
	return b
}

// WithUserAgent overrides the User-Agent header value.
func (b *Builder) WithUserAgent(userAgent string) *Builder {
	b.userAgent = userAgent
	return b
}

// WithTimeout bounds each request. Zero disables the timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithTracing wraps the network transport with OpenTelemetry instrumentation.
func (b *Builder) WithTracing(enabled bool) *Builder {
	b.tracing = enabled
	return b
}

// WithTelemetry sets the OpenTelemetry providers used once tracing is enabled.
func (b *Builder) WithTelemetry(t Telemetry) *Builder {
	b.telemetry = t
	return b
}

// WithBaseTransport replaces the network transport. An *http.Transport is
// cloned and still receives the proxy configuration; any other RoundTripper is
// used as is.
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithInterceptors adds request interceptors run before the mandatory headers.
func (b *Builder) WithInterceptors(interceptors ...RequestInterceptor) *Builder {
	b.interceptors = append(b.interceptors, interceptors...)
	return b
}

// Build validates the configuration and assembles the client. No client is
// produced when any part of the configuration is invalid.
func (b *Builder) Build() (*Client, error) {
	if strings.TrimSpace(b.userAgent) == "" {
		return nil, NewConfigError("userAgent", "must not be empty", nil)
	}
	if b.timeout < 0 {
		return nil, NewConfigError("timeout", "must not be negative", nil)
	}
	if b.proxy != nil && b.proxy.Type != proxy.TypeHTTP && b.proxy.Type != proxy.TypeSOCKS {
		return nil, NewConfigError("proxy", "unsupported proxy type "+string(b.proxy.Type), proxy.ErrUnknownType)
	}

	c := &Client{
		proxy: b.proxy,
		log:   b.log,
	}
	if b.proxy != nil && b.proxy.HasCredentials() {
		c.authenticator = proxy.NewAuthenticator(b.proxy.Credentials)
	}

	rt, err := b.networkTransport(c)
	if err != nil {
		return nil, err
	}

	if b.tracing {
		rt = otelhttp.NewTransport(rt, b.telemetry.options()...)
	}

	if c.authenticator != nil {
		rt = &authTransport{proxy: b.proxy, auth: c.authenticator, next: rt, log: b.log}
	}

	store, err := b.cacheStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		cacheTransport := httpcache.NewTransport(store)
		cacheTransport.Transport = rt
		rt = cacheTransport
		c.store = store
	}

	if b.debug {
		rt = newLoggingTransport(b.log, b.maxPayloadLogBytes, rt)
	}

	c.headers = NewHeaderInjector(b.userAgent, rt, b.interceptors...)
	c.http = &http.Client{
		Transport: c.headers,
		Timeout:   b.timeout,
	}

	b.log.Info().
		Str("proxy", b.proxy.String()).
		Bool("cache", store != nil).
		Bool("debug", b.debug).
		Bool("tracing", b.tracing).
		Msg("Built HTTP client")

	return c, nil
}

// networkTransport returns the innermost RoundTripper with the proxy applied.
func (b *Builder) networkTransport(c *Client) (http.RoundTripper, error) {
	var transport *http.Transport
	switch base := b.base.(type) {
	case nil:
		transport = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		transport = base.Clone()
	default:
		if b.proxy != nil {
			b.log.Warn().Str("proxy", b.proxy.String()).Msg("Custom transport ignores proxy settings")
		}
		return base, nil
	}
	c.transport = transport

	if b.proxy == nil {
		return transport, nil
	}

	if b.proxy.Type == proxy.TypeHTTP && !b.proxy.Resolved {
		b.log.Warn().
			Str("proxy", b.proxy.String()).
			Msg("Proxy host could not be resolved, connecting by name")
	}

	dialer, err := newProxyDialer(b.proxy, c.authenticator, b.log)
	if err != nil {
		return nil, err
	}
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	if b.proxy.Type == proxy.TypeHTTP {
		proxyURL := b.proxy.URL()
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "http" {
				return proxyURL, nil
			}
			return nil, nil
		}
	}

	return transport, nil
}

func (b *Builder) cacheStore() (cache.Store, error) {
	if b.store != nil {
		return b.store, nil
	}
	if b.cacheDir == "" {
		return nil, nil
	}
	store, err := disk.New(filepath.Join(b.cacheDir, cache.DefaultDirName), b.cacheMaxBytes, b.log)
	if err != nil {
		return nil, NewConfigError("cache", "cannot open response cache", err)
	}
	return store, nil
}

// Client is a configured HTTP client. It is safe for concurrent use.
type Client struct {
	http          *http.Client
	headers       *HeaderInjector
	transport     *http.Transport
	proxy         *proxy.Descriptor
	authenticator proxy.Authenticator
	store         cache.Store
	log           logger.Logger
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req through the full pipeline.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Get issues a GET to rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Proxy returns the proxy in use, or nil.
func (c *Client) Proxy() *proxy.Descriptor {
	return c.proxy
}

// Authenticator returns the proxy authenticator, or nil when no credentials are configured.
func (c *Client) Authenticator() proxy.Authenticator {
	return c.authenticator
}

// Headers returns the header injector at the head of the pipeline.
func (c *Client) Headers() *HeaderInjector {
	return c.headers
}

// Cache returns the response store, or nil when caching is disabled.
func (c *Client) Cache() cache.Store {
	return c.store
}

// Close releases idle connections. In-flight requests are not interrupted.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
