// Package httpclient builds the single HTTP client a chat application uses to
// reach its server: mandatory OCS headers on every request, an optional HTTP or
// SOCKS proxy with challenge/response authentication, an on-disk response cache
// and optional debug logging.
package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/talkwire/talkhttp/cache"
	"github.com/talkwire/talkhttp/trace"
)

const (
	// HeaderUserAgent identifies the client to the server
	HeaderUserAgent = "User-Agent"
	// HeaderAccept is always application/json
	HeaderAccept = "Accept"
	// HeaderOCSAPIRequest marks the request as an OCS API call
	HeaderOCSAPIRequest = "OCS-APIRequest"
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"

	// AcceptJSON is the value sent in the Accept header
	AcceptJSON = "application/json"
	// OCSAPIRequestValue is the value sent in the OCS-APIRequest header
	OCSAPIRequestValue = "true"
)

const (
	// DefaultCacheSize is the capacity of the on-disk response cache
	DefaultCacheSize = cache.DefaultMaxBytes
	// DefaultTimeout bounds a whole request, retries included
	DefaultTimeout = 30 * time.Second
	// DefaultMaxPayloadLogBytes caps the body bytes logged in debug mode
	DefaultMaxPayloadLogBytes = 1 << 20
	// DefaultVersion is used in the User-Agent when no version is configured
	DefaultVersion = "0.0.0"
)

// RequestInterceptor is called with a private copy of every outgoing request
// before the mandatory headers are applied.
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// Config holds the HTTP client configuration
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// CacheDir enables the on-disk response cache under CacheDir/http
	CacheDir      string
	CacheMaxBytes int64
	// Debug installs the request/response logging transport
	Debug bool
	// MaxPayloadLogBytes caps the number of body bytes logged in debug mode
	MaxPayloadLogBytes int
	// Tracing wraps the network transport with OpenTelemetry instrumentation
	Tracing bool
}

// Telemetry selects the OpenTelemetry providers used when tracing is enabled.
// Nil fields fall back to the otel globals.
type Telemetry struct {
	TracerProvider oteltrace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagators    propagation.TextMapPropagator
}

func (t Telemetry) options() []otelhttp.Option {
	var opts []otelhttp.Option
	if t.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(t.TracerProvider))
	}
	if t.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(t.MeterProvider))
	}
	if t.Propagators != nil {
		opts = append(opts, otelhttp.WithPropagators(t.Propagators))
	}
	return opts
}

// WithTraceID adds a trace ID to the context; it is logged as request_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return trace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return trace.IDFromContext(ctx) }

// NewTraceIDInterceptor creates a request interceptor that sends the trace ID
// in the X-Request-ID header
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureTraceID(ctx))
		}
		return nil
	}
}
