package httpclient

import (
	"context"
	"net/http"
)

// UserAgent returns the User-Agent sent by the chat client at version.
func UserAgent(version string) string {
	if version == "" {
		version = DefaultVersion
	}
	return "Mozilla/5.0 (Android) Nextcloud-Talk v" + version
}

// HeaderInjector is an http.RoundTripper that stamps the mandatory headers on a
// copy of every request. Values already present on the request are overwritten.
// The caller's request is never modified.
type HeaderInjector struct {
	userAgent    string
	interceptors []RequestInterceptor
	next         http.RoundTripper
}

// NewHeaderInjector wraps next. Interceptors run in order on the request copy,
// before the mandatory headers are applied, so they cannot override them.
func NewHeaderInjector(userAgent string, next http.RoundTripper, interceptors ...RequestInterceptor) *HeaderInjector {
	if next == nil {
		next = http.DefaultTransport
	}
	return &HeaderInjector{
		userAgent:    userAgent,
		interceptors: interceptors,
		next:         next,
	}
}

// RoundTrip implements http.RoundTripper.
func (h *HeaderInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	for _, interceptor := range h.interceptors {
		if err := interceptor(out.Context(), out); err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}

	h.Apply(out)
	return h.next.RoundTrip(out)
}

// Apply sets the mandatory headers on req in place.
func (h *HeaderInjector) Apply(req *http.Request) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set(HeaderUserAgent, h.userAgent)
	req.Header.Set(HeaderAccept, AcceptJSON)
	req.Header.Set(HeaderOCSAPIRequest, OCSAPIRequestValue)
}

// Interceptor exposes the injector as a RequestInterceptor for callers that
// build requests outside this client.
func (h *HeaderInjector) Interceptor() RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		h.Apply(req)
		return nil
	}
}

// UserAgent returns the User-Agent value the injector sends.
func (h *HeaderInjector) UserAgent() string {
	return h.userAgent
}
