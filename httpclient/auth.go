package httpclient

import (
	"net"
	"net/http"

	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/proxy"
)

// authTransport answers 407 responses to requests forwarded through an HTTP
// proxy. Every rejected response is appended to the request's attempt chain and
// handed to the authenticator, which decides whether to retry.
// When the authenticator gives up the last 407 is returned to the caller.
type authTransport struct {
	proxy *proxy.Descriptor
	auth  proxy.Authenticator
	next  http.RoundTripper
	log   logger.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)

	var failed *proxy.Attempt
	for err == nil && resp.StatusCode == http.StatusProxyAuthRequired {
		if resp.Request == nil {
			resp.Request = req
		}
		failed = failed.Next(resp)

		next := t.auth.Authenticate(proxy.Route{Proxy: t.proxy, Target: targetAddr(req)}, failed)
		if next == nil {
			return resp, nil
		}
		if !rewindBody(req, next) {
			t.log.Debug().Str("url", req.URL.String()).Msg("Cannot replay request body for proxy authentication")
			return resp, nil
		}
		if ctxErr := req.Context().Err(); ctxErr != nil {
			drain(resp)
			return nil, ctxErr
		}

		t.log.Debug().
			Str("proxy", t.proxy.String()).
			Int("prior_failures", failed.PriorCount()).
			Msg("Retrying request with proxy credentials")

		drain(resp)
		resp, err = t.next.RoundTrip(next)
	}

	return resp, err
}

// rewindBody gives next a fresh copy of the original body. It reports false
// when the body was consumed and cannot be recreated.
func rewindBody(orig, next *http.Request) bool {
	if orig.Body == nil || orig.Body == http.NoBody {
		return true
	}
	if next.GetBody == nil {
		return false
	}
	body, err := next.GetBody()
	if err != nil {
		return false
	}
	next.Body = body
	return true
}

func targetAddr(req *http.Request) string {
	host := req.URL.Host
	if req.URL.Port() != "" {
		return host
	}
	port := "80"
	if req.URL.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(req.URL.Hostname(), port)
}
