package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "Mozilla/5.0 (Android) Nextcloud-Talk v17.0.0"

// recordingTransport answers every request with 200 and keeps what it received.
type recordingTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	respond  func(req *http.Request) (*http.Response, error)
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.respond != nil {
		return r.respond(req)
	}
	return newResponse(req, http.StatusOK, ""), nil
}

func (r *recordingTransport) received() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.requests...)
}

func newResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, testUserAgent, UserAgent("17.0.0"))
	assert.Equal(t, "Mozilla/5.0 (Android) Nextcloud-Talk v"+DefaultVersion, UserAgent(""))
}

func TestHeaderInjectorSetsMandatoryHeaders(t *testing.T) {
	next := &recordingTransport{}
	injector := NewHeaderInjector(testUserAgent, next)

	req := newTestRequest(t)
	req.Header.Set(HeaderUserAgent, "curl/8.0")
	req.Header.Set(HeaderAccept, "text/html")
	req.Header.Set("X-Custom", "kept")

	resp, err := injector.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	sent := next.received()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{testUserAgent}, sent[0].Header.Values(HeaderUserAgent))
	assert.Equal(t, []string{AcceptJSON}, sent[0].Header.Values(HeaderAccept))
	assert.Equal(t, []string{OCSAPIRequestValue}, sent[0].Header.Values(HeaderOCSAPIRequest))
	assert.Equal(t, "kept", sent[0].Header.Get("X-Custom"))

	assert.Equal(t, "curl/8.0", req.Header.Get(HeaderUserAgent), "caller's request must not be modified")
	assert.Empty(t, req.Header.Get(HeaderOCSAPIRequest))
}

func TestHeaderInjectorHandlesNilHeader(t *testing.T) {
	next := &recordingTransport{}
	req := newTestRequest(t)
	req.Header = nil

	resp, err := NewHeaderInjector(testUserAgent, next).RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, OCSAPIRequestValue, next.received()[0].Header.Get(HeaderOCSAPIRequest))
}

func TestHeaderInjectorInterceptorsCannotOverride(t *testing.T) {
	next := &recordingTransport{}
	override := func(_ context.Context, req *http.Request) error {
		req.Header.Set(HeaderAccept, "application/xml")
		req.Header.Set("X-Added", "yes")
		return nil
	}

	resp, err := NewHeaderInjector(testUserAgent, next, override).RoundTrip(newTestRequest(t))
	require.NoError(t, err)
	defer resp.Body.Close()

	sent := next.received()[0]
	assert.Equal(t, AcceptJSON, sent.Header.Get(HeaderAccept))
	assert.Equal(t, "yes", sent.Header.Get("X-Added"))
}

func TestHeaderInjectorInterceptorError(t *testing.T) {
	next := &recordingTransport{}
	boom := errors.New("boom")
	failing := func(_ context.Context, _ *http.Request) error { return boom }

	resp, err := NewHeaderInjector(testUserAgent, next, failing).RoundTrip(newTestRequest(t))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsErrorType(err, InterceptorError))
	assert.Empty(t, next.received())
}

func TestHeaderInjectorAsInterceptor(t *testing.T) {
	injector := NewHeaderInjector(testUserAgent, nil)
	req := newTestRequest(t)

	require.NoError(t, injector.Interceptor()(context.Background(), req))

	assert.Equal(t, testUserAgent, req.Header.Get(HeaderUserAgent))
	assert.Equal(t, AcceptJSON, req.Header.Get(HeaderAccept))
	assert.Equal(t, OCSAPIRequestValue, req.Header.Get(HeaderOCSAPIRequest))
	assert.Equal(t, testUserAgent, injector.UserAgent())
}

func TestHeaderInjectorConcurrentRequests(t *testing.T) {
	next := &recordingTransport{}
	injector := NewHeaderInjector(testUserAgent, next)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testOCSURL, http.NoBody)
			if !assert.NoError(t, err) {
				return
			}
			resp, err := injector.RoundTrip(req)
			if assert.NoError(t, err) {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	sent := next.received()
	require.Len(t, sent, 20)
	for _, req := range sent {
		assert.Equal(t, testUserAgent, req.Header.Get(HeaderUserAgent))
	}
}
