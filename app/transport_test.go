package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkwire/talkhttp/httpclient"
	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/observability"
	"github.com/talkwire/talkhttp/proxy"
)

type failingPreferences struct{ err error }

func (p failingPreferences) ProxyServer() (proxy.Preference, error) { return proxy.Preference{}, p.err }

// countingResolver counts eager proxy lookups.
type countingResolver struct {
	mu      sync.Mutex
	lookups int
}

func (r *countingResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	return []string{"127.0.0.1"}, nil
}

func (r *countingResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

func testOptions() Options {
	return Options{HTTP: httpclient.Config{UserAgent: httpclient.UserAgent("17.0.0"), Timeout: 5 * time.Second}}
}

func TestTransportBuildsLazilyOnce(t *testing.T) {
	resolver := &countingResolver{}
	prefs := NewStaticPreferences(proxy.Preference{Host: "proxy.example.com", Port: 3128, Type: proxy.TypeHTTP})
	opts := testOptions()
	opts.Resolver = resolver

	tr := NewTransport(prefs, opts, logger.Nop())
	defer tr.Close()
	assert.Zero(t, resolver.count(), "nothing is built before first use")

	var wg sync.WaitGroup
	clients := make([]*httpclient.Client, 10)
	for i := range clients {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c, err := tr.Client(context.Background())
			assert.NoError(t, err)
			clients[n] = c
		}(i)
	}
	wg.Wait()

	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, 1, resolver.count())
	assert.Equal(t, "127.0.0.1:3128", clients[0].Proxy().Addr)
}

func TestTransportRebuildAppliesNewPreference(t *testing.T) {
	prefs := NewStaticPreferences(proxy.Preference{})
	tr := NewTransport(prefs, testOptions(), nil)
	defer tr.Close()

	first, err := tr.Client(context.Background())
	require.NoError(t, err)
	assert.Nil(t, first.Proxy())

	prefs.Set(proxy.Preference{Host: "socks.example.com", Port: 1080, Type: proxy.TypeSOCKS, Username: "u", Password: "p"})

	same, err := tr.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, same, "preference changes apply only on rebuild")

	rebuilt, err := tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	require.NotNil(t, rebuilt.Proxy())
	assert.Equal(t, proxy.TypeSOCKS, rebuilt.Proxy().Type)
	assert.NotNil(t, rebuilt.Authenticator())

	current, err := tr.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, rebuilt, current)
}

func TestTransportRebuildErrorKeepsPreviousClient(t *testing.T) {
	prefs := NewStaticPreferences(proxy.Preference{})
	tr := NewTransport(prefs, testOptions(), nil)
	defer tr.Close()

	first, err := tr.Client(context.Background())
	require.NoError(t, err)

	prefs.Set(proxy.Preference{Host: "proxy.example.com", Port: 8080, Type: "HTTPS"})
	_, err = tr.Rebuild(context.Background())
	assert.ErrorIs(t, err, proxy.ErrUnknownType)

	current, err := tr.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestTransportPreferenceError(t *testing.T) {
	boom := errors.New("preferences unavailable")
	tr := NewTransport(failingPreferences{err: boom}, testOptions(), nil)

	c, err := tr.Client(context.Background())
	assert.Nil(t, c)
	assert.ErrorIs(t, err, boom)
}

func TestTransportClose(t *testing.T) {
	tr := NewTransport(NewStaticPreferences(proxy.Preference{}), testOptions(), nil)

	_, err := tr.Client(context.Background())
	require.NoError(t, err)

	require.NoError(t, tr.Close())

	_, err = tr.Client(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tr.Rebuild(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, tr.Close())
}

func TestTransportEndToEnd(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, httpclient.OCSAPIRequestValue, r.Header.Get(httpclient.HeaderOCSAPIRequest))
		assert.Equal(t, httpclient.UserAgent("17.0.0"), r.Header.Get(httpclient.HeaderUserAgent))
		assert.NotEmpty(t, r.Header.Get(httpclient.HeaderXRequestID))
		_, _ = io.WriteString(w, "ok")
	}))
	defer origin.Close()

	opts := testOptions()
	opts.Interceptors = []httpclient.RequestInterceptor{httpclient.NewTraceIDInterceptor()}
	tr := NewTransport(NewStaticPreferences(proxy.Preference{}), opts, nil)
	defer tr.Close()

	c, err := tr.Client(context.Background())
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), origin.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestTransportWithTelemetry(t *testing.T) {
	var traceparent atomic.Value
	origin := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		traceparent.Store(r.Header.Get("traceparent"))
	}))
	defer origin.Close()

	cfg := loadConfig(t, "app:\n  name: talk-telemetry\nobservability:\n  enabled: true\n")
	var out bytes.Buffer
	tel, err := NewTelemetry(cfg, logger.Nop(), &out)
	require.NoError(t, err)

	opts := OptionsFromConfig(cfg)
	opts.HTTP.CacheDir = ""
	opts.Telemetry = tel
	tr := NewTransport(NewStaticPreferences(proxy.Preference{}), opts, logger.Nop())
	defer tr.Close()

	client, err := tr.Client(context.Background())
	require.NoError(t, err)
	resp, err := client.Get(context.Background(), origin.URL)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())

	require.NoError(t, observability.Shutdown(tel, time.Second))

	assert.NotEmpty(t, traceparent.Load())
	assert.Contains(t, out.String(), "talk-telemetry")
}
