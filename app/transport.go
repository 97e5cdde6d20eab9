package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/talkwire/talkhttp/httpclient"
	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/proxy"
)

// ErrClosed is returned by Client and Rebuild after Close.
var ErrClosed = errors.New("app: transport closed")

// Transport holds the one HTTP client shared by the whole process. The client
// is built on first use and replaced only by an explicit Rebuild, so a change
// to the proxy preference has no effect until then.
type Transport struct {
	prefs PreferencesProvider
	opts  Options
	log   logger.Logger

	mu     sync.Mutex
	client *httpclient.Client
	closed bool
}

// NewTransport creates a holder; nothing is built until Client is called.
func NewTransport(prefs PreferencesProvider, opts Options, log logger.Logger) *Transport {
	if log == nil {
		log = logger.Nop()
	}
	return &Transport{
		prefs: prefs,
		opts:  opts,
		log:   log,
	}
}

// Client returns the shared client, building it on first call.
// Concurrent first calls build exactly once.
func (t *Transport) Client(ctx context.Context) (*httpclient.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.client != nil {
		return t.client, nil
	}

	client, err := t.build(ctx)
	if err != nil {
		return nil, err
	}
	t.client = client
	return client, nil
}

// Rebuild builds a new client from the current preference and swaps it in.
// Requests already using the previous client finish on it. On error the
// previous client stays in place.
func (t *Transport) Rebuild(ctx context.Context) (*httpclient.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	client, err := t.build(ctx)
	if err != nil {
		return nil, err
	}

	previous := t.client
	t.client = client
	if previous != nil {
		if err := previous.Close(); err != nil {
			t.log.Warn().Err(err).Msg("Failed to close previous HTTP client")
		}
	}

	t.log.Info().Str("proxy", client.Proxy().String()).Msg("Rebuilt HTTP client")
	return client, nil
}

// Close drops the shared client. Later calls to Client fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *Transport) build(ctx context.Context) (*httpclient.Client, error) {
	pref, err := t.prefs.ProxyServer()
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy preference: %w", err)
	}

	desc, err := proxy.Resolve(ctx, pref, t.opts.Resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve proxy: %w", err)
	}

	builder := httpclient.NewBuilder(t.log).
		WithConfig(t.opts.HTTP).
		WithProxy(desc).
		WithInterceptors(t.opts.Interceptors...)
	if tel := t.opts.Telemetry; tel != nil {
		builder.WithTelemetry(httpclient.Telemetry{
			TracerProvider: tel.TracerProvider(),
			MeterProvider:  tel.MeterProvider(),
			Propagators:    tel.Propagators(),
		})
	}

	client, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP client: %w", err)
	}
	return client, nil
}
