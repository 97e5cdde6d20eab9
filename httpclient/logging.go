package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/talkwire/talkhttp/logger"
	"github.com/talkwire/talkhttp/trace"
)

const (
	logRequestMessage  = "HTTP request"
	logResponseMessage = "HTTP response"
	logFailureMessage  = "HTTP request failed"
)

// loggingTransport logs every request and response passing through it.
// Metadata is logged at info, headers and body previews at debug.
type loggingTransport struct {
	log                logger.Logger
	maxPayloadLogBytes int
	next               http.RoundTripper
	now                func() time.Time
}

func newLoggingTransport(log logger.Logger, maxPayloadLogBytes int, next http.RoundTripper) *loggingTransport {
	if maxPayloadLogBytes <= 0 {
		maxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	return &loggingTransport{
		log:                log,
		maxPayloadLogBytes: maxPayloadLogBytes,
		next:               next,
		now:                time.Now,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, traceID := trace.EnsureContext(req.Context())
	if ctx != req.Context() {
		req = req.WithContext(ctx)
	}

	t.logRequest(req, t.requestPreview(req), traceID)

	start := t.now()
	resp, err := t.next.RoundTrip(req)
	elapsed := t.now().Sub(start)
	if err != nil {
		t.log.Error().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("request_id", traceID).
			Dur("elapsed", elapsed).
			Msg(logFailureMessage)
		return nil, err
	}

	t.logResponse(resp, t.responsePreview(resp), elapsed, traceID)
	return resp, nil
}

// requestPreview reads a copy of the body through GetBody; bodies that cannot
// be replayed are not previewed.
func (t *loggingTransport) requestPreview(req *http.Request) []byte {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil
	}
	defer body.Close()

	preview, _ := io.ReadAll(io.LimitReader(body, int64(t.maxPayloadLogBytes)+1))
	return preview
}

// responsePreview peeks at the start of the body and leaves resp.Body able to
// deliver the full content.
func (t *loggingTransport) responsePreview(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}

	preview, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxPayloadLogBytes)+1))
	resp.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(preview), &errReader{err: err, rest: resp.Body}),
		Closer: resp.Body,
	}
	return preview
}

func (t *loggingTransport) logRequest(req *http.Request, preview []byte, traceID string) {
	event := t.log.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)

	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if req.ContentLength > 0 {
		event = event.Int64("body_size", req.ContentLength)
	}
	event.Msg(logRequestMessage)

	t.logPayload("outbound", req.Header, preview, traceID).
		Str("method", req.Method).
		Msg(logRequestMessage)
}

func (t *loggingTransport) logResponse(resp *http.Response, preview []byte, elapsed time.Duration, traceID string) {
	event := t.log.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Str("request_id", traceID)

	if resp.ContentLength > 0 {
		event = event.Int64("body_size", resp.ContentLength)
	}
	if resp.Header.Get(httpcache.XFromCache) != "" {
		event = event.Str("cache", "hit")
	}
	event.Msg(logResponseMessage)

	t.logPayload("inbound", resp.Header, preview, traceID).
		Int("status", resp.StatusCode).
		Msg(logResponseMessage)
}

// logPayload starts a debug event with headers and a bounded body preview.
// Headers go through Interface so sensitive values are masked by the logger.
func (t *loggingTransport) logPayload(direction string, header http.Header, preview []byte, traceID string) logger.LogEvent {
	event := t.log.Debug().
		Str("direction", direction).
		Str("request_id", traceID).
		Interface("headers", map[string][]string(header.Clone()))

	if len(preview) == 0 {
		return event
	}

	truncated := len(preview) > t.maxPayloadLogBytes
	if truncated {
		preview = preview[:t.maxPayloadLogBytes]
	}
	return event.
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview)
}

type replayBody struct {
	io.Reader
	io.Closer
}

// errReader replays a read error hit while taking the preview, then continues
// with the rest of the body.
type errReader struct {
	err  error
	rest io.Reader
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.rest.Read(p)
}
