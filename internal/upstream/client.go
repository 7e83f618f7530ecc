package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/n0madic/go-lanbridge/internal/auth"
	"github.com/n0madic/go-lanbridge/internal/limits"
)

// ErrUnavailable marks failures where no upstream response was received.
var ErrUnavailable = errors.New("upstream request failed")

// ErrReadTimeout is returned by Response.Body when a single read waits longer
// than the client's ReadTimeout.
var ErrReadTimeout = errors.New("upstream read timed out")

// CredentialResolver yields the credentials for one upstream call.
type CredentialResolver interface {
	Resolve() (*auth.Credentials, error)
}

// Request is one upstream call. Inbound carries the client's headers; only
// Accept, Content-Type and the forwarded allowlist are read from it.
type Request struct {
	Body    []byte
	Inbound http.Header
}

// Response wraps the upstream HTTP response. The caller must close Body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	RequestID  string
}

// ContentType returns the upstream Content-Type, or fallback when absent.
func (r *Response) ContentType(fallback string) string {
	if ct := strings.TrimSpace(r.Header.Get("Content-Type")); ct != "" {
		return ct
	}
	return fallback
}

// Client posts native payloads to the Codex responses endpoint. Every call is
// a single attempt: there is no retry or backoff.
//
// There is no deadline on the whole exchange. Connect and response headers are
// bounded by the transport, and each body read by ReadTimeout, so an event
// stream may run as long as the upstream keeps sending.
type Client struct {
	HTTP        *http.Client
	URL         string
	ReadTimeout time.Duration
	Resolver    CredentialResolver
	Logger      *slog.Logger
}

// NewClient creates an upstream client with its own transport. timeout bounds
// dialing, waiting for response headers, and every single body read.
func NewClient(url string, timeout time.Duration, resolver CredentialResolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		HTTP:        &http.Client{Transport: newTransport(timeout)},
		URL:         url,
		ReadTimeout: timeout,
		Resolver:    resolver,
		Logger:      logger,
	}
}

func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.ResponseHeaderTimeout = timeout
	return t
}

// Do resolves credentials and sends the request. Credential failures are
// returned as *auth.AuthError; transport failures wrap ErrUnavailable. Any
// HTTP status, including >= 400, is returned as a Response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	creds, err := c.Resolver.Resolve()
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.URL, bytes.NewReader(req.Body))
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	httpReq.Header = BuildHeaders(creds, req.Inbound)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	requestID := upstreamRequestID(resp.Header)
	attrs := []any{"status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type")}
	if requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	c.Logger.Debug("upstream.response", attrs...)
	limits.Log(c.Logger, resp.Header)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &idleReader{rc: resp.Body, timeout: c.ReadTimeout, cancel: cancel},
		RequestID:  requestID,
	}, nil
}

// idleReader aborts the upstream request when one Read blocks longer than
// timeout. Closing it releases the request context.
type idleReader struct {
	rc      io.ReadCloser
	timeout time.Duration
	cancel  context.CancelCauseFunc
	expired atomic.Bool
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.timeout <= 0 {
		return r.rc.Read(p)
	}
	timer := time.AfterFunc(r.timeout, func() {
		r.expired.Store(true)
		r.cancel(ErrReadTimeout)
	})
	n, err := r.rc.Read(p)
	timer.Stop()
	if err != nil && r.expired.Load() {
		err = fmt.Errorf("%w: %w", ErrReadTimeout, err)
	}
	return n, err
}

func (r *idleReader) Close() error {
	err := r.rc.Close()
	r.cancel(nil)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func upstreamRequestID(headers http.Header) string {
	if headers == nil {
		return ""
	}
	return firstNonEmpty(
		headers.Get("x-request-id"),
		headers.Get("x-openai-request-id"),
		headers.Get("x-oai-request-id"),
		headers.Get("openai-request-id"),
		headers.Get("request-id"),
		headers.Get("cf-ray"),
	)
}
