package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxResponseBody caps how much of a response body is read.
const MaxResponseBody = 10 << 20

// Transport performs a single round trip. It returns a Response for any
// status code and an error only when no response was received.
type Transport interface {
	Do(ctx context.Context, spec RequestSpec) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, spec RequestSpec) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	return f(ctx, spec)
}

var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	baseURL *url.URL
	client  *http.Client
	timeout time.Duration
}

// HTTPTransportOption defines a function type to modify the HTTPTransport instance.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithAttemptTimeout bounds each round trip. Zero means no bound beyond the caller's context.
func WithAttemptTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.timeout = d
	}
}

func NewHTTPTransport(baseURL string, options ...HTTPTransportOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[NewHTTPTransport] invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("[NewHTTPTransport] base URL must be absolute")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	t := &HTTPTransport{baseURL: u, client: http.DefaultClient}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

func (t *HTTPTransport) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	target, err := t.baseURL.Parse(strings.TrimPrefix(spec.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", spec.Path, err)
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r := spec.bodyReader(); r != nil {
		body = r
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range spec.Headers {
		req.Header[k] = v
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
