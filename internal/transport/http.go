package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tombee/apirun/internal/log"
	"github.com/tombee/apirun/internal/request"
	"github.com/tombee/apirun/pkg/httpclient"
	"github.com/tombee/apirun/pkg/secrets"
)

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes int64 = 256 << 20

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Client configures the underlying HTTP client.
	Client httpclient.Config

	// RequestsPerSecond limits outbound requests. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default 1).
	Burst int

	// MaxResponseBytes caps the body read (default DefaultMaxResponseBytes).
	MaxResponseBytes int64
}

// DefaultHTTPConfig returns the configuration used by the CLI.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Client:           httpclient.DefaultConfig(),
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// HTTPTransport is the reference HTTP(S) transport.
type HTTPTransport struct {
	client      *http.Client
	rateLimiter RateLimiter
	maxBytes    int64
	logger      *slog.Logger
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(cfg HTTPConfig, logger *slog.Logger) (*HTTPTransport, error) {
	client, err := httpclient.New(cfg.Client, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid http client configuration: %w", err)
	}

	t := &HTTPTransport{
		client:   client,
		maxBytes: cfg.MaxResponseBytes,
		logger:   log.WithComponent(logger, "http"),
	}
	if t.maxBytes <= 0 {
		t.maxBytes = DefaultMaxResponseBytes
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return t, nil
}

// Name returns "http".
func (t *HTTPTransport) Name() string {
	return "http"
}

// SetRateLimiter replaces the rate limiter. nil disables limiting.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// Execute sends the request and returns the raw body. Status codes >= 400
// become a *TransportError whose message never includes the body.
func (t *HTTPTransport) Execute(ctx context.Context, d *request.Descriptor, ec *request.ExecutionContext) (*Response, error) {
	var credentials map[string]any
	if ec != nil {
		credentials = ec.Credentials
	}
	masker := secrets.NewMasker(credentials)
	ctx = httpclient.WithRedactor(ctx, masker.Mask)

	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{
				Type:    ErrorTypeCancelled,
				Message: "rate limit wait cancelled",
				Cause:   err,
			}
		}
	}

	httpReq, err := buildHTTPRequest(ctx, d)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: masker.Mask(fmt.Sprintf("failed to build HTTP request: %s", err)),
			Cause:   err,
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyHTTPError(err, masker)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBytes+1))
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeConnection,
			Message:   "failed to read response body",
			Retryable: true,
			Cause:     err,
		}
	}
	if int64(len(body)) > t.maxBytes {
		return nil, &TransportError{
			Type:       ErrorTypeInvalidReq,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", t.maxBytes),
		}
	}

	if httpResp.StatusCode >= 400 {
		metadata := map[string]any{}
		if v := httpResp.Header.Get("Retry-After"); v != "" {
			metadata["retry_after"] = v
		}
		if v := httpResp.Header.Get("X-Request-ID"); v != "" {
			metadata["request_id"] = v
		}
		t.logger.Debug("http error response",
			slog.Int("status", httpResp.StatusCode),
			slog.Int("body_bytes", len(body)))
		return nil, statusError(httpResp.StatusCode, metadata)
	}

	return &Response{
		Raw:        body,
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
	}, nil
}

// buildHTTPRequest merges the descriptor query into the URL and encodes the
// body. String bodies are sent verbatim, anything else as JSON.
func buildHTTPRequest(ctx context.Context, d *request.Descriptor) (*http.Request, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("URL must be absolute")
	}
	if len(d.Query) > 0 {
		q := u.Query()
		keys := make([]string, 0, len(d.Query))
		for k := range d.Query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			addQueryValue(q, k, d.Query[k])
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := d.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, */*;q=0.8")
	}
	return req, nil
}

func addQueryValue(q url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
	case []any:
		for _, item := range val {
			addQueryValue(q, key, item)
		}
	case string:
		q.Add(key, val)
	case float64:
		if val == float64(int64(val)) {
			q.Add(key, fmt.Sprintf("%d", int64(val)))
		} else {
			q.Add(key, fmt.Sprintf("%g", val))
		}
	case map[string]any:
		raw, _ := json.Marshal(val)
		q.Add(key, string(raw))
	default:
		q.Add(key, fmt.Sprintf("%v", val))
	}
}

func classifyHTTPError(err error, masker *secrets.Masker) *TransportError {
	if errors.Is(err, context.Canceled) {
		return &TransportError{Type: ErrorTypeCancelled, Message: "request cancelled", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Type: ErrorTypeTimeout, Message: "request deadline exceeded", Retryable: true, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timeout", Retryable: true, Cause: err}
	}
	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   masker.Mask(err.Error()),
		Retryable: true,
		Cause:     err,
	}
}
