package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/apirun/internal/log"
	"github.com/tombee/apirun/internal/tracing"
)

type redactorKey struct{}

// WithRedactor attaches a function that masks known secret values in logged
// URLs for requests made with the returned context.
func WithRedactor(ctx context.Context, redact func(string) string) context.Context {
	return context.WithValue(ctx, redactorKey{}, redact)
}

func redactorFrom(ctx context.Context) func(string) string {
	if fn, ok := ctx.Value(redactorKey{}).(func(string) string); ok && fn != nil {
		return fn
	}
	return func(s string) string { return s }
}

// loggingTransport sets the User-Agent, propagates the trace id and logs
// every request with its sanitized URL, status and duration.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func newLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
		logger:    log.OrDiscard(logger),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	tracing.InjectIntoRequest(req.Context(), req)

	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start).Milliseconds()

	logURL := redactorFrom(req.Context())(sanitizeURL(req.URL))
	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("url", logURL),
		slog.Int64(log.DurationKey, elapsed),
	}
	if id := tracing.FromContextOrEmpty(req.Context()); id != "" {
		attrs = append(attrs, slog.String(log.RunIDKey, id.String()))
	}

	if err != nil {
		// The error text embeds the raw URL.
		attrs = append(attrs, slog.String("error", redactorFrom(req.Context())(err.Error())))
		t.logger.LogAttrs(req.Context(), slog.LevelWarn, "http request failed", attrs...)
		return resp, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.Int("status", resp.StatusCode))
	t.logger.LogAttrs(req.Context(), level, "http request", attrs...)
	return resp, nil
}
