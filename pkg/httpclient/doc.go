// Package httpclient builds the HTTP client used by the apirun HTTP transport.
//
// Clients created by New share these defaults:
//   - Request logging through the supplied *slog.Logger with sanitized URLs
//   - User-Agent header injection
//   - Trace id propagation (X-Correlation-ID) from the request context
//   - TLS 1.2 minimum (TLS 1.3 preferred) and connection pooling
//
// Retries are off by default. A pagination run already bounds its own
// request cycles, so only transport-level hiccups are worth retrying and
// only when the operator opts in:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.RetryAttempts = 2
//	client, err := httpclient.New(cfg, logger)
//
// When enabled, retries apply to 5xx, 408 and 429 responses and to transient
// network errors, honour Retry-After, and are limited to idempotent methods
// unless AllowNonIdempotentRetry is set.
//
// Query parameters whose names look like secrets are redacted from logs.
// Callers that know the concrete secret values for a request can attach a
// redactor with WithRedactor so those values are masked wherever they
// appear in the logged URL.
package httpclient
