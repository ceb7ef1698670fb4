package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tombee/apirun/internal/log"
)

func fastRetryConfig(attempts int) Config {
	cfg := DefaultConfig()
	cfg.RetryAttempts = attempts
	cfg.RetryBackoff = 5 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	return cfg
}

func TestRetryTransport_RetriesOn429(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig(3), log.Discard())
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestRetryTransport_DoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig(3), log.Discard())
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestRetryTransport_MaxAttemptsExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "still down")
	}))
	defer server.Close()

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig(2), log.Discard())
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected final 500, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "still down" {
		t.Errorf("expected last body to stay readable, got %q", body)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestRetryTransport_NonIdempotentMethods(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"q":1}` {
			t.Errorf("attempt %d: unexpected body %q", n, body)
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	newReq := func() *http.Request {
		req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"q":1}`))
		return req
	}

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig(2), log.Discard())
	resp, err := transport.RoundTrip(newReq())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("POST should not be retried by default, got %d", resp.StatusCode)
	}

	atomic.StoreInt32(&attempts, 0)
	cfg := fastRetryConfig(2)
	cfg.AllowNonIdempotentRetry = true
	transport = newRetryTransport(http.DefaultTransport, cfg, log.Discard())
	resp, err = transport.RoundTrip(newReq())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected replayed POST to succeed, got %d", resp.StatusCode)
	}
}

func TestRetryTransport_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.RetryAttempts = 5
	cfg.RetryBackoff = time.Second
	transport := newRetryTransport(http.DefaultTransport, cfg, log.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	start := time.Now()
	_, err := transport.RoundTrip(req)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Errorf("cancellation should interrupt the backoff wait")
	}
}

func TestCalculateBackoff(t *testing.T) {
	transport := &retryTransport{baseBackoff: 100 * time.Millisecond, maxBackoff: 300 * time.Millisecond}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, 100 * time.Millisecond, 120 * time.Millisecond},
		{2, 200 * time.Millisecond, 240 * time.Millisecond},
		{3, 300 * time.Millisecond, 360 * time.Millisecond},
		{6, 300 * time.Millisecond, 360 * time.Millisecond},
	}
	for _, tt := range tests {
		got := transport.calculateBackoff(tt.attempt)
		if got < tt.min || got > tt.max {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", tt.attempt, got, tt.min, tt.max)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if got := parseRetryAfter(resp); got != 0 {
		t.Errorf("missing header: got %v", got)
	}
	resp.Header.Set("Retry-After", "2")
	if got := parseRetryAfter(resp); got != 2*time.Second {
		t.Errorf("seconds: got %v", got)
	}
	resp.Header.Set("Retry-After", "soon")
	if got := parseRetryAfter(resp); got != 0 {
		t.Errorf("invalid: got %v", got)
	}
}
