package httpclient

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tombee/apirun/internal/tracing"
)

func TestLoggingTransport_Headers(t *testing.T) {
	var gotUA, gotTrace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotTrace = r.Header.Get(tracing.HeaderTraceID)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := newLoggingTransport(http.DefaultTransport, "apirun-test/1.0", nil)

	ctx := tracing.ToContext(context.Background(), "run-7")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "apirun-test/1.0" {
		t.Errorf("expected injected user agent, got %q", gotUA)
	}
	if gotTrace != "run-7" {
		t.Errorf("expected trace header run-7, got %q", gotTrace)
	}

	req, _ = http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom/2.0")
	resp, err = transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "custom/2.0" {
		t.Errorf("expected existing user agent preserved, got %q", gotUA)
	}
	if gotTrace != "" {
		t.Errorf("expected no trace header without context id, got %q", gotTrace)
	}
}

func TestLoggingTransport_LogsSanitizedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	transport := newLoggingTransport(http.DefaultTransport, DefaultUserAgent, logger)

	ctx := WithRedactor(context.Background(), func(s string) string {
		return strings.ReplaceAll(s, "acct-secret-9", "[REDACTED]")
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/accounts/acct-secret-9?token=t0k&page=1", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("expected 4xx to log at WARN: %s", out)
	}
	if !strings.Contains(out, `"status":401`) {
		t.Errorf("expected status in log: %s", out)
	}
	for _, secret := range []string{"t0k", "acct-secret-9"} {
		if strings.Contains(out, secret) {
			t.Errorf("log leaked %q: %s", secret, out)
		}
	}
}
