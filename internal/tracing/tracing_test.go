// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTraceID(t *testing.T) {
	id := NewTraceID()
	if len(id) != 36 {
		t.Errorf("expected UUID length 36, got %d (%q)", len(id), id)
	}
	if id == NewTraceID() {
		t.Error("expected distinct ids")
	}
}

func TestTraceID_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		id   TraceID
		want TraceID
	}{
		{"plain", "run-42", "run-42"},
		{"strips whitespace and control", "run 42\r\n", "run42"},
		{"strips non-ascii", "rün", "rn"},
		{"truncates", TraceID(strings.Repeat("a", 200)), TraceID(strings.Repeat("a", maxTraceIDLength))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Sanitize(); got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := TraceID("\n\t").Sanitize(); len(got) != 36 {
		t.Errorf("expected generated id for empty input, got %q", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := FromContextOrEmpty(ctx); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	if got := FromContext(ctx); got == "" {
		t.Error("FromContext should generate an id")
	}

	ctx = ToContext(ctx, "abc")
	if got := FromContext(ctx); got != "abc" {
		t.Errorf("FromContext() = %q, want abc", got)
	}
}

func TestInjectIntoRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com", nil)
	InjectIntoRequest(context.Background(), req)
	if got := req.Header.Get(HeaderTraceID); got != "" {
		t.Errorf("expected no header, got %q", got)
	}

	InjectIntoRequest(ToContext(context.Background(), "run-1"), req)
	if got := req.Header.Get(HeaderTraceID); got != "run-1" {
		t.Errorf("header = %q, want run-1", got)
	}
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	ctx, run := StartRun(context.Background(), tracer, "run-1", "pageBased")
	_, iter := StartIteration(ctx, tracer, 1)
	iter.SetAttributes(map[string]any{"pagination.has_more": false, "pagination.records": 3})
	iter.End(nil)
	run.End(errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "pagination.iteration: 1" {
		t.Errorf("unexpected iteration span name %q", spans[0].Name())
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("iteration span should be a child of the run span")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("run span status = %v, want Error", spans[1].Status().Code)
	}
}

func TestSpan_NilSafe(t *testing.T) {
	var s *Span
	s.SetAttributes(map[string]any{"k": "v"})
	s.AddEvent("ignored")
	s.End(errors.New("ignored"))
}

func TestConsoleProvider(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewConsoleProvider(ConsoleConfig{ServiceName: "apirun", ServiceVersion: "test", Writer: &buf})
	if err != nil {
		t.Fatalf("NewConsoleProvider() error = %v", err)
	}

	_, run := StartRun(context.Background(), Tracer(), "run-1", "disabled")
	run.End(nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "pagination.run") {
		t.Errorf("expected exported span in output, got %q", buf.String())
	}
}
