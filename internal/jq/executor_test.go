package jq

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		data       any
		want       any
		wantErr    bool
	}{
		{
			name:       "empty expression returns data as-is",
			expression: "",
			data:       map[string]any{"foo": "bar"},
			want:       map[string]any{"foo": "bar"},
		},
		{
			name:       "simple field extraction",
			expression: ".foo",
			data:       map[string]any{"foo": "bar"},
			want:       "bar",
		},
		{
			name:       "typed input is normalized",
			expression: "map(.x)",
			data:       []map[string]int{{"x": 1}, {"x": 2}},
			want:       []any{float64(1), float64(2)},
		},
		{
			name:       "multiple results become a slice",
			expression: ".[]",
			data:       []any{"a", "b"},
			want:       []any{"a", "b"},
		},
		{
			name:       "no results",
			expression: "empty",
			data:       map[string]any{},
			want:       nil,
		},
		{
			name:       "invalid expression",
			expression: ".[",
			data:       map[string]any{"foo": "bar"},
			wantErr:    true,
		},
		{
			name:       "runtime error",
			expression: ".foo + 1",
			data:       map[string]any{"foo": "bar"},
			wantErr:    true,
		},
	}

	executor := NewExecutor(DefaultTimeout, DefaultMaxInputSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := executor.Execute(context.Background(), tt.expression, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Execute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecutor_InputSizeLimit(t *testing.T) {
	executor := NewExecutor(DefaultTimeout, 16)
	_, err := executor.Execute(context.Background(), ".", map[string]any{"data": strings.Repeat("x", 64)})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	executor := NewExecutor(20*time.Millisecond, DefaultMaxInputSize)
	start := time.Now()
	_, err := executor.Execute(context.Background(), "last(range(1e12))", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout was not enforced")
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "."},
		{"$", "."},
		{"next_cursor", ".next_cursor"},
		{"$.meta.next_cursor", ".meta.next_cursor"},
		{"data.items[0].id", ".data.items[0].id"},
		{"pages.0", ".pages[0]"},
		{"0.id", ".[0].id"},
		{"links.next-page", `.links["next-page"]`},
		{`meta["next.cursor"]`, `.meta["next.cursor"]`},
		{".already.jq", ".already.jq"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FromPath(tt.path); got != tt.want {
				t.Errorf("FromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFromPath_Executes(t *testing.T) {
	data := map[string]any{
		"meta": map[string]any{"next.cursor": "c2", "pages": []any{"p0", "p1"}},
	}
	executor := NewExecutor(0, 0)
	for path, want := range map[string]any{
		`meta["next.cursor"]`: "c2",
		"$.meta.pages[1]":     "p1",
		"meta.missing":        nil,
	} {
		got, err := executor.Execute(context.Background(), FromPath(path), data)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if got != want {
			t.Errorf("%s: got %v, want %v", path, got, want)
		}
	}
}
