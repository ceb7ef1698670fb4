package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tombee/apirun/internal/log"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

func newTestRunner(opts ...Option) *Runner {
	return NewRunner(log.Discard(), opts...)
}

func requireScriptError(t *testing.T, err error, reason apierrors.ScriptReason) *apierrors.ScriptError {
	t.Helper()
	require.Error(t, err)
	var scriptErr *apierrors.ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, reason, scriptErr.Reason)
	return scriptErr
}

func TestRunner_Execute(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name   string
		script string
		input  any
		want   string
	}{
		{
			name:   "object keys are bound at top level",
			script: `{url: base + "/items", method: "GET"}`,
			input:  map[string]any{"base": "https://api.example.com"},
			want:   `{"method":"GET","url":"https://api.example.com/items"}`,
		},
		{
			name:   "input is bound by name",
			script: `input.page * 10`,
			input:  map[string]any{"page": 3},
			want:   `30`,
		},
		{
			name:   "strict equality and length",
			script: `input.status === "done" && items.length > 2`,
			input:  map[string]any{"status": "done", "items": []any{1, 2, 3}},
			want:   `true`,
		},
		{
			name:   "undefined identifiers are nil",
			script: `missing == null && undefined == nil`,
			input:  map[string]any{},
			want:   `true`,
		},
		{
			name:   "statement body",
			script: "const next = page + 1;\nreturn {page: next}",
			input:  map[string]any{"page": 1},
			want:   `{"page":2}`,
		},
		{
			name:   "host helpers",
			script: `{q: encodeURIComponent(term), auth: btoa("u:p"), n: parseInt(limit)}`,
			input:  map[string]any{"term": "a b/c", "limit": "50"},
			want:   `{"auth":"dTpw","n":50,"q":"a%20b%2Fc"}`,
		},
		{
			name:   "non-object input",
			script: `len(input)`,
			input:  []any{"a", "b"},
			want:   `2`,
		},
	}

	r := newTestRunner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Execute(context.Background(), tt.script, tt.input, RequestLimits())
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestRunner_CallBindsParamsByPosition(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRunner()
	out, err := r.Call(context.Background(),
		`(r, p) => {hasMore: p.page < 3, total: r.total + p.extra}`,
		HandlerLimits(),
		Arg{Name: "response", Value: map[string]any{"total": 1}},
		Arg{Name: "pageInfo", Value: map[string]any{"page": 1, "extra": 2}},
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hasMore":true,"total":3}`, string(out))

	out, err = r.Call(context.Background(),
		`response.total`,
		HandlerLimits(),
		Arg{Name: "response", Value: map[string]any{"total": 7}},
		Arg{Name: "pageInfo", Value: map[string]any{}},
	)
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(out))
}

func TestRunner_DataKeysDoNotShadowHelpers(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRunner()
	input := map[string]any{"has": "yes", "btoa": 1, "encodeURIComponent": false, "token": "abc"}

	out, err := r.Execute(context.Background(),
		`{found: has(["a", "b"], "b"), enc: btoa(token), q: encodeURIComponent("a b"), raw: input.has}`,
		input, RequestLimits())
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":true,"enc":"YWJj","q":"a%20b","raw":"yes"}`, string(out))
}

func TestRunner_NoStateSurvivesBetweenCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRunner()
	input := map[string]any{"items": []any{"a"}}

	_, err := r.Execute(context.Background(), `let leaked = 1; leaked`, input, HandlerLimits())
	require.NoError(t, err)

	out, err := r.Execute(context.Background(), `leaked`, input, HandlerLimits())
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
	assert.Equal(t, map[string]any{"items": []any{"a"}}, input)
}

func TestRunner_Failures(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRunner()
	ctx := context.Background()

	t.Run("compile error", func(t *testing.T) {
		_, err := r.Execute(ctx, `{url: `, map[string]any{}, RequestLimits())
		scriptErr := requireScriptError(t, err, apierrors.ScriptReasonCompile)
		assert.Equal(t, TierRequest, scriptErr.Phase)
	})

	t.Run("empty script", func(t *testing.T) {
		_, err := r.Execute(ctx, "   ", nil, RequestLimits())
		requireScriptError(t, err, apierrors.ScriptReasonCompile)
	})

	t.Run("runtime exception", func(t *testing.T) {
		_, err := r.Execute(ctx, `int(name)`, map[string]any{"name": "abc"}, HandlerLimits())
		scriptErr := requireScriptError(t, err, apierrors.ScriptReasonException)
		assert.Equal(t, TierHandler, scriptErr.Phase)
	})

	t.Run("memory budget", func(t *testing.T) {
		before := testutil.ToFloat64(evaluationsTotal.WithLabelValues(TierHandler, "memory"))

		_, err := r.Execute(ctx, `map(1..int(n), #)`, map[string]any{"n": 5000000}, HandlerLimits())
		requireScriptError(t, err, apierrors.ScriptReasonMemory)

		after := testutil.ToFloat64(evaluationsTotal.WithLabelValues(TierHandler, "memory"))
		assert.Equal(t, before+1, after)
	})

	t.Run("program too large", func(t *testing.T) {
		limits := HandlerLimits()
		limits.MaxNodes = 3
		_, err := r.Execute(ctx, `a + b + c + d + e`, map[string]any{}, limits)
		requireScriptError(t, err, apierrors.ScriptReasonCompile)
	})

	t.Run("unserializable input", func(t *testing.T) {
		_, err := r.Execute(ctx, `1`, map[string]any{"fn": func() {}}, HandlerLimits())
		requireScriptError(t, err, apierrors.ScriptReasonSerialization)
	})

	t.Run("input too large", func(t *testing.T) {
		limits := HandlerLimits()
		limits.MaxInputBytes = 8
		_, err := r.Execute(ctx, `1`, map[string]any{"data": "more than eight bytes"}, limits)
		requireScriptError(t, err, apierrors.ScriptReasonSerialization)
	})

	t.Run("unserializable result", func(t *testing.T) {
		_, err := r.Execute(ctx, `z / z`, map[string]any{"z": 0}, HandlerLimits())
		requireScriptError(t, err, apierrors.ScriptReasonSerialization)
	})
}

func TestRunner_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := newTestRunner(WithFunction("block", func(args ...any) (any, error) {
		<-release
		return nil, nil
	}))

	limits := HandlerLimits()
	limits.Timeout = 20 * time.Millisecond

	started := time.Now()
	_, err := r.Execute(context.Background(), `block()`, map[string]any{}, limits)
	requireScriptError(t, err, apierrors.ScriptReasonTimeout)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestRunner_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := newTestRunner(WithFunction("block", func(args ...any) (any, error) {
		<-release
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := r.Execute(ctx, `block()`, map[string]any{}, RequestLimits())
	requireScriptError(t, err, apierrors.ScriptReasonTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}
