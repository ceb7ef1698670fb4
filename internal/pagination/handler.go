package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tombee/apirun/internal/jq"
	"github.com/tombee/apirun/internal/sandbox"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Script phases reported in *errors.ScriptError.
const (
	PhaseHandler       = "handler"
	PhaseStopCondition = "stop_condition"
)

// Page is one normalized response as seen by continuation logic.
type Page struct {
	Data       any
	StatusCode int
	Headers    map[string][]string
}

// response is the first argument of handler and stop-condition scripts.
// Headers are flattened to one string per name.
func (p Page) response() map[string]any {
	headers := make(map[string]any, len(p.Headers))
	for k, v := range p.Headers {
		headers[k] = strings.Join(v, ", ")
	}
	return map[string]any{
		"data":       p.Data,
		"headers":    headers,
		"statusCode": p.StatusCode,
	}
}

// HandlerResult is what a handler reports about one page.
type HandlerResult struct {
	HasMore    bool   `json:"hasMore"`
	ResultSize *int   `json:"resultSize,omitempty"`
	Cursor     any    `json:"cursor,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Handler computes continuation info for one page.
type Handler interface {
	Handle(ctx context.Context, page Page, state *State) (*HandlerResult, error)
}

// DecodeHandlerResult validates the JSON returned by a handler script.
func DecodeHandlerResult(raw []byte) (*HandlerResult, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &apierrors.ValidationError{Field: "handler", Message: "handler result is not valid JSON", Cause: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &apierrors.ValidationError{
			Field:      "handler",
			Message:    fmt.Sprintf("handler must return an object, got %s", kindOf(v)),
			Suggestion: "return {hasMore: <bool>, cursor?: ..., resultSize?: <number>}",
		}
	}

	hasMore, ok := obj["hasMore"].(bool)
	if !ok {
		return nil, &apierrors.ValidationError{
			Field:   "handler.hasMore",
			Message: fmt.Sprintf("hasMore must be a boolean, got %s", kindOf(obj["hasMore"])),
		}
	}
	result := &HandlerResult{HasMore: hasMore, Cursor: obj["cursor"]}

	switch size := obj["resultSize"].(type) {
	case nil:
	case float64:
		n := int(size)
		result.ResultSize = &n
	default:
		return nil, &apierrors.ValidationError{
			Field:   "handler.resultSize",
			Message: fmt.Sprintf("resultSize must be a number, got %s", kindOf(size)),
		}
	}

	switch msg := obj["error"].(type) {
	case nil:
	case string:
		result.Error = msg
	default:
		result.Error = fmt.Sprint(msg)
	}
	return result, nil
}

// scriptHandler evaluates an authored handler script.
type scriptHandler struct {
	runner *sandbox.Runner
	script string
}

func (h *scriptHandler) Handle(ctx context.Context, page Page, state *State) (*HandlerResult, error) {
	out, err := h.runner.Call(ctx, h.script, sandbox.HandlerLimits(),
		sandbox.Arg{Name: "response", Value: page.response()},
		sandbox.Arg{Name: "pageInfo", Value: state.pageInfo()},
	)
	if err != nil {
		return nil, withPhase(err, PhaseHandler, h.script)
	}
	result, err := DecodeHandlerResult(out)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, &apierrors.ScriptError{
			Phase:   PhaseHandler,
			Reason:  apierrors.ScriptReasonException,
			Message: result.Error,
			Script:  h.script,
		}
	}
	return result, nil
}

// sizeHandler is the default for page and offset pagination: a page shorter
// than pageSize is the last one.
type sizeHandler struct{}

func (sizeHandler) Handle(_ context.Context, page Page, state *State) (*HandlerResult, error) {
	n := recordCount(page.Data)
	return &HandlerResult{HasMore: n >= state.PageSize, ResultSize: &n}, nil
}

// cursorHandler is the default for cursor pagination: an empty cursor ends
// the run.
type cursorHandler struct {
	exec *jq.Executor
	path string
}

func (h *cursorHandler) Handle(ctx context.Context, page Page, _ *State) (*HandlerResult, error) {
	cursor, err := extractCursor(ctx, h.exec, h.path, page.Data)
	if err != nil {
		return nil, &apierrors.ValidationError{Field: "pagination.cursorPath", Message: err.Error(), Cause: err}
	}
	n := recordCount(page.Data)
	result := &HandlerResult{HasMore: cursor != "", ResultSize: &n}
	if cursor != "" {
		result.Cursor = cursor
	}
	return result, nil
}

// evaluateStopCondition runs a stop-condition script. It must return a
// boolean; true ends the run.
func evaluateStopCondition(ctx context.Context, runner *sandbox.Runner, script string, page Page, state *State) (bool, error) {
	out, err := runner.Call(ctx, script, sandbox.HandlerLimits(),
		sandbox.Arg{Name: "response", Value: page.response()},
		sandbox.Arg{Name: "pageInfo", Value: state.pageInfo()},
	)
	if err != nil {
		return false, withPhase(err, PhaseStopCondition, script)
	}
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		return false, &apierrors.ValidationError{Field: "stopCondition", Message: "result is not valid JSON", Cause: err}
	}
	stop, ok := v.(bool)
	if !ok {
		return false, &apierrors.ValidationError{
			Field:      "stopCondition",
			Message:    fmt.Sprintf("stop condition must return a boolean, got %s", kindOf(v)),
			Suggestion: "return true to stop pagination and false to fetch the next page",
		}
	}
	return stop, nil
}

// legacyDecision infers continuation when no script is configured.
func legacyDecision(ctx context.Context, exec *jq.Executor, t Type, data any, pageSize int) (*HandlerResult, error) {
	if t == TypeCursorBased {
		return (&cursorHandler{exec: exec}).Handle(ctx, Page{Data: data}, nil)
	}

	n := recordCount(data)
	arr, isArray := data.([]any)
	switch {
	case n == 0:
		return &HandlerResult{HasMore: false, ResultSize: &n}, nil
	case isArray:
		return &HandlerResult{HasMore: len(arr) >= pageSize, ResultSize: &n}, nil
	default:
		return &HandlerResult{HasMore: false, ResultSize: &n}, nil
	}
}

func withPhase(err error, phase, script string) error {
	var se *apierrors.ScriptError
	if errors.As(err, &se) {
		se.Phase = phase
		se.Script = script
		return se
	}
	return err
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
