// Package jq evaluates jq queries against decoded payloads with a time and
// input-size budget. The pagination engine uses it to pull cursors out of
// responses, and the CLI uses it to filter parsed files.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout is the default execution time for a query.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the default maximum input size (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Executor runs jq queries with timeout and size limits.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute runs expression against data. A single result is returned as is,
// several results as a slice, none as nil. An empty expression returns data
// unchanged.
func (e *Executor) Execute(ctx context.Context, expression string, data any) (any, error) {
	if expression == "" {
		return data, nil
	}
	code, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, code, data)
}

// Run executes a compiled query.
func (e *Executor) Run(ctx context.Context, code *gojq.Code, data any) (any, error) {
	normalized, err := e.normalize(data)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		iter := code.RunWithContext(execCtx, normalized)
		var results []any
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
					break
				}
				done <- outcome{err: err}
				return
			}
			results = append(results, v)
		}
		switch len(results) {
		case 0:
			done <- outcome{}
		case 1:
			done <- outcome{value: results[0]}
		default:
			done <- outcome{value: results}
		}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("execution timeout after %v", e.timeout)
	}
}

// Compile parses and compiles expression.
func Compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

// Validate reports whether expression compiles.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := Compile(expression)
	return err
}

// normalize enforces the size limit and converts data into the plain JSON
// value shapes gojq accepts.
func (e *Executor) normalize(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	if int64(len(raw)) > e.maxInputSize {
		return nil, fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)", len(raw), e.maxInputSize)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return out, nil
}

// FromPath converts a dotted path such as "$.meta.next_cursor",
// "data.items[0].id" or "pages.0" into an equivalent jq query. Segments that
// are not plain identifiers are quoted. A path that already starts with "."
// is returned unchanged.
func FromPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return "."
	}
	if strings.HasPrefix(path, ".") {
		return path
	}
	path = strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")

	var b strings.Builder
	for _, segment := range splitPath(path) {
		if segment == "" {
			continue
		}
		if isIdentifier(segment) {
			b.WriteString(".")
			b.WriteString(segment)
			continue
		}
		if b.Len() == 0 {
			b.WriteString(".")
		}
		if n, err := strconv.Atoi(segment); err == nil {
			fmt.Fprintf(&b, "[%d]", n)
			continue
		}
		fmt.Fprintf(&b, "[%s]", strconv.Quote(segment))
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// splitPath splits on dots and bracket indexes: a.b[0]["c.d"] -> a, b, 0, c.d.
func splitPath(path string) []string {
	var (
		segments []string
		current  strings.Builder
	)
	flush := func() {
		segments = append(segments, current.String())
		current.Reset()
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			if current.Len() > 0 {
				flush()
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				current.WriteString(path[i:])
				i = len(path)
				continue
			}
			inner := strings.Trim(path[i+1:i+end], `"'`)
			segments = append(segments, inner)
			i += end
			if i+1 < len(path) && path[i+1] == '.' {
				i++
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		flush()
	}
	return segments
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return s != ""
}
