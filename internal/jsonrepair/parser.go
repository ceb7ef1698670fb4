// Package jsonrepair parses loosely formed JSON.
//
// Parse tries a strict parse first. When that fails it runs an ordered
// pipeline of text repairs (nested triple-quoted JSON, trailing commas,
// Python literals, single quotes, raw control characters, unquoted keys,
// trailing garbage) and parses again. As a last resort it extracts the
// largest bracket-delimited substring that parses, which recovers JSON
// embedded in prose or log output.
package jsonrepair

import (
	"encoding/json"
	"time"

	apierrors "github.com/tombee/apirun/pkg/errors"
)

const snippetLength = 200

// ParseResult describes the outcome of Parse.
type ParseResult struct {
	// Success is true when Data holds a parsed value
	Success bool

	// Data is the parsed value (map[string]any, []any, string, float64, bool or nil)
	Data any

	// Error is a *errors.ParseError when Success is false
	Error error

	// AppliedRepairs lists the repairs that changed the text, in pipeline order
	AppliedRepairs []string

	// Duration is how long parsing took
	Duration time.Duration
}

type options struct {
	repair bool
	extra  []Strategy
}

// Option configures Parse.
type Option func(*options)

// WithoutRepair disables the repair pipeline; only a strict parse is tried.
func WithoutRepair() Option {
	return func(o *options) { o.repair = false }
}

// WithStrategies appends extra repair strategies after the built-in ones.
func WithStrategies(extra ...Strategy) Option {
	return func(o *options) { o.extra = append(o.extra, extra...) }
}

// Parse parses text as JSON, repairing it if necessary.
func Parse(text string, opts ...Option) *ParseResult {
	started := time.Now()
	o := options{repair: true}
	for _, opt := range opts {
		opt(&o)
	}

	result := &ParseResult{AppliedRepairs: []string{}}
	defer func() { result.Duration = time.Since(started) }()

	data, strictErr := strictParse(text)
	if strictErr == nil {
		result.Success = true
		result.Data = data
		return result
	}

	if !o.repair {
		result.Error = newParseError(text, strictErr, nil)
		return result
	}

	repaired := text
	strategies := append(DefaultStrategies(), o.extra...)
	for _, strategy := range strategies {
		next := strategy.Apply(repaired)
		if next != repaired {
			result.AppliedRepairs = append(result.AppliedRepairs, strategy.Name)
			repaired = next
		}
	}

	if data, err := strictParse(repaired); err == nil {
		result.Success = true
		result.Data = data
		return result
	}

	for _, candidate := range []string{repaired, text} {
		if data, ok := extractLargest(candidate); ok {
			result.AppliedRepairs = append(result.AppliedRepairs, RepairAggressive)
			result.Success = true
			result.Data = data
			return result
		}
	}

	result.Error = newParseError(text, strictErr, result.AppliedRepairs)
	return result
}

// IsValid reports whether text is strictly valid JSON. No repair is attempted.
func IsValid(text string) bool {
	return json.Valid([]byte(text))
}

func strictParse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func newParseError(text string, original error, repairs []string) *apierrors.ParseError {
	snippet := text
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength] + "..."
	}
	return &apierrors.ParseError{
		Original:       original,
		AppliedRepairs: append([]string(nil), repairs...),
		Snippet:        snippet,
	}
}
