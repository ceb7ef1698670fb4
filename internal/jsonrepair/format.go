package jsonrepair

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PrettyPrint serializes v with two-space indentation. Object keys are sorted,
// so the output is stable for equal values.
func PrettyPrint(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Minify repairs text if needed and re-serializes it without whitespace.
// It fails with a *errors.ParseError when no repair path succeeds.
func Minify(text string) (string, error) {
	result := Parse(text)
	if !result.Success {
		return "", result.Error
	}
	return Compact(result.Data)
}

// Compact serializes v without whitespace.
func Compact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
