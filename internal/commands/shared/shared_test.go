package shared

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombee/apirun/internal/transport"
	pkgerrors "github.com/tombee/apirun/pkg/errors"
)

func TestNewExecutionError_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", &pkgerrors.TimeoutError{Operation: "pagination run"}, ExitTimeout},
		{"pagination", &pkgerrors.ConfigurationError{Setting: "pagination.stopCondition"}, ExitPagination},
		{"script", fmt.Errorf("building request: %w", &pkgerrors.ScriptError{Phase: "request"}), ExitScriptFailed},
		{"transport", &transport.TransportError{Type: transport.ErrorTypeAuth, StatusCode: 401}, ExitTransport},
		{"validation", &pkgerrors.ValidationError{Field: "script"}, ExitInvalidInput},
		{"parse", &pkgerrors.ParseError{Snippet: "{"}, ExitInvalidInput},
		{"unsupported format", &pkgerrors.UnsupportedFormatError{Format: "parquet"}, ExitInvalidInput},
		{"other", errors.New("boom"), ExitExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewExecutionError("run failed", tt.err).Code)
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	err := NewInvalidInputError("invalid integration", &pkgerrors.ValidationError{
		Field:      "pagination.type",
		Message:    "unknown pagination type",
		Suggestion: "Use pageBased, offsetBased, cursorBased or disabled",
	})

	code := PrintError(&buf, err)

	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, buf.String(), "Error: invalid integration")
	assert.Contains(t, buf.String(), "Suggestion: Use pageBased")
}

func TestPrintError_PlainError(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ExitExecutionFailed, PrintError(&buf, errors.New("boom")))
	assert.NotContains(t, buf.String(), "Suggestion")
}

func TestEmitJSON(t *testing.T) {
	var buf bytes.Buffer
	err := EmitJSON(&buf, map[string]any{"url": "https://api.example.com/items?a=1&b=2"})
	assert.NoError(t, err)
	assert.Equal(t, "{\n  \"url\": \"https://api.example.com/items?a=1&b=2\"\n}\n", buf.String())
}

func TestNewLogger_Verbose(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	verbose, format, _ := RegisterFlagPointers()
	*verbose, *format = true, "json"
	defer func() { *verbose, *format = false, "" }()

	var buf bytes.Buffer
	NewLogger(&buf).Debug("visible")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}
