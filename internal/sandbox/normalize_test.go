package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantShape  Shape
		wantParams []string
		wantSource string
	}{
		{
			name:       "bare object expression",
			script:     `{url: "https://api.example.com", method: "GET"}`,
			wantShape:  ShapeExpression,
			wantSource: `{url: "https://api.example.com", method: "GET"}`,
		},
		{
			name:       "two-parameter arrow",
			script:     `(response, pageInfo) => response.data.length === 0`,
			wantShape:  ShapeCallable,
			wantParams: []string{"response", "pageInfo"},
			wantSource: `len(response.data) == 0`,
		},
		{
			name:       "single-parameter arrow",
			script:     `x => x.page + 1`,
			wantShape:  ShapeCallable,
			wantParams: []string{"x"},
			wantSource: `x.page + 1`,
		},
		{
			name:       "arrow returning object literal",
			script:     `(sourceData) => {url: sourceData.base}`,
			wantShape:  ShapeCallable,
			wantParams: []string{"sourceData"},
			wantSource: `{url: sourceData.base}`,
		},
		{
			name:       "function with block body",
			script:     `function build(ctx) { const u = ctx.base; return {url: u} }`,
			wantShape:  ShapeCallable,
			wantParams: []string{"ctx"},
			wantSource: `let u = ctx.base; {url: u}`,
		},
		{
			name:       "statement body",
			script:     "var n = 2;\nreturn n * 2;",
			wantShape:  ShapeStatements,
			wantSource: `let n = 2; n * 2`,
		},
		{
			name:       "newline continuation stays in one statement",
			script:     "const total = a +\n  b\nreturn total",
			wantShape:  ShapeStatements,
			wantSource: "let total = a +\n  b; total",
		},
		{
			name:       "operators inside strings are untouched",
			script:     `input.note == "a === b" && input.s !== 'x.length'`,
			wantShape:  ShapeExpression,
			wantSource: `input.note == "a === b" && input.s != 'x.length'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.script)
			assert.Equal(t, tt.wantShape, got.Shape)
			assert.Equal(t, tt.wantParams, got.Params)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}
