package jsonrepair

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/tombee/apirun/pkg/errors"
)

func TestParse_ValidJSONIsUntouched(t *testing.T) {
	inputs := []string{
		`{"a":[1,2,{"b":null}]}`,
		`[]`,
		`"just a string"`,
		`42`,
		`{"msg": "it's fine"}`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			result := Parse(in)
			require.True(t, result.Success)
			assert.Empty(t, result.AppliedRepairs)

			strict, err := strictParse(in)
			require.NoError(t, err)
			if diff := cmp.Diff(strict, result.Data); diff != "" {
				t.Errorf("repair parse differs from strict parse (-strict +repair):\n%s", diff)
			}
		})
	}
}

func TestParse_Repairs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    any
		repairs []string
	}{
		{
			name:    "trailing comma in object",
			input:   `{"key": "value",}`,
			want:    map[string]any{"key": "value"},
			repairs: []string{RepairTrailingCommas},
		},
		{
			name:    "trailing comma in nested array",
			input:   `{"items": [1, 2, 3,], "ok": true}`,
			want:    map[string]any{"items": []any{1.0, 2.0, 3.0}, "ok": true},
			repairs: []string{RepairTrailingCommas},
		},
		{
			name:    "single quotes",
			input:   `{'key': 'value'}`,
			want:    map[string]any{"key": "value"},
			repairs: []string{RepairSingleQuotes},
		},
		{
			name:    "apostrophe inside single-quoted string",
			input:   `{'msg': 'it's fine'}`,
			want:    map[string]any{"msg": "it's fine"},
			repairs: []string{RepairSingleQuotes},
		},
		{
			name:    "double quote inside single-quoted string",
			input:   `{'msg': 'say "hi"'}`,
			want:    map[string]any{"msg": `say "hi"`},
			repairs: []string{RepairSingleQuotes},
		},
		{
			name:    "python literals",
			input:   `{'a': None, 'b': True, 'c': False, 'd': 'None'}`,
			want:    map[string]any{"a": nil, "b": true, "c": false, "d": "None"},
			repairs: []string{RepairPythonLiterals, RepairSingleQuotes},
		},
		{
			name:    "raw newline inside string",
			input:   "{\"text\": \"line1\nline2\ttabbed\"}",
			want:    map[string]any{"text": "line1\nline2\ttabbed"},
			repairs: []string{RepairControlCharacters},
		},
		{
			name:    "unquoted keys",
			input:   `{name: "x", age: 3}`,
			want:    map[string]any{"name": "x", "age": 3.0},
			repairs: []string{RepairUnquotedKeys},
		},
		{
			name:    "trailing characters",
			input:   `{"a": 1} <- that was the payload`,
			want:    map[string]any{"a": 1.0},
			repairs: []string{RepairTrailingCharacters},
		},
		{
			name:    "nested triple-quoted JSON",
			input:   `{"payload": """{"inner": 1}"""}`,
			want:    map[string]any{"payload": map[string]any{"inner": 1.0}},
			repairs: []string{RepairNestedJSON},
		},
		{
			name:    "triple-quoted text becomes a string",
			input:   `{"note": """hello "world" """}`,
			want:    map[string]any{"note": `hello "world"`},
			repairs: []string{RepairNestedJSON},
		},
		{
			name:    "combined repairs run in order",
			input:   `{name: 'O'Brien', tags: ['a', 'b',],}`,
			want:    map[string]any{"name": "O'Brien", "tags": []any{"a", "b"}},
			repairs: []string{RepairTrailingCommas, RepairSingleQuotes, RepairUnquotedKeys},
		},
		{
			name:    "JSON embedded in prose",
			input:   `Here is the result: {"ok": true, "items": [1]} hope that helps`,
			want:    map[string]any{"ok": true, "items": []any{1.0}},
			repairs: []string{RepairAggressive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			require.True(t, result.Success, "parse failed: %v", result.Error)
			if diff := cmp.Diff(tt.want, result.Data); diff != "" {
				t.Errorf("unexpected data (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.repairs, result.AppliedRepairs)
		})
	}
}

func TestParse_Exhausted(t *testing.T) {
	result := Parse("not json at all")

	require.False(t, result.Success)
	var parseErr *apierrors.ParseError
	require.ErrorAs(t, result.Error, &parseErr)
	assert.NotNil(t, parseErr.Original)
	assert.Equal(t, "not json at all", parseErr.Snippet)
}

func TestParse_WithoutRepair(t *testing.T) {
	result := Parse(`{'a': 1}`, WithoutRepair())

	assert.False(t, result.Success)
	assert.Empty(t, result.AppliedRepairs)
	var parseErr *apierrors.ParseError
	assert.ErrorAs(t, result.Error, &parseErr)
}

func TestParse_ExtraStrategies(t *testing.T) {
	nan := Strategy{
		Name: "nan_to_null",
		Apply: func(s string) string {
			return strings.ReplaceAll(s, "NaN", "null")
		},
	}

	result := Parse(`{"score": NaN}`, WithStrategies(nan))

	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"score": nil}, result.Data)
	assert.Equal(t, []string{"nan_to_null"}, result.AppliedRepairs)
}

func TestParse_RecordsDuration(t *testing.T) {
	result := Parse(`{"a":1}`)
	assert.GreaterOrEqual(t, int64(result.Duration), int64(0))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(`{"a": 1}`))
	assert.False(t, IsValid(`{"a": 1,}`))
	assert.False(t, IsValid(``))
}

func TestSplitSegments(t *testing.T) {
	segs := splitSegments(`{'a': "b", c: 'd'}`, true)

	var kinds []segmentKind
	var texts []string
	for _, s := range segs {
		kinds = append(kinds, s.kind)
		texts = append(texts, s.text)
	}
	assert.Equal(t, []segmentKind{segCode, segSingle, segCode, segDouble, segCode, segSingle, segCode}, kinds)
	assert.Equal(t, []string{"{", "'a'", ": ", `"b"`, ", c: ", "'d'", "}"}, texts)
}

func TestStripTrailingCharacters_IgnoresBracketsInStrings(t *testing.T) {
	in := `{"a": "}"} extra`
	assert.Equal(t, `{"a": "}"}`, stripTrailingCharacters(in))
}
