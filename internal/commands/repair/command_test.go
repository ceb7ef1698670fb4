package repair

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/jsonrepair"
)

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRepair_Minify(t *testing.T) {
	stdout, stderr, err := execute(t, `{'a': 1, 'b': True,}`, "-", "--minify")
	require.NoError(t, err)

	assert.Equal(t, `{"a":1,"b":true}`+"\n", stdout)
	assert.Contains(t, stderr, jsonrepair.RepairSingleQuotes)
	assert.Contains(t, stderr, jsonrepair.RepairPythonLiterals)
	assert.Contains(t, stderr, jsonrepair.RepairTrailingCommas)
}

func TestRepair_PrettyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b": [1, 2], "a": "x"}`), 0o600))

	stdout, stderr, err := execute(t, "", path)
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"a\": \"x\",\n  \"b\": [\n    1,\n    2\n  ]\n}\n", stdout)
	assert.Empty(t, stderr)
}

func TestRepair_Quiet(t *testing.T) {
	_, stderr, err := execute(t, `[1, 2,]`, "-", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestRepair_Failures(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"strict mode", `{'a': 1}`, []string{"-", "--no-repair"}},
		{"unrepairable", `not json at all`, []string{"-"}},
		{"missing file", "", []string{filepath.Join(t.TempDir(), "missing.json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.stdin, tt.args...)
			var exitErr *shared.ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, shared.ExitInvalidInput, exitErr.Code)
		})
	}
}
