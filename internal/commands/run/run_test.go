package run

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/apirun/internal/commands/shared"
)

const secretToken = "ghp-9f8e7d6c5b4a"

const integrationYAML = `
name: items
host: 127.0.0.1
script: |
  (sourceData) => ({
    url: baseUrl + "/items",
    method: "GET",
    headers: {Authorization: "Bearer " + token},
    query: {page: page, per_page: limit}
  })
pagination:
  type: PAGE_BASED
  pageSize: 2
`

func newItemsServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+secretToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		items := []map[string]int{}
		for i := (page - 1) * size; i < page*size && i < total; i++ {
			items = append(items, map[string]int{"id": i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}))
}

func writeIntegration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "integration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRun_Paginates(t *testing.T) {
	srv := newItemsServer(t, 5)
	defer srv.Close()

	stdout, stderr, err := execute(t,
		writeIntegration(t, integrationYAML),
		"-i", "baseUrl="+srv.URL,
		"--credential", "token="+secretToken,
	)
	require.NoError(t, err, stderr)

	var got []map[string]int
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 5)
	assert.Equal(t, 4, got[4]["id"])
	assert.NotContains(t, stderr, secretToken)
}

func TestRun_FullOutputToFile(t *testing.T) {
	srv := newItemsServer(t, 1)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.json")
	t.Setenv("APIRUN_CREDENTIAL_TOKEN", secretToken)

	_, stderr, err := execute(t,
		writeIntegration(t, integrationYAML),
		"--input-json", `{"baseUrl": "`+srv.URL+`"}`,
		"--full", "-o", out, "--trace-id", "run-7",
	)
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var result struct {
		Data       []any  `json:"data"`
		StatusCode int    `json:"statusCode"`
		Iterations int    `json:"iterations"`
		TraceID    string `json:"traceId"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, "run-7", result.TraceID)
}

func TestRun_CredentialReferences(t *testing.T) {
	srv := newItemsServer(t, 3)
	defer srv.Close()

	t.Setenv("APIRUN_TEST_SECRET", secretToken)
	yaml := integrationYAML + "credentials:\n  token: env:APIRUN_TEST_SECRET\n"

	stdout, stderr, err := execute(t, writeIntegration(t, yaml), "-i", "baseUrl="+srv.URL)
	require.NoError(t, err, stderr)

	var got []any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got, 3)

	_, _, err = execute(t, writeIntegration(t, yaml), "-i", "baseUrl="+srv.URL,
		"--credential", "token=env:APIRUN_TEST_UNSET")
	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, shared.ExitInvalidInput, exitErr.Code)
}

func TestRun_Errors(t *testing.T) {
	srv := newItemsServer(t, 1)
	defer srv.Close()

	tests := []struct {
		name     string
		yaml     string
		args     []string
		wantCode int
	}{
		{"invalid integration", "name: x\n", nil, shared.ExitInvalidInput},
		{"bad input", integrationYAML, []string{"-i", "novalue"}, shared.ExitInvalidInput},
		{"auth failure", integrationYAML, []string{"-i", "baseUrl=" + srv.URL, "--credential", "token=wrong"}, shared.ExitTransport},
		{"script failure", "name: x\nscript: '(('\n", nil, shared.ExitScriptFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{writeIntegration(t, tt.yaml)}, tt.args...)
			_, _, err := execute(t, args...)

			var exitErr *shared.ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, tt.wantCode, exitErr.Code)
		})
	}
}

func TestRun_Trace(t *testing.T) {
	srv := newItemsServer(t, 1)
	defer srv.Close()

	_, stderr, err := execute(t,
		writeIntegration(t, integrationYAML),
		"-i", "baseUrl="+srv.URL,
		"--credential", "token="+secretToken,
		"--trace",
	)
	require.NoError(t, err)
	assert.True(t, strings.Contains(stderr, "pagination.run"), "expected spans on stderr")
}

func TestParseInputs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"a": 1, "b": "file"}`), 0o600))

	got, err := parseInputs(options{
		inputFile: file,
		inputJSON: `{"b": "json", "c": true}`,
		inputs:    []string{"c=false", "d=42", "e=hello", "f=[1,2]", "g="},
	}, strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": 1.0,
		"b": "json",
		"c": false,
		"d": 42.0,
		"e": "hello",
		"f": []any{1.0, 2.0},
		"g": "",
	}, got)
}

func TestParseInputs_Stdin(t *testing.T) {
	got, err := parseInputs(options{inputFile: "-"}, strings.NewReader(`{"q": "from stdin"}`))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got["q"])

	_, err = parseInputs(options{inputJSON: `[1]`}, nil)
	require.Error(t, err)
}

func TestParseCredentials(t *testing.T) {
	got, err := parseCredentials(options{credentials: []string{"apikey=flag"}}, []string{
		"APIRUN_CREDENTIAL_APIKEY=env",
		"APIRUN_CREDENTIAL_CLIENT_SECRET=s3cr3t=x",
		"HOME=/root",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"apikey": "flag", "client_secret": "s3cr3t=x"}, got)

	_, err = parseCredentials(options{credentials: []string{"hunter2"}}, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}
