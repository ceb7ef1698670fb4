package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tombee/apirun/internal/commands/shared"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSchemaJSONOutput(t *testing.T) {
	out, err := execute(t)
	if err != nil {
		t.Fatalf("schema command failed: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if title, _ := schema["title"].(string); title != "apirun integration" {
		t.Errorf("expected title 'apirun integration', got %q", title)
	}
}

func TestSchemaYAMLOutput(t *testing.T) {
	out, err := execute(t, "--output", "yaml")
	if err != nil {
		t.Fatalf("schema command failed: %v", err)
	}

	var schema map[string]any
	if err := yaml.Unmarshal([]byte(out), &schema); err != nil {
		t.Fatalf("failed to parse YAML output: %v", err)
	}
	if _, ok := schema["properties"]; !ok {
		t.Error("expected properties in YAML schema")
	}
}

func TestSchemaInvalidFormat(t *testing.T) {
	_, err := execute(t, "--output", "toml")

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != shared.ExitInvalidInput {
		t.Errorf("expected exit code %d, got %d", shared.ExitInvalidInput, exitErr.Code)
	}
}

func TestSchemaWrite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := execute(t, "--write"); err != nil {
		t.Fatalf("schema --write failed: %v", err)
	}
	dest := filepath.Join(dir, "schemas", schemaFile)
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected schema file: %v", err)
	}

	if _, err := execute(t, "--write"); err == nil {
		t.Error("expected error when file exists without --force")
	}
	if _, err := execute(t, "--write", "--force"); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}
