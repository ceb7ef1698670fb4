package completion

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteFormats(t *testing.T) {
	completions, directive := CompleteFormats(nil, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}

	found := map[string]bool{}
	for _, c := range completions {
		found[strings.SplitN(c, "\t", 2)[0]] = true
	}
	for _, want := range []string{"auto", "json", "csv", "xml", "zip", "excel", "raw"} {
		if !found[want] {
			t.Errorf("expected format %q in completions", want)
		}
	}
}

func TestCompleteLogFormats(t *testing.T) {
	completions, _ := CompleteLogFormats(nil, nil, "")
	if len(completions) != 3 {
		t.Errorf("expected 3 log formats, got %d", len(completions))
	}
}

func TestSafeCompletionWrapper_RecoversPanic(t *testing.T) {
	results, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		panic("boom")
	})
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %v", directive)
	}
}

func TestIsIntegrationFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"integration", "name: issues\nscript: '{url: \"https://x\"}'\n", true},
		{"no script", "name: issues\n", false},
		{"no name", "script: x\n", false},
		{"invalid YAML", "{{{invalid", false},
		{"empty file", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if got := isIntegrationFile(path); got != tt.expected {
				t.Errorf("isIntegrationFile() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDiscoverIntegrationFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	integration := "name: x\nscript: y\n"
	write("top.yaml", integration)
	write("a/nested.yml", integration)
	write("a/b/c/too-deep.yaml", integration)
	write(".hidden/skip.yaml", integration)
	write("notes.yaml", "title: not an integration\n")
	write("readme.md", integration)

	files, err := discoverIntegrationFiles(root, maxSearchDepth)
	if err != nil {
		t.Fatalf("discoverIntegrationFiles() error = %v", err)
	}

	got := map[string]bool{}
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.path)
		got[rel] = true
	}
	if len(got) != 2 || !got["top.yaml"] || !got[filepath.Join("a", "nested.yml")] {
		t.Errorf("unexpected files: %v", got)
	}
}

func TestCompletionCommand(t *testing.T) {
	root := &cobra.Command{Use: "apirun"}
	root.AddCommand(NewCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "apirun") {
		t.Error("expected generated script to reference apirun")
	}

	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestCompletionCommand_NoDescriptions(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		t.Run(shell, func(t *testing.T) {
			generate := func(args ...string) string {
				root := &cobra.Command{Use: "apirun"}
				root.AddCommand(NewCommand())
				var out bytes.Buffer
				root.SetOut(&out)
				root.SetArgs(append([]string{"completion", shell}, args...))
				if err := root.Execute(); err != nil {
					t.Fatalf("Execute() error = %v", err)
				}
				return out.String()
			}

			if strings.Contains(generate(), cobra.ShellCompNoDescRequestCmd) {
				t.Error("default script should request descriptions")
			}
			if !strings.Contains(generate("--no-descriptions"), cobra.ShellCompNoDescRequestCmd) {
				t.Error("--no-descriptions script should use the no-description request")
			}
		})
	}
}
