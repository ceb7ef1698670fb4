// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestNewRootCommand_SilencesCobraOutput(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "apirun" {
		t.Errorf("Use = %q, want apirun", cmd.Use)
	}
	// Exit codes and error output are owned by HandleExitError.
	if !cmd.SilenceErrors || !cmd.SilenceUsage {
		t.Error("expected cobra error and usage output to be silenced")
	}
}

func TestNewRootCommand_PersistentFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"verbose", "v"},
		{"log-format", ""},
		{"config", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag --%s not registered", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
		})
	}
}

func TestNewRootCommand_LogFormatCompletion(t *testing.T) {
	cmd := NewRootCommand()

	fn, ok := cmd.GetFlagCompletionFunc("log-format")
	if !ok {
		t.Fatal("no completion registered for --log-format")
	}

	got, directive := fn(cmd, nil, "")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v, want NoFileComp", directive)
	}
	for _, want := range []string{"json", "text", "auto"} {
		if !slices.ContainsFunc(got, func(s string) bool { return strings.HasPrefix(s, want+"\t") }) {
			t.Errorf("completions %v missing %q", got, want)
		}
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("0.4.1", "9c1e2f7", "2026-03-02")

	v, c, b := GetVersion()
	if v != "0.4.1" || c != "9c1e2f7" || b != "2026-03-02" {
		t.Errorf("GetVersion() = %q, %q, %q", v, c, b)
	}
}
