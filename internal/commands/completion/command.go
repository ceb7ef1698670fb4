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

package completion

import (
	"github.com/spf13/cobra"
)

// NewCommand creates the completion command for generating shell completion scripts.
func NewCommand() *cobra.Command {
	var noDescriptions bool

	cmd := &cobra.Command{
		Use: "completion [bash|zsh|fish|powershell]",
		Annotations: map[string]string{
			"group": "configuration",
		},
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for apirun.

Besides commands and flags, the scripts complete values apirun knows about:
integration files for 'apirun run' (YAML files with name and script keys,
newest first), payload formats for 'apirun parse --type' and the values of
--log-format.

To load completions:

Bash:
  $ source <(apirun completion bash)

  # Persist for every session (Linux, user-local):
  $ mkdir -p ~/.local/share/bash-completion/completions
  $ apirun completion bash > ~/.local/share/bash-completion/completions/apirun

Zsh:
  $ apirun completion zsh > "${fpath[1]}/_apirun"

Fish:
  $ apirun completion fish > ~/.config/fish/completions/apirun.fish

PowerShell:
  apirun completion powershell | Out-String | Invoke-Expression

Use --no-descriptions for shells or terminals that render the format and
log-format hints poorly.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeScript(cmd, args[0], !noDescriptions)
		},
	}

	cmd.Flags().BoolVar(&noDescriptions, "no-descriptions", false, "Omit value descriptions from completions")
	return cmd
}

func writeScript(cmd *cobra.Command, shell string, descriptions bool) error {
	root, out := cmd.Root(), cmd.OutOrStdout()
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(out, descriptions)
	case "zsh":
		if !descriptions {
			return root.GenZshCompletionNoDesc(out)
		}
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, descriptions)
	case "powershell":
		if !descriptions {
			return root.GenPowerShellCompletion(out)
		}
		return root.GenPowerShellCompletionWithDesc(out)
	}
	return nil
}
