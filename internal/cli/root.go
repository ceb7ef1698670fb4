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
	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/completion"
	"github.com/tombee/apirun/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for apirun
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apirun",
		Short: "apirun - run scripted API integrations",
		Long: `apirun executes request scripts against third-party APIs, follows
pagination until the data is exhausted and normalizes whatever comes back
(JSON, CSV, XML, YAML, archives, office documents) into structured JSON.

Run 'apirun run integration.yaml' to execute an integration.
Run 'apirun parse file' to normalize a payload without calling an API.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, logFormat, config := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(logFormat, "log-format", "", "Log format: json, text or auto (default: auto)")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to settings file (default: ~/.config/apirun/config.yaml)")
	_ = cmd.RegisterFlagCompletionFunc("log-format", completion.CompleteLogFormats)

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
