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

package run

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/completion"
)

// options collects the run command's flags.
type options struct {
	inputs          []string
	inputFile       string
	inputJSON       string
	credentials     []string
	credentialsFile string
	host            string
	maxIterations   int
	timeout         time.Duration
	output          string
	full            bool
	trace           bool
	traceID         string
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run <integration.yaml>",
		Short: "Execute an integration",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run evaluates the integration's request script, sends the request,
follows pagination until the data is exhausted and prints the merged,
normalized result as JSON on stdout.

Inputs are merged in order, later sources winning:
  1. input: block of the integration file
  2. --input-file (JSON object, '-' for stdin)
  3. --input-json
  4. --input key=value

Credentials are never logged. Pass them with --credential key=value,
--credentials-file (JSON object) or APIRUN_CREDENTIAL_<NAME> environment
variables. Any credential value may be a reference that is resolved before
the run: env:NAME, file:PATH or keychain:NAME (see 'apirun credentials').

Limits:
  --max-iterations and --timeout override the integration and settings
  (APIRUN_MAX_ITERATIONS, APIRUN_RUN_TIMEOUT).`,
		Example: `  apirun run issues.yaml -i repo=tombee/apirun --credential token=$GITHUB_TOKEN
  apirun run export.yaml --input-file params.json --max-iterations 20 --trace`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteIntegrationFiles,
		RunE:              func(cmd *cobra.Command, args []string) error {
			return runIntegration(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "Input in key=value format (repeatable)")
	cmd.Flags().StringVar(&opts.inputFile, "input-file", "", "JSON file with inputs (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.inputJSON, "input-json", "", "Inputs as a JSON object")
	cmd.Flags().StringArrayVar(&opts.credentials, "credential", nil, "Credential in key=value format (repeatable)")
	cmd.Flags().StringVar(&opts.credentialsFile, "credentials-file", "", "JSON file with credentials")
	cmd.Flags().StringVar(&opts.host, "host", "", "Expected API host (overrides the integration's host)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "Maximum request cycles")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Time limit for the whole run")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to file")
	cmd.Flags().BoolVar(&opts.full, "full", false, "Print status code, headers and iteration count with the data")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().StringVar(&opts.traceID, "trace-id", "", "Correlation id sent as X-Correlation-ID (default: generated)")

	return cmd
}
