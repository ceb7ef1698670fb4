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

package repair

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/jsonrepair"
)

type options struct {
	minify   bool
	noRepair bool
	quiet    bool
}

// NewCommand creates the repair command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "repair <file|->",
		Short: "Repair malformed JSON",
		Annotations: map[string]string{
			"group": "data",
		},
		Long: `Repair parses JSON that strict parsers reject: trailing commas, single
quotes, unquoted keys, Python and JavaScript literals, raw control
characters, trailing garbage and JSON embedded in surrounding text.

The repaired document is printed on stdout. The repairs that were applied
are listed on stderr. The command fails when no repair produces valid JSON.`,
		Example: `  apirun repair broken.json
  echo "{'a': 1,}" | apirun repair - --minify
  apirun repair response.json --no-repair   # strict validation only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return repairFile(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.minify, "minify", false, "Print compact JSON")
	cmd.Flags().BoolVar(&opts.noRepair, "no-repair", false, "Only accept strictly valid JSON")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Do not list applied repairs")

	return cmd
}

func repairFile(cmd *cobra.Command, path string, opts options) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return shared.NewInvalidInputError("failed to read input", err)
	}

	var parseOpts []jsonrepair.Option
	if opts.noRepair {
		parseOpts = append(parseOpts, jsonrepair.WithoutRepair())
	}

	result := jsonrepair.Parse(string(data), parseOpts...)
	if !result.Success {
		return shared.NewInvalidInputError("input is not valid JSON", result.Error)
	}

	if !opts.quiet && len(result.AppliedRepairs) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Applied repairs: %s\n", strings.Join(result.AppliedRepairs, ", "))
	}

	if opts.minify {
		out, err := jsonrepair.Compact(result.Data)
		if err != nil {
			return shared.NewExecutionError("failed to encode output", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}

	out, err := jsonrepair.PrettyPrint(result.Data)
	if err != nil {
		return shared.NewExecutionError("failed to encode output", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
