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

package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/schemas"
)

// schemaFile is where --write places the schema.
const schemaFile = "integration.schema.json"

// NewCommand creates the schema command
func NewCommand() *cobra.Command {
	var (
		outputFormat string
		writeToFile  bool
		force        bool
	)

	cmd := &cobra.Command{
		Use: "schema",
		Annotations: map[string]string{
			"group": "data",
		},
		Short: "Output the integration JSON Schema",
		Long: `Output the embedded JSON Schema for integration files.

The schema can be used for IDE autocompletion and validation of
integration YAML. By default, it outputs to stdout in JSON format.

Use the --write flag to save the schema to ./schemas/integration.schema.json
in the current directory.`,
		Example: `  apirun schema
  apirun schema --write
  apirun schema --output yaml
  apirun schema | jq '.$defs.pagination'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaBytes := schemas.GetIntegrationSchema()

			var schemaObj any
			if err := json.Unmarshal(schemaBytes, &schemaObj); err != nil {
				return fmt.Errorf("failed to parse embedded schema: %w", err)
			}

			var (
				output []byte
				err    error
			)
			switch outputFormat {
			case "json":
				output, err = json.MarshalIndent(schemaObj, "", "  ")
			case "yaml":
				output, err = yaml.Marshal(schemaObj)
			default:
				return shared.NewInvalidInputError(
					fmt.Sprintf("invalid output format: %s (must be 'json' or 'yaml')", outputFormat), nil)
			}
			if err != nil {
				return fmt.Errorf("failed to format schema: %w", err)
			}

			if writeToFile {
				return writeSchema(cmd, schemaBytes, force)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json (default), yaml")
	cmd.Flags().BoolVarP(&writeToFile, "write", "w", false, "Write to ./schemas/"+schemaFile+" in current directory")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing file (only with --write)")

	return cmd
}

// writeSchema always writes JSON, regardless of --output.
func writeSchema(cmd *cobra.Command, schemaBytes []byte, force bool) error {
	destPath := filepath.Join(".", "schemas", schemaFile)

	if _, err := os.Stat(destPath); err == nil && !force {
		return &shared.ExitError{
			Code:    shared.ExitExecutionFailed,
			Message: fmt.Sprintf("file already exists: %s (use --force to overwrite)", destPath),
		}
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return &shared.ExitError{
			Code:    shared.ExitExecutionFailed,
			Message: fmt.Sprintf("failed to create directory: %s", filepath.Dir(destPath)),
			Cause:   err,
		}
	}
	if err := os.WriteFile(destPath, schemaBytes, 0o644); err != nil {
		return &shared.ExitError{
			Code:    shared.ExitExecutionFailed,
			Message: fmt.Sprintf("failed to write file: %s", destPath),
			Cause:   err,
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", destPath)
	return nil
}
