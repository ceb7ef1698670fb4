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

package parse

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/completion"
	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/fileformat"
	"github.com/tombee/apirun/internal/jq"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

var formats = []fileformat.Format{
	fileformat.FormatAuto,
	fileformat.FormatJSON,
	fileformat.FormatCSV,
	fileformat.FormatXML,
	fileformat.FormatYAML,
	fileformat.FormatGZIP,
	fileformat.FormatZIP,
	fileformat.FormatExcel,
	fileformat.FormatDOCX,
	fileformat.FormatRaw,
}

type options struct {
	format     string
	query      string
	withFormat bool
}

// NewCommand creates the parse command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Normalize a payload file into JSON",
		Annotations: map[string]string{
			"group": "data",
		},
		Long: `Parse detects the format of a file (JSON, CSV, XML, YAML, GZIP, ZIP,
Excel, DOCX or plain text) and prints the normalized data as JSON. This is
the same normalization applied to API responses during a run.

Use '-' to read from stdin. --type skips detection and parses with one
format. --query applies a jq filter to the normalized data.`,
		Example: `  apirun parse export.csv
  curl -s https://api.example.com/report | apirun parse - --query '.rows | length'
  apirun parse archive.zip --type zip --with-format`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseFile(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "type", "t", string(fileformat.FormatAuto), "Payload format: "+formatList())
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "jq filter applied to the parsed data")
	cmd.Flags().BoolVar(&opts.withFormat, "with-format", false, "Wrap the output as {format, data}")
	_ = cmd.RegisterFlagCompletionFunc("type", completion.CompleteFormats)

	return cmd
}

func parseFile(cmd *cobra.Command, path string, opts options) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return shared.NewInvalidInputError("invalid --type", err)
	}

	executor := jq.NewExecutor(0, 0)
	if err := executor.Validate(opts.query); err != nil {
		return shared.NewInvalidInputError("invalid --query", err)
	}

	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return shared.NewInvalidInputError("failed to read input", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	registry := fileformat.NewDefaultRegistry(shared.NewLogger(cmd.ErrOrStderr()), nil)

	var parsed any
	if format == fileformat.FormatAuto {
		detection, err := registry.DetectAndParse(ctx, data)
		if err != nil {
			return shared.NewExecutionError("detection failed", err)
		}
		format, parsed = detection.Format, detection.Data
	} else {
		parsed, err = registry.ParseFile(ctx, data, format)
		if err != nil {
			return shared.NewExecutionError(fmt.Sprintf("failed to parse as %s", format), err)
		}
	}

	result, err := executor.Execute(ctx, opts.query, parsed)
	if err != nil {
		return shared.NewExecutionError("query failed", err)
	}

	if opts.withFormat {
		return shared.EmitJSON(cmd.OutOrStdout(), map[string]any{
			"format": format,
			"data":   result,
		})
	}
	return shared.EmitJSON(cmd.OutOrStdout(), result)
}

func parseFormat(s string) (fileformat.Format, error) {
	want := fileformat.Format(strings.ToLower(strings.TrimSpace(s)))
	if want == "" {
		return fileformat.FormatAuto, nil
	}
	if want == "xlsx" {
		return fileformat.FormatExcel, nil
	}
	for _, f := range formats {
		if f == want {
			return f, nil
		}
	}
	return "", &apierrors.ValidationError{
		Field:      "type",
		Message:    fmt.Sprintf("unknown format %q", s),
		Suggestion: "Use one of: " + formatList(),
	}
}

func formatList() string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
