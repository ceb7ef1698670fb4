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

package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/credentials"
	"github.com/tombee/apirun/internal/fileformat"
)

// Info describes the build and the capabilities compiled into it.
type Info struct {
	Version           string   `json:"version"`
	Commit            string   `json:"commit"`
	BuildDate         string   `json:"build_date"`
	GoVersion         string   `json:"go_version"`
	Formats           []string `json:"formats"`
	CredentialSchemes []string `json:"credential_schemes"`
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the apirun version and build details, along with the payload
formats in detection order and the supported credential reference schemes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentInfo()
			if jsonOutput {
				return shared.EmitJSON(cmd.OutOrStdout(), info)
			}
			printInfo(cmd, info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func currentInfo() Info {
	v, c, b := shared.GetVersion()

	var formats []string
	for _, s := range fileformat.NewDefaultRegistry(nil, nil).Strategies() {
		formats = append(formats, string(s.Format()))
	}

	return Info{
		Version:           v,
		Commit:            c,
		BuildDate:         b,
		GoVersion:         runtime.Version(),
		Formats:           formats,
		CredentialSchemes: credentials.NewDefaultRegistry(credentials.Options{}).Schemes(),
	}
}

func printInfo(cmd *cobra.Command, info Info) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "apirun %s\n", info.Version)
	fmt.Fprintf(w, "  commit:      %s\n", info.Commit)
	fmt.Fprintf(w, "  built:       %s\n", info.BuildDate)
	fmt.Fprintf(w, "  go:          %s\n", info.GoVersion)
	fmt.Fprintf(w, "  formats:     %s\n", strings.Join(info.Formats, ", "))
	fmt.Fprintf(w, "  credentials: %s\n", strings.Join(info.CredentialSchemes, ", "))
}
