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

package main

import (
	"github.com/tombee/apirun/internal/cli"
	"github.com/tombee/apirun/internal/commands/completion"
	credentialscmd "github.com/tombee/apirun/internal/commands/credentials"
	"github.com/tombee/apirun/internal/commands/parse"
	"github.com/tombee/apirun/internal/commands/repair"
	"github.com/tombee/apirun/internal/commands/run"
	"github.com/tombee/apirun/internal/commands/schema"
	versioncmd "github.com/tombee/apirun/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Execution
	rootCmd.AddCommand(run.NewCommand())

	// Data tools
	rootCmd.AddCommand(parse.NewCommand())
	rootCmd.AddCommand(repair.NewCommand())
	rootCmd.AddCommand(schema.NewCommand())

	// Configuration
	rootCmd.AddCommand(credentialscmd.NewCommand())

	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
