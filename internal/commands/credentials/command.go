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

package credentials

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/config"
	"github.com/tombee/apirun/internal/credentials"
)

// NewCommand creates the credentials command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage credential references",
		Annotations: map[string]string{
			"group": "configuration",
		},
		Long: `Credentials can be passed to 'apirun run' as references instead of
literal values:

  env:NAME        environment variable
  file:PATH       file contents
  keychain:NAME   system keychain (macOS Keychain, Linux Secret Service,
                  Windows Credential Manager)

Commands:
  set       Store a value in the system keychain
  delete    Remove a keychain entry
  check     Resolve a reference and show the masked value`,
	}

	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newDeleteCommand())
	cmd.AddCommand(newCheckCommand())

	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential in the system keychain",
		Long: `Store a credential in the system keychain. Reference it afterwards as
keychain:<name>.

The value is read from stdin when piped, otherwise from a hidden prompt.`,
		Example: `  apirun credentials set github
  echo "$TOKEN" | apirun credentials set github
  apirun run issues.yaml --credential token=keychain:github`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validateName(name); err != nil {
				return shared.NewInvalidInputError("invalid credential name", err)
			}

			value, err := readValue(cmd)
			if err != nil {
				return shared.NewInvalidInputError("failed to read credential value", err)
			}
			if value == "" {
				return shared.NewInvalidInputError("credential value cannot be empty", nil)
			}

			keychain, err := keychainProvider()
			if err != nil {
				return err
			}
			if err := keychain.Store(name, value); err != nil {
				return shared.NewExecutionError("failed to store credential", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored keychain:%s (service %s)\n", name, keychain.Service())
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a credential from the system keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete keychain:%s? [y/N]: ", name)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion canceled")
					return nil
				}
			}

			keychain, err := keychainProvider()
			if err != nil {
				return err
			}
			if err := keychain.Remove(name); err != nil {
				return shared.NewExecutionError("failed to delete credential", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted keychain:%s\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func newCheckCommand() *cobra.Command {
	var unmask bool

	cmd := &cobra.Command{
		Use:   "check <reference>",
		Short: "Resolve a credential reference",
		Long: `Resolve a credential reference the way 'apirun run' would and print the
masked value. Use it to verify a reference before a run.`,
		Example: `  apirun credentials check env:GITHUB_TOKEN
  apirun credentials check keychain:github --unmask`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			registry := credentials.NewDefaultRegistry(settings.CredentialOptions())
			if !registry.IsReference(args[0]) {
				return shared.NewInvalidInputError(
					fmt.Sprintf("not a credential reference (use one of %s)", strings.Join(registry.Schemes(), ", ")), nil)
			}

			value, err := registry.Resolve(cmd.Context(), args[0])
			if err != nil {
				return shared.NewInvalidInputError("reference did not resolve", err)
			}
			if unmask {
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (use --unmask to show full value)\n", maskValue(value))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unmask, "unmask", false, "Show full value (not masked)")
	return cmd
}

func loadSettings() (*config.Settings, error) {
	path := shared.GetConfigPath()
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, shared.NewInvalidInputError("failed to load settings", err)
	}
	return settings, nil
}

func keychainProvider() (*credentials.KeychainProvider, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return credentials.NewKeychainProvider(settings.Credentials.KeychainService), nil
}

// readValue reads a piped value from stdin, or prompts with hidden input
// when stdin is a terminal.
func readValue(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter credential value (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("name cannot contain whitespace")
	}
	return nil
}
