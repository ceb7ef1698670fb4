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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/apirun/internal/commands/shared"
	"github.com/tombee/apirun/internal/config"
	"github.com/tombee/apirun/internal/credentials"
	"github.com/tombee/apirun/internal/fileformat"
	"github.com/tombee/apirun/internal/pagination"
	"github.com/tombee/apirun/internal/sandbox"
	"github.com/tombee/apirun/internal/tracing"
	"github.com/tombee/apirun/internal/transport"
)

// runIntegration loads settings and the integration, wires the engine and
// writes the result.
func runIntegration(cmd *cobra.Command, path string, opts options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := shared.NewLogger(cmd.ErrOrStderr())

	settingsPath := shared.GetConfigPath()
	if settingsPath == "" {
		settingsPath = config.DefaultPath()
	}
	settings, err := config.Load(settingsPath)
	if err != nil {
		return shared.NewInvalidInputError("failed to load settings", err)
	}

	integration, err := config.LoadIntegration(path)
	if err != nil {
		return shared.NewInvalidInputError("invalid integration", err)
	}

	inputs, err := parseInputs(opts, cmd.InOrStdin())
	if err != nil {
		return shared.NewInvalidInputError("invalid input", err)
	}
	runtimeCreds, err := parseCredentials(opts, os.Environ())
	if err != nil {
		return shared.NewInvalidInputError("invalid credentials", err)
	}
	creds, err := credentials.NewDefaultRegistry(settings.CredentialOptions()).
		ResolveAll(ctx, integration.MergeCredentials(runtimeCreds))
	if err != nil {
		return shared.NewInvalidInputError("failed to resolve credentials", err)
	}

	if opts.trace {
		v, _, _ := shared.GetVersion()
		provider, err := tracing.NewConsoleProvider(tracing.ConsoleConfig{
			ServiceName:    "apirun",
			ServiceVersion: v,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return shared.NewExecutionError("failed to start tracing", err)
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Warn("failed to flush spans", slog.Any("error", err))
			}
		}()
	}

	engine, err := newEngine(settings, logger)
	if err != nil {
		return shared.NewInvalidInputError("invalid HTTP settings", err)
	}

	runOpts := integration.RunOptions(settings)
	if opts.maxIterations > 0 {
		runOpts.MaxIterations = opts.maxIterations
	}
	if opts.timeout > 0 {
		runOpts.Timeout = opts.timeout
	}
	runOpts.TraceID = tracing.TraceID(opts.traceID)

	host := integration.Host
	if opts.host != "" {
		host = opts.host
	}

	result, err := engine.Run(ctx, &pagination.RunRequest{
		Config: pagination.RunConfig{
			Script:     integration.Script,
			Pagination: integration.Pagination,
		},
		Input:       integration.MergeInput(inputs),
		Credentials: creds,
		HostHint:    host,
		Options:     runOpts,
	})
	if err != nil {
		return shared.NewExecutionError(fmt.Sprintf("integration %q failed", integration.Name), err)
	}

	var payload any = result.Data
	if opts.full {
		payload = result
	}
	return writeOutput(cmd.OutOrStdout(), opts.output, payload)
}

// newEngine wires the reference HTTP transport into a pagination engine.
// FTP and Postgres families have no transport in the CLI and fail with a
// TransportError naming the missing family.
func newEngine(settings *config.Settings, logger *slog.Logger) (*pagination.Engine, error) {
	httpTransport, err := transport.NewHTTPTransport(settings.HTTPConfig(), logger)
	if err != nil {
		return nil, err
	}
	dispatcher := transport.NewDispatcher(logger)
	dispatcher.Register(transport.ProtocolHTTP, httpTransport)

	return pagination.NewEngine(
		sandbox.NewRunner(logger),
		dispatcher,
		fileformat.NewDefaultRegistry(logger, nil),
		logger,
	), nil
}

func writeOutput(stdout io.Writer, path string, payload any) error {
	if path == "" {
		return shared.EmitJSON(stdout, payload)
	}
	f, err := os.Create(path)
	if err != nil {
		return shared.NewInvalidInputError("failed to create output file", err)
	}
	if err := shared.EmitJSON(f, payload); err != nil {
		f.Close()
		return shared.NewExecutionError("failed to write output", err)
	}
	return f.Close()
}
