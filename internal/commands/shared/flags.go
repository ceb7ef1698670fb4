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

package shared

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tombee/apirun/internal/log"
)

// Global flag values - set by root command
var (
	verboseFlag   bool
	logFormatFlag string
	configFlag    string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() (verbose *bool, logFormat *string, config *string) {
	return &verboseFlag, &logFormatFlag, &configFlag
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetConfigPath returns the settings file path
func GetConfigPath() string {
	return configFlag
}

// NewLogger builds the CLI logger. Environment variables set the baseline
// (see log.FromEnv); --verbose forces debug and --log-format overrides the
// format. Logs always go to w, never stdout, so command output stays
// machine-readable.
func NewLogger(w io.Writer) *slog.Logger {
	cfg := log.FromEnv()
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Format = log.FormatAuto
	}
	if verboseFlag {
		cfg.Level = "debug"
	}
	if logFormatFlag != "" {
		cfg.Format = log.Format(strings.ToLower(logFormatFlag))
	}
	cfg.Output = w
	return log.New(cfg)
}
