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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/tombee/apirun/internal/credentials"
	"github.com/tombee/apirun/internal/pagination"
	"github.com/tombee/apirun/internal/transport"
	apierrors "github.com/tombee/apirun/pkg/errors"
	"github.com/tombee/apirun/pkg/httpclient"
)

var (
	// ErrInvalidConfig is returned when settings validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Settings are the process-wide defaults for runs started from the CLI.
// Integration files can tighten run limits; HTTP settings apply to every run.
type Settings struct {
	HTTP        HTTPSettings       `yaml:"http"`
	Run         RunSettings        `yaml:"run"`
	Credentials CredentialSettings `yaml:"credentials"`
}

// HTTPSettings configures the reference HTTP transport.
type HTTPSettings struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 disables
	Burst         int           `yaml:"burst"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
}

// RunSettings bounds pagination runs.
type RunSettings struct {
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"` // 0 means no limit
}

// CredentialSettings controls how credential references are resolved.
type CredentialSettings struct {
	// EnvAllowlist limits env: references to matching variable names (glob).
	EnvAllowlist    []string `yaml:"env_allowlist"`
	KeychainService string   `yaml:"keychain_service"`
}

// Default returns the built-in settings.
func Default() *Settings {
	client := httpclient.DefaultConfig()
	return &Settings{
		HTTP: HTTPSettings{
			Timeout:       client.Timeout,
			RetryAttempts: client.RetryAttempts,
			Burst:         1,
			UserAgent:     client.UserAgent,
			MaxBodyBytes:  transport.DefaultMaxResponseBytes,
		},
		Run: RunSettings{
			MaxIterations: pagination.DefaultMaxIterations,
		},
		Credentials: CredentialSettings{
			KeychainService: credentials.DefaultKeychainService,
		},
	}
}

// Load reads settings from an optional YAML file, then applies environment
// overrides. Environment variables take precedence over the file. A missing
// file at the default location is not an error.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		if err := s.loadFromFile(path); err != nil {
			return nil, &apierrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
	}

	s.applyDefaults()
	if err := s.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, &apierrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}
	return s, nil
}

// applyDefaults fills zero values left by a partial settings file.
func (s *Settings) applyDefaults() {
	defaults := Default()
	if s.HTTP.Timeout == 0 {
		s.HTTP.Timeout = defaults.HTTP.Timeout
	}
	if s.HTTP.Burst == 0 {
		s.HTTP.Burst = defaults.HTTP.Burst
	}
	if s.HTTP.UserAgent == "" {
		s.HTTP.UserAgent = defaults.HTTP.UserAgent
	}
	if s.HTTP.MaxBodyBytes == 0 {
		s.HTTP.MaxBodyBytes = defaults.HTTP.MaxBodyBytes
	}
	if s.Run.MaxIterations == 0 {
		s.Run.MaxIterations = defaults.Run.MaxIterations
	}
	if s.Credentials.KeychainService == "" {
		s.Credentials.KeychainService = defaults.Credentials.KeychainService
	}
}

func (s *Settings) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies APIRUN_* overrides. Unlike a settings file, a
// malformed value is reported rather than ignored.
func (s *Settings) loadFromEnv() error {
	if val := os.Getenv("APIRUN_MAX_ITERATIONS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return envError("APIRUN_MAX_ITERATIONS", val, err)
		}
		s.Run.MaxIterations = n
	}
	if val := os.Getenv("APIRUN_RUN_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return envError("APIRUN_RUN_TIMEOUT", val, err)
		}
		s.Run.Timeout = d
	}
	if val := os.Getenv("APIRUN_HTTP_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return envError("APIRUN_HTTP_TIMEOUT", val, err)
		}
		s.HTTP.Timeout = d
	}
	if val := os.Getenv("APIRUN_HTTP_RETRIES"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return envError("APIRUN_HTTP_RETRIES", val, err)
		}
		s.HTTP.RetryAttempts = n
	}
	if val := os.Getenv("APIRUN_RATE_LIMIT"); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return envError("APIRUN_RATE_LIMIT", val, err)
		}
		s.HTTP.RateLimit = rps
	}
	if val := os.Getenv("APIRUN_USER_AGENT"); val != "" {
		s.HTTP.UserAgent = val
	}
	return nil
}

func envError(key, value string, err error) error {
	return &apierrors.ConfigError{
		Key:    key,
		Reason: fmt.Sprintf("invalid value %q", value),
		Cause:  err,
	}
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	var errs []string

	if s.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must be positive, got %v", s.HTTP.Timeout))
	}
	if s.HTTP.RetryAttempts < 0 {
		errs = append(errs, fmt.Sprintf("http.retry_attempts must not be negative, got %d", s.HTTP.RetryAttempts))
	}
	if s.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("http.rate_limit must not be negative, got %v", s.HTTP.RateLimit))
	}
	if s.HTTP.Burst < 1 {
		errs = append(errs, fmt.Sprintf("http.burst must be at least 1, got %d", s.HTTP.Burst))
	}
	if s.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Sprintf("http.max_body_bytes must be positive, got %d", s.HTTP.MaxBodyBytes))
	}
	if s.Run.MaxIterations < 1 {
		errs = append(errs, fmt.Sprintf("run.max_iterations must be at least 1, got %d", s.Run.MaxIterations))
	}
	if s.Run.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("run.timeout must not be negative, got %v", s.Run.Timeout))
	}
	for _, pattern := range s.Credentials.EnvAllowlist {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Sprintf("credentials.env_allowlist has an invalid pattern %q", pattern))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// CredentialOptions converts the credential settings for credentials.NewDefaultRegistry.
func (s *Settings) CredentialOptions() credentials.Options {
	return credentials.Options{
		EnvAllowlist:    s.Credentials.EnvAllowlist,
		KeychainService: s.Credentials.KeychainService,
	}
}

// HTTPConfig converts the HTTP settings for transport.NewHTTPTransport.
func (s *Settings) HTTPConfig() transport.HTTPConfig {
	cfg := transport.DefaultHTTPConfig()
	cfg.Client.Timeout = s.HTTP.Timeout
	cfg.Client.RetryAttempts = s.HTTP.RetryAttempts
	cfg.Client.UserAgent = s.HTTP.UserAgent
	cfg.RequestsPerSecond = s.HTTP.RateLimit
	cfg.Burst = s.HTTP.Burst
	cfg.MaxResponseBytes = s.HTTP.MaxBodyBytes
	return cfg
}
