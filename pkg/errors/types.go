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

package errors

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents malformed input that was rejected before any
// side effect happened: a request descriptor without url or method, a handler
// result of the wrong shape, or an invalid integration file.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string

	// Cause is the underlying error (e.g., a validator.ValidationErrors)
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// ScriptReason classifies why a sandboxed script failed.
type ScriptReason string

const (
	// ScriptReasonCompile means the script text could not be compiled.
	ScriptReasonCompile ScriptReason = "compile"
	// ScriptReasonException means the script raised an error while running.
	ScriptReasonException ScriptReason = "exception"
	// ScriptReasonTimeout means the wall-clock limit was exceeded.
	ScriptReasonTimeout ScriptReason = "timeout"
	// ScriptReasonMemory means the memory budget was exceeded.
	ScriptReasonMemory ScriptReason = "memory"
	// ScriptReasonSerialization means input or output could not cross the
	// sandbox boundary as JSON.
	ScriptReasonSerialization ScriptReason = "serialization"
)

// ScriptError represents a failure inside the script sandbox.
//
// Script and Context are included in the message so a failure can be
// diagnosed without re-running. Callers that hold credentials must mask both
// before constructing the error.
type ScriptError struct {
	// Phase names what the script was doing (e.g., "request", "handler", "stop_condition")
	Phase string

	// Reason classifies the failure
	Reason ScriptReason

	// Message is the interpreter's description of the failure
	Message string

	// Script is the original script text
	Script string

	// Context is a masked, serialized dump of the evaluation input
	Context string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	var b strings.Builder
	if e.Phase != "" {
		fmt.Fprintf(&b, "%s script failed", e.Phase)
	} else {
		b.WriteString("script failed")
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\ncontext: %s", e.Context)
	}
	if e.Script != "" {
		fmt.Fprintf(&b, "\nscript: %s", e.Script)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ScriptError) ErrorType() string { return "script" }

// IsRetryable implements ErrorClassifier.
// Scripts are deterministic over their input; retrying cannot help.
func (e *ScriptError) IsRetryable() bool { return false }

// ConfigurationError represents a pagination configuration that cannot make
// progress, detected while a run is in flight.
type ConfigurationError struct {
	// Setting names the configuration that is likely wrong (e.g., "pagination.stopCondition")
	Setting string

	// Message describes the anomaly that was observed
	Message string

	// Suggestion provides actionable guidance for fixing the configuration
	Suggestion string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := "pagination configuration error"
	if e.Setting != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Setting)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Message)
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Suggestion)
	}
	return msg
}

// ErrorType implements ErrorClassifier.
func (e *ConfigurationError) ErrorType() string { return "configuration" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigurationError) IsRetryable() bool { return false }

// ParseError represents structured text that could not be parsed even after
// every repair strategy was tried.
type ParseError struct {
	// Original is the strict-parse error from the unmodified input
	Original error

	// AppliedRepairs lists the repair strategies that changed the input, in order
	AppliedRepairs []string

	// Snippet is the beginning of the input, for diagnosis
	Snippet string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := "failed to parse JSON"
	if e.Original != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Original)
	}
	if len(e.AppliedRepairs) > 0 {
		msg = fmt.Sprintf("%s (repairs tried: %s)", msg, strings.Join(e.AppliedRepairs, ", "))
	}
	return msg
}

// Unwrap returns the original strict-parse error.
func (e *ParseError) Unwrap() error {
	return e.Original
}

// ErrorType implements ErrorClassifier.
func (e *ParseError) ErrorType() string { return "parse" }

// IsRetryable implements ErrorClassifier.
func (e *ParseError) IsRetryable() bool { return false }

// UnsupportedFormatError is returned when a payload format was declared
// explicitly and no registered strategy handles it.
type UnsupportedFormatError struct {
	// Format is the declared format
	Format string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Format)
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "pagination.type")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents operation timeouts.
// Use this when an operation exceeds its configured timeout.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "pagination run")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string { return "timeout" }

// IsRetryable implements ErrorClassifier.
func (e *TimeoutError) IsRetryable() bool { return true }
