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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/apirun/internal/transport"
	pkgerrors "github.com/tombee/apirun/pkg/errors"
)

// Exit codes for apirun commands
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidInput    = 2
	ExitScriptFailed    = 3
	ExitPagination      = 4
	ExitTransport       = 5
	ExitTimeout         = 6
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewInvalidInputError creates an error for unusable files, flags or input
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidInput, Message: msg, Cause: cause}
}

// NewExecutionError classifies a failed run by the typed error it carries.
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{Code: exitCodeFor(cause), Message: msg, Cause: cause}
}

func exitCodeFor(err error) int {
	var (
		validationErr *pkgerrors.ValidationError
		configErr     *pkgerrors.ConfigError
		scriptErr     *pkgerrors.ScriptError
		paginationErr *pkgerrors.ConfigurationError
		timeoutErr    *pkgerrors.TimeoutError
		transportErr  *transport.TransportError
		parseErr      *pkgerrors.ParseError
		formatErr     *pkgerrors.UnsupportedFormatError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return ExitTimeout
	case errors.As(err, &paginationErr):
		return ExitPagination
	case errors.As(err, &scriptErr):
		return ExitScriptFailed
	case errors.As(err, &transportErr):
		return ExitTransport
	case errors.As(err, &validationErr), errors.As(err, &configErr),
		errors.As(err, &parseErr), errors.As(err, &formatErr):
		return ExitInvalidInput
	default:
		return ExitExecutionFailed
	}
}

// HandleExitError prints err and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(PrintError(os.Stderr, err))
}

// PrintError writes err and any suggestion to w and returns the exit code.
func PrintError(w io.Writer, err error) int {
	code := ExitExecutionFailed
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}

	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
	return code
}

// printUserVisibleSuggestion prints the suggestion carried by validation and
// pagination configuration errors.
func printUserVisibleSuggestion(w io.Writer, err error) {
	var suggestion string
	var (
		validationErr *pkgerrors.ValidationError
		paginationErr *pkgerrors.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		suggestion = validationErr.Suggestion
	case errors.As(err, &paginationErr):
		suggestion = paginationErr.Suggestion
	}
	if suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}
