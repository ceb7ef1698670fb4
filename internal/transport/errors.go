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

package transport

import (
	"fmt"
	"net/http"
)

// ErrorType classifies transport errors.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or connection failure
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates authentication failure (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates other 4xx responses
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidReq indicates a request that could not be sent, or a
	// protocol with no registered transport
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates the context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError is returned by every transport failure.
type TransportError struct {
	// Type classifies the error
	Type ErrorType

	// StatusCode is the protocol status if applicable, zero otherwise
	StatusCode int

	// Message is safe to log: credentials are masked and response bodies
	// are never included
	Message string

	// Retryable reports whether a later attempt could succeed
	Retryable bool

	// Cause is the underlying error. It may contain sensitive data.
	Cause error

	// Metadata holds details for structured logging (request id, retry-after)
	Metadata map[string]any
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *TransportError) ErrorType() string { return "transport_" + string(e.Type) }

// IsRetryable implements errors.ErrorClassifier.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// statusError classifies an HTTP status >= 400.
func statusError(statusCode int, metadata map[string]any) *TransportError {
	var (
		errorType ErrorType
		retryable bool
	)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		errorType, retryable = ErrorTypeRateLimit, true
	case statusCode == http.StatusRequestTimeout:
		errorType, retryable = ErrorTypeTimeout, true
	case statusCode >= 500:
		errorType, retryable = ErrorTypeServer, true
	default:
		errorType = ErrorTypeClient
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode)),
		Retryable:  retryable,
		Metadata:   metadata,
	}
}
