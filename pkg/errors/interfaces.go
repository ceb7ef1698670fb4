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

// Package errors defines the error taxonomy shared by the apirun packages.
package errors

// ErrorClassifier defines methods for programmatic error handling.
// The pagination engine uses it to label metrics.
type ErrorClassifier interface {
	error

	// ErrorType returns a string identifying the error category.
	// Examples: "validation", "script", "configuration", "parse", "timeout"
	ErrorType() string

	// IsRetryable returns true if the operation could succeed on retry.
	IsRetryable() bool
}

// Classify returns the ErrorType of err if any error in its chain implements
// ErrorClassifier, or "internal" otherwise.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if As(err, &classifier) {
		return classifier.ErrorType()
	}
	return "internal"
}
