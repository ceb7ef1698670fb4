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

import "fmt"

// Category classifies a resolution failure.
type Category string

const (
	CategoryNotFound      Category = "NOT_FOUND"
	CategoryAccessDenied  Category = "ACCESS_DENIED"
	CategoryInvalidSyntax Category = "INVALID_SYNTAX"
)

// ResolutionError reports a credential that could not be resolved. The
// message is safe to print: it never contains the value and the reference is
// truncated.
type ResolutionError struct {
	Category  Category
	Name      string
	Reference string
	Provider  string
	Message   string
	Cause     error
}

func (e *ResolutionError) Error() string {
	target := e.Reference
	if e.Name != "" {
		target = fmt.Sprintf("%s (%s)", e.Name, e.Reference)
	}
	if e.Provider != "" {
		return fmt.Sprintf("credential %s: %s [%s, %s]", target, e.Message, e.Provider, e.Category)
	}
	return fmt.Sprintf("credential %s: %s [%s]", target, e.Message, e.Category)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *ResolutionError) ErrorType() string {
	return "credentials"
}

func newError(category Category, reference, provider, message string, cause error) *ResolutionError {
	return &ResolutionError{
		Category:  category,
		Reference: truncateReference(reference),
		Provider:  provider,
		Message:   message,
		Cause:     cause,
	}
}

// truncateReference keeps the scheme and the first few characters of the key.
func truncateReference(reference string) string {
	const keep = 12
	if len(reference) <= keep {
		return reference
	}
	return reference[:keep] + "***"
}
