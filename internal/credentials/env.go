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
	"context"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// EnvProvider resolves env:NAME references from the process environment.
type EnvProvider struct {
	allowlist []string
	lookup    func(string) (string, bool)
}

// NewEnvProvider creates an env provider. When allowlist is non-empty only
// variables matching one of its glob patterns can be read.
func NewEnvProvider(allowlist []string) *EnvProvider {
	return &EnvProvider{allowlist: allowlist, lookup: os.LookupEnv}
}

func (e *EnvProvider) Scheme() string {
	return "env"
}

func (e *EnvProvider) Resolve(_ context.Context, name string) (string, error) {
	ref := "env:" + name
	if !e.isAllowed(name) {
		return "", newError(CategoryAccessDenied, ref, "env", "environment variable not in allowlist", nil)
	}
	value, ok := e.lookup(name)
	if !ok || value == "" {
		return "", newError(CategoryNotFound, ref, "env", "environment variable not set", nil)
	}
	return value, nil
}

func (e *EnvProvider) isAllowed(name string) bool {
	if len(e.allowlist) == 0 {
		return true
	}
	for _, pattern := range e.allowlist {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
