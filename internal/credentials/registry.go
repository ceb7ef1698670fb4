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
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// Provider resolves the key part of a scheme:key reference.
type Provider interface {
	// Scheme returns the reference prefix this provider handles.
	Scheme() string

	// Resolve returns the secret for key.
	Resolve(ctx context.Context, key string) (string, error)
}

// Registry routes references to providers by scheme.
type Registry struct {
	providers map[string]Provider
}

var (
	// shellEnvRegex matches ${VAR_NAME} syntax
	shellEnvRegex = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

	// schemeRegex matches scheme:reference format
	schemeRegex = regexp.MustCompile(`^([a-z][a-z0-9]*):(.+)$`)
)

// plainScheme marks a literal value that must not be resolved.
const plainScheme = "plain"

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Options configures NewDefaultRegistry.
type Options struct {
	// EnvAllowlist restricts env references to matching variable names.
	// Patterns use glob syntax (APIRUN_*, *_TOKEN). Empty allows all.
	EnvAllowlist []string

	// KeychainService is the keychain service name (default: apirun).
	KeychainService string
}

// NewDefaultRegistry registers the env, file and keychain providers.
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	_ = r.Register(NewEnvProvider(opts.EnvAllowlist))
	_ = r.Register(NewFileProvider(0))
	_ = r.Register(NewKeychainProvider(opts.KeychainService))
	return r
}

// Register adds a provider. It fails when the scheme is already taken.
func (r *Registry) Register(provider Provider) error {
	scheme := provider.Scheme()
	if scheme == plainScheme {
		return fmt.Errorf("scheme %q is reserved", scheme)
	}
	if _, exists := r.providers[scheme]; exists {
		return fmt.Errorf("provider for scheme %q already registered", scheme)
	}
	r.providers[scheme] = provider
	return nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.providers))
	for s := range r.providers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// IsReference reports whether value would be resolved through a provider.
func (r *Registry) IsReference(value string) bool {
	scheme, _, ok := r.parse(value)
	return ok && scheme != plainScheme
}

// Resolve returns the secret a reference points to. A value that is not a
// reference is returned unchanged; plain: strips the prefix.
func (r *Registry) Resolve(ctx context.Context, value string) (string, error) {
	scheme, key, ok := r.parse(value)
	if !ok {
		return value, nil
	}
	if scheme == plainScheme {
		return key, nil
	}

	secret, err := r.providers[scheme].Resolve(ctx, key)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) {
			return "", re
		}
		return "", newError(CategoryNotFound, value, scheme, "resolution failed", err)
	}
	return secret, nil
}

// ResolveAll returns a copy of creds with every string reference resolved.
// Non-string values are copied unchanged.
func (r *Registry) ResolveAll(ctx context.Context, creds map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(creds))
	names := make([]string, 0, len(creds))
	for name := range creds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, ok := creds[name].(string)
		if !ok {
			out[name] = creds[name]
			continue
		}
		resolved, err := r.Resolve(ctx, s)
		if err != nil {
			var re *ResolutionError
			if errors.As(err, &re) {
				re.Name = name
			}
			return nil, err
		}
		out[name] = resolved
	}
	return out, nil
}

// parse splits a reference. Only registered schemes and plain: count;
// other colon-separated values are literals.
func (r *Registry) parse(value string) (scheme, key string, ok bool) {
	if m := shellEnvRegex.FindStringSubmatch(value); m != nil {
		if _, registered := r.providers["env"]; registered {
			return "env", m[1], true
		}
		return "", "", false
	}
	m := schemeRegex.FindStringSubmatch(value)
	if m == nil {
		return "", "", false
	}
	if _, registered := r.providers[m[1]]; registered || m[1] == plainScheme {
		return m[1], m[2], true
	}
	return "", "", false
}
