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

/*
Package credentials resolves credential references before a run.

A credential value may name where the secret lives instead of carrying it:

	env:GITHUB_TOKEN          environment variable
	${GITHUB_TOKEN}           environment variable (shell style)
	file:/run/secrets/token   file contents, surrounding whitespace trimmed
	keychain:github           system keychain entry under the "apirun" service
	plain:env:literal         the literal "env:literal"

Anything else is used as is. Resolution errors never include the secret value
and truncate the reference.

	registry := credentials.NewDefaultRegistry(credentials.Options{})
	resolved, err := registry.ResolveAll(ctx, map[string]any{"token": "env:GITHUB_TOKEN"})
*/
package credentials
