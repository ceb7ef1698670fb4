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

package run

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// credentialEnvPrefix marks environment variables holding credentials.
const credentialEnvPrefix = "APIRUN_CREDENTIAL_"

// loadJSONObject loads a JSON object from a file, or stdin when path is "-".
func loadJSONObject(path string, stdin io.Reader) (map[string]any, error) {
	var data []byte
	var err error

	if path == "-" {
		if f, ok := stdin.(*os.File); ok {
			stat, _ := f.Stat()
			if stat != nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				return nil, fmt.Errorf("'-' requires input on stdin (pipe or redirect)")
			}
		}
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return decodeObject(data)
}

func decodeObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON object: %w", err)
	}
	if obj == nil {
		obj = make(map[string]any)
	}
	return obj, nil
}

// parseInputs merges --input-file, --input-json and --input key=value, in
// that order. Values given as key=value are kept as strings unless they are
// valid JSON numbers, booleans, arrays or objects.
func parseInputs(opts options, stdin io.Reader) (map[string]any, error) {
	inputs := make(map[string]any)

	if opts.inputFile != "" {
		fromFile, err := loadJSONObject(opts.inputFile, stdin)
		if err != nil {
			return nil, err
		}
		merge(inputs, fromFile)
	}
	if opts.inputJSON != "" {
		fromFlag, err := decodeObject([]byte(opts.inputJSON))
		if err != nil {
			return nil, fmt.Errorf("--input-json: %w", err)
		}
		merge(inputs, fromFlag)
	}
	for _, arg := range opts.inputs {
		key, value, err := splitPair(arg)
		if err != nil {
			return nil, err
		}
		inputs[key] = inferValue(value)
	}
	return inputs, nil
}

// parseCredentials merges APIRUN_CREDENTIAL_* variables, --credentials-file
// and --credential key=value, in that order. Credential values stay strings.
func parseCredentials(opts options, environ []string) (map[string]any, error) {
	creds := make(map[string]any)

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, credentialEnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, credentialEnvPrefix))
		if key != "" {
			creds[key] = value
		}
	}

	if opts.credentialsFile != "" {
		data, err := os.ReadFile(opts.credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		fromFile, err := decodeObject(data)
		if err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		merge(creds, fromFile)
	}

	for _, arg := range opts.credentials {
		key, value, err := splitPair(arg)
		if err != nil {
			// The value may be a secret; do not echo the argument.
			return nil, fmt.Errorf("invalid credential format (expected key=value)")
		}
		creds[key] = value
	}
	return creds, nil
}

func splitPair(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid input format %q (expected key=value)", arg)
	}
	return strings.TrimSpace(key), value, nil
}

func inferValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '{', '[', 't', 'f', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil && v != nil {
			return v
		}
	}
	return s
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
