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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default size limit for file references.
const MaxFileSize = 64 * 1024

// FileProvider resolves file:PATH references. Relative paths are resolved
// against the working directory. Symlinks are followed, the size is capped
// and surrounding whitespace is trimmed.
type FileProvider struct {
	maxSize int64
}

// NewFileProvider creates a file provider. A zero maxSize selects MaxFileSize.
func NewFileProvider(maxSize int64) *FileProvider {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &FileProvider{maxSize: maxSize}
}

func (f *FileProvider) Scheme() string {
	return "file"
}

func (f *FileProvider) Resolve(_ context.Context, path string) (string, error) {
	ref := "file:" + path

	resolved, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", newError(CategoryInvalidSyntax, ref, "file", "invalid path", err)
	}

	stat, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newError(CategoryNotFound, ref, "file", "file not found", err)
		}
		return "", newError(CategoryAccessDenied, ref, "file", "file stat failed", err)
	}
	if stat.IsDir() {
		return "", newError(CategoryInvalidSyntax, ref, "file", "path is a directory", nil)
	}
	if stat.Size() > f.maxSize {
		return "", newError(CategoryInvalidSyntax, ref, "file",
			fmt.Sprintf("file too large (max %d bytes)", f.maxSize), nil)
	}

	contents, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsPermission(err) {
			return "", newError(CategoryAccessDenied, ref, "file", "permission denied", err)
		}
		return "", newError(CategoryNotFound, ref, "file", "failed to read file", err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", newError(CategoryNotFound, ref, "file", "file is empty", nil)
	}
	return value, nil
}
