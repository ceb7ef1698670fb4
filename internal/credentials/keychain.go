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

	"github.com/zalando/go-keyring"
)

// DefaultKeychainService is the keychain service apirun entries live under.
const DefaultKeychainService = "apirun"

// KeychainProvider resolves keychain:NAME references from the system
// keychain (macOS Keychain, Secret Service on Linux, Windows Credential
// Manager).
type KeychainProvider struct {
	service string
}

// NewKeychainProvider creates a keychain provider for service. An empty
// service selects DefaultKeychainService.
func NewKeychainProvider(service string) *KeychainProvider {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainProvider{service: service}
}

func (k *KeychainProvider) Scheme() string {
	return "keychain"
}

// Service returns the keychain service name.
func (k *KeychainProvider) Service() string {
	return k.service
}

func (k *KeychainProvider) Resolve(_ context.Context, name string) (string, error) {
	ref := "keychain:" + name
	value, err := keyring.Get(k.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", newError(CategoryNotFound, ref, "keychain", "keychain entry not found", nil)
		}
		return "", newError(CategoryAccessDenied, ref, "keychain", "system keychain unavailable or locked", err)
	}
	return value, nil
}

// Store saves value under name.
func (k *KeychainProvider) Store(name, value string) error {
	if err := keyring.Set(k.service, name, value); err != nil {
		return newError(CategoryAccessDenied, "keychain:"+name, "keychain", "failed to store keychain entry", err)
	}
	return nil
}

// Remove deletes the entry for name.
func (k *KeychainProvider) Remove(name string) error {
	if err := keyring.Delete(k.service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return newError(CategoryNotFound, "keychain:"+name, "keychain", "keychain entry not found", nil)
		}
		return newError(CategoryAccessDenied, "keychain:"+name, "keychain", "failed to delete keychain entry", err)
	}
	return nil
}
