// Package secrets provides utilities for detecting and masking sensitive values.
package secrets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RedactionToken replaces every masked value.
const RedactionToken = "[REDACTED]"

// minFreeTextLength is the shortest secret a default masker replaces inside
// free text. Strict maskers replace every non-empty secret.
const minFreeTextLength = 4

// Masker masks credential values in strings and data structures.
// A Masker is built per call from that call's credentials and is not shared.
type Masker struct {
	// secrets holds known secret values, longest first
	secrets []string

	// minLength is the shortest secret Mask replaces
	minLength int
}

// NewMasker creates a masker for the given credential map. Every scalar leaf
// of the map is treated as a secret. Secrets shorter than four characters
// are left alone in free text; use it for log lines only.
func NewMasker(credentials map[string]any) *Masker {
	m := &Masker{minLength: minFreeTextLength}
	m.AddCredentials(credentials)
	return m
}

// NewStrictMasker creates a masker that replaces every non-empty secret,
// however short. Error messages returned to callers use it.
func NewStrictMasker(credentials map[string]any) *Masker {
	m := &Masker{minLength: 1}
	m.AddCredentials(credentials)
	return m
}

// AddSecret registers a value to be masked.
func (m *Masker) AddSecret(value string) {
	if value == "" {
		return
	}
	for _, s := range m.secrets {
		if s == value {
			return
		}
	}
	m.secrets = append(m.secrets, value)
	// Longest first so a secret that contains another is replaced whole.
	sort.SliceStable(m.secrets, func(i, j int) bool {
		return len(m.secrets[i]) > len(m.secrets[j])
	})
}

// AddCredentials registers every scalar leaf of credentials.
func (m *Masker) AddCredentials(credentials map[string]any) {
	for _, v := range credentials {
		m.addLeaves(v)
	}
}

func (m *Masker) addLeaves(v any) {
	switch val := v.(type) {
	case nil:
	case string:
		m.AddSecret(val)
	case map[string]any:
		for _, item := range val {
			m.addLeaves(item)
		}
	case []any:
		for _, item := range val {
			m.addLeaves(item)
		}
	default:
		m.AddSecret(fmt.Sprintf("%v", val))
	}
}

// Mask replaces all known secrets in a string with RedactionToken.
func (m *Masker) Mask(s string) string {
	if m == nil {
		return s
	}
	result := s
	for _, secret := range m.secrets {
		if len(secret) < m.minLength {
			continue
		}
		if strings.Contains(result, secret) {
			result = strings.ReplaceAll(result, secret, RedactionToken)
		}
	}
	return result
}

// MaskMap recursively masks secrets in a map structure.
// Returns a new map with secrets replaced.
func (m *Masker) MaskMap(data map[string]any) map[string]any {
	result := make(map[string]any, len(data))
	for k, v := range data {
		result[k] = m.maskValue(v)
	}
	return result
}

// maskValue masks secrets in any value type.
func (m *Masker) maskValue(v any) any {
	switch val := v.(type) {
	case string:
		if m.isSecret(val) {
			return RedactionToken
		}
		return m.Mask(val)
	case map[string]any:
		return m.MaskMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = m.maskValue(item)
		}
		return result
	case bool, nil:
		return val
	default:
		s := fmt.Sprintf("%v", val)
		if m.isSecret(s) {
			return RedactionToken
		}
		return val
	}
}

func (m *Masker) isSecret(s string) bool {
	for _, secret := range m.secrets {
		if s == secret {
			return true
		}
	}
	return false
}

// MaskJSON masks secrets in a JSON string.
// Returns the masked JSON or the string-masked input if parsing fails.
func (m *Masker) MaskJSON(jsonStr string) string {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return m.Mask(jsonStr)
	}

	result, err := json.Marshal(m.maskValue(data))
	if err != nil {
		return m.Mask(jsonStr)
	}
	return string(result)
}

// MaskCredentials returns a copy of credentials with every value replaced by
// RedactionToken. Keys are preserved so a dump still shows which credentials
// were supplied.
func MaskCredentials(credentials map[string]any) map[string]any {
	if credentials == nil {
		return nil
	}
	masked := make(map[string]any, len(credentials))
	for k := range credentials {
		masked[k] = RedactionToken
	}
	return masked
}
