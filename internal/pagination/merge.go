package pagination

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// envelopeKeys are the object keys probed for a page's record array.
var envelopeKeys = []string{"data", "items", "results", "records", "entries", "values"}

// Merge combines a page into the accumulation. Arrays concatenate, objects
// merge recursively with later scalars winning, and the first page sets the
// shape of the result. A non-object page merged into an object goes into the
// object's record array; without one the accumulation is kept as is.
func Merge(acc, page any) any {
	if acc == nil {
		return page
	}
	if page == nil {
		return acc
	}

	switch a := acc.(type) {
	case []any:
		if p, ok := page.([]any); ok {
			out := make([]any, 0, len(a)+len(p))
			out = append(out, a...)
			return append(out, p...)
		}
		out := make([]any, 0, len(a)+1)
		out = append(out, a...)
		return append(out, page)
	case map[string]any:
		p, ok := page.(map[string]any)
		if !ok {
			return mergeIntoEnvelope(a, page)
		}
		out := make(map[string]any, len(a)+len(p))
		for k, v := range a {
			out[k] = v
		}
		for k, v := range p {
			existing, found := out[k]
			if !found {
				out[k] = v
				continue
			}
			out[k] = mergeValue(existing, v)
		}
		return out
	default:
		return page
	}
}

func mergeIntoEnvelope(acc map[string]any, page any) any {
	key, ok := envelopeKey(acc)
	if !ok {
		return acc
	}
	out := make(map[string]any, len(acc))
	for k, v := range acc {
		out[k] = v
	}
	out[key] = Merge(acc[key], page)
	return out
}

// shapeMismatch reports whether merging page into acc would drop the page:
// acc is an object without a record array and page is not an object.
func shapeMismatch(acc, page any) bool {
	a, ok := acc.(map[string]any)
	if !ok || page == nil {
		return false
	}
	if _, ok := page.(map[string]any); ok {
		return false
	}
	_, ok = envelopeKey(a)
	return !ok
}

func envelopeKey(m map[string]any) (string, bool) {
	for _, key := range envelopeKeys {
		if _, ok := m[key].([]any); ok {
			return key, true
		}
	}
	return "", false
}

func mergeValue(existing, next any) any {
	switch e := existing.(type) {
	case []any:
		if n, ok := next.([]any); ok {
			out := make([]any, 0, len(e)+len(n))
			out = append(out, e...)
			return append(out, n...)
		}
	case map[string]any:
		if _, ok := next.(map[string]any); ok {
			return Merge(e, next)
		}
	}
	return next
}

// recordCount estimates how many records a page holds: the length of an
// array, or of the first array found under a common envelope key.
func recordCount(data any) int {
	switch v := data.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	case map[string]any:
		if key, ok := envelopeKey(v); ok {
			return len(v[key].([]any))
		}
		if len(v) == 0 {
			return 0
		}
		return 1
	case string:
		if v == "" {
			return 0
		}
		return 1
	default:
		return 1
	}
}

// hasData reports whether a page carried anything worth keeping.
func hasData(data any) bool {
	return recordCount(data) > 0
}

// fingerprint identifies a response for identical-page detection. Raw bytes
// are hashed when available; otherwise the canonical JSON encoding is.
func fingerprint(raw []byte, data any) string {
	if raw == nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return ""
		}
		raw = encoded
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
