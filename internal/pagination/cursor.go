package pagination

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tombee/apirun/internal/jq"
)

// cursorKeys are probed in order when no cursorPath is configured.
var cursorKeys = []string{"next_cursor", "nextCursor", "cursor", "next_page_token", "nextPageToken", "next"}

// cursorContainers hold cursor keys in common API envelopes.
var cursorContainers = []string{"meta", "pagination", "response_metadata"}

// extractCursor finds the next cursor in data. An empty string means there
// is no next page.
func extractCursor(ctx context.Context, exec *jq.Executor, path string, data any) (string, error) {
	if path != "" {
		v, err := exec.Execute(ctx, jq.FromPath(path), data)
		if err != nil {
			return "", fmt.Errorf("cursor path %q: %w", path, err)
		}
		return cursorString(v), nil
	}
	return cursorString(probeCursor(data)), nil
}

func probeCursor(data any) any {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	if v := probeKeys(obj); v != nil {
		return v
	}
	for _, container := range cursorContainers {
		if inner, ok := obj[container].(map[string]any); ok {
			if v := probeKeys(inner); v != nil {
				return v
			}
		}
	}
	return nil
}

func probeKeys(obj map[string]any) any {
	for _, key := range cursorKeys {
		if v, ok := obj[key]; ok && cursorString(v) != "" {
			return v
		}
	}
	return nil
}

// cursorString converts a cursor value to its wire form. Falsy values
// become "".
func cursorString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		if val == 0 {
			return ""
		}
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
