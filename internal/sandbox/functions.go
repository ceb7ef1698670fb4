package sandbox

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// builtins returns the host helpers available to every script. A new map is
// built per evaluation.
func builtins() map[string]any {
	return map[string]any{
		"has":                containsFunc,
		"includes":           containsFunc,
		"encodeURIComponent": encodeFunc,
		"parseInt":           parseIntFunc,
		"btoa":               base64Func,
	}
}

// containsFunc reports whether a collection holds an element, a map holds a
// key or a string holds a substring.
// Usage: has(response.data.tags, "beta")
func containsFunc(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has requires exactly 2 arguments, got %d", len(args))
	}

	collection, target := args[0], args[1]
	if collection == nil {
		return false, nil
	}

	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), target) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		key := reflect.ValueOf(target)
		if !key.IsValid() || !key.Type().AssignableTo(v.Type().Key()) {
			return false, nil
		}
		return v.MapIndex(key).IsValid(), nil
	case reflect.String:
		substr, ok := target.(string)
		if !ok {
			return false, nil
		}
		return substr != "" && strings.Contains(v.String(), substr), nil
	default:
		return false, nil
	}
}

// encodeFunc percent-encodes a value for use in a URL path segment or query.
func encodeFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("encodeURIComponent requires exactly 1 argument, got %d", len(args))
	}
	return url.PathEscape(stringify(args[0])), nil
}

// parseIntFunc converts a string or number to an integer.
func parseIntFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("parseInt requires exactly 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("parseInt: %q is not an integer", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("parseInt: unsupported type %T", args[0])
	}
}

// base64Func encodes a string with standard base64.
func base64Func(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("btoa requires exactly 1 argument, got %d", len(args))
	}
	return base64.StdEncoding.EncodeToString([]byte(stringify(args[0]))), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
