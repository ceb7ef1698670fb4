package fileformat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const yamlSampleLines = 10

var (
	yamlKeyValue = regexp.MustCompile(`^\s*(- )?["']?[\w.\- ]+["']?\s*:(\s|$)`)
	yamlListItem = regexp.MustCompile(`^\s*- `)
	yamlIndented = regexp.MustCompile(`^\s+\S`)
)

// YAMLStrategy parses YAML documents that are mappings or sequences.
// It never claims input that starts like JSON.
type YAMLStrategy struct{}

func (s *YAMLStrategy) Format() Format { return FormatYAML }
func (s *YAMLStrategy) Priority() int  { return PriorityYAML }

func (s *YAMLStrategy) CanHandle(_ context.Context, data []byte) bool {
	text := trimmedText(data)
	if text == "" || text[0] == '[' || text[0] == '{' {
		return false
	}
	if strings.HasPrefix(text, "---") {
		return true
	}

	// A single "Key: value" line is more often prose such as an error
	// message than a document; only a marker makes it YAML.
	lines := sampleLines(text, yamlSampleLines, "#")
	if len(lines) < 2 || !yamlKeyValue.MatchString(lines[0]) {
		return false
	}
	matched := 0
	for _, line := range lines {
		if yamlKeyValue.MatchString(line) || yamlListItem.MatchString(line) || yamlIndented.MatchString(line) {
			matched++
		}
	}
	return matched*2 >= len(lines)
}

// Parse decodes every document in the stream. A single document is returned
// as-is; several are returned as a slice. Scalar documents are rejected so
// plain text falls through to other strategies.
func (s *YAMLStrategy) Parse(_ context.Context, data []byte) (any, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var docs []any
	for {
		var doc any
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		if doc == nil {
			continue
		}
		docs = append(docs, normalizeYAML(doc))
	}

	switch len(docs) {
	case 0:
		return nil, errors.New("empty YAML document")
	case 1:
		switch docs[0].(type) {
		case map[string]any, []any:
			return docs[0], nil
		default:
			return nil, errors.New("YAML document is a scalar")
		}
	default:
		return docs, nil
	}
}

// normalizeYAML converts decoded YAML into the same shapes JSON decoding
// produces: string-keyed maps and float64 numbers.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
