package fileformat

import (
	"context"
	"strings"

	"github.com/tombee/apirun/internal/jsonrepair"
)

// JSONStrategy parses objects and arrays, repairing malformed input.
type JSONStrategy struct{}

func (s *JSONStrategy) Format() Format { return FormatJSON }
func (s *JSONStrategy) Priority() int  { return PriorityJSON }

func (s *JSONStrategy) CanHandle(_ context.Context, data []byte) bool {
	text := trimmedText(data)
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

func (s *JSONStrategy) Parse(_ context.Context, data []byte) (any, error) {
	result := jsonrepair.Parse(decodeText(data))
	if !result.Success {
		return nil, result.Error
	}
	return result.Data, nil
}
