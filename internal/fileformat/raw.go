package fileformat

import "context"

// RawStrategy claims anything and returns it as decoded text. It is the
// final fallback.
type RawStrategy struct{}

func (s *RawStrategy) Format() Format { return FormatRaw }
func (s *RawStrategy) Priority() int  { return PriorityRaw }

func (s *RawStrategy) CanHandle(context.Context, []byte) bool { return true }

func (s *RawStrategy) Parse(_ context.Context, data []byte) (any, error) {
	return decodeText(data), nil
}
