package fileformat

import (
	"bytes"
	"context"
	"fmt"
)

var pdfMagic = []byte("%PDF-")

// TextExtractor pulls text out of a PDF document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// PDFStrategy recognizes PDF documents. With an Extractor it returns the
// document text; without one it returns a metadata record.
type PDFStrategy struct {
	Extractor TextExtractor
}

func (s *PDFStrategy) Format() Format { return FormatPDF }
func (s *PDFStrategy) Priority() int  { return PriorityPDF }

func (s *PDFStrategy) CanHandle(_ context.Context, data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

func (s *PDFStrategy) Parse(ctx context.Context, data []byte) (any, error) {
	if s.Extractor == nil {
		return map[string]any{
			"format": string(FormatPDF),
			"size":   float64(len(data)),
		}, nil
	}
	text, err := s.Extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extracting PDF text: %w", err)
	}
	return text, nil
}
