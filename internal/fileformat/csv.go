package fileformat

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var csvDelimiters = []rune{',', ';', '|', '\t'}

const csvSampleLines = 10

// CSVStrategy parses delimited text with a header row. The delimiter is
// sniffed from a sample of the input.
type CSVStrategy struct{}

func (s *CSVStrategy) Format() Format { return FormatCSV }
func (s *CSVStrategy) Priority() int  { return PriorityCSV }

func (s *CSVStrategy) CanHandle(_ context.Context, data []byte) bool {
	text := trimmedText(data)
	if text == "" || strings.ContainsAny(text[:1], "{[<") {
		return false
	}
	_, ok := sniffDelimiter(text)
	return ok
}

// Parse returns a single record unwrapped, or a slice of records. Record keys
// come from the header row.
func (s *CSVStrategy) Parse(_ context.Context, data []byte) (any, error) {
	text := decodeText(data)
	delim, ok := sniffDelimiter(strings.TrimSpace(text))
	if !ok {
		return nil, errors.New("no consistent delimiter found")
	}

	reader := newCSVReader(text, delim)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	keys := headerKeys(header)

	records := []any{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(records)+2, err)
		}
		if blankRow(row) {
			continue
		}
		record := make(map[string]any, len(keys))
		for i, key := range keys {
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		for i := len(keys); i < len(row); i++ {
			record[fmt.Sprintf("column_%d", i+1)] = row[i]
		}
		records = append(records, record)
	}

	if len(records) == 1 {
		return records[0], nil
	}
	return records, nil
}

func newCSVReader(text string, delim rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = delim != '\t'
	return r
}

// sniffDelimiter picks the candidate that splits every sampled line into the
// same number of fields (at least two), preferring the widest split.
func sniffDelimiter(text string) (rune, bool) {
	lines := sampleLines(text, csvSampleLines)
	if len(lines) < 2 {
		return 0, false
	}
	sample := strings.Join(lines, "\n")

	var (
		best       rune
		bestFields int
	)
	for _, delim := range csvDelimiters {
		fields, ok := consistentFields(sample, delim)
		if ok && fields > bestFields {
			best, bestFields = delim, fields
		}
	}
	return best, bestFields >= 2
}

func consistentFields(sample string, delim rune) (int, bool) {
	rows, err := newCSVReader(sample, delim).ReadAll()
	if err != nil || len(rows) < 2 {
		return 0, false
	}
	width := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) != width {
			return 0, false
		}
	}
	return width, width >= 2
}

func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		keys[i] = key
	}
	return keys
}

func blankRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
