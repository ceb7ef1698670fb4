package fileformat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	errTooDeep  = errors.New("archive nesting limit exceeded")
	errTooLarge = errors.New("expanded payload exceeds size limit")
)

// decodeText converts data to a string. A UTF-8 or UTF-16 byte order mark
// selects the decoding and is dropped; invalid UTF-8 sequences are replaced.
func decodeText(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		out = data
	}
	if !utf8.Valid(out) {
		return strings.ToValidUTF8(string(out), "\uFFFD")
	}
	return string(out)
}

// trimmedText returns the decoded text with surrounding whitespace removed.
func trimmedText(data []byte) string {
	return strings.TrimSpace(decodeText(data))
}

// sampleLines returns up to n non-blank lines from text, skipping lines that
// start with one of the comment prefixes.
func sampleLines(text string, n int, commentPrefixes ...string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && len(lines) < n {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || hasAnyPrefix(trimmed, commentPrefixes) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// readLimited reads r fully, failing once more than limit bytes are produced.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, limit)
	}
	return buf.Bytes(), nil
}
