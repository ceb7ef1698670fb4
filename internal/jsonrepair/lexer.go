package jsonrepair

import "strings"

type segmentKind int

const (
	segCode segmentKind = iota
	segDouble
	segSingle
)

// segment is a run of text that is either structural code or one string
// literal. String segments include their delimiting quotes; an unterminated
// string runs to the end of the input.
type segment struct {
	kind segmentKind
	text string
}

// splitSegments splits s into code and string-literal segments.
//
// Double-quoted strings follow JSON escaping. When singleQuotes is set,
// single-quoted strings are recognised too. A single quote opens a string only
// where a value or key may start (after `{ [ , : (` or at the beginning), and
// closes it only when the next non-space character is structural (`, : } ]`)
// or the input ends. Any other single quote inside the string is an
// apostrophe and stays part of the content.
func splitSegments(s string, singleQuotes bool) []segment {
	var segs []segment
	codeStart := 0
	lastCode := byte(0)

	flushCode := func(end int) {
		if end > codeStart {
			segs = append(segs, segment{kind: segCode, text: s[codeStart:end]})
		}
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"':
			flushCode(i)
			end := scanDouble(s, i)
			segs = append(segs, segment{kind: segDouble, text: s[i:end]})
			i = end
			codeStart = i
			lastCode = '"'
			continue
		case c == '\'' && singleQuotes && opensValue(lastCode):
			flushCode(i)
			end := scanSingle(s, i)
			segs = append(segs, segment{kind: segSingle, text: s[i:end]})
			i = end
			codeStart = i
			lastCode = '\''
			continue
		}
		if !isSpace(c) {
			lastCode = c
		}
		i++
	}
	flushCode(len(s))
	return segs
}

// scanDouble returns the index just past the double-quoted string at start.
func scanDouble(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}

// scanSingle returns the index just past the single-quoted string at start.
func scanSingle(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			if closesValue(s, i+1) {
				return i + 1
			}
		}
	}
	return len(s)
}

func opensValue(prev byte) bool {
	switch prev {
	case 0, '{', '[', ',', ':', '(':
		return true
	}
	return false
}

func closesValue(s string, from int) bool {
	for j := from; j < len(s); j++ {
		if isSpace(s[j]) {
			continue
		}
		switch s[j] {
		case ',', ':', '}', ']', ')':
			return true
		}
		return false
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// mapCode applies fn to every code segment and joins the result.
func mapCode(s string, singleQuotes bool, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range splitSegments(s, singleQuotes) {
		if seg.kind == segCode {
			b.WriteString(fn(seg.text))
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String()
}
