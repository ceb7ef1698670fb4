package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy is one independent text repair. Apply returns the repaired text;
// returning the input unchanged means the strategy did not apply.
type Strategy struct {
	Name  string
	Apply func(string) string
}

// Repair strategy names, as recorded in ParseResult.AppliedRepairs.
const (
	RepairNestedJSON         = "nested_json"
	RepairTrailingCommas     = "trailing_commas"
	RepairPythonLiterals     = "python_literals"
	RepairSingleQuotes       = "single_quotes"
	RepairControlCharacters  = "control_characters"
	RepairUnquotedKeys       = "unquoted_keys"
	RepairTrailingCharacters = "trailing_characters"
	RepairAggressive         = "aggressive_extraction"
)

// DefaultStrategies returns the built-in pipeline in the order it must run.
// Later strategies rely on earlier ones: control-character escaping only
// understands double-quoted strings, so it runs after quote conversion.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: RepairNestedJSON, Apply: unnestTripleQuoted},
		{Name: RepairTrailingCommas, Apply: removeTrailingCommas},
		{Name: RepairPythonLiterals, Apply: translateLiterals},
		{Name: RepairSingleQuotes, Apply: convertSingleQuotes},
		{Name: RepairControlCharacters, Apply: escapeControlCharacters},
		{Name: RepairUnquotedKeys, Apply: quoteUnquotedKeys},
		{Name: RepairTrailingCharacters, Apply: stripTrailingCharacters},
	}
}

var tripleQuoted = regexp.MustCompile(`"""([\s\S]*?)"""`)

// unnestTripleQuoted replaces """...""" values. Content that is itself JSON is
// inlined as a value; anything else becomes an ordinary JSON string.
func unnestTripleQuoted(s string) string {
	if !strings.Contains(s, `"""`) {
		return s
	}
	return tripleQuoted.ReplaceAllStringFunc(s, func(m string) string {
		inner := strings.TrimSpace(m[3 : len(m)-3])
		var v any
		if err := json.Unmarshal([]byte(inner), &v); err == nil {
			if out, err := Compact(v); err == nil {
				return out
			}
		}
		out, err := Compact(inner)
		if err != nil {
			return m
		}
		return out
	})
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

func removeTrailingCommas(s string) string {
	return mapCode(s, true, func(code string) string {
		return trailingComma.ReplaceAllString(code, "$1")
	})
}

var pythonLiteral = regexp.MustCompile(`\b(None|True|False)\b`)

func translateLiterals(s string) string {
	return mapCode(s, true, func(code string) string {
		return pythonLiteral.ReplaceAllStringFunc(code, func(m string) string {
			switch m {
			case "None":
				return "null"
			case "True":
				return "true"
			default:
				return "false"
			}
		})
	})
}

// convertSingleQuotes rewrites single-quoted strings as double-quoted ones.
// Escaped single quotes are unescaped and bare double quotes are escaped, so
// content such as `'say "hi"'` and `'it's'` survives the conversion.
func convertSingleQuotes(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range splitSegments(s, true) {
		if seg.kind != segSingle {
			b.WriteString(seg.text)
			continue
		}
		inner := seg.text[1:]
		if strings.HasSuffix(inner, "'") {
			inner = inner[:len(inner)-1]
		}
		b.WriteByte('"')
		for i := 0; i < len(inner); i++ {
			c := inner[i]
			switch {
			case c == '\\' && i+1 < len(inner) && inner[i+1] == '\'':
				b.WriteByte('\'')
				i++
			case c == '\\' && i+1 < len(inner):
				b.WriteByte(c)
				b.WriteByte(inner[i+1])
				i++
			case c == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
		}
		b.WriteByte('"')
	}
	return b.String()
}

// escapeControlCharacters escapes raw control characters that appear inside
// double-quoted strings.
func escapeControlCharacters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range splitSegments(s, false) {
		if seg.kind != segDouble {
			b.WriteString(seg.text)
			continue
		}
		for i := 0; i < len(seg.text); i++ {
			c := seg.text[i]
			if c >= 0x20 {
				b.WriteByte(c)
				continue
			}
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
		}
	}
	return b.String()
}

var unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$\-]*)(\s*:)`)

func quoteUnquotedKeys(s string) string {
	return mapCode(s, false, func(code string) string {
		return unquotedKey.ReplaceAllString(code, `$1"$2"$3`)
	})
}

// stripTrailingCharacters cuts everything after the first complete top-level
// object or array.
func stripTrailingCharacters(s string) string {
	start := firstNonSpace(s)
	if start < 0 || (s[start] != '{' && s[start] != '[') {
		return s
	}
	end := matchingClose(s, start)
	if end < 0 || strings.TrimSpace(s[end+1:]) == "" {
		return s
	}
	return s[:end+1]
}

func firstNonSpace(s string) int {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			return i
		}
	}
	return -1
}

// matchingClose returns the index of the bracket closing the one at start,
// skipping double-quoted strings, or -1 when the value never closes.
func matchingClose(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			i = scanDouble(s, i) - 1
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

const (
	maxExtractionStarts   = 256
	maxExtractionAttempts = 4096
)

// extractLargest finds the largest bracket-delimited substring of s that
// parses as JSON. It is the last resort for JSON embedded in prose or logs.
func extractLargest(s string) (any, bool) {
	var starts, ends []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			if len(starts) < maxExtractionStarts {
				starts = append(starts, i)
			}
		case '}', ']':
			ends = append(ends, i)
		}
	}

	var (
		best     any
		bestLen  int
		found    bool
		attempts int
	)
	for _, start := range starts {
		open := s[start]
		for j := len(ends) - 1; j >= 0; j-- {
			end := ends[j]
			if end <= start || end-start+1 <= bestLen {
				break
			}
			if !bracketsPair(open, s[end]) {
				continue
			}
			attempts++
			if attempts > maxExtractionAttempts {
				return best, found
			}
			var v any
			if err := json.Unmarshal([]byte(s[start:end+1]), &v); err == nil {
				best, bestLen, found = v, end-start+1, true
				break
			}
		}
	}
	return best, found
}

func bracketsPair(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}
