package sandbox

import (
	"regexp"
	"strings"
)

// Shape is the form a script was written in.
type Shape string

const (
	// ShapeExpression is a bare expression such as `{url: base + "/items"}`.
	ShapeExpression Shape = "expression"

	// ShapeStatements is a statement body ending in a return.
	ShapeStatements Shape = "statements"

	// ShapeCallable is a function literal such as `(response, pageInfo) => ...`.
	ShapeCallable Shape = "callable"
)

// Normalized is a script rewritten into a single evaluable expression.
type Normalized struct {
	Shape Shape

	// Params are the callable's parameter names, in order.
	Params []string

	// Source is the expression handed to the interpreter.
	Source string
}

var (
	arrowParams  = regexp.MustCompile(`^\(\s*([^()]*?)\s*\)\s*=>\s*`)
	arrowSingle  = regexp.MustCompile(`^([A-Za-z_$][\w$]*)\s*=>\s*`)
	functionHead = regexp.MustCompile(`^(?:async\s+)?function\s*[\w$]*\s*\(\s*([^()]*?)\s*\)\s*`)
	strictEq     = regexp.MustCompile(`([=!])==`)
	lengthAccess = regexp.MustCompile(`([A-Za-z_$][\w$]*(?:\??\.[A-Za-z_$][\w$]*|\[[^\[\]]*\])*)\??\.length\b`)
	returnPrefix = regexp.MustCompile(`^return\b\s*`)
)

// Normalize infers the shape of a script and rewrites it into one expression.
//
// Callables have their parameters extracted and their body normalized.
// Statement bodies have const and var declarations turned into let bindings
// and the final return dropped. Outside string literals, === and !== become
// == and !=, and x.length becomes len(x). This is an authoring convenience,
// not a security boundary.
func Normalize(script string) Normalized {
	text := strings.TrimSpace(script)
	text = strings.TrimSuffix(text, ";")

	if m := arrowParams.FindStringSubmatch(text); m != nil {
		return callable(splitParams(m[1]), text[len(m[0]):])
	}
	if m := arrowSingle.FindStringSubmatch(text); m != nil {
		return callable([]string{m[1]}, text[len(m[0]):])
	}
	if m := functionHead.FindStringSubmatch(text); m != nil {
		return callable(splitParams(m[1]), text[len(m[0]):])
	}

	if isStatementBody(text) {
		return Normalized{Shape: ShapeStatements, Source: statements(text)}
	}
	return Normalized{Shape: ShapeExpression, Source: rewriteOperators(text)}
}

func callable(params []string, body string) Normalized {
	body = strings.TrimSpace(body)
	if block, ok := unwrapBlock(body); ok {
		return Normalized{Shape: ShapeCallable, Params: params, Source: statements(block)}
	}
	return Normalized{Shape: ShapeCallable, Params: params, Source: rewriteOperators(body)}
}

// unwrapBlock strips the braces of a `{ ... }` function body. An object
// literal such as `{url: x}` is an expression, not a block, so the body only
// counts as a block when it contains a statement keyword at top level.
func unwrapBlock(body string) (string, bool) {
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return "", false
	}
	inner := strings.TrimSpace(body[1 : len(body)-1])
	if !isStatementBody(inner) {
		return "", false
	}
	return inner, true
}

func isStatementBody(text string) bool {
	for _, stmt := range splitStatements(text) {
		if returnPrefix.MatchString(stmt) || hasDeclarationPrefix(stmt) || strings.HasPrefix(stmt, "let ") {
			return true
		}
	}
	return false
}

func hasDeclarationPrefix(stmt string) bool {
	return strings.HasPrefix(stmt, "const ") || strings.HasPrefix(stmt, "var ")
}

// statements joins a statement body into let-bindings followed by the value
// of the final return (or the final statement).
func statements(body string) string {
	stmts := splitStatements(body)
	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		switch {
		case strings.HasPrefix(stmt, "const "):
			stmt = "let " + stmt[len("const "):]
		case strings.HasPrefix(stmt, "var "):
			stmt = "let " + stmt[len("var "):]
		}
		if loc := returnPrefix.FindStringIndex(stmt); loc != nil {
			out = append(out, rewriteOperators(stmt[loc[1]:]))
			break
		}
		out = append(out, rewriteOperators(stmt))
	}
	return strings.Join(out, "; ")
}

func splitParams(list string) []string {
	var params []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if i := strings.IndexByte(p, '='); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}

// splitStatements splits text on semicolons and statement-ending newlines at
// bracket depth zero, outside string literals.
func splitStatements(text string) []string {
	var (
		stmts []string
		start int
		depth int
	)
	flush := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			stmts = append(stmts, s)
		}
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"', '\'', '`':
			i = skipString(text, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ';':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		case '\n':
			if depth == 0 && endsStatement(text[start:i]) && !continuesExpression(text[i+1:]) {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(text))
	return stmts
}

func endsStatement(line string) bool {
	line = strings.TrimRight(line, " \t\r")
	if line == "" {
		return false
	}
	return !strings.ContainsAny(line[len(line)-1:], "+-*/%&|=<>!?:,.(")
}

func continuesExpression(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return false
	}
	return strings.ContainsAny(rest[:1], "+-*/%&|=<>?:.,)]}")
}

// skipString returns the index just past the string literal starting at i.
func skipString(text string, i int) int {
	quote := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(text)
}

// rewriteOperators applies the JavaScript-compatibility rewrites to code
// outside string literals.
func rewriteOperators(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	code := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '"' && c != '\'' && c != '`' {
			continue
		}
		b.WriteString(rewriteCode(text[code:i]))
		end := skipString(text, i)
		b.WriteString(text[i:end])
		code = end
		i = end - 1
	}
	b.WriteString(rewriteCode(text[code:]))
	return b.String()
}

func rewriteCode(code string) string {
	code = strictEq.ReplaceAllString(code, "$1=")
	code = lengthAccess.ReplaceAllString(code, "len($1)")
	return code
}
