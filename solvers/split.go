package solvers

import (
	"strings"
)

// Statement is one piece of solver code between separators.
type Statement struct {
	Source string
	// Line is the 1-based line the statement starts on.
	Line int
}

// Split cuts code at semicolons and newlines that are outside brackets,
// strings and comments. Blank statements are dropped.
func Split(code string) []Statement {
	var ret []Statement
	var buf strings.Builder
	line := 1
	startLine := 0
	depth := 0
	var quote rune
	escaped := false
	comment := false

	flush := func() {
		src := strings.TrimSpace(buf.String())
		if src != "" {
			ret = append(ret, Statement{
				Source: src,
				Line:   startLine,
			})
		}
		buf.Reset()
		startLine = 0
	}

	for _, r := range code {
		if r == '\n' {
			comment = false
			if quote != 0 {
				// unterminated string, left for the tokenizer to report
				quote = 0
				escaped = false
			}
			if depth == 0 {
				flush()
				line++
				continue
			}
			buf.WriteRune(r)
			line++
			continue
		}
		if comment {
			continue
		}

		if startLine == 0 && r != ' ' && r != '\t' && r != '\r' {
			startLine = line
		}

		if quote != 0 {
			buf.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		switch r {
		case '\'', '"':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '#':
			comment = true
			continue
		case ';':
			if depth == 0 {
				flush()
				continue
			}
		}
		buf.WriteRune(r)
	}
	flush()

	return ret
}
