package sandbox

import "fmt"

type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

type TokenKind uint8

const (
	TokenInvalid TokenKind = iota
	TokenEOF
	TokenIdentifier
	TokenKeyword
	TokenInt
	TokenFloat
	TokenString
	TokenOperator
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenInt:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	}
	return "invalid token"
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Pos is a 1-based line and column plus a 0-based rune offset.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

var keywords = map[string]bool{
	// expression keywords
	"and":    true,
	"or":     true,
	"not":    true,
	"if":     true,
	"else":   true,
	"in":     true,
	"is":     true,
	"lambda": true,
	"for":    true,
	"True":   true,
	"False":  true,
	"None":   true,
	// statement keywords, never valid inside an expression
	"return":   true,
	"import":   true,
	"from":     true,
	"def":      true,
	"class":    true,
	"while":    true,
	"yield":    true,
	"await":    true,
	"async":    true,
	"del":      true,
	"global":   true,
	"nonlocal": true,
	"pass":     true,
	"break":    true,
	"continue": true,
	"try":      true,
	"except":   true,
	"finally":  true,
	"raise":    true,
	"with":     true,
	"assert":   true,
	"as":       true,
	"elif":     true,
}

// longest first
var operators = []string{
	"**=", "//=", ">>=", "<<=",
	"**", "//", "==", "!=", "<=", ">=", ":=", "->", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"+", "-", "*", "/", "%", "<", ">", "(", ")", "[", "]", "{", "}",
	",", ":", ".", "=", ";", "&", "|", "^", "~", "@",
}
