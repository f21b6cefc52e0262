package sandbox

import (
	"strings"
	"unicode"
)

type Tokenizer struct {
	source  []rune
	current *Token

	offset  int
	currPos Pos
}

func NewTokenizer(source string) *Tokenizer {
	return &Tokenizer{
		source: []rune(source),
		currPos: Pos{
			Line:   1,
			Column: 1,
		},
	}
}

// Tokenize splits source into tokens, ending with a TokenEOF.
func Tokenize(source string) ([]Token, error) {
	t := NewTokenizer(source)
	var tokens []Token
	for {
		token, err := t.Current()
		if err != nil {
			return nil, err
		}
		t.Consume()
		tokens = append(tokens, *token)
		if token.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func (t *Tokenizer) peekRune(n int) (rune, bool) {
	if t.offset+n >= len(t.source) {
		return 0, false
	}
	return t.source[t.offset+n], true
}

func (t *Tokenizer) readRune() (rune, bool) {
	if t.offset >= len(t.source) {
		return 0, false
	}
	r := t.source[t.offset]
	t.offset++
	t.currPos.Offset = t.offset
	if r == '\n' {
		t.currPos.Line++
		t.currPos.Column = 1
	} else {
		t.currPos.Column++
	}
	return r, true
}

func (t *Tokenizer) Current() (*Token, error) {
	if t.current == nil {
		var err error
		t.current, err = t.parseNext()
		if err != nil {
			return nil, err
		}
	}
	return t.current, nil
}

func (t *Tokenizer) Consume() {
	t.current = nil
}

func (t *Tokenizer) parseNext() (*Token, error) {
	t.skipWhitespace()
	startPos := t.currPos

	r, ok := t.peekRune(0)
	if !ok {
		return &Token{Kind: TokenEOF, Pos: startPos}, nil
	}

	switch {
	case r == '#':
		t.skipComment()
		return t.parseNext()
	case r == '\'' || r == '"':
		t.readRune()
		return t.parseString(r, startPos)
	case isDigit(r):
		return t.parseNumber()
	case r == '.':
		if next, ok := t.peekRune(1); ok && isDigit(next) {
			return t.parseNumber()
		}
	case r == '_' || unicode.IsLetter(r):
		return t.parseIdentifier()
	}

	for _, op := range operators {
		if t.hasPrefix(op) {
			for range len(op) {
				t.readRune()
			}
			return &Token{
				Kind: TokenOperator,
				Text: op,
				Pos:  startPos,
			}, nil
		}
	}

	return nil, syntaxError(startPos, "unexpected character %q", r)
}

func (t *Tokenizer) hasPrefix(s string) bool {
	i := 0
	for _, r := range s {
		c, ok := t.peekRune(i)
		if !ok || c != r {
			return false
		}
		i++
	}
	return true
}

func (t *Tokenizer) skipWhitespace() {
	for {
		r, ok := t.peekRune(0)
		if !ok || !unicode.IsSpace(r) {
			return
		}
		t.readRune()
	}
}

func (t *Tokenizer) skipComment() {
	for {
		r, ok := t.readRune()
		if !ok || r == '\n' {
			return
		}
	}
}

func (t *Tokenizer) parseIdentifier() (*Token, error) {
	startPos := t.currPos
	var buf strings.Builder
	for {
		r, ok := t.peekRune(0)
		if !ok || !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			break
		}
		t.readRune()
		buf.WriteRune(r)
	}
	text := buf.String()
	kind := TokenIdentifier
	if keywords[text] {
		kind = TokenKeyword
	}
	return &Token{
		Kind: kind,
		Text: text,
		Pos:  startPos,
	}, nil
}

func (t *Tokenizer) parseNumber() (*Token, error) {
	startPos := t.currPos
	var buf strings.Builder
	kind := TokenInt

	digits := func() {
		for {
			r, ok := t.peekRune(0)
			if !ok {
				return
			}
			if isDigit(r) {
				buf.WriteRune(r)
			} else if r != '_' {
				return
			}
			t.readRune()
		}
	}

	digits()
	if r, ok := t.peekRune(0); ok && r == '.' {
		t.readRune()
		buf.WriteRune('.')
		kind = TokenFloat
		digits()
	}
	if r, ok := t.peekRune(0); ok && (r == 'e' || r == 'E') {
		next, _ := t.peekRune(1)
		sign := next == '+' || next == '-'
		if sign {
			next, _ = t.peekRune(2)
		}
		if isDigit(next) {
			t.readRune()
			buf.WriteRune('e')
			if sign {
				s, _ := t.readRune()
				buf.WriteRune(s)
			}
			kind = TokenFloat
			digits()
		}
	}

	if r, ok := t.peekRune(0); ok && (r == '_' || unicode.IsLetter(r) || isDigit(r)) {
		return nil, syntaxError(startPos, "invalid number literal")
	}

	return &Token{
		Kind: kind,
		Text: buf.String(),
		Pos:  startPos,
	}, nil
}

func (t *Tokenizer) parseString(quote rune, startPos Pos) (*Token, error) {
	var buf strings.Builder
	for {
		r, ok := t.readRune()
		if !ok || r == '\n' {
			return nil, syntaxError(startPos, "unterminated string literal")
		}
		if r == quote {
			break
		}

		if r == '\\' {
			next, ok := t.readRune()
			if !ok {
				return nil, syntaxError(startPos, "unterminated string literal")
			}
			switch next {
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			case '"':
				buf.WriteRune('"')
			case '\'':
				buf.WriteRune('\'')
			default:
				buf.WriteRune('\\')
				buf.WriteRune(next)
			}
		} else {
			buf.WriteRune(r)
		}
	}
	return &Token{
		Kind: TokenString,
		Text: buf.String(),
		Pos:  startPos,
	}, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
