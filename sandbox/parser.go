package sandbox

import (
	"slices"
	"strconv"
	"strings"
)

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
}

func newParser(source string, maxDepth int) (*parser, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return &parser{
		tokens:   tokens,
		maxDepth: maxDepth,
	}, nil
}

// ParseExpression parses a single expression, a bare tuple such as 1, 2 included.
func ParseExpression(source string, maxDepth int) (Node, error) {
	p, err := newParser(source, maxDepth)
	if err != nil {
		return nil, withSource(err, source)
	}
	node, err := p.parseTestList()
	if err != nil {
		return nil, withSource(err, source)
	}
	if err := p.expectEnd(); err != nil {
		return nil, withSource(err, source)
	}
	return node, nil
}

// ParseStatement parses one solver statement: an assignment, a return or an expression.
func ParseStatement(source string, maxDepth int) (Stmt, error) {
	stmt, err := parseStatement(source, maxDepth)
	if err != nil {
		return nil, withSource(err, source)
	}
	return stmt, nil
}

func parseStatement(source string, maxDepth int) (Stmt, error) {
	p, err := newParser(source, maxDepth)
	if err != nil {
		return nil, err
	}
	first := p.peek()

	switch {

	case first.Kind == TokenKeyword && first.Text == "return":
		p.next()
		if p.peek().Kind == TokenEOF {
			return &Return{At: first.Pos}, nil
		}
		value, err := p.parseTestList()
		if err != nil {
			return nil, err
		}
		if err := p.expectEnd(); err != nil {
			return nil, err
		}
		return &Return{At: first.Pos, Value: value}, nil

	case first.Kind == TokenKeyword && isStatementKeyword(first.Text):
		return nil, violation(ReasonDisallowedNode, first.Pos, "statement %q", first.Text)

	case first.Kind == TokenIdentifier && p.peekAt(1).Kind == TokenOperator:
		op := p.peekAt(1)
		if op.Text == "=" {
			p.next()
			p.next()
			value, err := p.parseTestList()
			if err != nil {
				return nil, err
			}
			if err := p.expectEnd(); err != nil {
				return nil, err
			}
			return &Assign{At: first.Pos, Target: first.Text, Value: value}, nil
		}
		if isAugmentedAssign(op.Text) {
			return nil, violation(ReasonDisallowedNode, op.Pos, "augmented assignment %s", op.Text)
		}

	}

	value, err := p.parseTestList()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return &ExprStmt{At: first.Pos, Value: value}, nil
}

func isStatementKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "if", "else", "in", "is", "lambda", "for", "True", "False", "None":
		return false
	}
	return keywords[s]
}

func isAugmentedAssign(op string) bool {
	return len(op) >= 2 && strings.HasSuffix(op, "=") &&
		op != "==" && op != "!=" && op != "<=" && op != ">="
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.Kind == TokenOperator && t.Text == text
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.Kind == TokenKeyword && t.Text == text
}

func (p *parser) expectOp(text string) error {
	if !p.isOp(text) {
		return p.unexpected("expecting " + strconv.Quote(text))
	}
	p.next()
	return nil
}

func (p *parser) expectEnd() error {
	t := p.peek()
	if t.Kind == TokenEOF {
		return nil
	}
	if t.Kind == TokenOperator && t.Text == "=" {
		return violation(ReasonDisallowedNode, t.Pos, "assignment")
	}
	if t.Kind == TokenOperator && isAugmentedAssign(t.Text) {
		return violation(ReasonDisallowedNode, t.Pos, "augmented assignment %s", t.Text)
	}
	return p.unexpected("")
}

func (p *parser) unexpected(expecting string) error {
	t := p.peek()
	if expecting != "" {
		return syntaxError(t.Pos, "unexpected %s, %s", t, expecting)
	}
	return syntaxError(t.Pos, "unexpected %s", t)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return violation(ReasonTooDeep, p.peek().Pos, "more than %d levels", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) startsExpr() bool {
	t := p.peek()
	switch t.Kind {
	case TokenIdentifier, TokenInt, TokenFloat, TokenString:
		return true
	case TokenKeyword:
		switch t.Text {
		case "not", "lambda", "True", "False", "None":
			return true
		}
	case TokenOperator:
		switch t.Text {
		case "(", "[", "{", "-", "+", "~", "*":
			return true
		}
	}
	return false
}

func (p *parser) parseTestList() (Node, error) {
	start := p.peek().Pos
	first, err := p.parseNamedOrStarred()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Node{first}
	for p.isOp(",") {
		p.next()
		if !p.startsExpr() {
			break
		}
		elt, err := p.parseNamedOrStarred()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	return &TupleLit{At: start, Elts: elts}, nil
}

func (p *parser) parseNamedOrStarred() (Node, error) {
	if p.isOp("*") || p.isOp("**") {
		t := p.next()
		value, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		return &Starred{At: t.Pos, Value: value}, nil
	}
	t := p.peek()
	if t.Kind == TokenIdentifier && p.peekAt(1).Kind == TokenOperator && p.peekAt(1).Text == ":=" {
		p.next()
		p.next()
		value, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		return &NamedExpr{At: t.Pos, Target: t.Text, Value: value}, nil
	}
	return p.parseTest()
}

func (p *parser) parseTest() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.isKeyword("lambda") {
		return p.parseLambda()
	}

	start := p.peek().Pos
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("if") {
		return body, nil
	}
	p.next()
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("else") {
		return nil, p.unexpected(`expecting "else"`)
	}
	p.next()
	orElse, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	return &IfExp{At: start, Test: test, Body: body, OrElse: orElse}, nil
}

func (p *parser) parseLambda() (Node, error) {
	start := p.next().Pos
	var params []string
	for !p.isOp(":") {
		t := p.peek()
		if t.Kind != TokenIdentifier {
			return nil, p.unexpected("expecting parameter name")
		}
		p.next()
		params = append(params, t.Text)
		if p.isOp(",") {
			p.next()
		} else if !p.isOp(":") {
			return nil, p.unexpected(`expecting ":"`)
		}
	}
	p.next()
	body, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	return &Lambda{At: start, Params: params, Body: body}, nil
}

func (p *parser) parseOr() (Node, error) {
	return p.parseBoolChain("or", p.parseAnd)
}

func (p *parser) parseAnd() (Node, error) {
	return p.parseBoolChain("and", p.parseNot)
}

func (p *parser) parseBoolChain(op string, operand func() (Node, error)) (Node, error) {
	start := p.peek().Pos
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword(op) {
		return first, nil
	}
	values := []Node{first}
	for p.isKeyword(op) {
		p.next()
		value, err := operand()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return &BoolOp{At: start, Op: op, Values: values}, nil
}

func (p *parser) parseNot() (Node, error) {
	if !p.isKeyword("not") {
		return p.parseComparison()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	t := p.next()
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &UnaryOp{At: t.Pos, Op: "not", Operand: operand}, nil
}

func (p *parser) comparisonOp() (string, bool) {
	t := p.peek()
	switch t.Kind {
	case TokenOperator:
		switch t.Text {
		case "<", ">", "==", ">=", "<=", "!=":
			p.next()
			return t.Text, true
		}
	case TokenKeyword:
		switch t.Text {
		case "in":
			p.next()
			return "in", true
		case "not":
			next := p.peekAt(1)
			if next.Kind == TokenKeyword && next.Text == "in" {
				p.next()
				p.next()
				return "not in", true
			}
		case "is":
			p.next()
			if p.isKeyword("not") {
				p.next()
				return "is not", true
			}
			return "is", true
		}
	}
	return "", false
}

func (p *parser) parseComparison() (Node, error) {
	start := p.peek().Pos
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	var ops []string
	var comparators []Node
	for {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, nil
	}
	return &Compare{At: start, Left: left, Ops: ops, Comparators: comparators}, nil
}

// binary operator precedence levels, loosest first
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%", "@"},
}

func (p *parser) parseBitOr() (Node, error) {
	return p.parseBinary(0)
}

func (p *parser) parseBinary(level int) (Node, error) {
	if level >= len(binaryLevels) {
		return p.parseFactor()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokenOperator || !slices.Contains(binaryLevels[level], t.Text) {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinOp{At: t.Pos, Op: t.Text, Left: left, Right: right}
	}
}

func (p *parser) parseFactor() (Node, error) {
	t := p.peek()
	if t.Kind == TokenOperator && (t.Text == "-" || t.Text == "+" || t.Text == "~") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{At: t.Pos, Op: t.Text, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	t := p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	// right associative, and the exponent may carry a unary sign: 2 ** -1
	exponent, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return &BinOp{At: t.Pos, Op: "**", Left: base, Right: exponent}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	node, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != TokenOperator {
			return node, nil
		}
		switch t.Text {

		case "(":
			p.next()
			call, err := p.parseCallArgs(node, t.Pos)
			if err != nil {
				return nil, err
			}
			node = call

		case "[":
			p.next()
			index, err := p.parseSubscriptIndex()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			node = &Subscript{At: t.Pos, Value: node, Index: index}

		case ".":
			p.next()
			name := p.peek()
			if name.Kind != TokenIdentifier && name.Kind != TokenKeyword {
				return nil, p.unexpected("expecting attribute name")
			}
			p.next()
			node = &Attribute{At: t.Pos, Value: node, Attr: name.Text}

		default:
			return node, nil
		}

		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
	}
}

func (p *parser) parseCallArgs(fn Node, pos Pos) (Node, error) {
	call := &Call{At: pos, Func: fn}
	for !p.isOp(")") {
		t := p.peek()
		switch {

		case t.Kind == TokenIdentifier && p.peekAt(1).Kind == TokenOperator && p.peekAt(1).Text == "=":
			p.next()
			p.next()
			value, err := p.parseTest()
			if err != nil {
				return nil, err
			}
			call.Keywords = append(call.Keywords, &Keyword{At: t.Pos, Name: t.Text, Value: value})

		default:
			arg, err := p.parseNamedOrStarred()
			if err != nil {
				return nil, err
			}
			if p.isKeyword("for") {
				arg, err = p.parseComprehension("generator", arg, nil, t.Pos)
				if err != nil {
					return nil, err
				}
			}
			call.Args = append(call.Args, arg)

		}
		if p.isOp(",") {
			p.next()
		} else if !p.isOp(")") {
			return nil, p.unexpected(`expecting "," or ")"`)
		}
	}
	p.next()
	return call, nil
}

func (p *parser) parseSubscriptIndex() (Node, error) {
	start := p.peek().Pos
	first, err := p.parseSliceItem()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Node{first}
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		elt, err := p.parseSliceItem()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	return &TupleLit{At: start, Elts: elts}, nil
}

func (p *parser) parseSliceItem() (Node, error) {
	start := p.peek().Pos
	var lower Node
	if !p.isOp(":") {
		var err error
		lower, err = p.parseTest()
		if err != nil {
			return nil, err
		}
		if !p.isOp(":") {
			return lower, nil
		}
	}
	slice := &Slice{At: start, Lower: lower}
	p.next()
	if !p.isOp(":") && !p.isOp("]") && !p.isOp(",") {
		upper, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		slice.Upper = upper
	}
	if p.isOp(":") {
		p.next()
		if !p.isOp("]") && !p.isOp(",") {
			step, err := p.parseTest()
			if err != nil {
				return nil, err
			}
			slice.Step = step
		}
	}
	return slice, nil
}

func (p *parser) parseComprehension(kind string, elt Node, key Node, pos Pos) (Node, error) {
	comp := &Comprehension{At: pos, Kind: kind, Elt: elt}
	if key != nil {
		comp.Elt = &TupleLit{At: key.Position(), Elts: []Node{key, elt}}
	}
	for p.isKeyword("for") {
		p.next()
		target, err := p.parseTargetList()
		if err != nil {
			return nil, err
		}
		if !p.isKeyword("in") {
			return nil, p.unexpected(`expecting "in"`)
		}
		p.next()
		iter, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if comp.Target == nil {
			comp.Target = target
			comp.Iter = iter
		}
		for p.isKeyword("if") {
			p.next()
			cond, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			comp.Conds = append(comp.Conds, cond)
		}
	}
	return comp, nil
}

func (p *parser) parseTargetList() (Node, error) {
	start := p.peek().Pos
	first, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []Node{first}
	for p.isOp(",") {
		p.next()
		if p.isKeyword("in") {
			break
		}
		elt, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	return &TupleLit{At: start, Elts: elts}, nil
}

func (p *parser) parseAtom() (Node, error) {
	t := p.peek()
	switch t.Kind {

	case TokenInt:
		p.next()
		i, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, syntaxError(t.Pos, "integer literal %s out of range", t.Text)
		}
		return &Constant{At: t.Pos, Value: i}, nil

	case TokenFloat:
		p.next()
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, syntaxError(t.Pos, "invalid float literal %s", t.Text)
		}
		return &Constant{At: t.Pos, Value: f}, nil

	case TokenString:
		// adjacent literals concatenate
		var sb strings.Builder
		for p.peek().Kind == TokenString {
			sb.WriteString(p.next().Text)
		}
		return &Constant{At: t.Pos, Value: sb.String()}, nil

	case TokenIdentifier:
		p.next()
		return &Name{At: t.Pos, ID: t.Text}, nil

	case TokenKeyword:
		switch t.Text {
		case "True":
			p.next()
			return &Constant{At: t.Pos, Value: true}, nil
		case "False":
			p.next()
			return &Constant{At: t.Pos, Value: false}, nil
		case "None":
			p.next()
			return &Constant{At: t.Pos, Value: nil}, nil
		case "lambda":
			return p.parseTest()
		}
		if isStatementKeyword(t.Text) {
			return nil, violation(ReasonDisallowedNode, t.Pos, "statement %q", t.Text)
		}

	case TokenOperator:
		switch t.Text {
		case "(":
			return p.parseParen()
		case "[":
			return p.parseList()
		case "{":
			return p.parseBrace()
		}

	}
	return nil, p.unexpected("")
}

func (p *parser) parseParen() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	start := p.next().Pos
	if p.isOp(")") {
		p.next()
		return &TupleLit{At: start}, nil
	}
	first, err := p.parseNamedOrStarred()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("for") {
		comp, err := p.parseComprehension("generator", first, nil, start)
		if err != nil {
			return nil, err
		}
		return comp, p.expectOp(")")
	}
	if p.isOp(")") {
		p.next()
		return first, nil
	}
	elts := []Node{first}
	for p.isOp(",") {
		p.next()
		if p.isOp(")") {
			break
		}
		elt, err := p.parseNamedOrStarred()
		if err != nil {
			return nil, err
		}
		elts = append(elts, elt)
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return &TupleLit{At: start, Elts: elts}, nil
}

func (p *parser) parseList() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	start := p.next().Pos
	list := &ListLit{At: start}
	if p.isOp("]") {
		p.next()
		return list, nil
	}
	first, err := p.parseNamedOrStarred()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("for") {
		comp, err := p.parseComprehension("list", first, nil, start)
		if err != nil {
			return nil, err
		}
		return comp, p.expectOp("]")
	}
	list.Elts = append(list.Elts, first)
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		elt, err := p.parseNamedOrStarred()
		if err != nil {
			return nil, err
		}
		list.Elts = append(list.Elts, elt)
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseBrace() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	start := p.next().Pos
	if p.isOp("}") {
		p.next()
		return &DictLit{At: start}, nil
	}

	first, err := p.parseNamedOrStarred()
	if err != nil {
		return nil, err
	}

	if !p.isOp(":") {
		// set display
		if p.isKeyword("for") {
			comp, err := p.parseComprehension("set", first, nil, start)
			if err != nil {
				return nil, err
			}
			return comp, p.expectOp("}")
		}
		set := &SetLit{At: start, Elts: []Node{first}}
		for p.isOp(",") {
			p.next()
			if p.isOp("}") {
				break
			}
			elt, err := p.parseNamedOrStarred()
			if err != nil {
				return nil, err
			}
			set.Elts = append(set.Elts, elt)
		}
		return set, p.expectOp("}")
	}

	p.next()
	value, err := p.parseTest()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("for") {
		comp, err := p.parseComprehension("dict", value, first, start)
		if err != nil {
			return nil, err
		}
		return comp, p.expectOp("}")
	}
	dict := &DictLit{At: start, Keys: []Node{first}, Values: []Node{value}}
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		key, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":"); err != nil {
			return nil, err
		}
		value, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		dict.Keys = append(dict.Keys, key)
		dict.Values = append(dict.Values, value)
	}
	return dict, p.expectOp("}")
}
