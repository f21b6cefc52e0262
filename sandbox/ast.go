package sandbox

// Node is the closed set of syntax tree nodes produced by the parser.
// Some kinds are parsed only so that the checker can reject them by name.
type Node interface {
	Position() Pos
	node()
}

type (
	Constant struct {
		At    Pos
		Value Value
	}

	Name struct {
		At Pos
		ID string
	}

	UnaryOp struct {
		At      Pos
		Op      string
		Operand Node
	}

	BinOp struct {
		At    Pos
		Op    string
		Left  Node
		Right Node
	}

	// BoolOp is a chain of and/or with short-circuit evaluation.
	BoolOp struct {
		At     Pos
		Op     string
		Values []Node
	}

	// Compare is a comparison chain: a < b <= c.
	Compare struct {
		At          Pos
		Left        Node
		Ops         []string
		Comparators []Node
	}

	IfExp struct {
		At     Pos
		Test   Node
		Body   Node
		OrElse Node
	}

	Call struct {
		At       Pos
		Func     Node
		Args     []Node
		Keywords []*Keyword
	}

	Attribute struct {
		At    Pos
		Value Node
		Attr  string
	}

	Subscript struct {
		At    Pos
		Value Node
		Index Node
	}

	TupleLit struct {
		At   Pos
		Elts []Node
	}

	ListLit struct {
		At   Pos
		Elts []Node
	}

	DictLit struct {
		At     Pos
		Keys   []Node
		Values []Node
	}
)

// disallowed kinds
type (
	Keyword struct {
		At    Pos
		Name  string
		Value Node
	}

	Slice struct {
		At    Pos
		Lower Node
		Upper Node
		Step  Node
	}

	SetLit struct {
		At   Pos
		Elts []Node
	}

	Lambda struct {
		At     Pos
		Params []string
		Body   Node
	}

	// Comprehension covers list, set, dict comprehensions and generator expressions.
	Comprehension struct {
		At     Pos
		Kind   string
		Elt    Node
		Target Node
		Iter   Node
		Conds  []Node
	}

	// NamedExpr is the walrus assignment x := v.
	NamedExpr struct {
		At     Pos
		Target string
		Value  Node
	}

	Starred struct {
		At    Pos
		Value Node
	}
)

func (n *Constant) Position() Pos      { return n.At }
func (n *Name) Position() Pos          { return n.At }
func (n *UnaryOp) Position() Pos       { return n.At }
func (n *BinOp) Position() Pos         { return n.At }
func (n *BoolOp) Position() Pos        { return n.At }
func (n *Compare) Position() Pos       { return n.At }
func (n *IfExp) Position() Pos         { return n.At }
func (n *Call) Position() Pos          { return n.At }
func (n *Attribute) Position() Pos     { return n.At }
func (n *Subscript) Position() Pos     { return n.At }
func (n *TupleLit) Position() Pos      { return n.At }
func (n *ListLit) Position() Pos       { return n.At }
func (n *DictLit) Position() Pos       { return n.At }
func (n *Keyword) Position() Pos       { return n.At }
func (n *Slice) Position() Pos         { return n.At }
func (n *SetLit) Position() Pos        { return n.At }
func (n *Lambda) Position() Pos        { return n.At }
func (n *Comprehension) Position() Pos { return n.At }
func (n *NamedExpr) Position() Pos     { return n.At }
func (n *Starred) Position() Pos       { return n.At }

func (*Constant) node()      {}
func (*Name) node()          {}
func (*UnaryOp) node()       {}
func (*BinOp) node()         {}
func (*BoolOp) node()        {}
func (*Compare) node()       {}
func (*IfExp) node()         {}
func (*Call) node()          {}
func (*Attribute) node()     {}
func (*Subscript) node()     {}
func (*TupleLit) node()      {}
func (*ListLit) node()       {}
func (*DictLit) node()       {}
func (*Keyword) node()       {}
func (*Slice) node()         {}
func (*SetLit) node()        {}
func (*Lambda) node()        {}
func (*Comprehension) node() {}
func (*NamedExpr) node()     {}
func (*Starred) node()       {}

// Stmt is one solver statement.
type Stmt interface {
	Position() Pos
	stmt()
}

type (
	Assign struct {
		At     Pos
		Target string
		Value  Node
	}

	Return struct {
		At    Pos
		Value Node // nil for a bare return
	}

	ExprStmt struct {
		At    Pos
		Value Node
	}
)

func (s *Assign) Position() Pos   { return s.At }
func (s *Return) Position() Pos   { return s.At }
func (s *ExprStmt) Position() Pos { return s.At }

func (*Assign) stmt()   {}
func (*Return) stmt()   {}
func (*ExprStmt) stmt() {}

// Walk calls fn for node and every node below it, depth first.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	walkAll := func(nodes []Node) {
		for _, n := range nodes {
			Walk(n, fn)
		}
	}
	switch n := node.(type) {
	case *Constant, *Name:
	case *UnaryOp:
		Walk(n.Operand, fn)
	case *BinOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *BoolOp:
		walkAll(n.Values)
	case *Compare:
		Walk(n.Left, fn)
		walkAll(n.Comparators)
	case *IfExp:
		Walk(n.Test, fn)
		Walk(n.Body, fn)
		Walk(n.OrElse, fn)
	case *Call:
		Walk(n.Func, fn)
		walkAll(n.Args)
		for _, kw := range n.Keywords {
			Walk(kw, fn)
		}
	case *Attribute:
		Walk(n.Value, fn)
	case *Subscript:
		Walk(n.Value, fn)
		Walk(n.Index, fn)
	case *TupleLit:
		walkAll(n.Elts)
	case *ListLit:
		walkAll(n.Elts)
	case *DictLit:
		walkAll(n.Keys)
		walkAll(n.Values)
	case *Keyword:
		Walk(n.Value, fn)
	case *Slice:
		Walk(n.Lower, fn)
		Walk(n.Upper, fn)
		Walk(n.Step, fn)
	case *SetLit:
		walkAll(n.Elts)
	case *Lambda:
		Walk(n.Body, fn)
	case *Comprehension:
		Walk(n.Elt, fn)
		Walk(n.Target, fn)
		Walk(n.Iter, fn)
		walkAll(n.Conds)
	case *NamedExpr:
		Walk(n.Value, fn)
	case *Starred:
		Walk(n.Value, fn)
	}
}

// Names returns the distinct identifiers read by node, in first-seen order.
// Attribute names such as sqrt in math.sqrt are not included.
func Names(node Node) []string {
	var ret []string
	seen := make(map[string]bool)
	Walk(node, func(n Node) bool {
		if name, ok := n.(*Name); ok && !seen[name.ID] {
			seen[name.ID] = true
			ret = append(ret, name.ID)
		}
		return true
	})
	return ret
}
