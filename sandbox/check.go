package sandbox

import (
	"strings"
)

// checker is the first layer: a walk over the tree before anything runs.
// The evaluator enforces the same rules again on its own.
type checker struct {
	scope       func(name string) bool
	allowed     map[string]entryKind
	allowRandom bool
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__")
}

func (c *checker) check(node Node) error {
	switch n := node.(type) {

	case *Constant:
		return nil

	case *Name:
		return c.checkName(n)

	case *UnaryOp:
		if n.Op == "~" {
			return violation(ReasonDisallowedNode, n.At, "bitwise operator %s", n.Op)
		}
		return c.check(n.Operand)

	case *BinOp:
		if !arithmeticOps[n.Op] {
			return violation(ReasonDisallowedNode, n.At, "operator %s", n.Op)
		}
		if err := c.check(n.Left); err != nil {
			return err
		}
		return c.check(n.Right)

	case *BoolOp:
		return c.checkAll(n.Values)

	case *Compare:
		if err := c.check(n.Left); err != nil {
			return err
		}
		return c.checkAll(n.Comparators)

	case *IfExp:
		if err := c.check(n.Test); err != nil {
			return err
		}
		if err := c.check(n.Body); err != nil {
			return err
		}
		return c.check(n.OrElse)

	case *Call:
		if len(n.Keywords) > 0 {
			return violation(ReasonDisallowedNode, n.Keywords[0].At, "keyword argument %s", n.Keywords[0].Name)
		}
		if err := c.checkCallee(n); err != nil {
			return err
		}
		return c.checkAll(n.Args)

	case *Attribute:
		_, err := c.checkAttribute(n)
		return err

	case *Subscript:
		if err := c.check(n.Value); err != nil {
			return err
		}
		return c.check(n.Index)

	case *TupleLit:
		return c.checkAll(n.Elts)

	case *ListLit:
		return c.checkAll(n.Elts)

	case *DictLit:
		if err := c.checkAll(n.Keys); err != nil {
			return err
		}
		return c.checkAll(n.Values)

	case *Keyword:
		return violation(ReasonDisallowedNode, n.At, "keyword argument")
	case *Slice:
		return violation(ReasonDisallowedNode, n.At, "slice")
	case *SetLit:
		return violation(ReasonDisallowedNode, n.At, "set literal")
	case *Lambda:
		return violation(ReasonDisallowedNode, n.At, "lambda")
	case *Comprehension:
		return violation(ReasonDisallowedNode, n.At, "%s comprehension", n.Kind)
	case *NamedExpr:
		return violation(ReasonDisallowedNode, n.At, "assignment expression")
	case *Starred:
		return violation(ReasonDisallowedNode, n.At, "starred expression")

	case nil:
		return violation(ReasonDisallowedNode, Pos{}, "empty node")

	}
	return violation(ReasonDisallowedNode, node.Position(), "node %T", node)
}

var arithmeticOps = map[string]bool{
	"+":  true,
	"-":  true,
	"*":  true,
	"/":  true,
	"//": true,
	"%":  true,
	"**": true,
}

func (c *checker) checkAll(nodes []Node) error {
	for _, n := range nodes {
		if err := c.check(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkName(n *Name) error {
	if isDunder(n.ID) {
		return violation(ReasonDisallowedName, n.At, "%s", n.ID)
	}
	if c.scope(n.ID) {
		return nil
	}
	if _, ok := c.allowed[n.ID]; ok {
		return nil
	}
	if !c.allowRandom {
		if _, ok := randomWhitelist[n.ID]; ok {
			return violation(ReasonDisallowedName, n.At, "%s requires random to be allowed", n.ID)
		}
	}
	return violation(ReasonUnknownName, n.At, "%s", n.ID)
}

func (c *checker) checkCallee(call *Call) error {
	switch fn := call.Func.(type) {

	case *Name:
		if err := c.checkName(fn); err != nil {
			return err
		}
		if c.scope(fn.ID) {
			return violation(ReasonDisallowedCall, fn.At, "%s is a variable, not a function", fn.ID)
		}
		if c.allowed[fn.ID] != entryFunc {
			return violation(ReasonDisallowedCall, fn.At, "%s is not callable", fn.ID)
		}
		return nil

	case *Attribute:
		kind, err := c.checkAttribute(fn)
		if err != nil {
			return err
		}
		if kind != entryFunc {
			return violation(ReasonDisallowedCall, fn.At, "%s is not callable", fn.Attr)
		}
		return nil

	}
	if err := c.check(call.Func); err != nil {
		return err
	}
	return violation(ReasonDisallowedCall, call.At, "call target must be a whitelisted function")
}

// checkAttribute allows only math.<member> and random.<member>.
func (c *checker) checkAttribute(attr *Attribute) (entryKind, error) {
	base, ok := attr.Value.(*Name)
	if !ok {
		return 0, violation(ReasonDisallowedAttribute, attr.At, "attribute access on %s", describe(attr.Value))
	}
	if isDunder(attr.Attr) {
		return 0, violation(ReasonDisallowedAttribute, attr.At, "%s.%s", base.ID, attr.Attr)
	}
	if c.scope(base.ID) {
		return 0, violation(ReasonDisallowedAttribute, attr.At, "attribute access on variable %s", base.ID)
	}

	var funcs []*Native
	var consts map[string]Value
	switch base.ID {
	case mathName:
		funcs, consts = mathFuncs, mathConsts
	case randomName:
		if !c.allowRandom {
			return 0, violation(ReasonDisallowedAttribute, attr.At, "random is not allowed here")
		}
		funcs = randomFuncs
	default:
		return 0, violation(ReasonDisallowedAttribute, attr.At, "%s.%s", base.ID, attr.Attr)
	}

	for _, fn := range funcs {
		if fn.Name == attr.Attr {
			return entryFunc, nil
		}
	}
	if _, ok := consts[attr.Attr]; ok {
		return entryConst, nil
	}
	return 0, violation(ReasonDisallowedAttribute, attr.At, "%s.%s", base.ID, attr.Attr)
}

func describe(node Node) string {
	switch n := node.(type) {
	case *Name:
		return n.ID
	case *Constant:
		return Repr(n.Value)
	case *Call:
		return "call result"
	case *Attribute:
		return describe(n.Value) + "." + n.Attr
	case *Subscript:
		return "subscript"
	}
	return "expression"
}
