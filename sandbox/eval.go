package sandbox

import (
	"errors"

	"github.com/reusee/patgen/rands"
)

// machine is the second layer. Its environment only holds the whitelisted
// natives and the caller's scope, so a node the checker missed still
// cannot reach anything else.
type machine struct {
	env    *Env
	limits Limits
	steps  int
	rand   rands.Source
}

func (m *machine) step() error {
	m.steps++
	if m.steps > m.limits.MaxSteps {
		return violation(ReasonStepBudget, Pos{}, "more than %d steps", m.limits.MaxSteps)
	}
	return nil
}

func (m *machine) eval(node Node) (Value, error) {
	if err := m.step(); err != nil {
		if node != nil {
			err.(*SandboxError).Pos = node.Position()
		}
		return nil, err
	}

	switch n := node.(type) {

	case *Constant:
		return n.Value, nil

	case *Name:
		if isDunder(n.ID) {
			return nil, violation(ReasonDisallowedName, n.At, "%s", n.ID)
		}
		v, ok := m.env.Get(n.ID)
		if !ok {
			return nil, violation(ReasonUnknownName, n.At, "%s", n.ID)
		}
		return v, nil

	case *UnaryOp:
		if n.Op == "~" {
			return nil, violation(ReasonDisallowedNode, n.At, "bitwise operator %s", n.Op)
		}
		v, err := m.eval(n.Operand)
		if err != nil {
			return nil, err
		}
		ret, err := unary(n.Op, v)
		return ret, withPos(err, n.At)

	case *BinOp:
		if !arithmeticOps[n.Op] {
			return nil, violation(ReasonDisallowedNode, n.At, "operator %s", n.Op)
		}
		left, err := m.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := m.eval(n.Right)
		if err != nil {
			return nil, err
		}
		ret, err := m.binary(n.Op, left, right)
		if err != nil {
			var sandboxErr *SandboxError
			if errors.As(err, &sandboxErr) && sandboxErr.Pos.Line == 0 {
				sandboxErr.Pos = n.At
			}
		}
		return ret, withPos(err, n.At)

	case *BoolOp:
		var ret Value
		for _, operand := range n.Values {
			v, err := m.eval(operand)
			if err != nil {
				return nil, err
			}
			ret = v
			if (n.Op == "and") != Truthy(v) {
				return ret, nil
			}
		}
		return ret, nil

	case *Compare:
		left, err := m.eval(n.Left)
		if err != nil {
			return nil, err
		}
		for i, op := range n.Ops {
			right, err := m.eval(n.Comparators[i])
			if err != nil {
				return nil, err
			}
			ok, err := compareOp(op, left, right)
			if err != nil {
				return nil, withPos(err, n.At)
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil

	case *IfExp:
		test, err := m.eval(n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return m.eval(n.Body)
		}
		return m.eval(n.OrElse)

	case *Call:
		if len(n.Keywords) > 0 {
			return nil, violation(ReasonDisallowedNode, n.At, "keyword argument")
		}
		callee, err := m.eval(n.Func)
		if err != nil {
			return nil, err
		}
		native, ok := callee.(*Native)
		if !ok {
			return nil, violation(ReasonDisallowedCall, n.At, "'%s' object is not callable", typeName(callee))
		}
		args := make([]Value, 0, len(n.Args))
		for _, arg := range n.Args {
			v, err := m.eval(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		ret, err := native.call(m, args)
		return ret, withPos(err, n.At)

	case *Attribute:
		base, err := m.eval(n.Value)
		if err != nil {
			return nil, err
		}
		ns, ok := base.(*Namespace)
		if !ok || isDunder(n.Attr) {
			return nil, violation(ReasonDisallowedAttribute, n.At, "attribute %s on '%s'", n.Attr, typeName(base))
		}
		member, ok := ns.Members[n.Attr]
		if !ok {
			return nil, violation(ReasonDisallowedAttribute, n.At, "%s.%s", ns.Name, n.Attr)
		}
		return member, nil

	case *Subscript:
		container, err := m.eval(n.Value)
		if err != nil {
			return nil, err
		}
		key, err := m.eval(n.Index)
		if err != nil {
			return nil, err
		}
		ret, err := index(container, key)
		return ret, withPos(err, n.At)

	case *TupleLit:
		elems, err := m.evalAll(n.Elts)
		return Tuple(elems), err

	case *ListLit:
		elems, err := m.evalAll(n.Elts)
		return List(elems), err

	case *DictLit:
		d := new(Dict)
		for i, k := range n.Keys {
			key, err := m.eval(k)
			if err != nil {
				return nil, err
			}
			value, err := m.eval(n.Values[i])
			if err != nil {
				return nil, err
			}
			if err := d.Set(key, value); err != nil {
				return nil, withPos(err, k.Position())
			}
		}
		return d, nil

	case nil:
		return nil, violation(ReasonDisallowedNode, Pos{}, "empty node")

	}

	return nil, violation(ReasonDisallowedNode, node.Position(), "node %T", node)
}

func (m *machine) evalAll(nodes []Node) ([]Value, error) {
	ret := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := m.eval(n)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

func compareOp(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return equal(a, b), nil
	case "!=":
		return !equal(a, b), nil
	case "in":
		return contains(b, a)
	case "not in":
		ok, err := contains(b, a)
		return !ok, err
	case "is":
		return identical(a, b), nil
	case "is not":
		return !identical(a, b), nil
	}
	n, err := compare(op, a, b)
	if errors.Is(err, errUnordered) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return n < 0, nil
	case "<=":
		return n <= 0, nil
	case ">":
		return n > 0, nil
	case ">=":
		return n >= 0, nil
	}
	return false, violation(ReasonDisallowedNode, Pos{}, "comparison %s", op)
}

// identical approximates Python identity for immutable values.
func identical(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if typeName(a) != typeName(b) {
		return false
	}
	switch a.(type) {
	case List, *Dict:
		return false
	}
	return equal(a, b)
}
