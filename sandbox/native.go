package sandbox

// Native is a whitelisted function. Only natives are callable.
type Native struct {
	Name string
	Func func(m *machine, args []Value) (Value, error)
}

func (n *Native) call(m *machine, args []Value) (Value, error) {
	return n.Func(m, args)
}
