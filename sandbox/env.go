package sandbox

type Env struct {
	Parent *Env
	Vars   map[string]Value
}

func (e *Env) Get(name string) (Value, bool) {
	if v, ok := e.Vars[name]; ok {
		return v, true
	}
	if e.Parent != nil {
		return e.Parent.Get(name)
	}
	return nil, false
}

func (e *Env) Def(name string, val Value) {
	if e.Vars == nil {
		e.Vars = make(map[string]Value)
	}
	e.Vars[name] = val
}

func (e *Env) NewChild() *Env {
	return &Env{
		Parent: e,
	}
}
