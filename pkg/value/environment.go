package value

// Env is one frame of CL's persistent lexical scope chain, per spec.md §5
// and DESIGN NOTES §9 ("Persistent scopes for closures"): frames are
// structurally shared — extending an environment yields a new child
// frame with a parent pointer, but assignment to an already-bound name
// mutates the cell in place in whichever frame up the chain first
// defines it. This gives closures the "nonlocal magic" of the counter
// example without true immutability.
type Env struct {
	vars   map[string]Value
	parent *Env
}

// NewEnv builds a root environment with no parent (the global scope).
func NewEnv() *Env {
	return &Env{vars: map[string]Value{}}
}

// Child builds a new frame whose parent is e, used on entering a block,
// loop body, or function call.
func (e *Env) Child() *Env {
	return &Env{vars: map[string]Value{}, parent: e}
}

// Define creates a new binding in e itself (the innermost frame),
// shadowing any binding of the same name in an enclosing frame.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// Lookup searches e and its ancestors for name, per spec.md §3's
// "lexically-scoped... mapping... with a parent pointer for enclosing
// scopes."
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign mutates the binding cell of name in the first frame up the
// chain that already has it (closures observe this mutation). If no
// frame defines name yet, it is declared fresh in e itself — CL has no
// separate declaration statement; the first assignment to a name is its
// declaration, per ch_env.py's Env.assign.
func (e *Env) Assign(name string, v Value) {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}
