// Package value implements CL's runtime value model (spec.md §3, §9): a
// tagged sum type `Value = Quantity | Function | Interval | StringVal |
// PathVal | Reaction`, dispatched by Go type switches rather than
// subclassing, plus the persistent-frame-chain Environment closures
// capture.
//
// Grounded on chemistry_lang's ch_objs.py for the value shapes and
// ch_interpreter.py's stringify/truthiness rules; the Go realization
// follows DESIGN NOTES §9's explicit instruction to replace runtime type
// checks with one sum type and a single owned Environment chain.
package value

import (
	"chemlang/pkg/ast"
	"chemlang/pkg/chem"
	"chemlang/pkg/decimal"
	"chemlang/pkg/reaction"
	"chemlang/pkg/units"
)

// Value is any runtime value CL's evaluator produces.
type Value interface {
	valueNode()
}

// Quantity is CL's universal numeric value: magnitude, unit, and an
// optional chemical formula, per spec.md §3.
type Quantity struct {
	Magnitude decimal.Decimal
	Unit      units.Unit
	Formula   *chem.Formula // nil when the quantity carries no formula
}

func (Quantity) valueNode() {}

// Bool constructs the dimensionless pass/fail truth quantities, per
// spec.md §3: "Boolean truth is represented as the dimensionless
// Quantities pass (nonzero) and fail (zero)."
func Bool(b bool) Quantity {
	n := int64(0)
	if b {
		n = 1
	}
	return Quantity{Magnitude: decimal.FromInt(n), Unit: units.Dimensionless}
}

// Truthy reports whether q counts as true: any nonzero scalar, per
// spec.md §3.
func (q Quantity) Truthy() bool {
	return decimal.Sign(q.Magnitude.Coeff) != 0
}

// IsDimensionless reports whether q carries the scalar unit `1`.
func (q Quantity) IsDimensionless() bool {
	return q.Unit.Dim == units.Dimensionless.Dim && !q.Unit.IsAtom
}

// NAVal is CL's absent value, produced by the `na` literal and by a bare
// `submit` with no expression.
type NAVal struct{}

func (NAVal) valueNode() {}

// NA is the single absent value.
var NA = NAVal{}

// StringVal is a CL string value, already resolved from its interpolated
// segments into plain text.
type StringVal struct {
	Text string
}

func (StringVal) valueNode() {}

// PathVal is a filesystem path value, the left-hand operand CL's `->
// |path|` sink writes into.
type PathVal struct {
	Path string
}

func (PathVal) valueNode() {}

// IntervalVal is the lazy half-open integer sequence `[Lo, Hi)` produced
// by `a ... b`, per spec.md §4.4.
type IntervalVal struct {
	Lo, Hi int64
}

func (IntervalVal) valueNode() {}

// ReactionVal wraps a balanced or unbalanced reaction.Reaction as a
// first-class CL value (it is also consumed directly by the `->`
// conversion pipeline without ever being bound to a name, but the spec's
// sum type in DESIGN NOTES §9 lists it as a value variant).
type ReactionVal struct {
	Reaction reaction.Reaction
}

func (ReactionVal) valueNode() {}

// Function is a closure: the work statement's parameter names, body, and
// the environment captured at definition time, per spec.md §3's
// "Function values capture the environment at definition."
type Function struct {
	Name   string
	Params []string
	Body   []ast.Stmt
	Env    *Env
}

func (*Function) valueNode() {}

// NativeFunc is a builtin implemented in Go (the math-module surface,
// input(), print(), etc.), per SPEC_FULL §6.1.
type NativeFunc struct {
	Name string
	Arity int // -1 for variadic
	Fn    func(args []Value) (Value, error)
}

func (*NativeFunc) valueNode() {}
