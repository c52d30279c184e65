// Package ast defines the syntax tree pkg/parser builds and
// pkg/interpreter walks. Leaves are quantity literals, formulas,
// identifiers, paths, and strings; interior nodes are the grammar's
// statement and operator productions.
package ast

import "chemlang/pkg/token"

// Node is any syntax-tree node; every node knows where it came from.
type Node interface {
	Pos() token.Pos
}

// Expr is a node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a node executed for effect.
type Stmt interface {
	Node
	stmtNode()
}

// Base carries the source position every node has; embed it exported
// so pkg/parser can build node literals with a qualified field name.
type Base struct{ P token.Pos }

func (b Base) Pos() token.Pos { return b.P }

// Program is the root node: a script's top-level statement list.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Pos() token.Pos {
	if len(p.Stmts) == 0 {
		return token.Pos{}
	}
	return p.Stmts[0].Pos()
}

// ---- Expressions ----

// QuantityLit is a literal magnitude with an optional unit and an
// optional chemical formula, scanned as one lexical run per spec.md §6.
type QuantityLit struct {
	Base
	NumberText string // raw decimal literal text, parsed by pkg/decimal
	Unit       string // "" when no unit was written (bare scalar)
	Formula    string // "" when no formula was written; raw text for pkg/chem.ParseFormula
}

func (*QuantityLit) exprNode() {}

// NaLit is the `na` literal: CL's absent value.
type NaLit struct {
	Base
}

func (*NaLit) exprNode() {}

// BoolLit is the `pass`/`fail` boolean literal.
type BoolLit struct {
	Base
	Value bool
}

func (*BoolLit) exprNode() {}

// StringSegment is one piece of an interpolating string: either literal
// text (Expr == nil) or an embedded expression to stringify and splice in.
type StringSegment struct {
	Text string
	Expr Expr
}

// StringLit is a `"..."`, `s"..."`, or `doc ... done` string, exploded
// into literal/interpolated segments by the lexer.
type StringLit struct {
	Base
	Segments []StringSegment
}

func (*StringLit) exprNode() {}

// PathLit is a bare filesystem path literal (e.g. `out\results.txt`).
type PathLit struct {
	Base
	Value string
}

func (*PathLit) exprNode() {}

// Identifier references a bound name.
type Identifier struct {
	Base
	Name string
}

func (*Identifier) exprNode() {}

// FormulaLit is a bare chemical-formula expression not attached to a
// magnitude, e.g. `H2O` written on its own. A formula on the right-hand
// side of `->` is held in ConversionTarget.Formula instead.
type FormulaLit struct {
	Base
	Raw string
}

func (*FormulaLit) exprNode() {}

// UnaryExpr is `-x`, `+x`, `!x`, `~x`.
type UnaryExpr struct {
	Base
	Op      token.Type
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// BinaryExpr is any left-to-right binary operator production: arithmetic,
// comparison, or logical.
type BinaryExpr struct {
	Base
	Op          token.Type
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

// IntervalExpr is `a ... b`.
type IntervalExpr struct {
	Base
	Lo, Hi Expr
}

func (*IntervalExpr) exprNode() {}

// GroupingExpr is a parenthesized sub-expression, kept as its own node so
// pretty-printing and precedence stay unambiguous.
type GroupingExpr struct {
	Base
	Inner Expr
}

func (*GroupingExpr) exprNode() {}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// FormulaRef names one species within a reaction skeleton.
type FormulaRef struct {
	Base
	Raw string
}

// ReactionSkeleton is the `:A + B -> C + D:` sub-grammar used to mediate a
// conversion, per spec.md §4.6/§4.7 and DESIGN NOTES §9's "Reaction
// parsing ambiguity": the outer `:` delimiters keep its inner `->` from
// being parsed as a chained conversion.
type ReactionSkeleton struct {
	Base
	Reactants []FormulaRef
	Products  []FormulaRef
}

// ConversionTarget is the right-hand side of one `->` hop: a unit name, a
// bare formula, or a unit applied to a formula (spec.md §4.7: "T is a
// unit, or a formula, or a unit applied to a formula").
type ConversionTarget struct {
	Unit    string // "" when the target carries no explicit unit
	Formula string // "" when the target carries no explicit formula
	Path    Expr   // non-nil for a `-> |path|` file sink; Unit/Formula unused
}

// ConversionExpr is one `->` hop, optionally mediated by a reaction
// skeleton (`source :reaction:-> target`). Chained conversions
// (`a -> b -> c`) parse as nested ConversionExprs, left-associative.
type ConversionExpr struct {
	Base
	Source   Expr
	Reaction *ReactionSkeleton // nil when unmediated
	Target   ConversionTarget
}

func (*ConversionExpr) exprNode() {}

// ---- Statements ----

// ExprStmt evaluates an expression for its side effects (calls, writes)
// and discards the result.
type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// AssignStmt is `name = value` or a compound-assignment desugared at
// evaluation time (`name op= value` evaluates as `name = name op value`).
type AssignStmt struct {
	Base
	Name  string
	Op    token.Type // token.EQ for plain assignment, else the compound base
	Value Expr
}

func (*AssignStmt) stmtNode() {}

// MakeupClause is one `makeup <cond>` arm of an exam chain.
type MakeupClause struct {
	Cond Expr
	Body []Stmt
}

// ExamStmt is CL's conditional statement: `exam <cond> ... makeup <cond>
// ... fail ...`, each arm an indented block closed by dedent, restored from ch_parser.py's exam/makeup/fail
// desugaring (spec.md doesn't name `makeup` explicitly; SPEC_FULL §6.1
// restores it).
type ExamStmt struct {
	Base
	Cond    Expr
	Body    []Stmt
	Makeups []MakeupClause
	Fail    []Stmt // nil when no fail clause
}

func (*ExamStmt) stmtNode() {}

// RedoStmt is the interval-bound loop `redo <var> of <lo> ... <hi>`
// followed by an indented body.
type RedoStmt struct {
	Base
	Var    string
	Lo, Hi Expr
	Body   []Stmt
}

func (*RedoStmt) stmtNode() {}

// DuringStmt is the condition-bound loop `during <cond>` followed by an
// indented body.
type DuringStmt struct {
	Base
	Cond Expr
	Body []Stmt
}

func (*DuringStmt) stmtNode() {}

// WorkStmt defines a named function: `work name(params)` followed by an
// indented body.
type WorkStmt struct {
	Base
	Name   string
	Params []string
	Body   []Stmt
}

func (*WorkStmt) stmtNode() {}

// SubmitStmt returns a value from the innermost work block.
type SubmitStmt struct {
	Base
	Value Expr // nil for a bare `submit` (returns na)
}

func (*SubmitStmt) stmtNode() {}

// NewBase builds a Base from a position, for the parser's struct literals.
func NewBase(p token.Pos) Base { return Base{P: p} }
