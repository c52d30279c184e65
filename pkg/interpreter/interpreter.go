// Package interpreter tree-walks an *ast.Program, grounded on
// chemistry_lang's ch_interpreter.py (the evaluate/execute dispatch,
// scoping rules, and native-function wiring) and on the teacher's own
// control-flow-signal idiom (returnSignal/breakSignal/raiseSignal in
// interpreter10-go/pkg/interpreter/interpreter.go) for how `submit`
// unwinds a work call without Go exceptions.
package interpreter

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"chemlang/pkg/ast"
	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
	"chemlang/pkg/reaction"
	"chemlang/pkg/token"
	"chemlang/pkg/units"
	"chemlang/pkg/value"
)

// Interp holds everything one evaluation needs: the decimal engine and
// unit registry a script's quantities are built against, where print
// and input talk to, the error handler every reported failure passes
// through, and the root lexical scope.
type Interp struct {
	ctx     *decimal.Context
	reg     *units.Registry
	out     io.Writer
	in      *bufio.Reader
	handler *clerror.Handler
	global  *value.Env
}

// New builds an interpreter with a fresh global scope: the ambient
// bindings chemistry_lang's init_global_env seeds (show_balanced_equation,
// print, input, the math builtins) plus the registry-backed unit lookup
// every quantity literal resolves against. errOut is where reported
// errors are written, via a clerror.Handler (ch_handler.py's
// CHErrorHandler).
func New(ctx *decimal.Context, reg *units.Registry, out io.Writer, in io.Reader, errOut io.Writer) *Interp {
	it := &Interp{
		ctx:     ctx,
		reg:     reg,
		out:     out,
		in:      bufio.NewReader(in),
		handler: clerror.NewHandler(errOut),
		global:  value.NewEnv(),
	}
	it.global.Define("show_balanced_equation", value.Bool(false))
	registerBuiltins(it)
	return it
}

// SeedEnv applies cl.yml's `env` defaults to the global scope, as plain
// string bindings a script can compare against or branch on. A bare
// `true`/`false`/`pass`/`fail` value is coerced to the dimensionless
// boolean quantity so `show_balanced_equation: true` in the manifest
// behaves the same as `show_balanced_equation = pass` in the script.
func (it *Interp) SeedEnv(env map[string]string) {
	for k, v := range env {
		switch v {
		case "true", "pass":
			it.global.Define(k, value.Bool(true))
		case "false", "fail":
			it.global.Define(k, value.Bool(false))
		default:
			it.global.Define(k, value.StringVal{Text: v})
		}
	}
}

// submitSignal unwinds a work call to its submit statement, mirroring
// the teacher's returnSignal: a tiny error-shaped struct caught at the
// call boundary (evalCall) and at top level (Run, Eval), never by
// ordinary error handling.
type submitSignal struct {
	value value.Value
}

func (s submitSignal) Error() string { return "submit" }

// Run executes a script's top-level statements one at a time. A
// statement that fails with a *clerror.Error is reported and skipped —
// the rest of the script keeps running, per the "abort current
// top-level statement, continue" policy — while a `submit` reaching top
// level (there is no enclosing work to catch it) ends the script
// cleanly, the same way a bare top-level return would. Run reports
// whether any statement failed so callers can pick an exit code.
func (it *Interp) Run(prog *ast.Program) (failed bool) {
	for _, stmt := range prog.Stmts {
		_, err := it.execStmt(stmt, it.global)
		if err == nil {
			continue
		}
		if _, ok := err.(submitSignal); ok {
			return it.handler.HadError()
		}
		it.handler.Report(err)
	}
	return it.handler.HadError()
}

// Eval runs one statement against the global scope and stringifies its
// result, for a REPL's read-eval-print loop (chemistry_lang's
// Interpreter.interpret).
func (it *Interp) Eval(stmt ast.Stmt) (string, error) {
	v, err := it.execStmt(stmt, it.global)
	if err != nil {
		if sig, ok := err.(submitSignal); ok {
			return value.Stringify(sig.value), nil
		}
		return "", err
	}
	return value.Stringify(v), nil
}

// exec runs a statement list in env, returning the value of the last
// statement executed (chemistry_lang's execute(): "res = evaluate(stmt)"
// repeated, no implicit na between them) unless a signal unwinds early.
func (it *Interp) exec(stmts []ast.Stmt, env *value.Env) (value.Value, error) {
	var last value.Value = value.NA
	for _, stmt := range stmts {
		v, err := it.execStmt(stmt, env)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (it *Interp) execStmt(stmt ast.Stmt, env *value.Env) (value.Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return it.evalExpr(s.X, env)

	case *ast.AssignStmt:
		rhs, err := it.evalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		if s.Op != token.EQ {
			cur, ok := env.Lookup(s.Name)
			if !ok {
				return nil, clerror.At(clerror.KindUnknownIdentifier, s.Pos(), "undefined: %s", s.Name)
			}
			rhs, err = applyBinary(it.ctx, s.Op, cur, rhs)
			if err != nil {
				return nil, err
			}
		}
		env.Assign(s.Name, rhs)
		return rhs, nil

	case *ast.ExamStmt:
		return it.execExam(s, env)

	case *ast.RedoStmt:
		return it.execRedo(s, env)

	case *ast.DuringStmt:
		return it.execDuring(s, env)

	case *ast.WorkStmt:
		fn := &value.Function{Name: s.Name, Params: s.Params, Body: s.Body}
		closure := env.Child()
		closure.Define(s.Name, fn)
		fn.Env = closure
		env.Assign(s.Name, fn)
		return fn, nil

	case *ast.SubmitStmt:
		var v value.Value = value.NA
		if s.Value != nil {
			var err error
			v, err = it.evalExpr(s.Value, env)
			if err != nil {
				return nil, err
			}
		}
		return v, submitSignal{value: v}

	default:
		return nil, clerror.At(clerror.KindTypeError, stmt.Pos(), "unsupported statement %T", stmt)
	}
}

// execExam runs the first arm (the exam condition itself, then each
// makeup in order) whose condition is truthy, else the fail clause if
// present, else na. Each arm's body runs in its own child scope.
func (it *Interp) execExam(s *ast.ExamStmt, env *value.Env) (value.Value, error) {
	cond, err := it.evalExpr(s.Cond, env)
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return it.exec(s.Body, env.Child())
	}
	for _, mk := range s.Makeups {
		mcond, err := it.evalExpr(mk.Cond, env)
		if err != nil {
			return nil, err
		}
		if truthy(mcond) {
			return it.exec(mk.Body, env.Child())
		}
	}
	if s.Fail != nil {
		return it.exec(s.Fail, env.Child())
	}
	return value.NA, nil
}

// execRedo evaluates an interval-bound loop. ch_interpreter.py's
// _eval_redo opens exactly one scope for the whole loop, then a fresh
// child of it on every iteration just to bind the loop variable — so a
// variable assigned inside the body persists across iterations (the
// outer scope) while the loop variable itself is rebound fresh each
// time (the inner scope).
func (it *Interp) execRedo(s *ast.RedoStmt, env *value.Env) (value.Value, error) {
	lo, hi, err := it.evalIntBounds(s.Lo, s.Hi, env)
	if err != nil {
		return nil, err
	}
	loop := env.Child()
	var last value.Value = value.NA
	for i := lo; i < hi; i++ {
		iter := loop.Child()
		iter.Define(s.Var, value.Quantity{Magnitude: decimal.FromInt(i), Unit: units.Dimensionless})
		v, err := it.exec(s.Body, iter)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// execDuring evaluates a condition-bound loop. ch_interpreter.py's
// _eval_during opens a single scope reused across every iteration,
// including the re-evaluation of cond, so assignments in the body are
// visible to the next iteration's condition check.
func (it *Interp) execDuring(s *ast.DuringStmt, env *value.Env) (value.Value, error) {
	loop := env.Child()
	var last value.Value = value.NA
	for {
		cond, err := it.evalExpr(s.Cond, loop)
		if err != nil {
			return nil, err
		}
		if !truthy(cond) {
			return last, nil
		}
		v, err := it.exec(s.Body, loop)
		if err != nil {
			return nil, err
		}
		last = v
	}
}

// evalIntBounds evaluates lo/hi as dimensionless integer-valued
// quantities, per spec.md §4.4's interval rule.
func (it *Interp) evalIntBounds(loExpr, hiExpr ast.Expr, env *value.Env) (int64, int64, error) {
	loV, err := it.evalExpr(loExpr, env)
	if err != nil {
		return 0, 0, err
	}
	hiV, err := it.evalExpr(hiExpr, env)
	if err != nil {
		return 0, 0, err
	}
	lo, ok := asInt(loV)
	if !ok {
		return 0, 0, clerror.At(clerror.KindTypeError, loExpr.Pos(), "interval bound must be a whole-number quantity")
	}
	hi, ok := asInt(hiV)
	if !ok {
		return 0, 0, clerror.At(clerror.KindTypeError, hiExpr.Pos(), "interval bound must be a whole-number quantity")
	}
	return lo, hi, nil
}

func asInt(v value.Value) (int64, bool) {
	q, ok := v.(value.Quantity)
	if !ok {
		return 0, false
	}
	return decimal.Int(q.Magnitude.Coeff)
}

func truthy(v value.Value) bool {
	switch x := v.(type) {
	case value.Quantity:
		return x.Truthy()
	case value.NAVal:
		return false
	case value.StringVal:
		return x.Text != ""
	default:
		return true
	}
}

func (it *Interp) evalExpr(expr ast.Expr, env *value.Env) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.QuantityLit:
		return it.evalQuantityLit(e, env)

	case *ast.NaLit:
		return value.NA, nil

	case *ast.BoolLit:
		return value.Bool(e.Value), nil

	case *ast.StringLit:
		return it.evalStringLit(e, env)

	case *ast.PathLit:
		return value.PathVal{Path: e.Value}, nil

	case *ast.Identifier:
		v, ok := env.Lookup(e.Name)
		if !ok {
			return nil, clerror.At(clerror.KindUnknownIdentifier, e.Pos(), "undefined: %s", e.Name)
		}
		return v, nil

	case *ast.FormulaLit:
		return evalBareFormula(e.Raw)

	case *ast.UnaryExpr:
		return it.evalUnary(e, env)

	case *ast.BinaryExpr:
		return it.evalBinary(e, env)

	case *ast.IntervalExpr:
		lo, hi, err := it.evalIntBounds(e.Lo, e.Hi, env)
		if err != nil {
			return nil, err
		}
		return value.IntervalVal{Lo: lo, Hi: hi}, nil

	case *ast.GroupingExpr:
		return it.evalExpr(e.Inner, env)

	case *ast.CallExpr:
		return it.evalCall(e, env)

	case *ast.ConversionExpr:
		return it.evalConversion(e, env)

	default:
		return nil, clerror.At(clerror.KindTypeError, expr.Pos(), "unsupported expression %T", expr)
	}
}

// evalQuantityLit parses a literal magnitude with its optional unit and
// formula. A formula with no explicit unit defaults the unit to g/mol,
// matching how CHFormula.molecular_mass builds its CHQuantity
// (ch_chemistry.py): a number of a formula is grams-per-mole of it
// unless told otherwise.
func (it *Interp) evalQuantityLit(lit *ast.QuantityLit, env *value.Env) (value.Value, error) {
	mag, err := decimal.FromLiteral(lit.NumberText)
	if err != nil {
		return nil, clerror.At(clerror.KindParseError, lit.Pos(), "%v", err)
	}
	var unit units.Unit
	switch {
	case lit.Unit != "":
		unit, err = it.reg.Lookup(lit.Unit)
		if err != nil {
			return nil, err
		}
	case lit.Formula != "":
		unit = units.Quo(units.Gram, units.Mole)
	default:
		unit = units.Dimensionless
	}
	var formula *chem.Formula
	if lit.Formula != "" {
		f, err := chem.ParseFormula(lit.Formula)
		if err != nil {
			return nil, err
		}
		formula = &f
	}
	return value.Quantity{Magnitude: mag, Unit: unit, Formula: formula}, nil
}

// evalBareFormula is a standalone formula expression, e.g. `H2O` used
// without a preceding magnitude: it evaluates to its own molar mass in
// g/mol, exactly as CHFormula.molecular_mass does.
func evalBareFormula(raw string) (value.Value, error) {
	f, err := chem.ParseFormula(raw)
	if err != nil {
		return nil, err
	}
	text, err := chem.MolarMass(f)
	if err != nil {
		return nil, err
	}
	mag, err := decimal.FromLiteral(text)
	if err != nil {
		return nil, err
	}
	return value.Quantity{Magnitude: mag, Unit: units.Quo(units.Gram, units.Mole), Formula: &f}, nil
}

func (it *Interp) evalStringLit(lit *ast.StringLit, env *value.Env) (value.Value, error) {
	var b []byte
	for _, seg := range lit.Segments {
		if seg.Expr == nil {
			b = append(b, seg.Text...)
			continue
		}
		v, err := it.evalExpr(seg.Expr, env)
		if err != nil {
			return nil, err
		}
		b = append(b, value.Stringify(v)...)
	}
	return value.StringVal{Text: string(b)}, nil
}

func (it *Interp) evalUnary(u *ast.UnaryExpr, env *value.Env) (value.Value, error) {
	v, err := it.evalExpr(u.Operand, env)
	if err != nil {
		return nil, err
	}
	q, ok := v.(value.Quantity)
	if !ok {
		return nil, clerror.At(clerror.KindTypeError, u.Pos(), "unary %s requires a quantity", u.Op)
	}
	switch u.Op {
	case token.MINUS:
		return value.Neg(it.ctx, q), nil
	case token.PLUS:
		return value.Pos(q), nil
	case token.BANG:
		return value.Not(q), nil
	case token.TILDE:
		return value.BitNot(q)
	default:
		return nil, clerror.At(clerror.KindTypeError, u.Pos(), "unsupported unary operator %s", u.Op)
	}
}

// evalBinary dispatches arithmetic, comparison, and logical operators.
// `&&`/`||` short-circuit left-to-right, per spec.md §4.4; this is
// deliberately stricter than ch_interpreter.py's _eval_binary, which
// evaluates both operands before inspecting the operator at all.
func (it *Interp) evalBinary(b *ast.BinaryExpr, env *value.Env) (value.Value, error) {
	if b.Op == token.ANDAND || b.Op == token.OROR {
		left, err := it.evalExpr(b.Left, env)
		if err != nil {
			return nil, err
		}
		lt := truthy(left)
		if b.Op == token.ANDAND && !lt {
			return value.Bool(false), nil
		}
		if b.Op == token.OROR && lt {
			return value.Bool(true), nil
		}
		right, err := it.evalExpr(b.Right, env)
		if err != nil {
			return nil, err
		}
		return value.Bool(truthy(right)), nil
	}

	left, err := it.evalExpr(b.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := it.evalExpr(b.Right, env)
	if err != nil {
		return nil, err
	}
	return applyBinary(it.ctx, b.Op, left, right)
}

func applyBinary(ctx *decimal.Context, op token.Type, left, right value.Value) (value.Value, error) {
	a, aok := left.(value.Quantity)
	c, cok := right.(value.Quantity)
	if !aok || !cok {
		return nil, clerror.New(clerror.KindTypeError, "operator %s requires quantities", op)
	}
	switch op {
	case token.PLUS:
		return value.Add(ctx, a, c)
	case token.MINUS:
		return value.Sub(ctx, a, c)
	case token.STAR:
		return value.Mul(ctx, a, c)
	case token.SLASH:
		return value.Div(ctx, a, c)
	case token.PERCENT:
		return value.Mod(ctx, a, c)
	case token.CARET, token.STARSTAR:
		return value.Pow(ctx, a, c)
	case token.EQEQ, token.BANGEQ, token.LT, token.LE, token.GT, token.GE:
		cmp, err := value.Cmp(ctx, a, c)
		if err != nil {
			return nil, err
		}
		switch op {
		case token.EQEQ:
			return value.Bool(cmp == 0), nil
		case token.BANGEQ:
			return value.Bool(cmp != 0), nil
		case token.LT:
			return value.Bool(cmp < 0), nil
		case token.LE:
			return value.Bool(cmp <= 0), nil
		case token.GT:
			return value.Bool(cmp > 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	default:
		return nil, clerror.New(clerror.KindTypeError, "unsupported binary operator %s", op)
	}
}

// evalCall invokes a work closure or a native function. A work's body
// runs in a fresh child of its closure (not the caller's env), with
// parameters bound positionally; submitSignal is caught exactly here,
// the same boundary the teacher's invokeFunction catches returnSignal.
// A body that falls off the end without a submit returns its last
// statement's value, per ch_work.py's CHWork.__call__.
func (it *Interp) evalCall(c *ast.CallExpr, env *value.Env) (value.Value, error) {
	calleeV, err := it.evalExpr(c.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := it.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch fn := calleeV.(type) {
	case *value.Function:
		if len(args) != len(fn.Params) {
			return nil, clerror.At(clerror.KindArityError, c.Pos(), "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
		}
		call := fn.Env.Child()
		for i, p := range fn.Params {
			call.Define(p, args[i])
		}
		v, err := it.exec(fn.Body, call)
		if err != nil {
			if sig, ok := err.(submitSignal); ok {
				return sig.value, nil
			}
			return nil, err
		}
		return v, nil

	case *value.NativeFunc:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, clerror.At(clerror.KindArityError, c.Pos(), "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		return fn.Fn(args)

	default:
		return nil, clerror.At(clerror.KindTypeError, c.Pos(), "call to non-function")
	}
}

// evalConversion implements one `->` hop (spec.md §4.7): a reaction
// skeleton mediates a mole-ratio hop to another species before any
// further unit conversion; otherwise the target is a file sink, a bare
// formula relabel, or a direct/formula-mediated unit conversion.
func (it *Interp) evalConversion(c *ast.ConversionExpr, env *value.Env) (value.Value, error) {
	srcV, err := it.evalExpr(c.Source, env)
	if err != nil {
		return nil, err
	}

	if c.Target.Path != nil {
		pathV, err := it.evalExpr(c.Target.Path, env)
		if err != nil {
			return nil, err
		}
		path, ok := pathV.(value.PathVal)
		if !ok {
			return nil, clerror.At(clerror.KindTypeError, c.Pos(), "conversion target must be a path")
		}
		if err := it.writeToPath(path.Path, srcV); err != nil {
			return nil, err
		}
		return srcV, nil
	}

	src, ok := srcV.(value.Quantity)
	if !ok {
		return nil, clerror.At(clerror.KindTypeError, c.Pos(), "conversion source must be a quantity")
	}

	if c.Reaction != nil {
		skeleton, err := buildSkeleton(c.Reaction)
		if err != nil {
			return nil, err
		}
		if show, ok := it.global.Lookup("show_balanced_equation"); ok && truthy(show) {
			balanced, err := reaction.Balance(skeleton)
			if err == nil {
				fmt.Fprintln(it.out, balanced.String())
			}
		}
		targetFormula, err := chem.ParseFormula(c.Target.Formula)
		if err != nil {
			return nil, err
		}
		result, err := value.ConvertViaReaction(it.ctx, src, skeleton, targetFormula)
		if err != nil {
			return nil, err
		}
		if c.Target.Unit == "" {
			return result, nil
		}
		targetUnit, err := it.reg.Lookup(c.Target.Unit)
		if err != nil {
			return nil, err
		}
		return value.Convert(it.ctx, result, targetUnit)
	}

	if c.Target.Formula != "" && c.Target.Unit == "" {
		target, err := chem.ParseFormula(c.Target.Formula)
		if err != nil {
			return nil, err
		}
		return value.RelabelFormula(src, target)
	}

	targetUnit, err := it.reg.Lookup(c.Target.Unit)
	if err != nil {
		return nil, err
	}
	result, err := value.Convert(it.ctx, src, targetUnit)
	if err != nil {
		return nil, err
	}
	if c.Target.Formula != "" {
		target, err := chem.ParseFormula(c.Target.Formula)
		if err != nil {
			return nil, err
		}
		return value.RelabelFormula(result, target)
	}
	return result, nil
}

func buildSkeleton(rs *ast.ReactionSkeleton) (reaction.Reaction, error) {
	reactants := make([]chem.Formula, len(rs.Reactants))
	for i, r := range rs.Reactants {
		f, err := chem.ParseFormula(r.Raw)
		if err != nil {
			return reaction.Reaction{}, err
		}
		reactants[i] = f
	}
	products := make([]chem.Formula, len(rs.Products))
	for i, p := range rs.Products {
		f, err := chem.ParseFormula(p.Raw)
		if err != nil {
			return reaction.Reaction{}, err
		}
		products[i] = f
	}
	return reaction.New(reactants, products), nil
}

// writeToPath appends the stringified value to path, opening (and
// creating) it per open call, matching Write's "a+" mode in
// ch_interpreter.py's _eval_write.
func (it *Interp) writeToPath(path string, v value.Value) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return clerror.New(clerror.KindTypeError, "could not open file %s: %v", path, err)
	}
	defer f.Close()
	_, err = f.WriteString(value.Stringify(v))
	return err
}
