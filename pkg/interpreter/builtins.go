package interpreter

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
	"chemlang/pkg/units"
	"chemlang/pkg/value"
)

// registerBuiltins seeds the global scope with the native functions
// chemistry_lang's init_global_env wires up: print, input, and the full
// math-module surface, restored per SPEC_FULL §6.1. Unlike
// init_global_env's wrap_fn, which rewraps a math call's result with
// whatever unit and formula the argument happened to carry, every
// builtin here requires a dimensionless argument and preserves only its
// sig_figs — spec.md §4.8's explicit invariant, stricter than the
// original's unconditional passthrough.
func registerBuiltins(it *Interp) {
	def := func(name string, arity int, fn func(args []value.Value) (value.Value, error)) {
		it.global.Define(name, &value.NativeFunc{Name: name, Arity: arity, Fn: fn})
	}

	def("print", 1, func(args []value.Value) (value.Value, error) {
		fmt.Fprintln(it.out, value.Stringify(args[0]))
		return value.NA, nil
	})

	def("input", 0, func(args []value.Value) (value.Value, error) {
		line, err := it.in.ReadString('\n')
		if err != nil && line == "" {
			return nil, clerror.New(clerror.KindTypeError, "input: %v", err)
		}
		return value.StringVal{Text: trimNewline(line)}, nil
	})

	oneArg := func(name string, fn func(ctx *decimal.Context, a *apd.Decimal) (*apd.Decimal, error)) {
		def(name, 1, mathBuiltin(it.ctx, name, fn))
	}

	oneArg("sqrt", (*decimal.Context).Sqrt)
	oneArg("ln", (*decimal.Context).Ln)
	oneArg("log10", (*decimal.Context).Log10)
	oneArg("log2", (*decimal.Context).Log2)
	// log defaults to base 2, per DESIGN NOTES §9's already-resolved
	// open question ("log with no base means log2").
	oneArg("log", (*decimal.Context).Log2)
	oneArg("sin", (*decimal.Context).Sin)
	oneArg("cos", (*decimal.Context).Cos)
	oneArg("tan", (*decimal.Context).Tan)
	oneArg("asin", (*decimal.Context).Asin)
	oneArg("acos", (*decimal.Context).Acos)
	oneArg("atan", (*decimal.Context).Atan)
	oneArg("exp", (*decimal.Context).Exp)
	oneArg("gamma", (*decimal.Context).Gamma)
	oneArg("floor", (*decimal.Context).Floor)
	oneArg("ceil", (*decimal.Context).Ceil)
	oneArg("abs", func(ctx *decimal.Context, a *apd.Decimal) (*apd.Decimal, error) { return ctx.Abs(a), nil })
}

// mathBuiltin wraps a one-argument decimal operation into a NativeFunc
// body: check the argument is a dimensionless Quantity, run the raw
// decimal op, and rewrap the result as a fresh dimensionless Quantity
// carrying the input's sig_figs. For an exact (infinite sig_figs) input
// the result's trailing zeros are dropped, so sqrt(4) is exactly 2.
func mathBuiltin(ctx *decimal.Context, name string, fn func(*decimal.Context, *apd.Decimal) (*apd.Decimal, error)) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		q, ok := args[0].(value.Quantity)
		if !ok {
			return nil, clerror.New(clerror.KindTypeError, "%s requires a quantity", name)
		}
		if !q.IsDimensionless() {
			return nil, clerror.New(clerror.KindIncompatibleUnits, "%s requires a dimensionless quantity, got %s", name, q.Unit.Name)
		}
		raw, err := fn(ctx, q.Magnitude.Coeff)
		if err != nil {
			return nil, clerror.New(clerror.KindTypeError, "%s: %v", name, err)
		}
		if q.Magnitude.SigFigs == decimal.Infinite {
			raw.Reduce(raw)
		}
		decimals := decimal.DecimalsForSigFigs(raw, q.Magnitude.SigFigs)
		return value.Quantity{
			Magnitude: decimal.FromRaw(raw, q.Magnitude.SigFigs, decimals),
			Unit:      units.Dimensionless,
		}, nil
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
