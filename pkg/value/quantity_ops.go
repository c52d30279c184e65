package value

import (
	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
	"chemlang/pkg/units"
)

// Add implements `+` (spec.md §4.4): the left operand sets the output
// unit and formula; the right operand is converted into the left's unit
// first, then magnitudes add and the output decimals is the minimum of
// the operands' decimals after conversion.
func Add(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	return addSub(ctx, a, b, false)
}

// Sub implements `-` the same way, negating the right operand first.
func Sub(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	return addSub(ctx, a, b, true)
}

func addSub(ctx *decimal.Context, a, b Quantity, negate bool) (Quantity, error) {
	converted, err := coerceForAddition(ctx, a, b)
	if err != nil {
		return Quantity{}, err
	}
	bMag := converted.Magnitude.Coeff
	if negate {
		bMag = ctx.Neg(bMag)
	}
	raw, err := ctx.Add(a.Magnitude.Coeff, bMag)
	if err != nil {
		return Quantity{}, err
	}
	decimals := minInt(a.Magnitude.Decimals, converted.Magnitude.Decimals)
	rounded, err := ctx.RoundToDecimals(raw, decimals)
	if err != nil {
		return Quantity{}, err
	}
	sigFigs := decimal.SigFigsAtDecimals(rounded, decimals)
	formula := dominantFormula(a, b)
	return Quantity{
		Magnitude: decimal.FromRaw(rounded, sigFigs, decimals),
		Unit:      a.Unit,
		Formula:   formula,
	}, nil
}

// coerceForAddition checks compatibility per spec.md §4.4 and returns b
// re-expressed in a's unit.
func coerceForAddition(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	if a.IsDimensionless() && a.Formula == nil && b.IsDimensionless() && b.Formula == nil {
		return b, nil
	}
	if (a.Formula == nil || b.Formula == nil) && !units.Convertible(a.Unit, b.Unit) {
		return Quantity{}, clerror.New(clerror.KindIncompatibleUnits, "cannot combine %s and %s", a.Unit.Name, b.Unit.Name)
	}
	if (a.Formula == nil) != (b.Formula == nil) {
		return Quantity{}, clerror.New(clerror.KindIncompatibleFormulas, "cannot combine %s and %s", formulaLabel(a.Formula), formulaLabel(b.Formula))
	}
	if a.Formula != nil && b.Formula != nil && !a.Formula.Equal(*b.Formula) {
		return Quantity{}, clerror.New(clerror.KindIncompatibleFormulas, "cannot combine %s and %s", a.Formula, b.Formula)
	}
	return Convert(ctx, b, a.Unit)
}

func formulaLabel(f *chem.Formula) string {
	if f == nil {
		return "none"
	}
	return f.String()
}

// dominantFormula returns the operands' shared formula, per spec.md
// §4.4: coerceForAddition has already rejected the case where only one
// side carries a formula, so a and b always agree here (both nil or
// both equal) and a.Formula is as good as either.
func dominantFormula(a, b Quantity) *chem.Formula {
	return a.Formula
}

// Mul implements `*` (spec.md §4.4): magnitudes multiply, units compose,
// and a formula carried by exactly one operand survives when the other
// operand is a dimensionless scalar.
func Mul(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	raw, err := ctx.Mul(a.Magnitude.Coeff, b.Magnitude.Coeff)
	if err != nil {
		return Quantity{}, err
	}
	sigFigs := decimal.MinSigFigs(a.Magnitude.SigFigs, b.Magnitude.SigFigs)
	decimals := decimal.DecimalsForSigFigs(raw, sigFigs)
	return Quantity{
		Magnitude: decimal.FromRaw(raw, sigFigs, decimals),
		Unit:      units.Mul(a.Unit, b.Unit),
		Formula:   formulaForMulDiv(a, b),
	}, nil
}

// Div implements `/` the same way.
func Div(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	if decimal.IsZero(b.Magnitude.Coeff) {
		return Quantity{}, clerror.New(clerror.KindDivisionByZero, "division by zero")
	}
	raw, err := ctx.Quo(a.Magnitude.Coeff, b.Magnitude.Coeff)
	if err != nil {
		return Quantity{}, err
	}
	sigFigs := decimal.MinSigFigs(a.Magnitude.SigFigs, b.Magnitude.SigFigs)
	decimals := decimal.DecimalsForSigFigs(raw, sigFigs)
	return Quantity{
		Magnitude: decimal.FromRaw(raw, sigFigs, decimals),
		Unit:      units.Quo(a.Unit, b.Unit),
		Formula:   formulaForMulDiv(a, b),
	}, nil
}

// formulaForMulDiv implements spec.md §4.4: "If exactly one operand
// carries a formula, the result carries that formula only when the other
// operand is dimensionless scalar; otherwise the formula is dropped."
func formulaForMulDiv(a, b Quantity) *chem.Formula {
	switch {
	case a.Formula != nil && b.Formula == nil:
		if b.IsDimensionless() {
			return a.Formula
		}
	case b.Formula != nil && a.Formula == nil:
		if a.IsDimensionless() {
			return b.Formula
		}
	}
	return nil
}

// Mod implements `%`: units and formulas must match exactly, magnitude is
// the remainder with the dividend's sign.
func Mod(ctx *decimal.Context, a, b Quantity) (Quantity, error) {
	if !units.Equal(a.Unit, b.Unit) || !formulasEqual(a.Formula, b.Formula) {
		return Quantity{}, clerror.New(clerror.KindIncompatibleUnits, "%% requires identical units and formulas")
	}
	raw, err := ctx.Rem(a.Magnitude.Coeff, b.Magnitude.Coeff)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{
		Magnitude: decimal.FromRaw(raw, decimal.MinSigFigs(a.Magnitude.SigFigs, b.Magnitude.SigFigs), a.Magnitude.Decimals),
		Unit:      a.Unit,
		Formula:   a.Formula,
	}, nil
}

func formulasEqual(a, b *chem.Formula) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Pow implements `^`/`**` (spec.md §4.4): right-associative; the exponent
// must be dimensionless and formula-less.
func Pow(ctx *decimal.Context, base, exp Quantity) (Quantity, error) {
	if !exp.IsDimensionless() || exp.Formula != nil {
		return Quantity{}, clerror.New(clerror.KindTypeError, "exponent must be a dimensionless, formula-less scalar")
	}
	raw, err := ctx.Pow(base.Magnitude.Coeff, exp.Magnitude.Coeff)
	if err != nil {
		return Quantity{}, err
	}
	if n, isInt := decimal.Int(exp.Magnitude.Coeff); isInt {
		sigFigs := decimal.MinSigFigs(base.Magnitude.SigFigs, exp.Magnitude.SigFigs)
		decimals := decimal.DecimalsForSigFigs(raw, sigFigs)
		var formula *chem.Formula
		if n == 1 {
			formula = base.Formula
		}
		return Quantity{
			Magnitude: decimal.FromRaw(raw, sigFigs, decimals),
			Unit:      units.Pow(base.Unit, int(n)),
			Formula:   formula,
		}, nil
	}
	if !base.IsDimensionless() {
		return Quantity{}, clerror.New(clerror.KindTypeError, "non-integer exponent requires a dimensionless base")
	}
	sigFigs := base.Magnitude.SigFigs
	decimals := decimal.DecimalsForSigFigs(raw, sigFigs)
	return Quantity{
		Magnitude: decimal.FromRaw(raw, sigFigs, decimals),
		Unit:      units.Dimensionless,
	}, nil
}

// Cmp orders a against b after making them compatible via the addition
// rule (spec.md §4.4), returning -1/0/1. Used for `<`,`<=`,`>`,`>=`,`==`,`!=`.
func Cmp(ctx *decimal.Context, a, b Quantity) (int, error) {
	converted, err := coerceForAddition(ctx, a, b)
	if err != nil {
		return 0, err
	}
	return ctx.Cmp(a.Magnitude.Coeff, converted.Magnitude.Coeff), nil
}

// Neg, Pos, Not implement unary `-`, `+`, `!`.
func Neg(ctx *decimal.Context, a Quantity) Quantity {
	return Quantity{Magnitude: decimal.FromRaw(ctx.Neg(a.Magnitude.Coeff), a.Magnitude.SigFigs, a.Magnitude.Decimals), Unit: a.Unit, Formula: a.Formula}
}

func Pos(a Quantity) Quantity { return a }

func Not(a Quantity) Quantity { return Bool(!a.Truthy()) }

// BitNot implements unary `~`: requires an integer-valued dimensionless
// scalar, per spec.md §4.4.
func BitNot(a Quantity) (Quantity, error) {
	if !a.IsDimensionless() || a.Formula != nil {
		return Quantity{}, clerror.New(clerror.KindTypeError, "~ requires a dimensionless scalar")
	}
	n, ok := decimal.Int(a.Magnitude.Coeff)
	if !ok {
		return Quantity{}, clerror.New(clerror.KindTypeError, "~ requires an integer-valued scalar")
	}
	return Quantity{Magnitude: decimal.FromInt(^n), Unit: units.Dimensionless}, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
