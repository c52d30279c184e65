package value

import (
	"testing"

	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
	"chemlang/pkg/units"
)

func mustDecimal(t *testing.T, text string) decimal.Decimal {
	t.Helper()
	d, err := decimal.FromLiteral(text)
	if err != nil {
		t.Fatalf("FromLiteral(%q): %v", text, err)
	}
	return d
}

func mustFormula(t *testing.T, s string) chem.Formula {
	t.Helper()
	f, err := chem.ParseFormula(s)
	if err != nil {
		t.Fatalf("ParseFormula(%q): %v", s, err)
	}
	return f
}

// Add must reject a pair of quantities where only one side carries a
// formula, per spec.md §4.4 and ch_quantity.py's __add__/FormulaUnit
// rule: an empty FormulaUnit added to a non-equal one raises, it does
// not silently inherit the other side's formula.
func TestAddRejectsOneSidedFormula(t *testing.T) {
	ctx := decimal.NewContext(16)
	water := mustFormula(t, "H2O")

	a := Quantity{Magnitude: mustDecimal(t, "10.00"), Unit: units.Gram}
	b := Quantity{Magnitude: mustDecimal(t, "1.00"), Unit: units.Gram, Formula: &water}

	if _, err := Add(ctx, a, b); err == nil || !clerror.Is(err, clerror.KindIncompatibleFormulas) {
		t.Fatalf("Add(no formula, H2O) = %v, want KindIncompatibleFormulas", err)
	}
	if _, err := Add(ctx, b, a); err == nil || !clerror.Is(err, clerror.KindIncompatibleFormulas) {
		t.Fatalf("Add(H2O, no formula) = %v, want KindIncompatibleFormulas", err)
	}
}

// Add still succeeds, and keeps the shared formula, when both sides
// carry the same formula.
func TestAddKeepsSharedFormula(t *testing.T) {
	ctx := decimal.NewContext(16)
	water := mustFormula(t, "H2O")

	a := Quantity{Magnitude: mustDecimal(t, "10.00"), Unit: units.Gram, Formula: &water}
	b := Quantity{Magnitude: mustDecimal(t, "1.00"), Unit: units.Gram, Formula: &water}

	sum, err := Add(ctx, a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Formula == nil || !sum.Formula.Equal(water) {
		t.Errorf("sum.Formula = %v, want H2O", sum.Formula)
	}
}

// Add rejects two different, non-nil formulas as before.
func TestAddRejectsMismatchedFormulas(t *testing.T) {
	ctx := decimal.NewContext(16)
	water := mustFormula(t, "H2O")
	salt := mustFormula(t, "NaCl")

	a := Quantity{Magnitude: mustDecimal(t, "10.00"), Unit: units.Gram, Formula: &water}
	b := Quantity{Magnitude: mustDecimal(t, "1.00"), Unit: units.Gram, Formula: &salt}

	if _, err := Add(ctx, a, b); err == nil || !clerror.Is(err, clerror.KindIncompatibleFormulas) {
		t.Fatalf("Add(H2O, NaCl) = %v, want KindIncompatibleFormulas", err)
	}
}
