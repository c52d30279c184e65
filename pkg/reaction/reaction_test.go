package reaction

import (
	"testing"

	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
)

func mustFormula(t *testing.T, s string) chem.Formula {
	f, err := chem.ParseFormula(s)
	if err != nil {
		t.Fatalf("ParseFormula(%q): %v", s, err)
	}
	return f
}

func TestBalanceCombustion(t *testing.T) {
	h2 := mustFormula(t, "H2")
	o2 := mustFormula(t, "O2")
	h2o := mustFormula(t, "H2O")

	r := New([]chem.Formula{h2, o2}, []chem.Formula{h2o})
	balanced, err := Balance(r)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}

	want := map[string]int64{"H₂": 2, "O₂": 1}
	for _, s := range balanced.Reactants {
		if got, ok := want[s.Formula.String()]; !ok || got != s.Coefficient {
			t.Errorf("reactant %s has coefficient %d", s.Formula, s.Coefficient)
		}
	}
	if len(balanced.Products) != 1 || balanced.Products[0].Coefficient != 2 {
		t.Errorf("product coefficient = %d, want 2", balanced.Products[0].Coefficient)
	}
}

func TestBalanceMethaneCombustion(t *testing.T) {
	ch4 := mustFormula(t, "CH4")
	o2 := mustFormula(t, "O2")
	co2 := mustFormula(t, "CO2")
	h2o := mustFormula(t, "H2O")

	r := New([]chem.Formula{ch4, o2}, []chem.Formula{co2, h2o})
	balanced, err := Balance(r)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}

	coeff, ok := balanced.CoefficientOf(o2)
	if !ok || coeff != 2 {
		t.Errorf("coefficient of O2 = %v (ok=%v), want 2", coeff, ok)
	}
	coeff, ok = balanced.CoefficientOf(h2o)
	if !ok || coeff != 2 {
		t.Errorf("coefficient of H2O = %v (ok=%v), want 2", coeff, ok)
	}
}

func TestSpeciesNotInReaction(t *testing.T) {
	h2 := mustFormula(t, "H2")
	o2 := mustFormula(t, "O2")
	h2o := mustFormula(t, "H2O")
	na := mustFormula(t, "Na")

	r := New([]chem.Formula{h2, o2}, []chem.Formula{h2o})
	balanced, err := Balance(r)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balanced.Contains(na) {
		t.Errorf("reaction should not contain Na")
	}
	if !balanced.Contains(h2o) {
		t.Errorf("reaction should contain H2O")
	}
}

// A species list whose conservation matrix has more than one free
// variable (here: H, H2 -> H3, rank 1 over 3 columns) doesn't pin down
// a unique coefficient ratio, so it must be rejected rather than
// silently resolved to whichever free column happens to be scanned
// last.
func TestBalanceRejectsAmbiguousNullSpace(t *testing.T) {
	h := mustFormula(t, "H")
	h2 := mustFormula(t, "H2")
	h3 := mustFormula(t, "H3")

	r := New([]chem.Formula{h, h2}, []chem.Formula{h3})
	_, err := Balance(r)
	if err == nil {
		t.Fatalf("Balance: want UnbalanceableReaction for an ambiguous null space, got success")
	}
	if !clerror.Is(err, clerror.KindUnbalanceableReaction) {
		t.Errorf("Balance error = %v, want KindUnbalanceableReaction", err)
	}
}

// CoefficientOfSide must distinguish reactant from product side so a
// reaction-mediated conversion can require its source and target
// formulas to be on opposite sides.
func TestCoefficientOfSideDistinguishesSides(t *testing.T) {
	h2 := mustFormula(t, "H2")
	o2 := mustFormula(t, "O2")
	h2o := mustFormula(t, "H2O")
	na := mustFormula(t, "Na")

	r := New([]chem.Formula{h2, o2}, []chem.Formula{h2o})
	balanced, err := Balance(r)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}

	if _, side, ok := balanced.CoefficientOfSide(h2); !ok || side != ReactantSide {
		t.Errorf("CoefficientOfSide(H2) side = %v (ok=%v), want ReactantSide", side, ok)
	}
	if _, side, ok := balanced.CoefficientOfSide(h2o); !ok || side != ProductSide {
		t.Errorf("CoefficientOfSide(H2O) side = %v (ok=%v), want ProductSide", side, ok)
	}
	if _, side, ok := balanced.CoefficientOfSide(na); ok || side != NoSide {
		t.Errorf("CoefficientOfSide(Na) = (ok=%v side=%v), want not found", ok, side)
	}
}
