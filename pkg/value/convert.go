package value

import (
	"github.com/cockroachdb/apd/v3"

	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
	"chemlang/pkg/reaction"
	"chemlang/pkg/units"
)

// molarMassDecimal computes f's molar mass as a Decimal whose sig_figs is
// never less than the source's own sig_figs, per spec.md §4.5: "the
// molar mass is treated as having sig_figs = max(4, sig_figs(source)) so
// conversions never artificially limit the input's precision."
func molarMassDecimal(f chem.Formula, sourceSigFigs int) (decimal.Decimal, error) {
	text, err := chem.MolarMass(f)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.FromLiteral(text)
	if err != nil {
		return decimal.Decimal{}, err
	}
	want := sourceSigFigs
	if want == decimal.Infinite || want < 4 {
		want = 4
	}
	d.SigFigs = want
	return d, nil
}

// toMoles converts a magnitude expressed in a mass- or amount- (or
// atom-) dimensioned unit into moles of formula f, choosing the hop by
// which dimension `from` has, per spec.md §4.5's mass<->moles,
// moles<->atoms, mass<->atoms chain (fromMoles goes back).
func toMoles(ctx *decimal.Context, mag *apd.Decimal, from units.Unit, f chem.Formula, sigFigs int) (*apd.Decimal, error) {
	switch {
	case units.Convertible(from, units.Mole):
		return units.Convert(ctx, mag, from, units.Mole)
	case from.IsAtom:
		inAtoms, err := units.Convert(ctx, mag, from, units.Atom)
		if err != nil {
			return nil, err
		}
		na, err := ctx.FromRat(units.Avogadro)
		if err != nil {
			return nil, err
		}
		return ctx.Quo(inAtoms, na)
	case units.Convertible(from, units.Gram):
		grams, err := units.Convert(ctx, mag, from, units.Gram)
		if err != nil {
			return nil, err
		}
		mm, err := molarMassDecimal(f, sigFigs)
		if err != nil {
			return nil, err
		}
		return ctx.Quo(grams, mm.Coeff)
	default:
		return nil, clerror.New(clerror.KindIncompatibleUnits, "%s is not mass-, mole-, or atom-dimensioned", from.Name)
	}
}

// fromMoles is the inverse of toMoles: moles of f, expressed in unit `to`.
func fromMoles(ctx *decimal.Context, moles *apd.Decimal, to units.Unit, f chem.Formula, sigFigs int) (*apd.Decimal, error) {
	switch {
	case units.Convertible(to, units.Mole):
		return units.Convert(ctx, moles, units.Mole, to)
	case to.IsAtom:
		na, err := ctx.FromRat(units.Avogadro)
		if err != nil {
			return nil, err
		}
		atoms, err := ctx.Mul(moles, na)
		if err != nil {
			return nil, err
		}
		return units.Convert(ctx, atoms, units.Atom, to)
	case units.Convertible(to, units.Gram):
		mm, err := molarMassDecimal(f, sigFigs)
		if err != nil {
			return nil, err
		}
		grams, err := ctx.Mul(moles, mm.Coeff)
		if err != nil {
			return nil, err
		}
		return units.Convert(ctx, grams, units.Gram, to)
	default:
		return nil, clerror.New(clerror.KindIncompatibleUnits, "%s is not mass-, mole-, or atom-dimensioned", to.Name)
	}
}

// Convert performs an unmediated `->` hop to targetUnit (spec.md §4.7
// step 3): direct dimensional conversion when the units are convertible,
// else a formula-mediated mass/mole/atom hop when q carries a formula,
// else IncompatibleUnits. The formula label is preserved.
func Convert(ctx *decimal.Context, q Quantity, targetUnit units.Unit) (Quantity, error) {
	if units.Convertible(q.Unit, targetUnit) {
		raw, err := units.Convert(ctx, q.Magnitude.Coeff, q.Unit, targetUnit)
		if err != nil {
			return Quantity{}, err
		}
		decimals := decimal.DecimalsForSigFigs(raw, q.Magnitude.SigFigs)
		return Quantity{
			Magnitude: decimal.FromRaw(raw, q.Magnitude.SigFigs, decimals),
			Unit:      targetUnit,
			Formula:   q.Formula,
		}, nil
	}
	if q.Formula == nil {
		return Quantity{}, clerror.New(clerror.KindIncompatibleUnits, "cannot convert %s to %s", q.Unit.Name, targetUnit.Name)
	}
	moles, err := toMoles(ctx, q.Magnitude.Coeff, q.Unit, *q.Formula, q.Magnitude.SigFigs)
	if err != nil {
		return Quantity{}, err
	}
	raw, err := fromMoles(ctx, moles, targetUnit, *q.Formula, q.Magnitude.SigFigs)
	if err != nil {
		return Quantity{}, err
	}
	decimals := decimal.DecimalsForSigFigs(raw, q.Magnitude.SigFigs)
	return Quantity{
		Magnitude: decimal.FromRaw(raw, q.Magnitude.SigFigs, decimals),
		Unit:      targetUnit,
		Formula:   q.Formula,
	}, nil
}

// RelabelFormula implements spec.md §4.7 step 1: a conversion whose
// target is simply a different formula with no unit and no reaction.
func RelabelFormula(q Quantity, target chem.Formula) (Quantity, error) {
	if q.Formula == nil || !q.Formula.Equal(target) {
		got := "none"
		if q.Formula != nil {
			got = q.Formula.String()
		}
		return Quantity{}, clerror.New(clerror.KindIncompatibleFormulas, "cannot relabel %s as %s", got, target.String())
	}
	t := target
	return Quantity{Magnitude: q.Magnitude, Unit: q.Unit, Formula: &t}, nil
}

// ConvertViaReaction implements spec.md §4.7 step 2: convert q (which
// must carry a formula appearing in skeleton) into the equivalent molar
// quantity of target, via the balanced reaction's coefficient ratio.
func ConvertViaReaction(ctx *decimal.Context, q Quantity, skeleton reaction.Reaction, target chem.Formula) (Quantity, error) {
	if q.Formula == nil {
		return Quantity{}, clerror.New(clerror.KindSpeciesNotInReaction, "quantity carries no formula to look up in the reaction")
	}
	balanced, err := reaction.Balance(skeleton)
	if err != nil {
		return Quantity{}, err
	}
	coeffSrc, sideSrc, ok := balanced.CoefficientOfSide(*q.Formula)
	if !ok {
		return Quantity{}, clerror.New(clerror.KindSpeciesNotInReaction, "%s does not appear in the reaction", q.Formula)
	}
	coeffTgt, sideTgt, ok := balanced.CoefficientOfSide(target)
	if !ok {
		return Quantity{}, clerror.New(clerror.KindSpeciesNotInReaction, "%s does not appear in the reaction", target.String())
	}
	if sideSrc == sideTgt {
		return Quantity{}, clerror.New(clerror.KindSpeciesNotInReaction, "%s and %s are on the same side of the reaction", q.Formula, target.String())
	}

	moles, err := toMoles(ctx, q.Magnitude.Coeff, q.Unit, *q.Formula, q.Magnitude.SigFigs)
	if err != nil {
		return Quantity{}, err
	}
	ratio, err := ctx.Quo(apd.New(coeffTgt, 0), apd.New(coeffSrc, 0))
	if err != nil {
		return Quantity{}, err
	}
	scaled, err := ctx.Mul(moles, ratio)
	if err != nil {
		return Quantity{}, err
	}
	decimals := decimal.DecimalsForSigFigs(scaled, q.Magnitude.SigFigs)
	t := target
	return Quantity{
		Magnitude: decimal.FromRaw(scaled, q.Magnitude.SigFigs, decimals),
		Unit:      units.Mole,
		Formula:   &t,
	}, nil
}
