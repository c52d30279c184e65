// Package reaction implements CL's chemical-reaction model and balancer
// (spec.md §3, §4.6): a list of reactant/product species with
// stoichiometric coefficients, balanced by a null-space search over the
// element+charge conservation matrix.
//
// Grounded on chemistry_lang's ch_objs.py (Reaction, Species) for the
// data model and ch_balancer.py for the balancing algorithm (Gaussian
// elimination over rationals, smallest positive integer coefficients).
// Exact arithmetic uses math/big's *big.Rat, the same library
// other_examples/szatmary-ratcalc__unit.go and ratexpr.go use for exact
// rational computation — no linear-algebra library appears anywhere in
// the example pack, so the elimination is hand-rolled over *big.Rat
// rather than float64 specifically to keep coefficients exact.
package reaction

import (
	"math/big"
	"sort"
	"strings"

	"chemlang/pkg/chem"
	"chemlang/pkg/clerror"
)

// Species is one formula appearing in a reaction, with its (initially
// unknown, solved-for) stoichiometric coefficient.
type Species struct {
	Formula     chem.Formula
	Coefficient int64
}

// Reaction is a balanced or unbalanced chemical equation, per spec.md §3.
type Reaction struct {
	Reactants []Species
	Products  []Species
	Balanced  bool
}

// String renders "aA + bB -> cC + dD", omitting coefficients of 1, in
// declaration order.
func (r Reaction) String() string {
	side := func(species []Species) string {
		parts := make([]string, len(species))
		for i, s := range species {
			if s.Coefficient == 1 {
				parts[i] = s.Formula.String()
			} else {
				parts[i] = itoa(s.Coefficient) + s.Formula.String()
			}
		}
		return strings.Join(parts, " + ")
	}
	return side(r.Reactants) + " -> " + side(r.Products)
}

func itoa(n int64) string {
	return big.NewInt(n).String()
}

// Contains reports whether formula appears (by multiset+charge equality)
// on either side of the reaction. (The reaction-mediated conversion's
// SpeciesNotInReaction check of spec.md §4.7 uses CoefficientOfSide.)
func (r Reaction) Contains(f chem.Formula) bool {
	for _, s := range r.Reactants {
		if s.Formula.Equal(f) {
			return true
		}
	}
	for _, s := range r.Products {
		if s.Formula.Equal(f) {
			return true
		}
	}
	return false
}

// CoefficientOf returns the balanced coefficient of formula within the
// reaction, searching reactants then products. spec.md §4.7's mole-ratio
// conversion (moles of B per mole of A = coeff(B)/coeff(A)) uses
// CoefficientOfSide, which also reports the side.
func (r Reaction) CoefficientOf(f chem.Formula) (int64, bool) {
	for _, s := range r.Reactants {
		if s.Formula.Equal(f) {
			return s.Coefficient, true
		}
	}
	for _, s := range r.Products {
		if s.Formula.Equal(f) {
			return s.Coefficient, true
		}
	}
	return 0, false
}

// Side names which half of a reaction a species was found on.
type Side int

const (
	NoSide Side = iota
	ReactantSide
	ProductSide
)

// CoefficientOfSide returns formula's balanced coefficient along with
// which side of the reaction it appears on, so a reaction-mediated
// conversion can require its source and target species to be on
// opposite sides (spec.md §4.7 step 2).
func (r Reaction) CoefficientOfSide(f chem.Formula) (int64, Side, bool) {
	for _, s := range r.Reactants {
		if s.Formula.Equal(f) {
			return s.Coefficient, ReactantSide, true
		}
	}
	for _, s := range r.Products {
		if s.Formula.Equal(f) {
			return s.Coefficient, ProductSide, true
		}
	}
	return 0, NoSide, false
}

// New builds an unbalanced Reaction from parsed formula lists, coefficient 1
// everywhere until Balance runs.
func New(reactants, products []chem.Formula) Reaction {
	mk := func(fs []chem.Formula) []Species {
		out := make([]Species, len(fs))
		for i, f := range fs {
			out[i] = Species{Formula: f, Coefficient: 1}
		}
		return out
	}
	return Reaction{Reactants: mk(reactants), Products: mk(products)}
}

// Balance solves for the smallest positive integer coefficients that
// conserve every element and the net charge across the reaction, per
// spec.md §4.6. Reactant coefficients are positive in the conservation
// matrix, product coefficients negative; a balanced reaction is any
// nonzero vector in the matrix's null space.
//
// Fails with UnbalanceableReaction if the null space is trivial (rank
// equals the number of species, so only the zero vector satisfies
// conservation) or if a nontrivial null-space vector has mixed-sign
// entries (meaning some species would need a negative coefficient,
// which is not a valid balancing) or a zero entry (a species that cannot
// take part in the reaction).
func Balance(r Reaction) (Reaction, error) {
	species := make([]chem.Formula, 0, len(r.Reactants)+len(r.Products))
	for _, s := range r.Reactants {
		species = append(species, s.Formula)
	}
	for _, s := range r.Products {
		species = append(species, s.Formula)
	}
	n := len(species)

	elements := collectElements(species)
	rows := len(elements) + 1 // +1 for charge conservation
	m := make([][]*big.Rat, rows)
	for i := range m {
		m[i] = make([]*big.Rat, n)
		for j := range m[i] {
			m[i][j] = big.NewRat(0, 1)
		}
	}
	for j, f := range species {
		sign := int64(1)
		if j >= len(r.Reactants) {
			sign = -1
		}
		for i, el := range elements {
			m[i][j] = big.NewRat(sign*int64(f.Counts[el]), 1)
		}
		m[len(elements)][j] = big.NewRat(sign*int64(f.Charge), 1)
	}

	nullVec, ok := nullSpaceVector(m, rows, n)
	if !ok {
		return Reaction{}, clerror.New(clerror.KindUnbalanceableReaction, "reaction %s cannot be balanced", r.String())
	}

	coeffs, err := toSmallestPositiveIntegers(nullVec)
	if err != nil {
		return Reaction{}, clerror.New(clerror.KindUnbalanceableReaction, "reaction %s cannot be balanced: %v", r.String(), err)
	}

	out := Reaction{Balanced: true}
	out.Reactants = make([]Species, len(r.Reactants))
	for i, s := range r.Reactants {
		out.Reactants[i] = Species{Formula: s.Formula, Coefficient: coeffs[i]}
	}
	out.Products = make([]Species, len(r.Products))
	for i, s := range r.Products {
		out.Products[i] = Species{Formula: s.Formula, Coefficient: coeffs[len(r.Reactants)+i]}
	}
	return out, nil
}

func collectElements(species []chem.Formula) []string {
	set := map[string]bool{}
	for _, f := range species {
		for el := range f.Counts {
			set[el] = true
		}
	}
	elements := make([]string, 0, len(set))
	for el := range set {
		elements = append(elements, el)
	}
	sort.Strings(elements)
	return elements
}

// nullSpaceVector reduces m to row-echelon form over the rationals and
// extracts the null-space basis vector, per spec.md §4.6: a well-posed
// chemical equation has a null space of dimension exactly 1 (one free
// variable). Zero free variables means the equation is already
// over-determined (only the zero vector conserves everything); more than
// one means the species list doesn't pin down a unique ratio. Both are
// UnbalanceableReaction, not a vector to guess at.
func nullSpaceVector(m [][]*big.Rat, rows, cols int) ([]*big.Rat, bool) {
	pivotCol := make([]int, 0, rows)
	r := 0
	for c := 0; c < cols && r < rows; c++ {
		pivot := -1
		for i := r; i < rows; i++ {
			if m[i][c].Sign() != 0 {
				pivot = i
				break
			}
		}
		if pivot == -1 {
			continue
		}
		m[r], m[pivot] = m[pivot], m[r]
		inv := new(big.Rat).Inv(m[r][c])
		for j := 0; j < cols; j++ {
			m[r][j].Mul(m[r][j], inv)
		}
		for i := 0; i < rows; i++ {
			if i == r {
				continue
			}
			factor := new(big.Rat).Set(m[i][c])
			if factor.Sign() == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				m[i][j].Sub(m[i][j], new(big.Rat).Mul(factor, m[r][j]))
			}
		}
		pivotCol = append(pivotCol, c)
		r++
	}

	pivotSet := map[int]bool{}
	for _, c := range pivotCol {
		pivotSet[c] = true
	}
	free := -1
	freeCount := 0
	for c := 0; c < cols; c++ {
		if !pivotSet[c] {
			free = c
			freeCount++
		}
	}
	if freeCount != 1 {
		return nil, false
	}

	v := make([]*big.Rat, cols)
	for i := range v {
		v[i] = big.NewRat(0, 1)
	}
	v[free] = big.NewRat(1, 1)
	for c, row := range pivotCol {
		v[c] = new(big.Rat).Neg(m[row][free])
	}

	allZero := true
	for _, x := range v {
		if x.Sign() != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, false
	}
	return v, true
}

// toSmallestPositiveIntegers clears denominators and sign-normalizes a
// null-space vector into the smallest positive integer coefficients, per
// spec.md §4.6. Fails if the vector has a zero entry (a species that
// takes no part in the balanced reaction) or mixed-sign entries.
func toSmallestPositiveIntegers(v []*big.Rat) ([]int64, error) {
	sign := 0
	for _, x := range v {
		s := x.Sign()
		if s == 0 {
			return nil, errZeroEntry
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return nil, errMixedSign
		}
	}
	if sign == 0 {
		return nil, errMixedSign
	}

	lcmDen := big.NewInt(1)
	for _, x := range v {
		if x.Sign() == 0 {
			continue
		}
		lcmDen = lcm(lcmDen, x.Denom())
	}
	ints := make([]*big.Int, len(v))
	for i, x := range v {
		n := new(big.Int).Mul(x.Num(), new(big.Int).Quo(lcmDen, x.Denom()))
		if sign < 0 {
			n.Neg(n)
		}
		ints[i] = n
	}
	g := ints[0]
	for _, n := range ints[1:] {
		g = gcdInt(g, n)
	}
	if g.Sign() == 0 {
		g = big.NewInt(1)
	}
	out := make([]int64, len(v))
	for i, n := range ints {
		out[i] = new(big.Int).Quo(n, g).Int64()
	}
	return out, nil
}

var errMixedSign = mixedSignErr{}

type mixedSignErr struct{}

func (mixedSignErr) Error() string { return "null-space vector has mixed-sign entries" }

var errZeroEntry = zeroEntryErr{}

type zeroEntryErr struct{}

func (zeroEntryErr) Error() string { return "a species would get a zero coefficient" }

func gcdInt(a, b *big.Int) *big.Int {
	a = new(big.Int).Abs(a)
	b = new(big.Int).Abs(b)
	for b.Sign() != 0 {
		a, b = b, new(big.Int).Mod(a, b)
	}
	return a
}

func lcm(a, b *big.Int) *big.Int {
	if a.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(0)
	}
	g := gcdInt(a, b)
	return new(big.Int).Mul(new(big.Int).Quo(a, g), b)
}
