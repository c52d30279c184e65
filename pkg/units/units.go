// Package units implements CL's unit registry and dimension algebra
// (spec.md §3, §4.3): a product of base units with signed exponents, a
// scalar scale to SI base, seeded with SI base units and prefixes, common
// imperial units, mol, L, and the pseudo-unit atom.
//
// Grounded on chemistry_lang's ch_ureg.py (a thin wrapper over Python's
// `pint`), with plural-suffix stripping from ch_scanner.py's `id` method.
// No dimension-vector unit-algebra library appears anywhere in the
// example pack or its transitive dependency closures (the closest
// precedent, other_examples/szatmary-ratcalc__unit.go, hand-rolls its own
// unit table over *big.Rat conversion factors); this package follows that
// precedent and keeps conversion factors as exact *big.Rat rather than
// float64, since spec.md's sig-fig/display rules demand the registry
// never itself introduces rounding error.
package units

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"chemlang/pkg/clerror"
	"chemlang/pkg/decimal"
)

// Dimension indexes the seven SI base dimensions of spec.md §3's
// dimension vector. There is no extra dimension for "atom": it is
// dimensionless and marked by Unit.IsAtom instead.
type Dimension int

const (
	Length Dimension = iota
	Mass
	Time
	Amount
	Current
	Temperature
	Luminosity
	numDimensions
)

// Vec is a dimension-exponent vector.
type Vec [numDimensions]int

// Add returns the element-wise sum of two vectors (used when multiplying units).
func (v Vec) Add(o Vec) Vec {
	var r Vec
	for i := range v {
		r[i] = v[i] + o[i]
	}
	return r
}

// Scale multiplies every exponent by n (used when raising a unit to a power).
func (v Vec) Scale(n int) Vec {
	var r Vec
	for i := range v {
		r[i] = v[i] * n
	}
	return r
}

func (v Vec) isZero() bool {
	return v == Vec{}
}

// Unit is a product of base units: a dimension vector plus the exact
// scalar scale to SI base (meters, kilograms, seconds, moles, amperes,
// kelvin, candela). IsAtom marks the pseudo-unit `atom`: dimensionless
// but tagged so mass/mole<->atom conversions go through Avogadro's
// number instead of being treated as a bare scalar.
type Unit struct {
	Name  string
	Dim   Vec
	Scale *big.Rat
	// Unit has no offset field: every seeded unit converts by scale alone
	// (spec.md §3 defines Unit purely as scale+dimension).
	IsAtom bool
}

// Dimensionless is the scalar unit `1`: every non-quantity scalar in CL
// carries this unit, per spec.md §3.
var Dimensionless = Unit{Name: "", Dim: Vec{}, Scale: big.NewRat(1, 1)}

// Gram, Mole, and Atom are the canonical units pkg/value's
// formula-mediated conversion (spec.md §4.5) measures molar mass and
// Avogadro's number against, independent of whatever SI-prefixed unit
// the source quantity was actually written in.
var (
	Gram = Unit{Name: "g", Dim: dim(Mass, 1), Scale: big.NewRat(1, 1000)}
	Mole = Unit{Name: "mol", Dim: dim(Amount, 1), Scale: big.NewRat(1, 1)}
	Atom = Unit{Name: "atom", Dim: Vec{}, Scale: big.NewRat(1, 1), IsAtom: true}
)

// Avogadro is Nₐ, pinned to CODATA 2018 (6.02214076e23), used by
// pkg/value's formula-mediated conversion (spec.md §4.5).
var Avogadro = ratFromString("602214076000000000000000", "1")

func ratFromString(num, den string) *big.Rat {
	n, ok1 := new(big.Int).SetString(num, 10)
	d, ok2 := new(big.Int).SetString(den, 10)
	if !ok1 || !ok2 {
		panic("units: bad Avogadro literal")
	}
	return new(big.Rat).SetFrac(n, d)
}

// Convertible reports whether two units share a dimension vector, per
// spec.md §3/§4.3.
func Convertible(a, b Unit) bool {
	return a.Dim == b.Dim
}

// Equal reports scale+dimension equality, per spec.md §3.
func Equal(a, b Unit) bool {
	return a.Dim == b.Dim && a.Scale.Cmp(b.Scale) == 0 && a.IsAtom == b.IsAtom
}

// Mul returns the product unit a*b: scales multiply, dimensions add.
func Mul(a, b Unit) Unit {
	return Unit{
		Name:   a.Name + "·" + b.Name,
		Dim:    a.Dim.Add(b.Dim),
		Scale:  new(big.Rat).Mul(a.Scale, b.Scale),
		IsAtom: a.IsAtom || b.IsAtom,
	}
}

// Quo returns the quotient unit a/b: scales divide, dimensions subtract.
func Quo(a, b Unit) Unit {
	return Unit{
		Name:   a.Name + "/" + b.Name,
		Dim:    a.Dim.Add(b.Dim.Scale(-1)),
		Scale:  new(big.Rat).Quo(a.Scale, b.Scale),
		IsAtom: a.IsAtom || b.IsAtom,
	}
}

// Pow returns a raised to the integer power n.
func Pow(a Unit, n int) Unit {
	scale := big.NewRat(1, 1)
	if n >= 0 {
		for i := 0; i < n; i++ {
			scale.Mul(scale, a.Scale)
		}
	} else {
		for i := 0; i < -n; i++ {
			scale.Mul(scale, a.Scale)
		}
		scale.Inv(scale)
	}
	return Unit{Name: a.Name, Dim: a.Dim.Scale(n), Scale: scale, IsAtom: a.IsAtom}
}

// ConversionFactor returns the ratio of scales converting a magnitude
// expressed in `from` to one expressed in `to`, per spec.md §4.3: "the
// conversion factor is the ratio of scales." Callers must have already
// checked Convertible.
func ConversionFactor(from, to Unit) *big.Rat {
	return new(big.Rat).Quo(from.Scale, to.Scale)
}

// entry is a single registered base/derived unit, keyed by its canonical
// (singular, unprefixed) identifier.
type entry struct {
	unit      Unit
	prefixOK  bool // whether SI prefixes (k, m, µ, ...) may combine with this unit
}

// Registry maps unit identifiers (post plural-stripping, post SI-prefix
// stripping) to Units.
type Registry struct {
	base map[string]entry
}

// NewRegistry builds the default registry seeded per spec.md §4.3: SI
// base units and their prefixed derivatives, common imperial units, mol,
// L, and atom.
func NewRegistry() *Registry {
	r := &Registry{base: map[string]entry{}}
	r.seedSI()
	r.seedImperial()
	r.base["mol"] = entry{Unit{Name: "mol", Dim: dim(Amount, 1), Scale: big.NewRat(1, 1)}, false}
	r.base["L"] = entry{Unit{Name: "L", Dim: dim(Length, 3), Scale: big.NewRat(1, 1000)}, true}
	r.base["atom"] = entry{Unit{Name: "atom", Dim: Vec{}, Scale: big.NewRat(1, 1), IsAtom: true}, false}
	return r
}

func dim(d Dimension, exp int) Vec {
	var v Vec
	v[d] = exp
	return v
}

func (r *Registry) seedSI() {
	r.base["g"] = entry{Unit{Name: "g", Dim: dim(Mass, 1), Scale: big.NewRat(1, 1000)}, true}
	r.base["m"] = entry{Unit{Name: "m", Dim: dim(Length, 1), Scale: big.NewRat(1, 1)}, true}
	r.base["s"] = entry{Unit{Name: "s", Dim: dim(Time, 1), Scale: big.NewRat(1, 1)}, true}
	r.base["A"] = entry{Unit{Name: "A", Dim: dim(Current, 1), Scale: big.NewRat(1, 1)}, true}
	r.base["K"] = entry{Unit{Name: "K", Dim: dim(Temperature, 1), Scale: big.NewRat(1, 1)}, true}
	r.base["cd"] = entry{Unit{Name: "cd", Dim: dim(Luminosity, 1), Scale: big.NewRat(1, 1)}, true}
}

func (r *Registry) seedImperial() {
	r.base["in"] = entry{Unit{Name: "in", Dim: dim(Length, 1), Scale: ratFromString("127", "5000")}, false}
	r.base["ft"] = entry{Unit{Name: "ft", Dim: dim(Length, 1), Scale: ratFromString("381", "1250")}, false}
	r.base["yd"] = entry{Unit{Name: "yd", Dim: dim(Length, 1), Scale: ratFromString("1143", "1250")}, false}
	r.base["mi"] = entry{Unit{Name: "mi", Dim: dim(Length, 1), Scale: ratFromString("201168", "125")}, false}
	r.base["acre"] = entry{Unit{Name: "acre", Dim: dim(Length, 2), Scale: ratFromString("40468564224", "10000000")}, false}
	r.base["lb"] = entry{Unit{Name: "lb", Dim: dim(Mass, 1), Scale: ratFromString("45359237", "100000000")}, false}
	r.base["oz"] = entry{Unit{Name: "oz", Dim: dim(Mass, 1), Scale: ratFromString("45359237", "1600000000")}, false}
}

// siPrefixes maps an SI prefix to its power-of-ten exponent.
var siPrefixes = map[string]int{
	"Y": 24, "Z": 21, "E": 18, "P": 15, "T": 12, "G": 9, "M": 6, "k": 3, "h": 2, "da": 1,
	"d": -1, "c": -2, "m": -3, "µ": -6, "u": -6, "n": -9, "p": -12, "f": -15, "a": -18, "z": -21, "y": -24,
}

// stripPlural strips a matching plural suffix (-s, -es, -ves, -ies), per
// spec.md §4.3, mirroring pint's pluralization handling referenced by
// ch_scanner.py's `identifier in ureg` lookup.
func stripPlural(name string) string {
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "ves") && len(name) > 3:
		return name[:len(name)-3] + "f"
	case strings.HasSuffix(name, "es") && len(name) > 2:
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	}
	return name
}

// Lookup resolves a scanned unit identifier to a Unit, stripping a plural
// suffix and an SI prefix as needed. Returns UnknownUnit on failure.
func (r *Registry) Lookup(name string) (Unit, error) {
	if u, ok := r.base[name]; ok {
		return u.unit, nil
	}
	singular := stripPlural(name)
	if u, ok := r.base[singular]; ok {
		return u.unit, nil
	}
	if u, ok := r.lookupPrefixed(name); ok {
		return u, nil
	}
	if u, ok := r.lookupPrefixed(singular); ok {
		return u, nil
	}
	return Unit{}, clerror.New(clerror.KindUnknownUnit, "unknown unit %q", name)
}

func (r *Registry) lookupPrefixed(name string) (Unit, bool) {
	for _, plen := range []int{2, 1} {
		if len(name) <= plen {
			continue
		}
		prefix, rest := name[:plen], name[plen:]
		exp, ok := siPrefixes[prefix]
		if !ok {
			continue
		}
		base, ok := r.base[rest]
		if !ok || !base.prefixOK {
			continue
		}
		factor := pow10(exp)
		return Unit{Name: prefix + base.unit.Name, Dim: base.unit.Dim, Scale: new(big.Rat).Mul(base.unit.Scale, factor), IsAtom: base.unit.IsAtom}, true
	}
	return Unit{}, false
}

func pow10(exp int) *big.Rat {
	r := big.NewRat(1, 1)
	ten := big.NewRat(10, 1)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			r.Mul(r, ten)
		}
	} else {
		for i := 0; i < -exp; i++ {
			r.Quo(r, ten)
		}
	}
	return r
}

// Convert rescales mag from `from`'s unit to `to`'s unit by their exact
// scale ratio, per spec.md §4.3. Fails with IncompatibleUnits unless the
// two units share a dimension vector.
func Convert(ctx *decimal.Context, mag *apd.Decimal, from, to Unit) (*apd.Decimal, error) {
	if !Convertible(from, to) {
		return nil, clerror.New(clerror.KindIncompatibleUnits, "cannot convert %s to %s", from.Name, to.Name)
	}
	return ctx.MulRat(mag, ConversionFactor(from, to))
}

// IsKnown reports whether name resolves in the registry, used by the
// lexer's lexical-priority rule (spec.md §6: element, then unit, then
// path, then identifier).
func (r *Registry) IsKnown(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}
