// Package decimal implements CL's Decimal engine (spec.md §4.1): signed
// arbitrary-precision arithmetic at a configurable working precision, with
// sig_figs/decimals counters that survive through arithmetic but are
// consulted only by higher layers (pkg/value's Quantity operators) — the
// raw engine here never looks at them, per spec.md's "the engine does not
// know about sig figs; it exposes only raw arithmetic."
//
// Grounded on chemistry_lang's ch_number.py (CHNumber, built on Python's
// stdlib Decimal) and wired to github.com/cockroachdb/apd/v3, the
// arbitrary-precision decimal library used the same way by the FHIRPath
// evaluator in the retrieved example pack (apd.Context-driven Decimal +
// Quantity types).
package decimal

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"chemlang/pkg/clerror"
)

// Infinite marks a Decimal whose sig_figs count does not limit
// multiplicative results — the literal was written as an integer, per
// spec.md §3.
const Infinite = -1

// DefaultPrecision is the default working precision in significant
// digits, per spec.md §3.
const DefaultPrecision = 28

// Context wraps the apd.Context governing working precision for a CL
// program. A program normally shares one Context, built from cl.yml's
// optional `precision` override.
type Context struct {
	apd *apd.Context
}

// NewContext builds a Context at the given working precision (significant
// digits). precision <= 0 falls back to DefaultPrecision.
func NewContext(precision int) *Context {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	ctx := apd.BaseContext.WithPrecision(uint32(precision))
	return &Context{apd: ctx}
}

// Decimal is CL's arbitrary-precision numeric value: a raw magnitude plus
// the sig_figs/decimals counters from spec.md §3.
type Decimal struct {
	Coeff    *apd.Decimal
	SigFigs  int // Infinite for integer literals
	Decimals int
}

// FromLiteral parses a scanned numeric literal exactly as written,
// deriving sig_figs/decimals from the text the way ch_number.py's
// get_sig_figs/guess_decimal_digits do from Python's Decimal.as_tuple().
func FromLiteral(text string) (Decimal, error) {
	text = strings.ReplaceAll(text, "_", "")
	coeff, _, err := apd.NewFromString(text)
	if err != nil {
		return Decimal{}, clerror.New(clerror.KindScanError, "invalid number %q", text)
	}
	decimals := 0
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		frac := text[dot+1:]
		if e := strings.IndexAny(frac, "eE"); e >= 0 {
			frac = frac[:e]
		}
		decimals = len(frac)
	}
	sigFigs := Infinite
	if decimals > 0 {
		sigFigs = countSigFigs(text)
	}
	return Decimal{Coeff: coeff, SigFigs: sigFigs, Decimals: decimals}, nil
}

// countSigFigs counts significant digits of a literal written with a
// decimal point: leading zeros before the first nonzero digit don't
// count, everything from the first nonzero digit onward does (including
// trailing zeros, since writing "2.0" is a deliberate claim of 2 sig figs).
func countSigFigs(text string) int {
	digits := 0
	seenNonZero := false
loop:
	for _, c := range text {
		switch {
		case c == '-' || c == '+' || c == '.':
			continue
		case c == 'e' || c == 'E':
			break loop
		case c >= '0' && c <= '9':
			if c != '0' {
				seenNonZero = true
			}
			if seenNonZero {
				digits++
			}
		}
	}
	if digits == 0 {
		digits = 1
	}
	return digits
}

// FromInt builds an integer-valued Decimal with infinite sig_figs and
// zero decimal places, per spec.md §3.
func FromInt(n int64) Decimal {
	return Decimal{Coeff: apd.New(n, 0), SigFigs: Infinite, Decimals: 0}
}

// FromRaw wraps an already-computed apd.Decimal with explicit metadata,
// used by higher layers assembling a result per their own sig-fig rule.
func FromRaw(v *apd.Decimal, sigFigs, decimals int) Decimal {
	return Decimal{Coeff: v, SigFigs: sigFigs, Decimals: decimals}
}

func (c *Context) binary(op func(*apd.Decimal, *apd.Decimal, *apd.Decimal) (apd.Condition, error), a, b *apd.Decimal) (*apd.Decimal, error) {
	res := new(apd.Decimal)
	if _, err := op(res, a, b); err != nil {
		return nil, fmt.Errorf("decimal: %w", err)
	}
	return res, nil
}

// Add returns a+b at the working precision.
func (c *Context) Add(a, b *apd.Decimal) (*apd.Decimal, error) {
	return c.binary(c.apd.Add, a, b)
}

// Sub returns a-b at the working precision.
func (c *Context) Sub(a, b *apd.Decimal) (*apd.Decimal, error) {
	return c.binary(c.apd.Sub, a, b)
}

// Mul returns a*b at the working precision.
func (c *Context) Mul(a, b *apd.Decimal) (*apd.Decimal, error) {
	return c.binary(c.apd.Mul, a, b)
}

// Quo returns a/b at the working precision. Division by zero fails with
// DivisionByZero rather than delegating to apd's own inf/nan machinery.
func (c *Context) Quo(a, b *apd.Decimal) (*apd.Decimal, error) {
	if b.IsZero() {
		return nil, clerror.New(clerror.KindDivisionByZero, "division by zero")
	}
	return c.binary(c.apd.Quo, a, b)
}

// Rem returns a%b with the sign of a (the dividend), per spec.md §4.4.
func (c *Context) Rem(a, b *apd.Decimal) (*apd.Decimal, error) {
	if b.IsZero() {
		return nil, clerror.New(clerror.KindDivisionByZero, "modulo by zero")
	}
	return c.binary(c.apd.Rem, a, b)
}

// Pow returns a**b. Integer-valued b is computed by repeated
// multiplication per spec.md §4.1; otherwise it delegates to apd's
// general power.
func (c *Context) Pow(a, b *apd.Decimal) (*apd.Decimal, error) {
	if n, exact := isSmallInt(b); exact {
		return c.intPow(a, n)
	}
	return c.binary(c.apd.Pow, a, b)
}

func (c *Context) intPow(a *apd.Decimal, n int64) (*apd.Decimal, error) {
	neg := n < 0
	if neg {
		n = -n
	}
	result := apd.New(1, 0)
	base := new(apd.Decimal).Set(a)
	var err error
	for n > 0 {
		if n&1 == 1 {
			if result, err = c.binary(c.apd.Mul, result, base); err != nil {
				return nil, err
			}
		}
		if base, err = c.binary(c.apd.Mul, base, base); err != nil {
			return nil, err
		}
		n >>= 1
	}
	if neg {
		return c.Quo(apd.New(1, 0), result)
	}
	return result, nil
}

func isSmallInt(d *apd.Decimal) (int64, bool) {
	if d.Exponent < 0 {
		// has a fractional part unless it reduces to integer; fall back to apd.
		var tmp apd.Decimal
		if _, err := apd.BaseContext.Quantize(&tmp, d, 0); err == nil && tmp.Cmp(d) == 0 {
			n, err := tmp.Int64()
			return n, err == nil
		}
		return 0, false
	}
	n, err := d.Int64()
	return n, err == nil
}

// MulRat multiplies a by an exact rational factor (a unit conversion
// scale ratio, per spec.md §4.3), at the context's working precision.
func (c *Context) MulRat(a *apd.Decimal, r *big.Rat) (*apd.Decimal, error) {
	num := new(apd.Decimal)
	if _, _, err := num.SetString(r.Num().String()); err != nil {
		return nil, fmt.Errorf("decimal: %w", err)
	}
	den := new(apd.Decimal)
	if _, _, err := den.SetString(r.Denom().String()); err != nil {
		return nil, fmt.Errorf("decimal: %w", err)
	}
	scaled, err := c.binary(c.apd.Mul, a, num)
	if err != nil {
		return nil, err
	}
	return c.binary(c.apd.Quo, scaled, den)
}

// FromRat converts an exact rational constant (e.g. Avogadro's number)
// into a Decimal coefficient at the context's working precision.
func (c *Context) FromRat(r *big.Rat) (*apd.Decimal, error) {
	return c.MulRat(apd.New(1, 0), r)
}

// Neg, Abs are sign-only operations; they never fail.
func (c *Context) Neg(a *apd.Decimal) *apd.Decimal {
	res := new(apd.Decimal)
	c.apd.Neg(res, a)
	return res
}

func (c *Context) Abs(a *apd.Decimal) *apd.Decimal {
	res := new(apd.Decimal)
	c.apd.Abs(res, a)
	return res
}

// Cmp compares a and b (-1, 0, 1).
func (c *Context) Cmp(a, b *apd.Decimal) int {
	return a.Cmp(b)
}

// Ln, Log2, Log10 are CL's logarithms (spec.md §4.8). apd provides Ln and
// Log10 directly; Log2 is derived as Ln(x)/Ln(2) since apd has no native
// base-2 logarithm.
func (c *Context) Ln(a *apd.Decimal) (*apd.Decimal, error) {
	res := new(apd.Decimal)
	if _, err := c.apd.Ln(res, a); err != nil {
		return nil, fmt.Errorf("decimal: ln: %w", err)
	}
	return res, nil
}

func (c *Context) Log10(a *apd.Decimal) (*apd.Decimal, error) {
	res := new(apd.Decimal)
	if _, err := c.apd.Log10(res, a); err != nil {
		return nil, fmt.Errorf("decimal: log10: %w", err)
	}
	return res, nil
}

func (c *Context) Log2(a *apd.Decimal) (*apd.Decimal, error) {
	lnA, err := c.Ln(a)
	if err != nil {
		return nil, err
	}
	ln2, err := c.Ln(apd.New(2, 0))
	if err != nil {
		return nil, err
	}
	return c.binary(c.apd.Quo, lnA, ln2)
}

// Sqrt returns the square root of a.
func (c *Context) Sqrt(a *apd.Decimal) (*apd.Decimal, error) {
	res := new(apd.Decimal)
	if _, err := c.apd.Sqrt(res, a); err != nil {
		return nil, fmt.Errorf("decimal: sqrt: %w", err)
	}
	return res, nil
}

// Sin, Cos, Tan: apd has no arbitrary-precision trigonometry, so CL's
// transcendental trig builtins round-trip through float64. This bounds
// their precision to the host's float64, which is documented in
// DESIGN.md as an accepted limitation (chemistry homework scripts do not
// require trig beyond double precision).
func (c *Context) Sin(a *apd.Decimal) (*apd.Decimal, error) { return c.viaFloat(a, math.Sin) }
func (c *Context) Cos(a *apd.Decimal) (*apd.Decimal, error) { return c.viaFloat(a, math.Cos) }
func (c *Context) Tan(a *apd.Decimal) (*apd.Decimal, error) { return c.viaFloat(a, math.Tan) }

// Asin, Acos, Atan, Exp, Gamma round-trip through float64 for the same
// reason as Sin/Cos/Tan: apd has no arbitrary-precision implementation.
func (c *Context) Asin(a *apd.Decimal) (*apd.Decimal, error)  { return c.viaFloat(a, math.Asin) }
func (c *Context) Acos(a *apd.Decimal) (*apd.Decimal, error)  { return c.viaFloat(a, math.Acos) }
func (c *Context) Atan(a *apd.Decimal) (*apd.Decimal, error)  { return c.viaFloat(a, math.Atan) }
func (c *Context) Exp(a *apd.Decimal) (*apd.Decimal, error)   { return c.viaFloat(a, math.Exp) }
func (c *Context) Gamma(a *apd.Decimal) (*apd.Decimal, error) { return c.viaFloat(a, math.Gamma) }

func (c *Context) Floor(a *apd.Decimal) (*apd.Decimal, error) { return c.viaFloat(a, math.Floor) }
func (c *Context) Ceil(a *apd.Decimal) (*apd.Decimal, error)  { return c.viaFloat(a, math.Ceil) }

func (c *Context) viaFloat(a *apd.Decimal, fn func(float64) float64) (*apd.Decimal, error) {
	f, err := a.Float64()
	if err != nil {
		return nil, fmt.Errorf("decimal: %w", err)
	}
	res := new(apd.Decimal)
	if _, err := res.SetFloat64(fn(f)); err != nil {
		return nil, fmt.Errorf("decimal: %w", err)
	}
	return res, nil
}

// Int checks whether d is integer-valued (no fractional remainder),
// needed by spec.md §4.4's "b must be dimensionless... if b is
// integer-valued" exponent rule, §4.4's interval endpoints, and §4.3's `~`
// unary operator.
func Int(d *apd.Decimal) (int64, bool) {
	var tmp apd.Decimal
	if _, err := apd.BaseContext.Quantize(&tmp, d, 0); err != nil || tmp.Cmp(d) != 0 {
		return 0, false
	}
	n, err := tmp.Int64()
	return n, err == nil
}

// MinSigFigs combines two sig_figs counters the way multiplicative
// operators do (spec.md §4.4): Infinite never limits the result.
func MinSigFigs(a, b int) int {
	switch {
	case a == Infinite:
		return b
	case b == Infinite:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

// RoundToDecimals quantizes raw to exactly `decimals` digits after the
// point, used to apply the additive decimals rule (spec.md §4.4) before
// deriving the result's display sig_figs.
func (c *Context) RoundToDecimals(raw *apd.Decimal, decimals int) (*apd.Decimal, error) {
	res := new(apd.Decimal)
	if _, err := c.apd.Quantize(res, raw, int32(-decimals)); err != nil {
		return nil, fmt.Errorf("decimal: round: %w", err)
	}
	return res, nil
}

// SigFigsAtDecimals derives a display sig_figs count for a value rounded
// to `decimals` places, by the same leading-zeros-don't-count,
// trailing-zeros-do rule FromLiteral applies to written literals. A
// `decimals` of 0 yields Infinite, matching spec.md §3's rule that
// integer-valued results don't limit further multiplicative precision.
func SigFigsAtDecimals(rounded *apd.Decimal, decimals int) int {
	if decimals <= 0 {
		return Infinite
	}
	text := rounded.Text('f')
	return countSigFigs(text)
}

// DecimalsForSigFigs derives a decimal-places count consistent with a
// given sig_figs count and the value's magnitude, used when a
// multiplicative operator's result (which has a defined sig_figs but no
// defined decimals) later participates in an additive operation.
func DecimalsForSigFigs(v *apd.Decimal, sigFigs int) int {
	if sigFigs == Infinite {
		return 0
	}
	intDigits := v.NumDigits() + int64(v.Exponent)
	if intDigits < 1 {
		intDigits = 1
	}
	decimals := int64(sigFigs) - intDigits
	if decimals < 0 {
		decimals = 0
	}
	return int(decimals)
}

// IsZero reports whether d is exactly zero.
func IsZero(d *apd.Decimal) bool {
	return d.IsZero()
}

// Sign returns -1, 0, or 1.
func Sign(d *apd.Decimal) int {
	return d.Sign()
}

// String renders the raw coefficient without any sig-fig-aware rounding
// (used by debugging paths; display formatting lives in pkg/value).
func (d Decimal) String() string {
	return d.Coeff.String()
}
