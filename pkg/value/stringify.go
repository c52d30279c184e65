package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"chemlang/pkg/decimal"
)

// Stringify renders any runtime Value the way CL's `print`/string
// interpolation does, per spec.md §4.9 and ch_interpreter.py's stringify.
func Stringify(v Value) string {
	switch x := v.(type) {
	case NAVal:
		return "na"
	case Quantity:
		return stringifyQuantity(x)
	case StringVal:
		return x.Text
	case PathVal:
		return x.Path
	case IntervalVal:
		return fmt.Sprintf("%d...%d", x.Lo, x.Hi)
	case ReactionVal:
		return x.Reaction.String()
	case *Function:
		return "work " + x.Name
	case *NativeFunc:
		return "work " + x.Name
	default:
		return fmt.Sprintf("%v", v)
	}
}

// stringifyQuantity implements spec.md §4.9: magnitude formatted to its
// sig_figs digits, scientific notation outside [1e-4, 10^sig_figs),
// dimensionless formula-less quantities print bare, and pass/fail print
// as the literal words.
func stringifyQuantity(q Quantity) string {
	if q.IsDimensionless() && q.Formula == nil && isBoolLike(q) {
		if q.Truthy() {
			return "pass"
		}
		return "fail"
	}
	mag := formatMagnitude(q.Magnitude)
	var b strings.Builder
	b.WriteString(mag)
	if q.Unit.Name != "" {
		b.WriteByte(' ')
		b.WriteString(q.Unit.Name)
	}
	if q.Formula != nil {
		if q.Unit.Name != "" {
			b.WriteByte(' ')
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(q.Formula.String())
	}
	return b.String()
}

// isBoolLike restricts the pass/fail rendering to quantities that were
// actually produced as booleans (infinite sig_figs, zero decimals,
// integer coefficient 0 or 1) so an ordinary dimensionless scalar like
// `0.5` still prints as a number rather than `fail`.
func isBoolLike(q Quantity) bool {
	n, ok := decimal.Int(q.Magnitude.Coeff)
	return ok && (n == 0 || n == 1) && q.Magnitude.SigFigs == decimal.Infinite
}

func formatMagnitude(d decimal.Decimal) string {
	sigFigs := d.SigFigs
	if sigFigs == decimal.Infinite {
		return d.Coeff.Text('f')
	}
	threshold := apd.New(1, int32(sigFigs))
	abs := new(apd.Decimal).Abs(d.Coeff)
	small := apd.New(1, -4)
	if abs.Cmp(threshold) >= 0 || (abs.Sign() != 0 && abs.Cmp(small) < 0) {
		return scientificForm(d.Coeff, sigFigs)
	}
	rounded := new(apd.Decimal)
	if _, err := apd.BaseContext.Quantize(rounded, d.Coeff, int32(-d.Decimals)); err != nil {
		return d.Coeff.Text('f')
	}
	return rounded.Text('f')
}

// scientificForm renders `d.dddd×10ⁿ` with sigFigs significant digits,
// per spec.md §4.9.
func scientificForm(v *apd.Decimal, sigFigs int) string {
	sci := new(apd.Decimal)
	_, _, _ = sci.SetString(v.Text('E'))
	coeffCtx := apd.BaseContext.WithPrecision(uint32(sigFigs))
	rounded := new(apd.Decimal)
	_, _ = coeffCtx.Round(rounded, sci)
	text := rounded.Text('E')
	mantissa, exp, ok := strings.Cut(text, "E")
	if !ok {
		return v.Text('f')
	}
	expN, _ := strconv.Atoi(exp)
	return mantissa + "×10" + toSuperscriptExponent(expN)
}

var superDigits = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func toSuperscriptExponent(n int) string {
	var b strings.Builder
	if n < 0 {
		b.WriteRune('⁻')
		n = -n
	}
	for _, c := range strconv.Itoa(n) {
		b.WriteRune(superDigits[c-'0'])
	}
	return b.String()
}
