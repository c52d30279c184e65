package interpreter_test

import (
	"strings"
	"testing"

	"chemlang/pkg/decimal"
	"chemlang/pkg/interpreter"
	"chemlang/pkg/lexer"
	"chemlang/pkg/parser"
	"chemlang/pkg/units"
)

// runScript lexes, parses, and runs src against a fresh interpreter,
// returning everything printed to stdout and whatever landed on stderr.
func runScript(t *testing.T, src string) (stdout, stderr string, failed bool) {
	t.Helper()
	reg := units.NewRegistry()
	toks, err := lexer.Lex(src, reg)
	if err != nil {
		t.Fatalf("Lex(%q) error: %v", src, err)
	}
	prog, errs := parser.Parse(toks, reg)
	if len(errs) != 0 {
		t.Fatalf("Parse(%q) errors: %v", src, errs)
	}
	var out, errOut strings.Builder
	ctx := decimal.NewContext(16)
	it := interpreter.New(ctx, reg, &out, strings.NewReader(""), &errOut)
	failed = it.Run(prog)
	return out.String(), errOut.String(), failed
}

// spec.md §8 scenario 1: sig-fig propagation through addition.
func TestSigFigAdditionKeepsFewestDecimals(t *testing.T) {
	out, _, failed := runScript(t, "print(1.2345 + 1.2)\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	if strings.TrimSpace(out) != "2.4" {
		t.Fatalf("got %q, want 2.4", out)
	}
}

// spec.md §8 scenario 2: mixed-unit addition converts to the left
// operand's unit, then a further unit conversion renders in scientific
// notation once the magnitude exceeds the sig-fig window.
func TestMixedUnitAdditionThenConversion(t *testing.T) {
	out, _, failed := runScript(t, "print(10.000 km + 20.000 m -> mm)\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	got := strings.TrimSpace(out)
	if !strings.Contains(got, "mm") || !strings.Contains(got, "1.0020") {
		t.Fatalf("got %q, want magnitude 1.0020e7 mm", got)
	}
}

// spec.md §8 scenario 3: a formula-carrying quantity added to a molar
// quantity of the same substance takes the left operand's unit.
func TestQuantityPlusMolarQuantitySameFormula(t *testing.T) {
	out, _, failed := runScript(t, "print(10.00 g H2O + 1.00 mol H2O)\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	got := strings.TrimSpace(out)
	if !strings.Contains(got, "g") || !strings.Contains(got, "28.01") {
		t.Fatalf("got %q, want 28.01 g H2O", got)
	}
}

// spec.md §8 scenario 4: reaction-mediated conversion through a
// balanced equation, then a plain unit conversion on the result.
func TestReactionMediatedConversion(t *testing.T) {
	out, _, failed := runScript(t, "print(50.00 g NaOH :CuSO4 + NaOH -> Cu(OH)2 + Na2SO4:-> CuSO4 -> g)\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	got := strings.TrimSpace(out)
	if !strings.Contains(got, "99.76") {
		t.Fatalf("got %q, want magnitude 99.76", got)
	}
}

// spec.md §8 scenario 5: a second reaction-mediated conversion, with a
// 1:4 stoichiometric ratio.
func TestReactionMediatedConversionFourToOne(t *testing.T) {
	out, _, failed := runScript(t, "print(16.00 mol C4H10 :C4H10 + O2 -> CO2 + H2O:-> CO2 -> g)\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	got := strings.TrimSpace(out)
	if !strings.Contains(got, "2817") {
		t.Fatalf("got %q, want magnitude 2817", got)
	}
}

// spec.md §8 scenario 6: incompatible units report an error and leave
// the program in a failed state rather than panicking.
func TestIncompatibleUnitsReportsError(t *testing.T) {
	_, errOut, failed := runScript(t, "print(10.00 km + 20.00 g NaCl)\n")
	if !failed {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(errOut, "IncompatibleUnits") {
		t.Fatalf("stderr = %q, want IncompatibleUnits", errOut)
	}
}

// spec.md §8 scenario 7: recursive work functions.
func TestFibonacciRecursion(t *testing.T) {
	src := `work fib(n)
  exam n <= 1
    submit n
  submit fib(n - 1) + fib(n - 2)

print(fib(10))
`
	out, _, failed := runScript(t, src)
	if failed {
		t.Fatalf("unexpected failure")
	}
	if !strings.Contains(strings.TrimSpace(out), "55") {
		t.Fatalf("got %q, want 55", out)
	}
}

// spec.md §8 scenario 7: a closure retains its own mutable counter
// across calls.
func TestClosureCounterRetainsState(t *testing.T) {
	src := `work make_counter()
  n = 0
  work counter()
    n = n + 1
    submit n - 1

  submit counter

counter = make_counter()
print(counter())
print(counter())
print(counter())
`
	out, _, failed := runScript(t, src)
	if failed {
		t.Fatalf("unexpected failure")
	}
	lines := strings.Fields(out)
	if len(lines) != 3 || lines[0] != "0" || lines[1] != "1" || lines[2] != "2" {
		t.Fatalf("got %v, want [0 1 2]", lines)
	}
}

// Short-circuit evaluation: the right operand of && must not run once
// the left operand is already false, or this division by zero would
// surface as an error.
func TestShortCircuitAndSkipsRightOperand(t *testing.T) {
	out, _, failed := runScript(t, "print(0 && (1 / 0))\n")
	if failed {
		t.Fatalf("unexpected failure: right operand of && should not evaluate")
	}
	if strings.TrimSpace(out) != "fail" {
		t.Fatalf("got %q, want fail", out)
	}
}

func TestShortCircuitOrSkipsRightOperand(t *testing.T) {
	out, _, failed := runScript(t, "print(1 || (1 / 0))\n")
	if failed {
		t.Fatalf("unexpected failure: right operand of || should not evaluate")
	}
	if strings.TrimSpace(out) != "pass" {
		t.Fatalf("got %q, want pass", out)
	}
}

// Math builtins require a dimensionless argument, per spec.md §4.8 —
// deliberately stricter than passing through whatever unit the
// argument carried.
func TestMathBuiltinRejectsUnitfulArgument(t *testing.T) {
	_, errOut, failed := runScript(t, "print(sqrt(4.0 g))\n")
	if !failed {
		t.Fatalf("expected failure for sqrt of a unitful quantity")
	}
	if !strings.Contains(errOut, "IncompatibleUnits") {
		t.Fatalf("stderr = %q, want IncompatibleUnits", errOut)
	}
}

func TestMathBuiltinOnDimensionlessQuantity(t *testing.T) {
	out, _, failed := runScript(t, "print(sqrt(4))\n")
	if failed {
		t.Fatalf("unexpected failure")
	}
	if strings.TrimSpace(out) != "2" {
		t.Fatalf("got %q, want 2", out)
	}
}

// during loops share one scope across every iteration and the
// condition re-check.
func TestDuringLoopAccumulates(t *testing.T) {
	src := `i = 0
total = 0
during i < 5
  total = total + i
  i = i + 1

print(total)
`
	out, _, failed := runScript(t, src)
	if failed {
		t.Fatalf("unexpected failure")
	}
	if strings.TrimSpace(out) != "10" {
		t.Fatalf("got %q, want 10", out)
	}
}

// redo loops bind a fresh per-iteration variable over an integer range.
func TestRedoLoopSumsRange(t *testing.T) {
	src := `total = 0
redo i of 0 ... 5
  total = total + i

print(total)
`
	out, _, failed := runScript(t, src)
	if failed {
		t.Fatalf("unexpected failure")
	}
	if strings.TrimSpace(out) != "10" {
		t.Fatalf("got %q, want 10", out)
	}
}

// exam/makeup/fail dispatches to the first satisfied clause.
func TestExamMakeupFailDispatch(t *testing.T) {
	src := `work grade(score)
  exam score >= 90
    submit "A"
  makeup score >= 80
    submit "B"
  fail
    submit "F"

print(grade(85))
print(grade(95))
print(grade(10))
`
	out, _, failed := runScript(t, src)
	if failed {
		t.Fatalf("unexpected failure")
	}
	lines := strings.Fields(out)
	if len(lines) != 3 || lines[0] != "B" || lines[1] != "A" || lines[2] != "F" {
		t.Fatalf("got %v, want [B A F]", lines)
	}
}
