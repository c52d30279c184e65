package parser_test

import (
	"testing"

	"chemlang/pkg/ast"
	"chemlang/pkg/lexer"
	"chemlang/pkg/parser"
	"chemlang/pkg/units"
)

func parseSource(t *testing.T, src string) *ast.Program {
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
	return prog
}

func TestParseQuantityLiteral(t *testing.T) {
	prog := parseSource(t, "10.00 g H2O\n")
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	exprStmt, ok := prog.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected *ast.ExprStmt, got %T", prog.Stmts[0])
	}
	lit, ok := exprStmt.X.(*ast.QuantityLit)
	if !ok {
		t.Fatalf("expected *ast.QuantityLit, got %T", exprStmt.X)
	}
	if lit.NumberText != "10.00" || lit.Unit != "g" || lit.Formula != "H2O" {
		t.Fatalf("unexpected literal: %+v", lit)
	}
}

func TestParseAssignStmt(t *testing.T) {
	prog := parseSource(t, "x = 5\n")
	assign, ok := prog.Stmts[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", prog.Stmts[0])
	}
	if assign.Name != "x" {
		t.Fatalf("assign target = %q, want x", assign.Name)
	}
}

func TestParseCompoundAssignDesugarsOperator(t *testing.T) {
	prog := parseSource(t, "x += 1\n")
	assign := prog.Stmts[0].(*ast.AssignStmt)
	if assign.Op.String() != "+" {
		t.Fatalf("desugared op = %s, want +", assign.Op)
	}
}

func TestParseConversionChain(t *testing.T) {
	prog := parseSource(t, "10.0 g -> mol -> g\n")
	exprStmt := prog.Stmts[0].(*ast.ExprStmt)
	outer, ok := exprStmt.X.(*ast.ConversionExpr)
	if !ok {
		t.Fatalf("expected *ast.ConversionExpr, got %T", exprStmt.X)
	}
	if outer.Target.Unit != "g" {
		t.Fatalf("outer target = %q, want g", outer.Target.Unit)
	}
	inner, ok := outer.Source.(*ast.ConversionExpr)
	if !ok {
		t.Fatalf("expected nested conversion, got %T", outer.Source)
	}
	if inner.Target.Unit != "mol" {
		t.Fatalf("inner target = %q, want mol", inner.Target.Unit)
	}
}

func TestParseReactionMediatedConversion(t *testing.T) {
	prog := parseSource(t, "16.00 mol C4H10 :C4H10 + O2 -> CO2 + H2O:-> CO2 -> g\n")
	exprStmt := prog.Stmts[0].(*ast.ExprStmt)
	outer := exprStmt.X.(*ast.ConversionExpr)
	if outer.Target.Unit != "g" {
		t.Fatalf("outer target = %q, want g", outer.Target.Unit)
	}
	mediated, ok := outer.Source.(*ast.ConversionExpr)
	if !ok {
		t.Fatalf("expected reaction-mediated conversion, got %T", outer.Source)
	}
	if mediated.Reaction == nil {
		t.Fatalf("expected a reaction skeleton")
	}
	if len(mediated.Reaction.Reactants) != 2 || len(mediated.Reaction.Products) != 2 {
		t.Fatalf("unexpected reaction shape: %+v", mediated.Reaction)
	}
	if mediated.Target.Formula != "CO2" {
		t.Fatalf("mediated target formula = %q, want CO2", mediated.Target.Formula)
	}
}

func TestParseExamMakeupFail(t *testing.T) {
	src := "exam x > 0\n  submit 1\nmakeup x < 0\n  submit -1\nfail\n  submit 0\n"
	prog := parseSource(t, src)
	exam, ok := prog.Stmts[0].(*ast.ExamStmt)
	if !ok {
		t.Fatalf("expected *ast.ExamStmt, got %T", prog.Stmts[0])
	}
	if len(exam.Makeups) != 1 {
		t.Fatalf("expected 1 makeup clause, got %d", len(exam.Makeups))
	}
	if exam.Fail == nil {
		t.Fatalf("expected a fail clause")
	}
}

func TestParseRedoLoop(t *testing.T) {
	prog := parseSource(t, "redo i of 0 ... 10\n  submit i\n")
	redo, ok := prog.Stmts[0].(*ast.RedoStmt)
	if !ok {
		t.Fatalf("expected *ast.RedoStmt, got %T", prog.Stmts[0])
	}
	if redo.Var != "i" {
		t.Fatalf("loop var = %q, want i", redo.Var)
	}
}

func TestParseWorkDefinitionAndCall(t *testing.T) {
	src := "work add(a, b)\n  submit a + b\nadd(1, 2)\n"
	prog := parseSource(t, src)
	if len(prog.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Stmts))
	}
	work, ok := prog.Stmts[0].(*ast.WorkStmt)
	if !ok {
		t.Fatalf("expected *ast.WorkStmt, got %T", prog.Stmts[0])
	}
	if len(work.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(work.Params))
	}
	exprStmt := prog.Stmts[1].(*ast.ExprStmt)
	call, ok := exprStmt.X.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected *ast.CallExpr, got %T", exprStmt.X)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
}

func TestParseInterpolatedString(t *testing.T) {
	prog := parseSource(t, `submit s"result: {x + 1}"` + "\n")
	sub, ok := prog.Stmts[0].(*ast.SubmitStmt)
	if !ok {
		t.Fatalf("expected *ast.SubmitStmt, got %T", prog.Stmts[0])
	}
	strLit, ok := sub.Value.(*ast.StringLit)
	if !ok {
		t.Fatalf("expected *ast.StringLit, got %T", sub.Value)
	}
	if len(strLit.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(strLit.Segments), strLit.Segments)
	}
	if strLit.Segments[0].Text != "result: " {
		t.Fatalf("first segment = %q", strLit.Segments[0].Text)
	}
	if strLit.Segments[1].Expr == nil {
		t.Fatalf("second segment should carry an embedded expression")
	}
}

func TestParseWriteToPath(t *testing.T) {
	prog := parseSource(t, `10.0 g -> |out\results.txt|` + "\n")
	exprStmt := prog.Stmts[0].(*ast.ExprStmt)
	conv, ok := exprStmt.X.(*ast.ConversionExpr)
	if !ok {
		t.Fatalf("expected *ast.ConversionExpr, got %T", exprStmt.X)
	}
	if conv.Target.Path == nil {
		t.Fatalf("expected a path target")
	}
}

func TestParseDuringLoop(t *testing.T) {
	prog := parseSource(t, "during x < 10\n  x += 1\n")
	during, ok := prog.Stmts[0].(*ast.DuringStmt)
	if !ok {
		t.Fatalf("expected *ast.DuringStmt, got %T", prog.Stmts[0])
	}
	if len(during.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(during.Body))
	}
}

func TestParseErrorRecoverySkipsBadLine(t *testing.T) {
	reg := units.NewRegistry()
	toks, err := lexer.Lex("= 5\nsubmit 1\n", reg)
	if err != nil {
		t.Fatalf("Lex error: %v", err)
	}
	prog, errs := parser.Parse(toks, reg)
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for a bare '='")
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected only the line after the bad one to parse, got %d statements", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*ast.SubmitStmt); !ok {
		t.Fatalf("expected *ast.SubmitStmt, got %T", prog.Stmts[0])
	}
}
