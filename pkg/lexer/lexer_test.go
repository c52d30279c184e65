package lexer_test

import (
	"testing"

	"chemlang/pkg/lexer"
	"chemlang/pkg/token"
	"chemlang/pkg/units"
)

func typesOf(t *testing.T, toks []token.Token) []token.Type {
	t.Helper()
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func assertTypes(t *testing.T, src string, want []token.Type) []token.Token {
	t.Helper()
	reg := units.NewRegistry()
	toks, err := lexer.Lex(src, reg)
	if err != nil {
		t.Fatalf("Lex(%q) returned error: %v", src, err)
	}
	got := typesOf(t, toks)
	if len(got) != len(want) {
		t.Fatalf("Lex(%q) produced %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lex(%q)[%d] = %s, want %s", src, i, got[i], want[i])
		}
	}
	return toks
}

func TestLexNumberUnitFormula(t *testing.T) {
	assertTypes(t, "10.00 g H2O", []token.Type{
		token.NUMBER, token.UNIT, token.FORMULA, token.SEP, token.EOF,
	})
}

func TestLexUnitTakesPriorityOverIdentWhenNotElement(t *testing.T) {
	// "mol" is a unit, not an element symbol, so it should lex as UNIT.
	assertTypes(t, "5 mol", []token.Type{
		token.NUMBER, token.UNIT, token.SEP, token.EOF,
	})
}

func TestLexFormulaBeatsIdentForElementPrefixedRun(t *testing.T) {
	// "Na" is a formula (sodium), distinct from an identifier "Na2".
	toks := assertTypes(t, "Na2SO4", []token.Type{
		token.FORMULA, token.SEP, token.EOF,
	})
	if toks[0].Text != "Na2SO4" {
		t.Fatalf("formula lexeme = %q, want %q", toks[0].Text, "Na2SO4")
	}
}

func TestLexIdentifierFallsBackWhenNotAFormula(t *testing.T) {
	assertTypes(t, "concentration", []token.Type{
		token.IDENT, token.SEP, token.EOF,
	})
}

func TestLexArrowAndConversionTarget(t *testing.T) {
	assertTypes(t, "10.0 g -> mol", []token.Type{
		token.NUMBER, token.UNIT, token.ARROW, token.UNIT, token.SEP, token.EOF,
	})
}

func TestLexIndentation(t *testing.T) {
	src := "exam pass\n  submit 1\nsubmit 2\n"
	toks := assertTypes(t, src, []token.Type{
		token.EXAM, token.PASSKW, token.SEP,
		token.INDENT,
		token.SUBMIT, token.NUMBER, token.SEP,
		token.DEDENT,
		token.SUBMIT, token.NUMBER, token.SEP,
		token.EOF,
	})
	_ = toks
}

func TestLexCompoundAssignment(t *testing.T) {
	assertTypes(t, "x += 1", []token.Type{
		token.IDENT, token.PLUSEQ, token.NUMBER, token.SEP, token.EOF,
	})
}

func TestLexInterpolatedString(t *testing.T) {
	toks := assertTypes(t, `s"result: {x}"`, []token.Type{
		token.STRING, token.SEP, token.EOF,
	})
	payload, ok := toks[0].Val.(lexer.StringPayload)
	if !ok {
		t.Fatalf("STRING token value = %#v, want StringPayload", toks[0].Val)
	}
	if !payload.Interp() {
		t.Fatalf("expected interpolating string")
	}
	if payload.RawText() != "result: {x}" {
		t.Fatalf("raw text = %q", payload.RawText())
	}
}

func TestLexPlainStringDoesNotInterpolate(t *testing.T) {
	toks := assertTypes(t, `"plain {not an expr}"`, []token.Type{
		token.STRING, token.SEP, token.EOF,
	})
	payload := toks[0].Val.(lexer.StringPayload)
	if payload.Interp() {
		t.Fatalf("plain string must not interpolate")
	}
}

func TestLexDocstringDedents(t *testing.T) {
	src := "doc\n    line one\n    line two\n    done\n"
	toks := assertTypes(t, src, []token.Type{
		token.STRING, token.SEP, token.EOF,
	})
	payload := toks[0].Val.(lexer.StringPayload)
	want := "line one\nline two"
	if payload.RawText() != want {
		t.Fatalf("docstring body = %q, want %q", payload.RawText(), want)
	}
}

func TestLexQuotedPath(t *testing.T) {
	toks := assertTypes(t, `|out\results.txt|`, []token.Type{
		token.PATH, token.SEP, token.EOF,
	})
	if toks[0].Text != `out\results.txt` {
		t.Fatalf("path text = %q", toks[0].Text)
	}
}

func TestLexUnterminatedStringIsScanError(t *testing.T) {
	_, err := lexer.Lex(`"unterminated`, units.NewRegistry())
	if err == nil {
		t.Fatalf("expected a scan error for an unterminated string")
	}
}

func TestLexCommentRunsToEndOfLine(t *testing.T) {
	assertTypes(t, "ps this is ignored\nsubmit 1\n", []token.Type{
		token.SEP, token.SUBMIT, token.NUMBER, token.SEP, token.EOF,
	})
}
