// Package token defines the lexical tokens produced by pkg/lexer and
// consumed by pkg/parser.
package token

import "fmt"

// Type identifies a lexical token kind.
type Type int

const (
	EOF Type = iota
	SEP // statement separator: newline
	INDENT
	DEDENT

	IDENT
	NUMBER
	STRING
	PATH
	FORMULA
	UNIT

	// keywords
	NA
	EXAM
	MAKEUP
	FAIL
	REDO
	OF
	DURING
	WORK
	SUBMIT
	DONE
	DOC
	PASSKW // the literal keyword 'pass' used as a boolean literal

	// punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	COLON
	COMMA
	UNDERSCORE
	QUESTION
	TILDE

	// operators
	PLUS
	MINUS
	STAR
	STARSTAR
	SLASH
	PERCENT
	CARET
	BANG
	AMP
	PIPE
	EQ
	EQEQ
	BANGEQ
	LT
	LE
	GT
	GE
	ANDAND
	OROR
	ARROW // ->
	DOTS  // ...

	// compound assignment
	PLUSEQ
	MINUSEQ
	STAREQ
	SLASHEQ
	PERCENTEQ
	CARETEQ
	STARSTAREQ
)

var names = map[Type]string{
	EOF: "EOF", SEP: "SEP", INDENT: "INDENT", DEDENT: "DEDENT",
	IDENT: "identifier", NUMBER: "number", STRING: "string", PATH: "path",
	FORMULA: "formula", UNIT: "unit",
	NA: "na", EXAM: "exam", MAKEUP: "makeup", FAIL: "fail", REDO: "redo",
	OF: "of", DURING: "during", WORK: "work", SUBMIT: "submit", DONE: "done",
	DOC: "doc", PASSKW: "pass",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", COLON: ":", COMMA: ",",
	UNDERSCORE: "_", QUESTION: "?", TILDE: "~",
	PLUS: "+", MINUS: "-", STAR: "*", STARSTAR: "**", SLASH: "/", PERCENT: "%",
	CARET: "^", BANG: "!", AMP: "&", PIPE: "|", EQ: "=", EQEQ: "==", BANGEQ: "!=",
	LT: "<", LE: "<=", GT: ">", GE: ">=", ANDAND: "&&", OROR: "||",
	ARROW: "->", DOTS: "...",
	PLUSEQ: "+=", MINUSEQ: "-=", STAREQ: "*=", SLASHEQ: "/=", PERCENTEQ: "%=",
	CARETEQ: "^=", STARSTAREQ: "**=",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Keywords maps a scanned identifier run to its keyword token, when it is one.
var Keywords = map[string]Type{
	"na":     NA,
	"exam":   EXAM,
	"makeup": MAKEUP,
	"fail":   FAIL,
	"redo":   REDO,
	"of":     OF,
	"during": DURING,
	"work":   WORK,
	"submit": SUBMIT,
	"done":   DONE,
	"doc":    DOC,
	"pass":   PASSKW,
}

// CompoundAssignBase maps a compound-assignment token to the binary
// operator it desugars into.
var CompoundAssignBase = map[Type]Type{
	PLUSEQ:     PLUS,
	MINUSEQ:    MINUS,
	STAREQ:     STAR,
	SLASHEQ:    SLASH,
	PERCENTEQ:  PERCENT,
	CARETEQ:    CARET,
	STARSTAREQ: STARSTAR,
}

// Pos identifies a source location for error reporting.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a single lexical token together with its literal value (when
// applicable) and source position.
type Token struct {
	Type Type
	Text string // raw lexeme
	Val  any    // decoded literal: *decimal-ready string, Formula, etc. interpreted by the parser
	Pos  Pos
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Type, t.Text, t.Pos)
	}
	return fmt.Sprintf("%s@%s", t.Type, t.Pos)
}
