// Package clerror defines the closed taxonomy of evaluation errors CL
// surfaces to its single error channel, grounded on chemistry_lang's
// ch_error.py / ch_handler.py (a single CHError type routed through a
// CHErrorHandler) and generalized into concrete, typed errors per Go
// idiom.
package clerror

import (
	"fmt"

	"chemlang/pkg/token"
)

// Kind names one taxonomy member from spec.md §7.
type Kind string

const (
	KindScanError             Kind = "ScanError"
	KindParseError            Kind = "ParseError"
	KindUnknownIdentifier     Kind = "UnknownIdentifier"
	KindUnknownUnit           Kind = "UnknownUnit"
	KindUnknownElement        Kind = "UnknownElement"
	KindFormulaParseError     Kind = "FormulaParseError"
	KindIncompatibleUnits     Kind = "IncompatibleUnits"
	KindIncompatibleFormulas  Kind = "IncompatibleFormulas"
	KindDivisionByZero        Kind = "DivisionByZero"
	KindUnbalanceableReaction Kind = "UnbalanceableReaction"
	KindSpeciesNotInReaction  Kind = "SpeciesNotInReaction"
	KindArityError            Kind = "ArityError"
	KindTypeError             Kind = "TypeError"
)

// Error is the single concrete error type flowing through CL's evaluator.
// It carries the taxonomy Kind, a human-readable message, and the source
// position when one is available (it is omitted for errors raised from
// library code with no token in hand, e.g. a native builtin).
type Error struct {
	Kind Kind
	Msg  string
	Pos  *token.Pos
}

func (e *Error) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds a position-less error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds an error anchored to a source position.
func At(kind Kind, pos token.Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: &pos}
}

// Is reports whether err is a *Error of the given kind, so callers can
// branch on the taxonomy with errors.Is-style checks without a type
// assertion at every call site.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == kind
}
