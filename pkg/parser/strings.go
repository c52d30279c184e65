package parser

import (
	"strings"

	"chemlang/pkg/ast"
	"chemlang/pkg/clerror"
	"chemlang/pkg/lexer"
	"chemlang/pkg/token"
)

// stringLitFromToken builds a StringLit from a STRING token's raw text,
// splitting it into literal and `{expr}` segments per spec.md §6's
// interpolating-string grammar. Plain strings (no `s` prefix, no `doc`
// block) yield a single literal segment with backslash escapes resolved.
func (p *Parser) stringLitFromToken(tok token.Token) (*ast.StringLit, error) {
	payload, ok := tok.Val.(lexer.StringPayload)
	if !ok {
		return &ast.StringLit{Base: ast.NewBase(tok.Pos), Segments: []ast.StringSegment{{Text: tok.Text}}}, nil
	}
	if !payload.Interp() {
		return &ast.StringLit{Base: ast.NewBase(tok.Pos), Segments: []ast.StringSegment{{Text: unescape(payload.RawText())}}}, nil
	}

	segments, err := p.splitInterpolated(payload.RawText(), tok.Pos)
	if err != nil {
		return nil, err
	}
	return &ast.StringLit{Base: ast.NewBase(tok.Pos), Segments: segments}, nil
}

// splitInterpolated walks raw looking for unescaped `{...}` spans,
// lexing and parsing each one as a nested expression; everything between
// spans is a literal text segment with escapes resolved.
func (p *Parser) splitInterpolated(raw string, pos token.Pos) ([]ast.StringSegment, error) {
	var segments []ast.StringSegment
	runes := []rune(raw)
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() > 0 {
			segments = append(segments, ast.StringSegment{Text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == '\\' && i+1 < len(runes):
			lit.WriteString(unescapeOne(runes[i+1]))
			i += 2
		case c == '{':
			depth := 1
			start := i + 1
			j := start
			for j < len(runes) && depth > 0 {
				switch runes[j] {
				case '\\':
					j++ // skip the escaped character too
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			if depth != 0 {
				return nil, clerror.At(clerror.KindParseError, pos, "unterminated '{' in interpolated string")
			}
			exprSrc := string(runes[start : j-1])
			expr, err := p.parseEmbeddedExpr(exprSrc, pos)
			if err != nil {
				return nil, err
			}
			flushLiteral()
			segments = append(segments, ast.StringSegment{Expr: expr})
			i = j
		default:
			lit.WriteRune(c)
			i++
		}
	}
	flushLiteral()
	if len(segments) == 0 {
		segments = append(segments, ast.StringSegment{Text: ""})
	}
	return segments, nil
}

// parseEmbeddedExpr lexes and parses one `{expr}` placeholder's source
// as a standalone expression, reusing the outer parser's unit registry.
func (p *Parser) parseEmbeddedExpr(src string, pos token.Pos) (ast.Expr, error) {
	toks, err := lexer.Lex(src, p.reg)
	if err != nil {
		return nil, err
	}
	sub := New(toks, p.reg)
	expr, err := sub.expr()
	if err != nil {
		return nil, clerror.At(clerror.KindParseError, pos, "invalid expression in string interpolation: %v", err)
	}
	return expr, nil
}

func unescape(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			b.WriteString(unescapeOne(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func unescapeOne(c rune) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\':
		return "\\"
	case '"':
		return "\""
	case '\'':
		return "'"
	case '{':
		return "{"
	case '}':
		return "}"
	default:
		return string(c)
	}
}
