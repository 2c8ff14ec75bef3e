package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================
// Infix parser
// ============================================================

// ErrParse is returned for malformed expression text.
var ErrParse = errors.New("symbolic: parse error")

// Parse reads an infix expression such as "1 - 2*M/r" or
// "-r^2*sin(theta)^2". Supported: + - * / ^ (or **), unary minus,
// parentheses, decimal literals, identifiers and function calls. Calls to
// names without built-in rules become undefined functions.
func Parse(src string) (Expr, error) {
	p := &parser{src: src}
	p.next()
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return e.Simplify(), nil
}

// MustParse is Parse for literals known to be valid; it panics on error.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	off int
	tok token
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrParse, p.tok.pos, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) next() {
	for p.off < len(p.src) && unicode.IsSpace(rune(p.src[p.off])) {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.off]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for p.off < len(p.src) && (p.src[p.off] >= '0' && p.src[p.off] <= '9' || p.src[p.off] == '.') {
			p.off++
		}
		p.tok = token{kind: tokNum, text: p.src[start:p.off], pos: start}
	case c == '_' || isLetterAt(p.src, p.off):
		for p.off < len(p.src) {
			r, size := utf8.DecodeRuneInString(p.src[p.off:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			p.off += size
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	case c == '(':
		p.off++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.off++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case strings.HasPrefix(p.src[p.off:], "**"):
		p.off += 2
		p.tok = token{kind: tokOp, text: "^", pos: start}
	default:
		p.off++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	}
}

func isLetterAt(s string, off int) bool {
	r, _ := utf8.DecodeRuneInString(s[off:])
	return unicode.IsLetter(r)
}

func (p *parser) isOp(s string) bool { return p.tok.kind == tokOp && p.tok.text == s }

// expr := term (('+'|'-') term)*
func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for p.isOp("+") || p.isOp("-") {
		neg := p.isOp("-")
		p.next()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		if neg {
			t = &Mul{factors: []Expr{N(-1), t}}
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return &Add{terms: terms}, nil
}

// term := unary (('*'|'/') unary)*
func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{left}
	for p.isOp("*") || p.isOp("/") {
		div := p.isOp("/")
		p.next()
		f, err := p.unary()
		if err != nil {
			return nil, err
		}
		if div {
			f = &Pow{base: f, exp: N(-1)}
		}
		factors = append(factors, f)
	}
	if len(factors) == 1 {
		return left, nil
	}
	return &Mul{factors: factors}, nil
}

// unary := ('-'|'+') unary | power
func (p *parser) unary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		u, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Mul{factors: []Expr{N(-1), u}}, nil
	}
	if p.isOp("+") {
		p.next()
		return p.unary()
	}
	return p.power()
}

// power := primary ('^' unary)?, right associative
func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("^") {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Pow{base: base, exp: exp}, nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	switch p.tok.kind {
	case tokNum:
		text := p.tok.text
		r, ok := new(big.Rat).SetString(text)
		if !ok {
			return nil, p.errorf("bad number %q", text)
		}
		p.next()
		return &Num{val: r}, nil
	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind != tokLParen {
			return S(name), nil
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("expected ) after argument of %s", name)
		}
		p.next()
		return applyNamed(name, arg), nil
	case tokLParen:
		p.next()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("expected )")
		}
		p.next()
		return e, nil
	case tokEOF:
		return nil, p.errorf("unexpected end of input")
	}
	return nil, p.errorf("unexpected %q", p.tok.text)
}

func applyNamed(name string, arg Expr) Expr {
	switch name {
	case "sqrt":
		return &Pow{base: arg, exp: F(1, 2)}
	case "log":
		return funcOf("ln", arg)
	}
	return funcOf(name, arg)
}
