// Package symbolic is the expression kernel behind the curvature engine.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat)
//   - Deterministic simplification and stable output
//   - A rational normal form strong enough to decide when a curvature
//     component vanishes identically
//   - Plain-text, LaTeX and JSON rendering
package symbolic

import (
	"errors"
	"fmt"
	"math/big"
)

// ============================================================
// Core Interface
// ============================================================

type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(varName string, value Expr) Expr
	Diff(varName string) Expr
	Eval() (*Num, bool)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

var (
	// ErrDivisionByZero is returned when a normal form would need to invert zero.
	ErrDivisionByZero = errors.New("symbolic: division by zero")

	// ErrUnboundSymbol is returned by EvalFloat for a symbol missing from the environment.
	ErrUnboundSymbol = errors.New("symbolic: unbound symbol")
)

// ============================================================
// Num: exact rational number
// ============================================================

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}
func NFloat(f float64) *Num { return &Num{val: new(big.Rat).SetFloat64(f)} }
func NRat(r *big.Rat) *Num  { return &Num{val: new(big.Rat).Set(r)} }

func (n *Num) Simplify() Expr        { return n }
func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Diff(string) Expr      { return N(0) }
func (n *Num) Eval() (*Num, bool)    { return n, true }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool           { return n.val.Cmp(big.NewRat(1, 1)) == 0 }
func (n *Num) IsNegOne() bool        { return n.val.Cmp(big.NewRat(-1, 1)) == 0 }
func (n *Num) IsInteger() bool       { return n.val.IsInt() }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }
func (n *Num) IsPositive() bool      { return n.val.Sign() > 0 }
func (n *Num) IsNegative() bool      { return n.val.Sign() < 0 }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
}

func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.String()}
}

// smallInt reports the value as an int when it is an integer of modest size.
func (n *Num) smallInt() (int, bool) {
	if !n.val.IsInt() || !n.val.Num().IsInt64() {
		return 0, false
	}
	v := n.val.Num().Int64()
	if v > 1<<20 || v < -(1<<20) {
		return 0, false
	}
	return int(v), true
}

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("symbolic: division by zero")
	}
	return &Num{val: new(big.Rat).Inv(a.val)}
}

// ============================================================
// Sym: symbolic variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) LaTeX() string {
	if greek, ok := greekLaTeX[s.name]; ok {
		return greek
	}
	return s.name
}
func (s *Sym) Eval() (*Num, bool) {
	return nil, false
}
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) Name() string          { return s.name }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}
func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}
func (s *Sym) Diff(varName string) Expr {
	if s.name == varName {
		return N(1)
	}
	return N(0)
}

var greekLaTeX = map[string]string{
	"alpha": `\alpha`, "beta": `\beta`, "gamma": `\gamma`, "delta": `\delta`,
	"epsilon": `\epsilon`, "theta": `\theta`, "kappa": `\kappa`, "lambda": `\lambda`,
	"Lambda": `\Lambda`, "mu": `\mu`, "nu": `\nu`, "rho": `\rho`, "sigma": `\sigma`,
	"tau": `\tau`, "phi": `\phi`, "chi": `\chi`, "psi": `\psi`, "omega": `\omega`,
	"Omega": `\Omega`, "pi": `\pi`,
}

// ============================================================
// Convenience constructors
// ============================================================

// Neg returns -e.
func Neg(e Expr) Expr { return MulOf(N(-1), e) }

// Minus returns a - b.
func Minus(a, b Expr) Expr { return AddOf(a, MulOf(N(-1), b)) }

// Quo returns a / b.
func Quo(a, b Expr) Expr { return MulOf(a, PowOf(b, N(-1))) }

// IsZeroNum reports whether e is the literal number zero. It never inspects
// structure beyond the node itself; use IsZero for semantic zero tests.
func IsZeroNum(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.IsZero()
}

func isNumEqual(e Expr, v int64) bool {
	n, ok := e.(*Num)
	return ok && n.Equal(N(v))
}
