package symbolic

import (
	"math"
	"strings"
)

// ============================================================
// Func: named function applications
// ============================================================

type Func struct {
	name string
	arg  Expr
}

func funcOf(name string, arg Expr) *Func { return &Func{name: name, arg: arg} }

func SinOf(arg Expr) Expr  { return funcOf("sin", arg).Simplify() }
func CosOf(arg Expr) Expr  { return funcOf("cos", arg).Simplify() }
func TanOf(arg Expr) Expr  { return funcOf("tan", arg).Simplify() }
func ExpOf(arg Expr) Expr  { return funcOf("exp", arg).Simplify() }
func LnOf(arg Expr) Expr   { return funcOf("ln", arg).Simplify() }
func SqrtOf(arg Expr) Expr { return PowOf(arg, F(1, 2)) }
func AbsOf(arg Expr) Expr  { return funcOf("abs", arg).Simplify() }
func SinhOf(arg Expr) Expr { return funcOf("sinh", arg).Simplify() }
func CoshOf(arg Expr) Expr { return funcOf("cosh", arg).Simplify() }
func TanhOf(arg Expr) Expr { return funcOf("tanh", arg).Simplify() }

// Fn applies an undefined function, such as the f(r) of a generic
// spherically symmetric metric. Its derivative is D[name](arg).
func Fn(name string, arg Expr) Expr { return funcOf(name, arg).Simplify() }

var latexFuncNames = map[string]string{
	"sin": `\sin`, "cos": `\cos`, "tan": `\tan`, "sinh": `\sinh`, "cosh": `\cosh`, "tanh": `\tanh`,
}

// Simplify folds a numeric argument only where the result is exact, so that
// symbolic results never pick up float noise.
func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	switch f.name {
	case "sin", "tan", "asin", "atan", "sinh", "tanh":
		if isNumEqual(arg, 0) {
			return N(0)
		}
		if m, ok := arg.(*Mul); ok && isNegCoeff(m) {
			// odd function: f(-u) = -f(u)
			return Neg(funcOf(f.name, Neg(arg)).Simplify())
		}
	case "cos", "cosh":
		if isNumEqual(arg, 0) {
			return N(1)
		}
		if m, ok := arg.(*Mul); ok && isNegCoeff(m) {
			return funcOf(f.name, Neg(arg)).Simplify()
		}
	case "ln":
		if n2, ok := arg.(*Num); ok && n2.IsOne() {
			return N(0)
		}
		if inner, ok := arg.(*Func); ok && inner.name == "exp" {
			return inner.arg
		}
	case "exp":
		if n2, ok := arg.(*Num); ok && n2.IsZero() {
			return N(1)
		}
		if inner, ok := arg.(*Func); ok && inner.name == "ln" {
			return inner.arg
		}
	case "abs":
		if n2, ok := arg.(*Num); ok {
			if n2.IsNegative() {
				return NRat(n2.Rat().Neg(n2.Rat()))
			}
			return n2
		}
		if m, ok := arg.(*Mul); ok && isNegCoeff(m) {
			return AbsOf(Neg(arg))
		}
	}
	return &Func{name: f.name, arg: arg}
}

func isNegCoeff(m *Mul) bool {
	c, ok := m.factors[0].(*Num)
	return ok && c.IsNegative()
}

func (f *Func) String() string { return f.name + "(" + f.arg.String() + ")" }

func (f *Func) LaTeX() string {
	switch f.name {
	case "sin", "cos", "tan", "exp", "ln", "sinh", "cosh", "tanh":
		return "\\" + f.name + "\\left(" + f.arg.LaTeX() + "\\right)"
	case "asin":
		return "\\arcsin\\left(" + f.arg.LaTeX() + "\\right)"
	case "acos":
		return "\\arccos\\left(" + f.arg.LaTeX() + "\\right)"
	case "atan":
		return "\\arctan\\left(" + f.arg.LaTeX() + "\\right)"
	case "abs":
		return "\\left|" + f.arg.LaTeX() + "\\right|"
	}
	if strings.HasPrefix(f.name, "D[") {
		// D[f](r) renders as f'(r), D[D[f]](r) as f''(r)
		inner, primes := f.name, ""
		for strings.HasPrefix(inner, "D[") && strings.HasSuffix(inner, "]") {
			inner = inner[2 : len(inner)-1]
			primes += "'"
		}
		return inner + "^{" + primes + "}\\left(" + f.arg.LaTeX() + "\\right)"
	}
	return f.name + "\\left(" + f.arg.LaTeX() + "\\right)"
}

func (f *Func) Sub(varName string, value Expr) Expr {
	return funcOf(f.name, f.arg.Sub(varName, value)).Simplify()
}

func (f *Func) Diff(varName string) Expr {
	du := f.arg.Diff(varName)
	if IsZeroNum(du) {
		return N(0)
	}
	var outer Expr
	switch f.name {
	case "sin":
		outer = CosOf(f.arg)
	case "cos":
		outer = MulOf(N(-1), SinOf(f.arg))
	case "tan":
		outer = AddOf(N(1), PowOf(TanOf(f.arg), N(2)))
	case "exp":
		outer = ExpOf(f.arg)
	case "ln":
		outer = PowOf(f.arg, N(-1))
	case "abs":
		outer = MulOf(f.arg, PowOf(AbsOf(f.arg), N(-1)))
	case "asin":
		outer = PowOf(AddOf(N(1), MulOf(N(-1), PowOf(f.arg, N(2)))), F(-1, 2))
	case "acos":
		outer = MulOf(N(-1), PowOf(AddOf(N(1), MulOf(N(-1), PowOf(f.arg, N(2)))), F(-1, 2)))
	case "atan":
		outer = PowOf(AddOf(N(1), PowOf(f.arg, N(2))), N(-1))
	case "sinh":
		outer = CoshOf(f.arg)
	case "cosh":
		outer = SinhOf(f.arg)
	case "tanh":
		outer = AddOf(N(1), MulOf(N(-1), PowOf(TanhOf(f.arg), N(2))))
	default:
		return MulOf(funcOf("D["+f.name+"]", f.arg), du)
	}
	return MulOf(outer, du)
}

func (f *Func) Eval() (*Num, bool) {
	n, ok := f.arg.Eval()
	if !ok {
		return nil, false
	}
	v, ok := evalFunc(f.name, n.Float64())
	if !ok {
		return nil, false
	}
	return NFloat(v), true
}

// evalFunc applies a built-in function to a float. It reports false for
// undefined functions and for results that are not finite.
func evalFunc(name string, x float64) (float64, bool) {
	var r float64
	switch name {
	case "sin":
		r = math.Sin(x)
	case "cos":
		r = math.Cos(x)
	case "tan":
		r = math.Tan(x)
	case "exp":
		r = math.Exp(x)
	case "ln":
		r = math.Log(x)
	case "abs":
		r = math.Abs(x)
	case "asin":
		r = math.Asin(x)
	case "acos":
		r = math.Acos(x)
	case "atan":
		r = math.Atan(x)
	case "sinh":
		r = math.Sinh(x)
	case "cosh":
		r = math.Cosh(x)
	case "tanh":
		r = math.Tanh(x)
	default:
		return 0, false
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && f.arg.Equal(o.arg)
}

func (f *Func) exprType() string { return "func" }
func (f *Func) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": f.name, "arg": f.arg.toJSON()}
}
