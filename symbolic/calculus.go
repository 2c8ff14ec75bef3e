package symbolic

import (
	"fmt"
	"math"
	"sort"
)

// ============================================================
// Top-level convenience functions
// ============================================================

func Simplify(e Expr) Expr { return e.Simplify() }
func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

func Sub(expr Expr, varName string, value Expr) Expr {
	return expr.Sub(varName, value).Simplify()
}

// SubAll substitutes every binding in env. Bindings are applied in name
// order so the result does not depend on map iteration.
func SubAll(expr Expr, env map[string]Expr) Expr {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		expr = expr.Sub(name, env[name])
	}
	return expr.Simplify()
}

func Diff(expr Expr, varName string) Expr {
	return expr.Diff(varName).Simplify()
}

func DiffN(expr Expr, varName string, n int) Expr {
	result := expr
	for i := 0; i < n; i++ {
		result = Diff(result, varName)
	}
	return result
}

func Expand(e Expr) Expr { return expandExpr(e).Simplify() }

func expandExpr(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		expanded := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			expanded[i] = expandExpr(f)
		}
		for i, f := range expanded {
			if a, ok := f.(*Add); ok {
				rest := make([]Expr, 0, len(expanded)-1)
				for j, ef := range expanded {
					if j != i {
						rest = append(rest, ef)
					}
				}
				terms := make([]Expr, len(a.terms))
				for k, t := range a.terms {
					terms[k] = expandExpr(MulOf(append([]Expr{t}, rest...)...))
				}
				return expandExpr(AddOf(terms...))
			}
		}
		return MulOf(expanded...)
	case *Add:
		newTerms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			newTerms[i] = expandExpr(t)
		}
		return AddOf(newTerms...)
	case *Pow:
		if n, ok := v.exp.(*Num); ok && n.IsInteger() {
			exp := n.val.Num().Int64()
			if exp >= 0 && exp <= 10 {
				result := Expr(N(1))
				base := expandExpr(v.base)
				for i := int64(0); i < exp; i++ {
					result = expandExpr(MulOf(result, base))
				}
				return result
			}
		}
		return PowOf(expandExpr(v.base), expandExpr(v.exp))
	}
	return e
}

// ============================================================
// Free Symbols
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

// SortedSymbols returns the free symbol names of e in ascending order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	}
}

// ============================================================
// Numeric evaluation
// ============================================================

// EvalFloat evaluates e with the symbols bound in env. A symbol missing from
// env yields ErrUnboundSymbol.
func EvalFloat(e Expr, env map[string]float64) (float64, error) {
	switch v := e.(type) {
	case *Num:
		return v.Float64(), nil
	case *Sym:
		x, ok := env[v.name]
		if !ok {
			return 0, fmt.Errorf("%q: %w", v.name, ErrUnboundSymbol)
		}
		return x, nil
	case *Add:
		acc := 0.0
		for _, t := range v.terms {
			x, err := EvalFloat(t, env)
			if err != nil {
				return 0, err
			}
			acc += x
		}
		return acc, nil
	case *Mul:
		acc := 1.0
		for _, f := range v.factors {
			x, err := EvalFloat(f, env)
			if err != nil {
				return 0, err
			}
			acc *= x
		}
		return acc, nil
	case *Pow:
		b, err := EvalFloat(v.base, env)
		if err != nil {
			return 0, err
		}
		x, err := EvalFloat(v.exp, env)
		if err != nil {
			return 0, err
		}
		return math.Pow(b, x), nil
	case *Func:
		x, err := EvalFloat(v.arg, env)
		if err != nil {
			return 0, err
		}
		r, ok := evalFunc(v.name, x)
		if !ok {
			return 0, fmt.Errorf("cannot evaluate %s at %g", v.name, x)
		}
		return r, nil
	}
	return 0, fmt.Errorf("cannot evaluate %T", e)
}
