package symbolic

import (
	"math"
	"sort"
	"strings"
)

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	numAccum := N(0)
	coeffs := map[string]*Num{}
	rests := map[string]Expr{}
	symOrder := []string{}
	otherOrder := []string{}
	for _, t := range flat {
		if v, ok := t.(*Num); ok {
			numAccum = numAdd(numAccum, v)
			continue
		}
		coeff, rest := extractCoefficient(t)
		key := rest.String()
		if _, seen := coeffs[key]; !seen {
			coeffs[key] = N(0)
			rests[key] = rest
			if _, isSym := rest.(*Sym); isSym {
				symOrder = append(symOrder, key)
			} else {
				otherOrder = append(otherOrder, key)
			}
		}
		coeffs[key] = numAdd(coeffs[key], coeff)
	}
	sort.Strings(symOrder)
	result := []Expr{}
	for _, key := range append(symOrder, otherOrder...) {
		coeff := coeffs[key]
		switch {
		case coeff.IsZero():
			continue
		case coeff.IsOne():
			result = append(result, rests[key])
		default:
			result = append(result, MulOf(coeff, rests[key]))
		}
	}
	if !numAccum.IsZero() {
		result = append(result, numAccum)
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) LaTeX() string {
	var sb strings.Builder
	for i, t := range a.terms {
		s := t.LaTeX()
		if i > 0 {
			if strings.HasPrefix(s, "-") {
				sb.WriteString(" - ")
				s = s[1:]
			} else {
				sb.WriteString(" + ")
			}
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) Eval() (*Num, bool) {
	acc := N(0)
	for _, t := range a.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// powerGroup accumulates the exponents seen for one base.
type powerGroup struct {
	base Expr
	exps []Expr
}

func (m *Mul) Simplify() Expr {
	queue := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		queue = append(queue, f.Simplify())
	}
	coeff := N(1)
	var others []Expr
	// Combining powers can produce numbers or products that need another
	// pass, e.g. (x*y)^(1/2) * (x*y)^(1/2).
	for round := 0; round < 4; round++ {
		groups := map[string]*powerGroup{}
		order := []string{}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			switch v := f.(type) {
			case *Num:
				coeff = numMul(coeff, v)
				continue
			case *Mul:
				queue = append(queue, v.factors...)
				continue
			}
			base, exp := f, Expr(N(1))
			if p, ok := f.(*Pow); ok {
				base, exp = p.base, p.exp
			}
			key := base.String()
			g, seen := groups[key]
			if !seen {
				g = &powerGroup{base: base}
				groups[key] = g
				order = append(order, key)
			}
			g.exps = append(g.exps, exp)
		}
		if coeff.IsZero() {
			return N(0)
		}
		others = others[:0]
		again := false
		for _, key := range order {
			g := groups[key]
			var combined Expr
			if len(g.exps) == 1 {
				combined = PowOf(g.base, g.exps[0])
			} else {
				combined = PowOf(g.base, AddOf(g.exps...))
			}
			switch v := combined.(type) {
			case *Num:
				coeff = numMul(coeff, v)
			case *Mul:
				queue = append(queue, v.factors...)
				again = true
			default:
				others = append(others, combined)
			}
		}
		if !again {
			break
		}
		queue = append(queue, others...)
		others = nil
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, len(others))
	for i, e := range others {
		ks[i] = keyed{e: e, key: e.String()}
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	sorted := make([]Expr, len(ks))
	for i := range ks {
		sorted[i] = ks[i].e
	}

	if coeff.IsOne() {
		if len(sorted) == 1 {
			return sorted[0]
		}
		return &Mul{factors: sorted}
	}
	return &Mul{factors: append([]Expr{coeff}, sorted...)}
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		_, isAdd := f.(*Add)
		if isAdd {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (m *Mul) LaTeX() string {
	var num, den []string
	sign := ""
	for i, f := range m.factors {
		if n, ok := f.(*Num); ok && i == 0 {
			switch {
			case n.IsNegOne():
				sign = "-"
				continue
			case n.IsNegative():
				sign = "-"
				num = append(num, NRat(n.Rat().Neg(n.Rat())).LaTeX())
				continue
			}
		}
		if p, ok := f.(*Pow); ok {
			if en, ok2 := p.exp.(*Num); ok2 && en.IsNegative() {
				inv := PowOf(p.base, NRat(en.Rat().Neg(en.Rat())))
				den = append(den, latexFactor(inv))
				continue
			}
		}
		num = append(num, latexFactor(f))
	}
	numStr := strings.Join(num, " ")
	if numStr == "" {
		numStr = "1"
	}
	if len(den) == 0 {
		return sign + numStr
	}
	return sign + "\\frac{" + numStr + "}{" + strings.Join(den, " ") + "}"
}

func latexFactor(f Expr) string {
	if _, isAdd := f.(*Add); isAdd {
		return "\\left(" + f.LaTeX() + "\\right)"
	}
	return f.LaTeX()
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, 0, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		if IsZeroNum(dfi) {
			continue
		}
		others := make([]Expr, 0, len(m.factors))
		others = append(others, dfi)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms = append(terms, MulOf(others...))
	}
	return AddOf(terms...)
}

func (m *Mul) Eval() (*Num, bool) {
	acc := N(1)
	for _, f := range m.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}

func extractCoefficient(e Expr) (*Num, Expr) {
	if m, ok := e.(*Mul); ok && len(m.factors) >= 2 {
		if coeff, ok2 := m.factors[0].(*Num); ok2 {
			rest := m.factors[1:]
			if len(rest) == 1 {
				return coeff, rest[0]
			}
			return coeff, &Mul{factors: rest}
		}
	}
	return N(1), e
}

// ============================================================
// Pow: base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	en, expIsNum := exp.(*Num)
	if expIsNum && en.IsZero() {
		return N(1)
	}
	if expIsNum && en.IsOne() {
		return base
	}

	// Handle 0^exp carefully.
	if bn, ok := base.(*Num); ok && bn.IsZero() {
		if expIsNum && (en.IsZero() || en.IsNegative()) {
			// 0^0 is indeterminate; 0^negative is division by zero.
			return &Pow{base: base, exp: exp}
		}
		return N(0)
	}

	if bn, ok := base.(*Num); ok && bn.IsOne() {
		return N(1)
	}
	if bn, ok := base.(*Num); ok && expIsNum && en.IsInteger() {
		if e, small := en.smallInt(); small && e >= -64 && e <= 64 {
			result := N(1)
			for i := 0; i < abs(e); i++ {
				result = numMul(result, bn)
			}
			if e < 0 {
				return numRecip(result)
			}
			return result
		}
	}
	if inner, ok := base.(*Pow); ok {
		return PowOf(inner.base, MulOf(inner.exp, exp))
	}
	if m, ok := base.(*Mul); ok && expIsNum && en.IsInteger() {
		factors := make([]Expr, len(m.factors))
		for i, f := range m.factors {
			factors[i] = PowOf(f, exp)
		}
		return MulOf(factors...)
	}
	return &Pow{base: base, exp: exp}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (p *Pow) String() string {
	baseStr := p.base.String()
	expStr := p.exp.String()
	switch p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "(" + baseStr + ")"
	case *Num:
		if !p.base.(*Num).IsInteger() || p.base.(*Num).IsNegative() {
			baseStr = "(" + baseStr + ")"
		}
	}
	switch v := p.exp.(type) {
	case *Add, *Mul, *Pow:
		expStr = "(" + expStr + ")"
	case *Num:
		if !v.IsInteger() || v.IsNegative() {
			expStr = "(" + expStr + ")"
		}
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	if en, ok := p.exp.(*Num); ok && en.Equal(F(1, 2)) {
		return "\\sqrt{" + p.base.LaTeX() + "}"
	}
	baseStr := p.base.LaTeX()
	expStr := p.exp.LaTeX()
	switch p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	if f, ok := p.base.(*Func); ok {
		// sin^2(x) rather than sin(x)^2
		if en, ok2 := p.exp.(*Num); ok2 && en.IsInteger() && en.IsPositive() {
			if name, known := latexFuncNames[f.name]; known {
				return name + "^{" + expStr + "}\\left(" + f.arg.LaTeX() + "\\right)"
			}
		}
	}
	return baseStr + "^{" + expStr + "}"
}

func (p *Pow) Sub(varName string, value Expr) Expr {
	return PowOf(p.base.Sub(varName, value), p.exp.Sub(varName, value))
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	_, expIsNum := p.exp.(*Num)
	if expIsNum {
		if IsZeroNum(du) {
			return N(0)
		}
		newExp := AddOf(p.exp, N(-1))
		return MulOf(p.exp, PowOf(p.base, newExp), du)
	}
	_, baseIsNum := p.base.(*Num)
	if baseIsNum {
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	logTerm := MulOf(dv, LnOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval() (*Num, bool) {
	b, ok1 := p.base.Eval()
	e, ok2 := p.exp.Eval()
	if ok1 && ok2 {
		pf := math.Pow(b.Float64(), e.Float64())
		if math.IsNaN(pf) || math.IsInf(pf, 0) {
			return nil, false
		}
		return NFloat(pf), true
	}
	return nil, false
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
