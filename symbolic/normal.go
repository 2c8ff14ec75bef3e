package symbolic

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Rational normal form
// ============================================================
//
// An expression is brought to P/Q where P is a polynomial over atoms
// (symbols, function applications, roots and symbolic powers) and Q is a
// monomial times a product of canonical polynomial factors. Canonical
// factors have no monomial content and a leading coefficient of one under
// lexicographic order, so equal factors always share a key.

const (
	maxIntPow   = 32
	maxRootDen  = 16
	maxDivSteps = 100000
)

// Normalize rewrites e into rational normal form. The result is
// deterministic and Normalize(Normalize(e)) equals Normalize(e). When e
// cannot be brought to normal form (for example because it divides by a
// quantity that normalizes to zero) the plain simplification is returned.
func Normalize(e Expr) Expr {
	out, err := NormalForm(e)
	if err != nil {
		return e.Simplify()
	}
	return out
}

// NormalForm is Normalize with the failure reported.
func NormalForm(e Expr) (Expr, error) {
	if n, ok := e.(*Num); ok {
		return n, nil
	}
	nz := newNormalizer()
	r, err := nz.fromExpr(e)
	if err != nil {
		return nil, err
	}
	return nz.toExpr(r), nil
}

// IsZero reports whether e vanishes identically, as decided by the
// numerator of its normal form. Integer powers beyond maxIntPow and roots
// deeper than maxRootDen are not expanded but kept as opaque atoms, so
// (x+1)^33 - (x^2+2*x+1)*(x+1)^31 is not recognized as zero. It also
// reports false when e has no normal form.
func IsZero(e Expr) bool {
	if n, ok := e.(*Num); ok {
		return n.IsZero()
	}
	nz := newNormalizer()
	r, err := nz.fromExpr(e)
	if err != nil {
		return false
	}
	return len(r.num) == 0
}

// Equivalent reports whether a - b vanishes identically.
func Equivalent(a, b Expr) bool { return IsZero(Minus(a, b)) }

// ============================================================
// Monomials
// ============================================================

type atomPow struct {
	key string
	exp int
}

// monomial is a product of atom powers sorted by key, all exponents positive.
type monomial []atomPow

func (m monomial) key() string {
	var sb strings.Builder
	for i, a := range m {
		if i > 0 {
			sb.WriteByte('\x00')
		}
		sb.WriteString(a.key)
		sb.WriteByte('\x01')
		sb.WriteString(strconv.Itoa(a.exp))
	}
	return sb.String()
}

func (m monomial) exp(key string) int {
	for _, a := range m {
		if a.key == key {
			return a.exp
		}
	}
	return 0
}

func monoMul(a, b monomial) monomial {
	out := make(monomial, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].key < b[j].key:
			out = append(out, a[i])
			i++
		case a[i].key > b[j].key:
			out = append(out, b[j])
			j++
		default:
			out = append(out, atomPow{a[i].key, a[i].exp + b[j].exp})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// monoDiv returns a/b when b divides a.
func monoDiv(a, b monomial) (monomial, bool) {
	out := make(monomial, 0, len(a))
	j := 0
	for _, x := range a {
		if j < len(b) && b[j].key < x.key {
			return nil, false
		}
		if j < len(b) && b[j].key == x.key {
			d := x.exp - b[j].exp
			if d < 0 {
				return nil, false
			}
			if d > 0 {
				out = append(out, atomPow{x.key, d})
			}
			j++
			continue
		}
		out = append(out, x)
	}
	if j < len(b) {
		return nil, false
	}
	return out, true
}

func monoGCD(a, b monomial) monomial {
	var out monomial
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].key < b[j].key:
			i++
		case a[i].key > b[j].key:
			j++
		default:
			out = append(out, atomPow{a[i].key, min(a[i].exp, b[j].exp)})
			i++
			j++
		}
	}
	return out
}

func monoLCM(a, b monomial) monomial {
	out := make(monomial, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].key < b[j].key:
			out = append(out, a[i])
			i++
		case a[i].key > b[j].key:
			out = append(out, b[j])
			j++
		default:
			out = append(out, atomPow{a[i].key, max(a[i].exp, b[j].exp)})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// monoCmp orders monomials lexicographically, the atom with the smallest
// key being the most significant.
func monoCmp(a, b monomial) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].key < b[j].key:
			return 1
		case a[i].key > b[j].key:
			return -1
		case a[i].exp > b[j].exp:
			return 1
		case a[i].exp < b[j].exp:
			return -1
		}
		i++
		j++
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// ============================================================
// Polynomials
// ============================================================

type term struct {
	mono  monomial
	coeff *big.Rat
}

// poly maps a monomial key to its term. Zero terms are never stored.
type poly map[string]*term

func constPoly(r *big.Rat) poly {
	p := poly{}
	p.addTerm(nil, r)
	return p
}

func (p poly) addTerm(m monomial, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	k := m.key()
	if t, ok := p[k]; ok {
		sum := new(big.Rat).Add(t.coeff, c)
		if sum.Sign() == 0 {
			delete(p, k)
			return
		}
		t.coeff = sum
		return
	}
	p[k] = &term{mono: m, coeff: new(big.Rat).Set(c)}
}

// addScaled adds c*m*src to p.
func (p poly) addScaled(src poly, c *big.Rat, m monomial) {
	for _, t := range src {
		p.addTerm(monoMul(t.mono, m), new(big.Rat).Mul(t.coeff, c))
	}
}

func polyAdd(a, b poly) poly {
	out := poly{}
	one := big.NewRat(1, 1)
	out.addScaled(a, one, nil)
	out.addScaled(b, one, nil)
	return out
}

func polyMul(a, b poly) poly {
	out := poly{}
	for _, t := range a {
		out.addScaled(b, t.coeff, t.mono)
	}
	return out
}

func polyScale(p poly, c *big.Rat, m monomial) poly {
	out := poly{}
	out.addScaled(p, c, m)
	return out
}

func polyPow(p poly, k int) poly {
	out := constPoly(big.NewRat(1, 1))
	for i := 0; i < k; i++ {
		out = polyMul(out, p)
	}
	return out
}

// sorted returns the terms in descending monomial order.
func (p poly) sorted() []*term {
	ts := make([]*term, 0, len(p))
	for _, t := range p {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return monoCmp(ts[i].mono, ts[j].mono) > 0 })
	return ts
}

func (p poly) lead() *term {
	var best *term
	for _, t := range p {
		if best == nil || monoCmp(t.mono, best.mono) > 0 {
			best = t
		}
	}
	return best
}

// content is the greatest monomial dividing every term.
func (p poly) content() monomial {
	first := true
	var g monomial
	for _, t := range p {
		if first {
			g = t.mono
			first = false
			continue
		}
		g = monoGCD(g, t.mono)
		if len(g) == 0 {
			return nil
		}
	}
	return g
}

func (p poly) divMono(m monomial) poly {
	if len(m) == 0 {
		return p
	}
	out := poly{}
	for _, t := range p {
		q, ok := monoDiv(t.mono, m)
		if !ok {
			panic("symbolic: monomial does not divide polynomial")
		}
		out.addTerm(q, t.coeff)
	}
	return out
}

func (p poly) key() string {
	var sb strings.Builder
	for i, t := range p.sorted() {
		if i > 0 {
			sb.WriteByte('\x02')
		}
		sb.WriteString(t.coeff.RatString())
		sb.WriteByte('\x03')
		sb.WriteString(t.mono.key())
	}
	return sb.String()
}

// polyDivExact returns p/d when d divides p exactly.
func polyDivExact(p, d poly) (poly, bool) {
	if len(d) == 0 {
		return nil, false
	}
	ld := d.lead()
	rem := polyScale(p, big.NewRat(1, 1), nil)
	q := poly{}
	for steps := 0; len(rem) > 0; steps++ {
		if steps > maxDivSteps {
			return nil, false
		}
		lr := rem.lead()
		m, ok := monoDiv(lr.mono, ld.mono)
		if !ok {
			return nil, false
		}
		c := new(big.Rat).Quo(lr.coeff, ld.coeff)
		q.addTerm(m, c)
		rem.addScaled(d, new(big.Rat).Neg(c), m)
	}
	return q, true
}

// ============================================================
// Rational functions
// ============================================================

type factor struct {
	p    poly
	mult int
}

type ratfn struct {
	num  poly
	den  monomial
	facs map[string]*factor
}

func (r *ratfn) isZero() bool { return len(r.num) == 0 }

func (r *ratfn) isPoly() bool { return len(r.den) == 0 && len(r.facs) == 0 }

func (r *ratfn) factorKeys() []string {
	keys := make([]string, 0, len(r.facs))
	for k := range r.facs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ratConst(c *big.Rat) *ratfn {
	return &ratfn{num: constPoly(c), facs: map[string]*factor{}}
}

type rootInfo struct {
	q        int
	radicand poly // nil unless the radicand is a polynomial
}

type normalizer struct {
	atoms map[string]Expr
	roots map[string]rootInfo
}

func newNormalizer() *normalizer {
	return &normalizer{atoms: map[string]Expr{}, roots: map[string]rootInfo{}}
}

func (nz *normalizer) atom(key string, e Expr, exp int) *ratfn {
	nz.atoms[key] = e
	r := ratConst(big.NewRat(1, 1))
	if exp == 0 {
		return r
	}
	r.num = poly{}
	r.num.addTerm(monomial{{key, exp}}, big.NewRat(1, 1))
	return r
}

func (nz *normalizer) fromExpr(e Expr) (*ratfn, error) {
	switch v := e.(type) {
	case *Num:
		return ratConst(v.val), nil
	case *Sym:
		return nz.atom("s:"+v.name, v, 1), nil
	case *Add:
		acc := ratConst(new(big.Rat))
		for _, t := range v.terms {
			r, err := nz.fromExpr(t)
			if err != nil {
				return nil, err
			}
			acc = nz.add(acc, r)
		}
		return acc, nil
	case *Mul:
		acc := ratConst(big.NewRat(1, 1))
		for _, f := range v.factors {
			r, err := nz.fromExpr(f)
			if err != nil {
				return nil, err
			}
			if r.isZero() {
				return r, nil
			}
			acc = nz.mul(acc, r)
		}
		return acc, nil
	case *Pow:
		return nz.fromPow(v)
	case *Func:
		return nz.fromFunc(v)
	}
	return nil, fmt.Errorf("normal form of %T is not supported", e)
}

func (nz *normalizer) fromPow(v *Pow) (*ratfn, error) {
	if en, ok := v.exp.(*Num); ok {
		num, den := en.val.Num(), en.val.Denom()
		if num.IsInt64() && den.IsInt64() && den.Int64() <= maxRootDen {
			p, q := int(num.Int64()), int(den.Int64())
			base, err := nz.fromExpr(v.base)
			if err != nil {
				return nil, err
			}
			if q == 1 && abs(p) <= maxIntPow {
				return nz.intPow(base, p)
			}
			if q > 1 && abs(p/q) <= maxIntPow {
				return nz.rootPow(base, p, q)
			}
		}
	}
	// Symbolic exponent: the whole power is an atom.
	b, err := nz.fromExpr(v.base)
	if err != nil {
		return nil, err
	}
	x, err := nz.fromExpr(v.exp)
	if err != nil {
		return nil, err
	}
	pe := &Pow{base: nz.toExpr(b), exp: nz.toExpr(x)}
	return nz.atom("g:"+pe.String(), pe, 1), nil
}

func (nz *normalizer) intPow(base *ratfn, k int) (*ratfn, error) {
	if k < 0 {
		inv, err := nz.inv(base)
		if err != nil {
			return nil, err
		}
		base, k = inv, -k
	}
	out := ratConst(big.NewRat(1, 1))
	for i := 0; i < k; i++ {
		out = nz.mul(out, base)
	}
	return out, nil
}

// rootPow handles base^(p/q) as base^w * root^rem with 0 <= rem < q.
func (nz *normalizer) rootPow(base *ratfn, p, q int) (*ratfn, error) {
	if base.isZero() {
		if p < 0 {
			return nil, ErrDivisionByZero
		}
		return base, nil
	}
	w := p / q
	rem := p % q
	if rem < 0 {
		rem += q
		w--
	}
	radicand := nz.toExpr(base)
	root := &Pow{base: radicand, exp: F(1, int64(q))}
	key := "r" + strconv.Itoa(q) + ":" + radicand.String()
	info := rootInfo{q: q}
	if base.isPoly() {
		info.radicand = base.num
	}
	nz.roots[key] = info
	out := nz.atom(key, root, rem)
	if w != 0 {
		bw, err := nz.intPow(base, w)
		if err != nil {
			return nil, err
		}
		out = nz.mul(out, bw)
	}
	return out, nil
}

func (nz *normalizer) fromFunc(v *Func) (*ratfn, error) {
	if v.name == "tan" {
		return nz.fromExpr(Quo(SinOf(v.arg), CosOf(v.arg)))
	}
	ar, err := nz.fromExpr(v.arg)
	if err != nil {
		return nil, err
	}
	s := funcOf(v.name, nz.toExpr(ar)).Simplify()
	f, ok := s.(*Func)
	if !ok {
		return nz.fromExpr(s)
	}
	return nz.atom("f:"+f.String(), f, 1), nil
}

// ============================================================
// Field operations
// ============================================================

func (nz *normalizer) mul(a, b *ratfn) *ratfn {
	if a.isZero() || b.isZero() {
		return ratConst(new(big.Rat))
	}
	r := &ratfn{
		num:  polyMul(a.num, b.num),
		den:  monoMul(a.den, b.den),
		facs: map[string]*factor{},
	}
	for _, src := range []*ratfn{a, b} {
		for k, f := range src.facs {
			if g, ok := r.facs[k]; ok {
				g.mult += f.mult
			} else {
				r.facs[k] = &factor{p: f.p, mult: f.mult}
			}
		}
	}
	return nz.reduce(r)
}

func (nz *normalizer) add(a, b *ratfn) *ratfn {
	if a.isZero() {
		return b
	}
	if b.isZero() {
		return a
	}
	r := &ratfn{den: monoLCM(a.den, b.den), facs: map[string]*factor{}}
	for _, src := range []*ratfn{a, b} {
		for k, f := range src.facs {
			if g, ok := r.facs[k]; ok {
				g.mult = max(g.mult, f.mult)
			} else {
				r.facs[k] = &factor{p: f.p, mult: f.mult}
			}
		}
	}
	r.num = polyAdd(nz.lift(a, r), nz.lift(b, r))
	return nz.reduce(r)
}

// lift rewrites the numerator of src over the common denominator of dst.
func (nz *normalizer) lift(src, dst *ratfn) poly {
	m, _ := monoDiv(dst.den, src.den)
	out := polyScale(src.num, big.NewRat(1, 1), m)
	for _, k := range dst.factorKeys() {
		f := dst.facs[k]
		have := 0
		if g, ok := src.facs[k]; ok {
			have = g.mult
		}
		if f.mult > have {
			out = polyMul(out, polyPow(f.p, f.mult-have))
		}
	}
	return out
}

func (nz *normalizer) inv(a *ratfn) (*ratfn, error) {
	if a.isZero() {
		return nil, ErrDivisionByZero
	}
	num := poly{}
	num.addTerm(a.den, big.NewRat(1, 1))
	for _, k := range a.factorKeys() {
		f := a.facs[k]
		num = polyMul(num, polyPow(f.p, f.mult))
	}
	r := &ratfn{num: num, facs: map[string]*factor{}}
	if err := nz.divPoly(r, a.num); err != nil {
		return nil, err
	}
	return nz.reduce(r), nil
}

// divPoly divides r by p in place, splitting p into monomial content,
// known factors and one new canonical factor.
func (nz *normalizer) divPoly(r *ratfn, p poly) error {
	p = nz.pythagorean(nz.foldRoots(p))
	if len(p) == 0 {
		return ErrDivisionByZero
	}
	if c := p.content(); len(c) > 0 {
		p = p.divMono(c)
		r.den = monoMul(r.den, c)
	}
	if len(p) > 1 {
		for _, k := range r.factorKeys() {
			f := r.facs[k]
			for len(p) > 1 {
				q, ok := polyDivExact(p, f.p)
				if !ok {
					break
				}
				p = q
				f.mult++
			}
		}
	}
	lc := p.lead().coeff
	inv := new(big.Rat).Inv(lc)
	r.num = polyScale(r.num, inv, nil)
	if len(p) > 1 {
		p = polyScale(p, inv, nil)
		k := p.key()
		if f, ok := r.facs[k]; ok {
			f.mult++
		} else {
			r.facs[k] = &factor{p: p, mult: 1}
		}
	}
	return nil
}

func (nz *normalizer) reduce(r *ratfn) *ratfn {
	r.num = nz.pythagorean(nz.foldRoots(r.num))
	if r.isZero() {
		return ratConst(new(big.Rat))
	}
	for _, a := range r.den {
		info, ok := nz.roots[a.key]
		if !ok || info.radicand == nil || a.exp < info.q {
			continue
		}
		r.den, _ = monoDiv(r.den, monomial{{a.key, info.q}})
		if err := nz.divPoly(r, info.radicand); err != nil {
			break
		}
		return nz.reduce(r)
	}
	for _, k := range r.factorKeys() {
		f := r.facs[k]
		for f.mult > 0 {
			q, ok := polyDivExact(r.num, f.p)
			if !ok {
				break
			}
			r.num = q
			f.mult--
		}
		if f.mult == 0 {
			delete(r.facs, k)
		}
	}
	if g := monoGCD(r.num.content(), r.den); len(g) > 0 {
		r.num = r.num.divMono(g)
		r.den, _ = monoDiv(r.den, g)
	}
	return r
}

// foldRoots replaces root^q by its polynomial radicand.
func (nz *normalizer) foldRoots(p poly) poly {
	if len(nz.roots) == 0 {
		return p
	}
	for changed := true; changed; {
		changed = false
		out := poly{}
		for _, t := range p {
			folded := false
			for _, a := range t.mono {
				info, ok := nz.roots[a.key]
				if !ok || info.radicand == nil || a.exp < info.q {
					continue
				}
				rest, _ := monoDiv(t.mono, monomial{{a.key, info.q}})
				out.addScaled(info.radicand, t.coeff, rest)
				folded = true
				break
			}
			if folded {
				changed = true
			} else {
				out.addTerm(t.mono, t.coeff)
			}
		}
		p = out
	}
	return p
}

// pythagorean rewrites cos(u)^2 as 1 - sin(u)^2 until no cosine appears
// squared.
func (nz *normalizer) pythagorean(p poly) poly {
	for changed := true; changed; {
		changed = false
		out := poly{}
		for _, t := range p {
			cosKey := ""
			for _, a := range t.mono {
				if a.exp >= 2 && strings.HasPrefix(a.key, "f:cos(") {
					cosKey = a.key
					break
				}
			}
			if cosKey == "" {
				out.addTerm(t.mono, t.coeff)
				continue
			}
			changed = true
			sinKey := nz.sinFor(cosKey)
			rest, _ := monoDiv(t.mono, monomial{{cosKey, 2}})
			out.addTerm(rest, t.coeff)
			out.addTerm(monoMul(rest, monomial{{sinKey, 2}}), new(big.Rat).Neg(t.coeff))
		}
		p = out
	}
	return p
}

func (nz *normalizer) sinFor(cosKey string) string {
	c := nz.atoms[cosKey].(*Func)
	s := &Func{name: "sin", arg: c.arg}
	key := "f:" + s.String()
	nz.atoms[key] = s
	return key
}

// ============================================================
// Back to expressions
// ============================================================

func (nz *normalizer) toExpr(r *ratfn) Expr {
	if r.isZero() {
		return N(0)
	}
	factors := []Expr{nz.polyExpr(r.num)}
	for _, a := range r.den {
		factors = append(factors, PowOf(nz.atoms[a.key], N(int64(-a.exp))))
	}
	for _, k := range r.factorKeys() {
		f := r.facs[k]
		factors = append(factors, PowOf(nz.polyExpr(f.p), N(int64(-f.mult))))
	}
	return MulOf(factors...)
}

func (nz *normalizer) polyExpr(p poly) Expr {
	ts := p.sorted()
	terms := make([]Expr, len(ts))
	for i, t := range ts {
		fs := make([]Expr, 0, len(t.mono)+1)
		fs = append(fs, NRat(t.coeff))
		for _, a := range t.mono {
			fs = append(fs, PowOf(nz.atoms[a.key], N(int64(a.exp))))
		}
		terms[i] = MulOf(fs...)
	}
	return AddOf(terms...)
}
