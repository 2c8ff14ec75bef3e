package tensor

import (
	"fmt"
	"strings"

	"github.com/njchilds90/spacetime/symbolic"
)

// Variance selects one of a tensor's three representations.
type Variance int

const (
	// Covariant has every index lowered.
	Covariant Variance = iota
	// Contravariant has every index raised.
	Contravariant
	// Mixed has the first index raised and the rest lowered.
	Mixed
)

var varianceNames = [...]string{"co", "contra", "mixed"}

func (v Variance) String() string {
	if v < Covariant || v > Mixed {
		return fmt.Sprintf("Variance(%d)", int(v))
	}
	return varianceNames[v]
}

// ParseVariance accepts "co", "contra" or "mixed" and the long forms
// "covariant" and "contravariant".
func ParseVariance(s string) (Variance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "co", "covariant", "lower":
		return Covariant, nil
	case "contra", "contravariant", "upper":
		return Contravariant, nil
	case "mixed":
		return Mixed, nil
	}
	return 0, fmt.Errorf("unknown variance %q", s)
}

// Counts tallies formula evaluations and cache hits for one representation.
type Counts struct {
	Computed int
	Hits     int
}

// Stats reports memoization activity per representation.
type Stats struct {
	Co, Contra, Mixed Counts
}

// Of returns the counts of one representation.
func (s Stats) Of(v Variance) Counts {
	switch v {
	case Covariant:
		return s.Co
	case Contravariant:
		return s.Contra
	}
	return s.Mixed
}

// Total sums the counts over all representations.
func (s Stats) Total() Counts {
	return Counts{
		Computed: s.Co.Computed + s.Contra.Computed + s.Mixed.Computed,
		Hits:     s.Co.Hits + s.Contra.Hits + s.Mixed.Hits,
	}
}

// Tensor is a rank-R tensor over a metric with lazily derived, permanently
// memoized covariant, contravariant and mixed components. Representations
// are related by metric contraction:
//
//	co     from mixed, lowering the first index
//	contra from co, raising every index
//	mixed  from contra, lowering every index but the first
//
// A Tensor is not safe for concurrent use.
type Tensor struct {
	name   string
	rank   int
	metric *MetricTensor
	stores [3]*Store
	busy   [3][]bool
	stats  [3]Counts
}

// NewTensor allocates an empty tensor of the given rank.
func NewTensor(metric *MetricTensor, rank int) (*Tensor, error) {
	if metric == nil {
		return nil, fmt.Errorf("tensor without metric: %w", ErrDimensionMismatch)
	}
	if rank <= 0 {
		return nil, fmt.Errorf("tensor rank %d: %w", rank, ErrInvalidRank)
	}
	t := &Tensor{rank: rank, metric: metric}
	for v := range t.stores {
		s, err := NewStore(rank, metric.Dim())
		if err != nil {
			return nil, err
		}
		t.stores[v] = s
		t.busy[v] = make([]bool, s.Len())
	}
	return t, nil
}

func (t *Tensor) Name() string          { return t.name }
func (t *Tensor) Rank() int             { return t.rank }
func (t *Tensor) Dim() int              { return t.metric.Dim() }
func (t *Tensor) Metric() *MetricTensor { return t.metric }

// Stats returns a snapshot of memoization counters.
func (t *Tensor) Stats() Stats {
	return Stats{Co: t.stats[Covariant], Contra: t.stats[Contravariant], Mixed: t.stats[Mixed]}
}

func (t *Tensor) Co(idx ...int) (symbolic.Expr, error)     { return t.Component(Covariant, idx...) }
func (t *Tensor) Contra(idx ...int) (symbolic.Expr, error) { return t.Component(Contravariant, idx...) }
func (t *Tensor) Mixed(idx ...int) (symbolic.Expr, error)  { return t.Component(Mixed, idx...) }

func (t *Tensor) SetCo(v symbolic.Expr, idx ...int) error     { return t.Set(Covariant, v, idx...) }
func (t *Tensor) SetContra(v symbolic.Expr, idx ...int) error { return t.Set(Contravariant, v, idx...) }
func (t *Tensor) SetMixed(v symbolic.Expr, idx ...int) error  { return t.Set(Mixed, v, idx...) }

func (t *Tensor) store(v Variance) (*Store, error) {
	if v < Covariant || v > Mixed {
		return nil, fmt.Errorf("variance %d: %w", int(v), ErrIndexOutOfRange)
	}
	return t.stores[v], nil
}

// Set injects a component, bypassing the contraction law. The value is
// brought to normal form before it is stored; its correctness is the
// caller's responsibility.
func (t *Tensor) Set(v Variance, value symbolic.Expr, idx ...int) error {
	s, err := t.store(v)
	if err != nil {
		return err
	}
	off, err := s.Offset(idx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.label(), err)
	}
	s.setAt(off, symbolic.Normalize(value))
	return nil
}

// IsPopulated reports whether a component is cached.
func (t *Tensor) IsPopulated(v Variance, idx ...int) (bool, error) {
	s, err := t.store(v)
	if err != nil {
		return false, err
	}
	return s.IsPopulated(idx)
}

// Component returns the component at idx in representation v, deriving and
// caching it on first use. A failed derivation leaves the tuple unpopulated.
func (t *Tensor) Component(v Variance, idx ...int) (symbolic.Expr, error) {
	s, err := t.store(v)
	if err != nil {
		return nil, err
	}
	off, err := s.Offset(idx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.label(), err)
	}
	if s.filled[off] {
		t.stats[v].Hits++
		return s.data[off], nil
	}
	if t.busy[v][off] {
		return nil, fmt.Errorf("%s %s%v: %w", t.label(), v, idx, ErrUnderdetermined)
	}
	t.busy[v][off] = true
	defer func() { t.busy[v][off] = false }()

	t.stats[v].Computed++
	val, err := t.derive(v, idx)
	if err != nil {
		return nil, err
	}
	val = symbolic.Normalize(val)
	s.setAt(off, val)
	return val, nil
}

func (t *Tensor) derive(v Variance, idx []int) (symbolic.Expr, error) {
	positions := make([]bool, t.rank)
	switch v {
	case Covariant:
		positions[0] = true
		return t.contract(idx, Mixed, positions, t.metric.Co)
	case Contravariant:
		for k := range positions {
			positions[k] = true
		}
		return t.contract(idx, Covariant, positions, t.metric.Contra)
	default:
		for k := 1; k < t.rank; k++ {
			positions[k] = true
		}
		return t.contract(idx, Contravariant, positions, t.metric.Co)
	}
}

type metricTerm struct {
	m int
	g symbolic.Expr
}

// contract sums g(idx[k], m_k) over m_k at every contracted position k,
// times the src component at the tuple of m_k (uncontracted positions keep
// idx[k]). Literal zero metric entries and source components are skipped.
func (t *Tensor) contract(idx []int, src Variance, positions []bool, g func(i, j int) symbolic.Expr) (symbolic.Expr, error) {
	n := t.Dim()
	choices := make([][]metricTerm, t.rank)
	for k := 0; k < t.rank; k++ {
		if !positions[k] {
			choices[k] = []metricTerm{{m: idx[k]}}
			continue
		}
		for m := 0; m < n; m++ {
			if e := g(idx[k], m); !symbolic.IsZeroNum(e) {
				choices[k] = append(choices[k], metricTerm{m: m, g: e})
			}
		}
		if len(choices[k]) == 0 {
			return symbolic.N(0), nil
		}
	}

	var terms []symbolic.Expr
	pick := make([]int, t.rank)
	tuple := make([]int, t.rank)
	for {
		factors := make([]symbolic.Expr, 0, t.rank+1)
		for k, c := range pick {
			term := choices[k][c]
			tuple[k] = term.m
			if term.g != nil {
				factors = append(factors, term.g)
			}
		}
		comp, err := t.Component(src, tuple...)
		if err != nil {
			return nil, err
		}
		if !symbolic.IsZeroNum(comp) {
			terms = append(terms, symbolic.MulOf(append(factors, comp)...))
		}

		k := t.rank - 1
		for k >= 0 {
			pick[k]++
			if pick[k] < len(choices[k]) {
				break
			}
			pick[k] = 0
			k--
		}
		if k < 0 {
			break
		}
	}
	return symbolic.AddOf(terms...), nil
}

// IsFullyDetermined reports whether every tuple of every representation is
// cached.
func (t *Tensor) IsFullyDetermined() bool {
	for _, s := range t.stores {
		if !s.Full() {
			return false
		}
	}
	return true
}

// ComputeAll derives every component of every representation.
func (t *Tensor) ComputeAll() error {
	for _, v := range []Variance{Covariant, Contravariant, Mixed} {
		err := ForEachIndex(t.rank, t.Dim(), func(idx []int) error {
			_, err := t.Component(v, idx...)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Trace contracts a rank-2 tensor's covariant components with the inverse
// metric: g^ij T_ij.
func (t *Tensor) Trace() (symbolic.Expr, error) {
	if t.rank != 2 {
		return nil, fmt.Errorf("trace of %s with rank %d: %w", t.label(), t.rank, ErrInvalidRank)
	}
	n := t.Dim()
	var terms []symbolic.Expr
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g := t.metric.Contra(i, j)
			if symbolic.IsZeroNum(g) {
				continue
			}
			c, err := t.Co(i, j)
			if err != nil {
				return nil, err
			}
			terms = append(terms, symbolic.MulOf(g, c))
		}
	}
	return symbolic.Normalize(symbolic.AddOf(terms...)), nil
}

func (t *Tensor) label() string {
	if t.name == "" {
		return fmt.Sprintf("rank-%d tensor", t.rank)
	}
	return fmt.Sprintf("tensor %q", t.name)
}
