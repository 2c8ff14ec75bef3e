package tensor

import (
	"errors"
	"fmt"

	"github.com/njchilds90/spacetime/symbolic"
)

// MetricTensor holds the covariant metric, its inverse and its determinant,
// all computed once at construction and kept in normal form. It is
// immutable and shared by every tensor of a manifold.
type MetricTensor struct {
	coords *CoordinateSystem
	co     *symbolic.Matrix
	contra *symbolic.Matrix
	det    symbolic.Expr
	dco    [][][]symbolic.Expr // dco[i][j][k] = d_k g_ij
}

// NewMetricTensor builds a metric from covariant rows. Every entry must have
// a normal form; an entry such as 1/(x-x) fails with ErrUndefinedComponent.
func NewMetricTensor(rows [][]symbolic.Expr, cs *CoordinateSystem) (*MetricTensor, error) {
	if cs == nil {
		return nil, fmt.Errorf("metric without coordinate system: %w", ErrDimensionMismatch)
	}
	m, err := symbolic.NewMatrixFromRows(rows)
	if err != nil {
		if errors.Is(err, symbolic.ErrNotSquare) {
			return nil, fmt.Errorf("metric: %v: %w", err, ErrDimensionMismatch)
		}
		return nil, fmt.Errorf("metric: %w", err)
	}
	if m.Rows() != cs.Dim() {
		return nil, fmt.Errorf("metric is %dx%d but coordinates %s have dimension %d: %w",
			m.Rows(), m.Cols(), cs, cs.Dim(), ErrDimensionMismatch)
	}
	n := cs.Dim()
	normal := make([][]symbolic.Expr, n)
	for i := 0; i < n; i++ {
		normal[i] = make([]symbolic.Expr, n)
		for j := 0; j < n; j++ {
			e, err := symbolic.NormalForm(m.Get(i, j))
			if err != nil {
				return nil, fmt.Errorf("metric entry [%d,%d] %s: %v: %w", i, j, m.Get(i, j), err, ErrUndefinedComponent)
			}
			normal[i][j] = e
		}
	}
	co, err := symbolic.NewMatrixFromRows(normal)
	if err != nil {
		return nil, fmt.Errorf("metric: %w", err)
	}
	contra, err := co.Inverse()
	if err != nil {
		if errors.Is(err, symbolic.ErrSingular) {
			return nil, fmt.Errorf("metric over %s: %w", cs, ErrSingularMetric)
		}
		return nil, fmt.Errorf("metric inverse: %w", err)
	}
	det, err := symbolic.NormalForm(co.Det())
	if err != nil {
		return nil, fmt.Errorf("metric determinant: %v: %w", err, ErrUndefinedComponent)
	}
	dco := make([][][]symbolic.Expr, n)
	for i := 0; i < n; i++ {
		dco[i] = make([][]symbolic.Expr, n)
		for j := 0; j < n; j++ {
			dco[i][j] = make([]symbolic.Expr, n)
			for k := 0; k < n; k++ {
				d, _ := cs.Partial(co.Get(i, j), k)
				if dco[i][j][k], err = symbolic.NormalForm(d); err != nil {
					return nil, fmt.Errorf("metric derivative d_%d g_%d%d: %v: %w", k, i, j, err, ErrUndefinedComponent)
				}
			}
		}
	}
	return &MetricTensor{
		coords: cs,
		co:     co,
		contra: contra,
		det:    det,
		dco:    dco,
	}, nil
}

// ParseMetric parses each entry with symbolic.Parse and builds the metric.
func ParseMetric(entries [][]string, cs *CoordinateSystem) (*MetricTensor, error) {
	rows := make([][]symbolic.Expr, len(entries))
	for i, row := range entries {
		rows[i] = make([]symbolic.Expr, len(row))
		for j, src := range row {
			e, err := symbolic.Parse(src)
			if err != nil {
				return nil, fmt.Errorf("metric entry [%d,%d]: %w", i, j, err)
			}
			rows[i][j] = e
		}
	}
	return NewMetricTensor(rows, cs)
}

// Diagonal builds a metric whose only nonzero entries are the given
// diagonal.
func Diagonal(cs *CoordinateSystem, diag ...symbolic.Expr) (*MetricTensor, error) {
	rows := make([][]symbolic.Expr, len(diag))
	for i := range diag {
		rows[i] = make([]symbolic.Expr, len(diag))
		for j := range diag {
			rows[i][j] = symbolic.N(0)
		}
		rows[i][i] = diag[i]
	}
	return NewMetricTensor(rows, cs)
}

func (g *MetricTensor) Dim() int                       { return g.coords.Dim() }
func (g *MetricTensor) Coordinates() *CoordinateSystem { return g.coords }

// Det is the determinant of the covariant matrix.
func (g *MetricTensor) Det() symbolic.Expr { return g.det }

// Co returns g_ij. It panics on an out-of-range index.
func (g *MetricTensor) Co(i, j int) symbolic.Expr { return g.co.Get(i, j) }

// Contra returns g^ij. It panics on an out-of-range index.
func (g *MetricTensor) Contra(i, j int) symbolic.Expr { return g.contra.Get(i, j) }

// Deriv returns the partial derivative of g_ij with respect to coordinate k.
// It panics on an out-of-range index.
func (g *MetricTensor) Deriv(i, j, k int) symbolic.Expr { return g.dco[i][j][k] }

// At is the bounds-checked form of Co and Contra. Mixed components of the
// metric are the Kronecker delta.
func (g *MetricTensor) At(v Variance, i, j int) (symbolic.Expr, error) {
	n := g.Dim()
	if i < 0 || i >= n || j < 0 || j >= n {
		return nil, fmt.Errorf("metric index [%d,%d] for dimension %d: %w", i, j, n, ErrIndexOutOfRange)
	}
	switch v {
	case Covariant:
		return g.Co(i, j), nil
	case Contravariant:
		return g.Contra(i, j), nil
	}
	if i == j {
		return symbolic.N(1), nil
	}
	return symbolic.N(0), nil
}

// Covariant returns a copy of the covariant matrix.
func (g *MetricTensor) Covariant() *symbolic.Matrix { return g.co.Copy() }

// Contravariant returns a copy of the inverse matrix.
func (g *MetricTensor) Contravariant() *symbolic.Matrix { return g.contra.Copy() }
