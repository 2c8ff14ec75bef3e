package tensor

import (
	"fmt"
	"strings"

	"github.com/njchilds90/spacetime/symbolic"
)

// CoordinateSystem is an ordered, immutable list of coordinate symbols. Its
// length is the dimension of every manifold built on it.
type CoordinateSystem struct {
	syms []*symbolic.Sym
}

func NewCoordinateSystem(names ...string) (*CoordinateSystem, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("coordinate system needs at least one coordinate: %w", ErrDimensionMismatch)
	}
	seen := make(map[string]bool, len(names))
	syms := make([]*symbolic.Sym, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("coordinate %d has an empty name: %w", i, ErrDimensionMismatch)
		}
		if seen[name] {
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicateCoordinate)
		}
		seen[name] = true
		syms[i] = symbolic.S(name)
	}
	return &CoordinateSystem{syms: syms}, nil
}

func (c *CoordinateSystem) Dim() int { return len(c.syms) }

// X returns the i-th coordinate symbol.
func (c *CoordinateSystem) X(i int) (*symbolic.Sym, error) {
	if i < 0 || i >= len(c.syms) {
		return nil, fmt.Errorf("coordinate %d of %d: %w", i, len(c.syms), ErrIndexOutOfRange)
	}
	return c.syms[i], nil
}

// Names returns a copy of the coordinate names in order.
func (c *CoordinateSystem) Names() []string {
	out := make([]string, len(c.syms))
	for i, s := range c.syms {
		out[i] = s.Name()
	}
	return out
}

// Partial differentiates expr with respect to the i-th coordinate.
func (c *CoordinateSystem) Partial(expr symbolic.Expr, i int) (symbolic.Expr, error) {
	x, err := c.X(i)
	if err != nil {
		return nil, err
	}
	return symbolic.Diff(expr, x.Name()), nil
}

func (c *CoordinateSystem) String() string {
	return "(" + strings.Join(c.Names(), ", ") + ")"
}
