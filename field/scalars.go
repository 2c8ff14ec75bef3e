package field

import (
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

// RicciScalar returns R = g^ij R_ij from the registered Ricci tensor.
func RicciScalar(m *tensor.Manifold) (symbolic.Expr, error) {
	ricci, err := m.Require(tensor.RoleRicci)
	if err != nil {
		return nil, err
	}
	return ricci.Trace()
}

// KretschmannScalar returns R^abcd R_abcd from the registered Riemann tensor.
func KretschmannScalar(m *tensor.Manifold) (symbolic.Expr, error) {
	riemann, err := m.Require(tensor.RoleRiemann)
	if err != nil {
		return nil, err
	}
	var terms []symbolic.Expr
	err = tensor.ForEachIndex(4, m.Dim(), func(idx []int) error {
		lo, err := riemann.Co(idx...)
		if err != nil {
			return err
		}
		if symbolic.IsZeroNum(lo) {
			return nil
		}
		up, err := riemann.Contra(idx...)
		if err != nil {
			return err
		}
		terms = append(terms, symbolic.MulOf(up, lo))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return symbolic.Normalize(symbolic.AddOf(terms...)), nil
}
