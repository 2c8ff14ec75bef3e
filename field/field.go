// Package field defines the derived curvature tensors of general relativity
// as tensor.Kind values. Each kind fills its tensor from the manifold's
// metric and from tensors already registered under the manifold's Names, so
// dependencies must be defined first:
//
//	m.DefineKind(ctx, field.ConnectionCoefficients)
//	m.DefineKind(ctx, field.Riemann)
//	m.DefineKind(ctx, field.Ricci)
//
// A kind whose dependency is missing fails with tensor.ErrUndefinedTensor.
package field

import (
	"context"
	"fmt"
	"strings"

	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

var (
	zero = symbolic.N(0)
	half = symbolic.F(1, 2)
)

// ============================================================
// Connection and torsion
// ============================================================

// ConnectionCoefficients stores the Christoffel symbols of the first kind
// as covariant components,
//
//	Γ_ijk = ½(∂_k g_ij + ∂_j g_ik − ∂_i g_jk),
//
// and those of the second kind as mixed components, Γ^i_jk = g^im Γ_mjk.
var ConnectionCoefficients = tensor.Kind{
	Role:     tensor.RoleConnection,
	Rank:     3,
	Populate: populateConnection,
}

func populateConnection(m *tensor.Manifold, t *tensor.Tensor) error {
	g := m.Metric()
	n := m.Dim()
	first := make([][][]symbolic.Expr, n)
	for i := 0; i < n; i++ {
		first[i] = make([][]symbolic.Expr, n)
		for j := 0; j < n; j++ {
			first[i][j] = make([]symbolic.Expr, n)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := j; k < n; k++ {
				v := symbolic.Normalize(symbolic.MulOf(half, symbolic.AddOf(
					g.Deriv(i, j, k),
					g.Deriv(i, k, j),
					symbolic.Neg(g.Deriv(j, k, i)),
				)))
				first[i][j][k], first[i][k][j] = v, v
				if err := t.SetCo(v, i, j, k); err != nil {
					return err
				}
				if err := t.SetCo(v, i, k, j); err != nil {
					return err
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := j; k < n; k++ {
				var terms []symbolic.Expr
				for l := 0; l < n; l++ {
					gil := g.Contra(i, l)
					if symbolic.IsZeroNum(gil) || symbolic.IsZeroNum(first[l][j][k]) {
						continue
					}
					terms = append(terms, symbolic.MulOf(gil, first[l][j][k]))
				}
				v := symbolic.AddOf(terms...)
				if err := t.SetMixed(v, i, j, k); err != nil {
					return err
				}
				if err := t.SetMixed(v, i, k, j); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Torsion is the antisymmetric part of the connection, T^i_jk = Γ^i_jk − Γ^i_kj.
// It vanishes for the Levi-Civita connection.
var Torsion = tensor.Kind{
	Role: tensor.RoleTorsion,
	Rank: 3,
	Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
		conn, err := m.Require(tensor.RoleConnection)
		if err != nil {
			return err
		}
		return tensor.ForEachIndex(3, m.Dim(), func(idx []int) error {
			i, j, k := idx[0], idx[1], idx[2]
			a, err := conn.Mixed(i, j, k)
			if err != nil {
				return err
			}
			b, err := conn.Mixed(i, k, j)
			if err != nil {
				return err
			}
			return t.SetMixed(symbolic.Minus(a, b), i, j, k)
		})
	},
}

// ============================================================
// Curvature
// ============================================================

// Riemann stores mixed components
//
//	R^i_jkl = ∂_k Γ^i_lj − ∂_l Γ^i_kj + Γ^i_km Γ^m_lj − Γ^i_lm Γ^m_kj.
//
// Only k < l is evaluated; the rest follows from antisymmetry in k and l.
var Riemann = tensor.Kind{
	Role:     tensor.RoleRiemann,
	Rank:     4,
	Populate: populateRiemann,
}

func populateRiemann(m *tensor.Manifold, t *tensor.Tensor) error {
	conn, err := m.Require(tensor.RoleConnection)
	if err != nil {
		return err
	}
	cs := m.Coords()
	n := m.Dim()
	gamma := func(i, j, k int) (symbolic.Expr, error) { return conn.Mixed(i, j, k) }

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				if err := t.SetMixed(zero, i, j, k, k); err != nil {
					return err
				}
				for l := k + 1; l < n; l++ {
					glj, err := gamma(i, l, j)
					if err != nil {
						return err
					}
					gkj, err := gamma(i, k, j)
					if err != nil {
						return err
					}
					dk, err := cs.Partial(glj, k)
					if err != nil {
						return err
					}
					dl, err := cs.Partial(gkj, l)
					if err != nil {
						return err
					}
					terms := []symbolic.Expr{dk, symbolic.Neg(dl)}
					for s := 0; s < n; s++ {
						a, err := gamma(i, k, s)
						if err != nil {
							return err
						}
						b, err := gamma(s, l, j)
						if err != nil {
							return err
						}
						c, err := gamma(i, l, s)
						if err != nil {
							return err
						}
						d, err := gamma(s, k, j)
						if err != nil {
							return err
						}
						if !symbolic.IsZeroNum(a) && !symbolic.IsZeroNum(b) {
							terms = append(terms, symbolic.MulOf(a, b))
						}
						if !symbolic.IsZeroNum(c) && !symbolic.IsZeroNum(d) {
							terms = append(terms, symbolic.Neg(symbolic.MulOf(c, d)))
						}
					}
					v := symbolic.Normalize(symbolic.AddOf(terms...))
					if err := t.SetMixed(v, i, j, k, l); err != nil {
						return err
					}
					if err := t.SetMixed(symbolic.Neg(v), i, j, l, k); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Ricci contracts the Riemann tensor, R_ij = R^k_ikj. The result is
// symmetric; only j >= i is evaluated.
var Ricci = tensor.Kind{
	Role: tensor.RoleRicci,
	Rank: 2,
	Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
		riemann, err := m.Require(tensor.RoleRiemann)
		if err != nil {
			return err
		}
		n := m.Dim()
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				terms := make([]symbolic.Expr, 0, n)
				for k := 0; k < n; k++ {
					c, err := riemann.Mixed(k, i, k, j)
					if err != nil {
						return err
					}
					terms = append(terms, c)
				}
				v := symbolic.AddOf(terms...)
				if err := t.SetCo(v, i, j); err != nil {
					return err
				}
				if err := t.SetCo(v, j, i); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

// Einstein is G_ij = R_ij − ½ g_ij R with R the Ricci scalar.
var Einstein = tensor.Kind{
	Role: tensor.RoleEinstein,
	Rank: 2,
	Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
		ricci, err := m.Require(tensor.RoleRicci)
		if err != nil {
			return err
		}
		scalar, err := ricci.Trace()
		if err != nil {
			return err
		}
		g := m.Metric()
		return tensor.ForEachIndex(2, m.Dim(), func(idx []int) error {
			i, j := idx[0], idx[1]
			rij, err := ricci.Co(i, j)
			if err != nil {
				return err
			}
			v := symbolic.Minus(rij, symbolic.MulOf(half, g.Co(i, j), scalar))
			return t.SetCo(v, i, j)
		})
	},
}

// StressEnergyMomentum is T^ij = (G^ij + Λ g^ij) / κ, taking κ and Λ from
// the manifold's Settings.
var StressEnergyMomentum = tensor.Kind{
	Role: tensor.RoleStressEnergyMomentum,
	Rank: 2,
	Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
		einstein, err := m.Require(tensor.RoleEinstein)
		if err != nil {
			return err
		}
		s := m.Settings()
		g := m.Metric()
		return tensor.ForEachIndex(2, m.Dim(), func(idx []int) error {
			i, j := idx[0], idx[1]
			gij, err := einstein.Contra(i, j)
			if err != nil {
				return err
			}
			v := symbolic.Quo(symbolic.AddOf(gij, symbolic.MulOf(s.Lambda, g.Contra(i, j))), s.Kappa)
			return t.SetContra(v, i, j)
		})
	},
}

// LandauLifschitz is the gravitational energy-momentum pseudotensor
//
//	t^ik = (∂_l ∂_m h^iklm − 2(−g) G^ik) / (2κ(−g)),
//	h^iklm = (−g)(g^ik g^lm − g^il g^km),
//
// with g the metric determinant. With Λ = 0, G^ik/κ is the matter
// stress-energy T^ik, so t^ik = ∂_l ∂_m h^iklm / (2κ(−g)) − T^ik as in
// (−g)(T^ik + t^ik) = ∂_l ∂_m h^iklm / (2κ). The Einstein term is
// therefore subtracted, not added to the divergence term.
var LandauLifschitz = tensor.Kind{
	Role:     tensor.RoleLandauLifschitz,
	Rank:     2,
	Populate: populateLandauLifschitz,
}

func populateLandauLifschitz(m *tensor.Manifold, t *tensor.Tensor) error {
	einstein, err := m.Require(tensor.RoleEinstein)
	if err != nil {
		return err
	}
	g := m.Metric()
	cs := m.Coords()
	n := m.Dim()
	minusDet := symbolic.Neg(g.Det())
	kappa := m.Settings().Kappa

	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			var terms []symbolic.Expr
			for l := 0; l < n; l++ {
				for s := 0; s < n; s++ {
					h := symbolic.MulOf(minusDet, symbolic.Minus(
						symbolic.MulOf(g.Contra(i, k), g.Contra(l, s)),
						symbolic.MulOf(g.Contra(i, l), g.Contra(k, s)),
					))
					if symbolic.IsZeroNum(h) {
						continue
					}
					d, err := cs.Partial(h, s)
					if err != nil {
						return err
					}
					if d, err = cs.Partial(d, l); err != nil {
						return err
					}
					terms = append(terms, d)
				}
			}
			gik, err := einstein.Contra(i, k)
			if err != nil {
				return err
			}
			terms = append(terms, symbolic.MulOf(symbolic.N(-2), minusDet, gik))
			v := symbolic.Quo(symbolic.AddOf(terms...), symbolic.MulOf(symbolic.N(2), kappa, minusDet))
			if err := t.SetContra(v, i, k); err != nil {
				return err
			}
			if err := t.SetContra(v, k, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// ============================================================
// Conformal decomposition
// ============================================================

// Schouten is P_ij = (R_ij − R g_ij / (2(n−1))) / (n−2). It needs n > 2.
var Schouten = tensor.Kind{
	Role: tensor.RoleSchouten,
	Rank: 2,
	Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
		n := m.Dim()
		if n < 3 {
			return fmt.Errorf("schouten tensor in %d dimensions: %w", n, tensor.ErrDimensionMismatch)
		}
		ricci, err := m.Require(tensor.RoleRicci)
		if err != nil {
			return err
		}
		scalar, err := ricci.Trace()
		if err != nil {
			return err
		}
		g := m.Metric()
		return tensor.ForEachIndex(2, n, func(idx []int) error {
			i, j := idx[0], idx[1]
			rij, err := ricci.Co(i, j)
			if err != nil {
				return err
			}
			v := symbolic.MulOf(symbolic.F(1, int64(n-2)), symbolic.Minus(
				rij,
				symbolic.MulOf(symbolic.F(1, int64(2*(n-1))), scalar, g.Co(i, j)),
			))
			return t.SetCo(v, i, j)
		})
	},
}

// Weyl is the trace-free part of the Riemann tensor, stored covariantly:
//
//	C_abcd = R_abcd − (g_ac R_bd − g_ad R_bc − g_bc R_ad + g_bd R_ac)/(n−2)
//	         + R (g_ac g_bd − g_ad g_bc)/((n−1)(n−2)).
//
// It needs n > 2.
var Weyl = tensor.Kind{
	Role:     tensor.RoleWeyl,
	Rank:     4,
	Populate: populateWeyl,
}

func populateWeyl(m *tensor.Manifold, t *tensor.Tensor) error {
	n := m.Dim()
	if n < 3 {
		return fmt.Errorf("weyl tensor in %d dimensions: %w", n, tensor.ErrDimensionMismatch)
	}
	riemann, err := m.Require(tensor.RoleRiemann)
	if err != nil {
		return err
	}
	ricci, err := m.Require(tensor.RoleRicci)
	if err != nil {
		return err
	}
	scalar, err := ricci.Trace()
	if err != nil {
		return err
	}
	g := m.Metric().Co
	ric := func(i, j int) (symbolic.Expr, error) { return ricci.Co(i, j) }
	c1 := symbolic.F(-1, int64(n-2))
	c2 := symbolic.MulOf(symbolic.F(1, int64((n-1)*(n-2))), scalar)

	return tensor.ForEachIndex(4, n, func(idx []int) error {
		a, b, c, d := idx[0], idx[1], idx[2], idx[3]
		rabcd, err := riemann.Co(a, b, c, d)
		if err != nil {
			return err
		}
		rbd, err := ric(b, d)
		if err != nil {
			return err
		}
		rbc, err := ric(b, c)
		if err != nil {
			return err
		}
		rad, err := ric(a, d)
		if err != nil {
			return err
		}
		rac, err := ric(a, c)
		if err != nil {
			return err
		}
		ricciPart := symbolic.AddOf(
			symbolic.MulOf(g(a, c), rbd),
			symbolic.Neg(symbolic.MulOf(g(a, d), rbc)),
			symbolic.Neg(symbolic.MulOf(g(b, c), rad)),
			symbolic.MulOf(g(b, d), rac),
		)
		scalarPart := symbolic.Minus(symbolic.MulOf(g(a, c), g(b, d)), symbolic.MulOf(g(a, d), g(b, c)))
		v := symbolic.AddOf(rabcd, symbolic.MulOf(c1, ricciPart), symbolic.MulOf(c2, scalarPart))
		return t.SetCo(v, a, b, c, d)
	})
}

// ============================================================
// Catalog
// ============================================================

// Standard returns the kinds of the Einstein field equations in dependency
// order.
func Standard() []tensor.Kind {
	return []tensor.Kind{ConnectionCoefficients, Torsion, Riemann, Ricci, Einstein, StressEnergyMomentum}
}

// All returns every kind this package defines in dependency order.
func All() []tensor.Kind {
	return append(Standard(), LandauLifschitz, Schouten, Weyl)
}

// DefineAll defines kinds in order, stopping at the first error. Names that
// are already registered are skipped.
func DefineAll(ctx context.Context, m *tensor.Manifold, kinds ...tensor.Kind) error {
	for _, k := range kinds {
		if _, err := m.DefineKind(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// ByName finds a kind by its role ("riemann", "stress-energy-momentum") or
// by its default registry name ("stress energy momentum"). Matching ignores
// case and treats '-', '_' and ' ' alike.
func ByName(name string) (tensor.Kind, bool) {
	key := canonical(name)
	names := tensor.DefaultNames()
	for _, k := range All() {
		if key == canonical(k.Role.String()) || key == canonical(names.Of(k.Role)) {
			return k, true
		}
	}
	switch key {
	case "christoffel", "christoffel symbols":
		return ConnectionCoefficients, true
	}
	return tensor.Kind{}, false
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}
