package tensor

import (
	"fmt"

	"github.com/njchilds90/spacetime/symbolic"
)

// Role identifies a derived tensor independently of its registry name.
type Role int

const (
	RoleCustom Role = iota
	RoleConnection
	RoleTorsion
	RoleRiemann
	RoleRicci
	RoleEinstein
	RoleStressEnergyMomentum
	RoleLandauLifschitz
	RoleSchouten
	RoleWeyl
)

var roleNames = map[Role]string{
	RoleCustom:               "custom",
	RoleConnection:           "connection",
	RoleTorsion:              "torsion",
	RoleRiemann:              "riemann",
	RoleRicci:                "ricci",
	RoleEinstein:             "einstein",
	RoleStressEnergyMomentum: "stress-energy-momentum",
	RoleLandauLifschitz:      "landau-lifschitz",
	RoleSchouten:             "schouten",
	RoleWeyl:                 "weyl",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Names maps roles to the names under which they are registered. Derived
// tensors look their dependencies up through it, so renaming a role only
// takes a different Names value.
type Names struct {
	Connection           string `yaml:"connection" validate:"required"`
	Torsion              string `yaml:"torsion" validate:"required"`
	Riemann              string `yaml:"riemann" validate:"required"`
	Ricci                string `yaml:"ricci" validate:"required"`
	Einstein             string `yaml:"einstein" validate:"required"`
	StressEnergyMomentum string `yaml:"stress_energy_momentum" validate:"required"`
	LandauLifschitz      string `yaml:"landau_lifschitz" validate:"required"`
	Schouten             string `yaml:"schouten" validate:"required"`
	Weyl                 string `yaml:"weyl" validate:"required"`
}

// DefaultNames returns the conventional registry names.
func DefaultNames() Names {
	return Names{
		Connection:           "connection coefficients",
		Torsion:              "torsion",
		Riemann:              "riemann",
		Ricci:                "ricci",
		Einstein:             "einstein",
		StressEnergyMomentum: "stress energy momentum",
		LandauLifschitz:      "landau lifschitz",
		Schouten:             "schouten",
		Weyl:                 "weyl",
	}
}

// Of returns the registry name of role, or "" for RoleCustom.
func (n Names) Of(role Role) string {
	switch role {
	case RoleConnection:
		return n.Connection
	case RoleTorsion:
		return n.Torsion
	case RoleRiemann:
		return n.Riemann
	case RoleRicci:
		return n.Ricci
	case RoleEinstein:
		return n.Einstein
	case RoleStressEnergyMomentum:
		return n.StressEnergyMomentum
	case RoleLandauLifschitz:
		return n.LandauLifschitz
	case RoleSchouten:
		return n.Schouten
	case RoleWeyl:
		return n.Weyl
	}
	return ""
}

// Validate returns ErrDuplicateName when two roles share a registry name.
// Empty names are left to the caller.
func (n Names) Validate() error {
	seen := make(map[string]Role, len(roleNames))
	for r := RoleConnection; r <= RoleWeyl; r++ {
		name := n.Of(r)
		if name == "" {
			continue
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%q names both %s and %s: %w", name, prev, r, ErrDuplicateName)
		}
		seen[name] = r
	}
	return nil
}

// Settings carries the physical constants and names a manifold's derived
// tensors read.
type Settings struct {
	Names Names
	// Kappa is the coupling 8*pi*G/c^4 in the field equations.
	Kappa symbolic.Expr
	// Lambda is the cosmological constant.
	Lambda symbolic.Expr
}

// DefaultKappa returns 8*pi*G/c^4 over the symbols pi, G and c.
func DefaultKappa() symbolic.Expr {
	return symbolic.MulOf(symbolic.N(8), symbolic.S("pi"), symbolic.S("G"),
		symbolic.PowOf(symbolic.S("c"), symbolic.N(-4)))
}

// DefaultSettings uses DefaultNames, DefaultKappa and a zero cosmological
// constant.
func DefaultSettings() Settings {
	return Settings{Names: DefaultNames(), Kappa: DefaultKappa(), Lambda: symbolic.N(0)}
}

// Kind describes a tensor the manifold can define: its role, rank and the
// routine that fills its components from the metric and from tensors
// already registered.
type Kind struct {
	Role Role
	// Name overrides the registry name derived from Role. Required for
	// RoleCustom.
	Name string
	Rank int
	// Populate fills t. It may be nil for a tensor the caller fills with
	// setters after definition.
	Populate func(m *Manifold, t *Tensor) error
}
