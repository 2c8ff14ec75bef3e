package library

import (
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

// Units selects which physical constants are set to one. Unnormalized
// constants stay the symbols c and G. Without a cosmological constant the
// symbol Lambda is replaced by zero.
type Units struct {
	NormalizeC           bool `yaml:"normalize_c" json:"normalize_c"`
	NormalizeG           bool `yaml:"normalize_g" json:"normalize_g"`
	CosmologicalConstant bool `yaml:"cosmological_constant" json:"cosmological_constant"`
}

// SI keeps c, G and Lambda symbolic.
func SI() Units { return Units{CosmologicalConstant: true} }

// Natural sets c = G = 1 and drops the cosmological constant.
func Natural() Units { return Units{NormalizeC: true, NormalizeG: true} }

func (u Units) bindings() map[string]symbolic.Expr {
	env := make(map[string]symbolic.Expr)
	if u.NormalizeC {
		env["c"] = symbolic.N(1)
	}
	if u.NormalizeG {
		env["G"] = symbolic.N(1)
	}
	if !u.CosmologicalConstant {
		env["Lambda"] = symbolic.N(0)
	}
	return env
}

// Apply substitutes the normalized constants into e.
func (u Units) Apply(e symbolic.Expr) symbolic.Expr {
	return symbolic.SubAll(e, u.bindings())
}

// Kappa is 8*pi*G/c^4 in these units.
func (u Units) Kappa() symbolic.Expr { return u.Apply(tensor.DefaultKappa()) }

// Lambda is the cosmological constant in these units.
func (u Units) Lambda() symbolic.Expr { return u.Apply(symbolic.S("Lambda")) }

// Settings returns manifold settings over names with the constants of u.
func (u Units) Settings(names tensor.Names) tensor.Settings {
	return tensor.Settings{Names: names, Kappa: u.Kappa(), Lambda: u.Lambda()}
}
