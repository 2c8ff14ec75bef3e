// Package worldline integrates timelike geodesics numerically from the
// symbolic connection coefficients of a manifold. The stepper is explicit
// Euler in proper time and makes no accuracy claim; it is meant for
// qualitative traces.
package worldline

import (
	"errors"
	"fmt"
	"math"

	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

// ErrNotTimelike is returned when an initial velocity has no positive norm.
var ErrNotTimelike = errors.New("worldline: velocity is not timelike")

// ErrInvalidStep is returned for a negative step count or a proper-time step
// that is not a positive finite number.
var ErrInvalidStep = errors.New("worldline: invalid step")

// VelocitySymbol names the i-th proper velocity component in acceleration
// expressions.
func VelocitySymbol(i int) string { return fmt.Sprintf("u%d", i) }

// Acceleration returns the geodesic acceleration a^i = −Γ^i_jk u^j u^k over
// the velocity symbols, reading the registered connection coefficients.
func Acceleration(m *tensor.Manifold) ([]symbolic.Expr, error) {
	conn, err := m.Require(tensor.RoleConnection)
	if err != nil {
		return nil, err
	}
	n := m.Dim()
	out := make([]symbolic.Expr, n)
	for i := 0; i < n; i++ {
		var terms []symbolic.Expr
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				c, err := conn.Mixed(i, j, k)
				if err != nil {
					return nil, err
				}
				if symbolic.IsZeroNum(c) {
					continue
				}
				terms = append(terms, symbolic.MulOf(symbolic.N(-1), c,
					symbolic.S(VelocitySymbol(j)), symbolic.S(VelocitySymbol(k))))
			}
		}
		out[i] = symbolic.AddOf(terms...)
	}
	return out, nil
}

// State is one sample of a worldline.
type State struct {
	Tau      float64   `json:"tau"`
	Position []float64 `json:"position"`
	Velocity []float64 `json:"velocity"`
}

// Worldline is a test particle following a geodesic. Position holds the
// coordinates x^i and Velocity the proper velocity u^i = dx^i/dτ.
type Worldline struct {
	Tau      float64
	Position []float64
	Velocity []float64
	// Params binds the free symbols of the metric other than coordinates,
	// such as a mass M or the speed of light c.
	Params map[string]float64

	coords []string
	metric *tensor.MetricTensor
	accel  []symbolic.Expr
}

// New starts a worldline at pos with coordinate velocity vel = dx^i/dx^0.
// vel[0] is ignored and taken to be 1. The proper velocity is vel scaled
// by c/sqrt(g_ij vel^i vel^j), with c from params (default 1).
func New(m *tensor.Manifold, pos, vel []float64, params map[string]float64) (*Worldline, error) {
	n := m.Dim()
	if len(pos) != n || len(vel) != n {
		return nil, fmt.Errorf("worldline of %d/%d components in %d dimensions: %w",
			len(pos), len(vel), n, tensor.ErrDimensionMismatch)
	}
	accel, err := Acceleration(m)
	if err != nil {
		return nil, err
	}
	w := &Worldline{
		Position: append([]float64(nil), pos...),
		Velocity: make([]float64, n),
		Params:   make(map[string]float64, len(params)),
		coords:   m.Coords().Names(),
		metric:   m.Metric(),
		accel:    accel,
	}
	for k, v := range params {
		w.Params[k] = v
	}

	v := append([]float64(nil), vel...)
	v[0] = 1
	s, err := w.contract(v)
	if err != nil {
		return nil, err
	}
	if s <= 0 {
		return nil, fmt.Errorf("g(v,v) = %g: %w", s, ErrNotTimelike)
	}
	c, ok := w.Params["c"]
	if !ok {
		c = 1
	}
	gamma := c / math.Sqrt(s)
	for i := range v {
		w.Velocity[i] = gamma * v[i]
	}
	return w, nil
}

func (w *Worldline) env() map[string]float64 {
	env := make(map[string]float64, len(w.Params)+2*len(w.coords))
	for k, v := range w.Params {
		env[k] = v
	}
	for i, name := range w.coords {
		env[name] = w.Position[i]
		env[VelocitySymbol(i)] = w.Velocity[i]
	}
	return env
}

// contract evaluates g_ij a^i a^j at the current position.
func (w *Worldline) contract(a []float64) (float64, error) {
	env := w.env()
	sum := 0.0
	for i := range a {
		for j := range a {
			g := w.metric.Co(i, j)
			if symbolic.IsZeroNum(g) {
				continue
			}
			v, err := symbolic.EvalFloat(g, env)
			if err != nil {
				return 0, err
			}
			sum += v * a[i] * a[j]
		}
	}
	return sum, nil
}

// Norm returns g_ij u^i u^j, which a geodesic conserves (c^2 for a
// timelike one).
func (w *Worldline) Norm() (float64, error) { return w.contract(w.Velocity) }

// CoordinateVelocity returns v^i = u^i/u^0.
func (w *Worldline) CoordinateVelocity() []float64 {
	out := make([]float64, len(w.Velocity))
	for i, u := range w.Velocity {
		out[i] = u / w.Velocity[0]
	}
	return out
}

// AccelerationAt evaluates the geodesic acceleration at the current state.
func (w *Worldline) AccelerationAt() ([]float64, error) {
	env := w.env()
	out := make([]float64, len(w.accel))
	for i, a := range w.accel {
		v, err := symbolic.EvalFloat(a, env)
		if err != nil {
			return nil, fmt.Errorf("acceleration %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Step advances the worldline by dtau of proper time. The state is left
// unchanged on error.
func (w *Worldline) Step(dtau float64) error {
	a, err := w.AccelerationAt()
	if err != nil {
		return err
	}
	for i := range w.Position {
		w.Position[i] += w.Velocity[i] * dtau
		w.Velocity[i] += a[i] * dtau
	}
	w.Tau += dtau
	return nil
}

// State returns a copy of the current state.
func (w *Worldline) State() State {
	return State{
		Tau:      w.Tau,
		Position: append([]float64(nil), w.Position...),
		Velocity: append([]float64(nil), w.Velocity...),
	}
}

// Trace takes steps of dtau and returns the initial state followed by the
// state after each step. Zero steps returns the initial state alone.
func (w *Worldline) Trace(steps int, dtau float64) ([]State, error) {
	if steps < 0 {
		return nil, fmt.Errorf("%d steps: %w", steps, ErrInvalidStep)
	}
	if !(dtau > 0) || math.IsInf(dtau, 1) {
		return nil, fmt.Errorf("dtau = %g: %w", dtau, ErrInvalidStep)
	}
	out := make([]State, 0, steps+1)
	out = append(out, w.State())
	for s := 0; s < steps; s++ {
		if err := w.Step(dtau); err != nil {
			return out, fmt.Errorf("step %d: %w", s, err)
		}
		out = append(out, w.State())
	}
	return out, nil
}
