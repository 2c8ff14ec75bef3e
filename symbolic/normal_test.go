package symbolic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/symbolic"
)

func TestIsZero(t *testing.T) {
	tests := []struct {
		name string
		expr string
		zero bool
	}{
		{"pythagorean", "sin(theta)^2 + cos(theta)^2 - 1", true},
		{"cancel common factor", "(x^2 - 1)/(x - 1) - (x + 1)", true},
		{"schwarzschild grr", "1/(1 - 2*M/r) - r/(r - 2*M)", true},
		{"tangent", "tan(x)*cos(x) - sin(x)", true},
		{"square root", "(1 + sqrt(x))^2 - 1 - 2*sqrt(x) - x", true},
		{"nested fraction", "1/(1/a + 1/b) - a*b/(a + b)", true},
		{"higher cosine power", "cos(u)^4 - (1 - sin(u)^2)^2", true},
		{"undefined function", "D(r)*f(r) - f(r)*D(r)", true},
		{"nonzero", "x + 1", false},
		{"nonzero trig", "sin(x)^2 - cos(x)^2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := symbolic.Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.zero, symbolic.IsZero(e), tt.expr)
		})
	}
}

func TestIsZero_PowerExpansionLimit(t *testing.T) {
	within := symbolic.MustParse("(x+1)^32 - (x^2 + 2*x + 1)*(x+1)^30")
	assert.True(t, symbolic.IsZero(within))

	// (x+1)^33 stays an atom and does not cancel against the expanded product.
	beyond := symbolic.MustParse("(x+1)^33 - (x^2 + 2*x + 1)*(x+1)^31")
	assert.False(t, symbolic.IsZero(beyond))
	assert.True(t, symbolic.IsZero(symbolic.MustParse("(x+1)^33 - (x+1)^33")))

	assert.False(t, symbolic.IsZero(symbolic.MustParse("1/(x - x)")))
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, src := range []string{
		"1/(1 - 2*M/r)",
		"-r^2*sin(theta)^2",
		"cos(theta)/sin(theta) + M/(r*(r - 2*M))",
		"sqrt(r)^3/(r + 1)",
		"f(r)^2/g(r) + exp(-2*f(r))",
	} {
		e, err := symbolic.Parse(src)
		require.NoError(t, err, src)
		once := symbolic.Normalize(e)
		twice := symbolic.Normalize(once)
		assert.Equal(t, once.String(), twice.String(), src)
		assert.True(t, symbolic.Equivalent(e, once), src)
	}
}

func TestNormalize_CancelsToPolynomial(t *testing.T) {
	e := symbolic.MustParse("(r^2 - 4*M^2)/(r - 2*M)")
	got := symbolic.Normalize(e)
	assert.True(t, symbolic.Equivalent(got, symbolic.MustParse("r + 2*M")))
	_, isMul := got.(*symbolic.Mul)
	assert.False(t, isMul, "no denominator should survive, got %s", got)
}

func TestNormalForm_DivisionByZero(t *testing.T) {
	_, err := symbolic.NormalForm(symbolic.MustParse("1/(sin(x)^2 + cos(x)^2 - 1)"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, symbolic.ErrDivisionByZero))
}

func TestEquivalent(t *testing.T) {
	a := symbolic.MustParse("1/(r*(1 - 2*M/r))")
	b := symbolic.MustParse("1/(r - 2*M)")
	assert.True(t, symbolic.Equivalent(a, b))
	assert.False(t, symbolic.Equivalent(a, symbolic.MustParse("1/r")))
}
