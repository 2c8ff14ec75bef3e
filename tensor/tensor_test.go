package tensor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

func minkowski(t *testing.T) *tensor.MetricTensor {
	t.Helper()
	cs, err := tensor.NewCoordinateSystem("t", "x", "y", "z")
	require.NoError(t, err)
	g, err := tensor.Diagonal(cs, symbolic.N(1), symbolic.N(-1), symbolic.N(-1), symbolic.N(-1))
	require.NoError(t, err)
	return g
}

func polar(t *testing.T) *tensor.MetricTensor {
	t.Helper()
	cs, err := tensor.NewCoordinateSystem("r", "phi")
	require.NoError(t, err)
	g, err := tensor.ParseMetric([][]string{{"1", "0"}, {"0", "r^2"}}, cs)
	require.NoError(t, err)
	return g
}

// ============================================================
// CoordinateSystem and MetricTensor
// ============================================================

func TestCoordinateSystem(t *testing.T) {
	cs, err := tensor.NewCoordinateSystem("t", "r", "theta", "phi")
	require.NoError(t, err)
	assert.Equal(t, 4, cs.Dim())
	assert.Equal(t, []string{"t", "r", "theta", "phi"}, cs.Names())

	x, err := cs.X(2)
	require.NoError(t, err)
	assert.Equal(t, "theta", x.Name())

	_, err = cs.X(4)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)

	d, err := cs.Partial(symbolic.MustParse("r^2*sin(theta)"), 1)
	require.NoError(t, err)
	assert.True(t, symbolic.Equivalent(d, symbolic.MustParse("2*r*sin(theta)")))
}

func TestCoordinateSystem_Invalid(t *testing.T) {
	_, err := tensor.NewCoordinateSystem()
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	_, err = tensor.NewCoordinateSystem("x", "x")
	assert.ErrorIs(t, err, tensor.ErrDuplicateCoordinate)
}

func TestMetric_InverseIsIdentity(t *testing.T) {
	cs, err := tensor.NewCoordinateSystem("t", "x")
	require.NoError(t, err)
	g, err := tensor.ParseMetric([][]string{{"1", "x"}, {"x", "-1"}}, cs)
	require.NoError(t, err)

	prod := g.Covariant().MatMul(g.Contravariant())
	id := symbolic.Identity(2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.True(t, symbolic.Equivalent(prod.Get(i, j), id.Get(i, j)),
				"[%d,%d] = %s", i, j, prod.Get(i, j))
		}
	}
	assert.True(t, symbolic.Equivalent(g.Det(), symbolic.MustParse("-1 - x^2")))
}

func TestMetric_DimensionMismatch(t *testing.T) {
	cs, err := tensor.NewCoordinateSystem("t", "x", "y")
	require.NoError(t, err)

	_, err = tensor.ParseMetric([][]string{{"1", "0"}, {"0", "1"}}, cs)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	_, err = tensor.ParseMetric([][]string{{"1", "0", "0"}, {"0", "1"}, {"0", "0", "1"}}, cs)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestMetric_Singular(t *testing.T) {
	cs, err := tensor.NewCoordinateSystem("u", "v")
	require.NoError(t, err)
	_, err = tensor.ParseMetric([][]string{{"1", "1"}, {"1", "1"}}, cs)
	assert.ErrorIs(t, err, tensor.ErrSingularMetric)
}

func TestMetric_UndefinedEntry(t *testing.T) {
	cs, err := tensor.NewCoordinateSystem("x", "y")
	require.NoError(t, err)

	_, err = tensor.ParseMetric([][]string{{"1/(x-x)", "0"}, {"0", "1"}}, cs)
	assert.ErrorIs(t, err, tensor.ErrUndefinedComponent)
	assert.ErrorContains(t, err, "[0,0]")

	_, err = tensor.ParseMetric([][]string{{"1", "0"}, {"0", "x/(sin(y)^2 + cos(y)^2 - 1)"}}, cs)
	assert.ErrorIs(t, err, tensor.ErrUndefinedComponent)
}

func TestMetric_At(t *testing.T) {
	g := polar(t)
	v, err := g.At(tensor.Contravariant, 1, 1)
	require.NoError(t, err)
	assert.True(t, symbolic.Equivalent(v, symbolic.MustParse("1/r^2")))

	v, err = g.At(tensor.Mixed, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	_, err = g.At(tensor.Covariant, 2, 0)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)
}

// ============================================================
// Tensor
// ============================================================

func TestNewTensor_InvalidRank(t *testing.T) {
	_, err := tensor.NewTensor(minkowski(t), 0)
	assert.ErrorIs(t, err, tensor.ErrInvalidRank)
}

func TestTensor_Memoization(t *testing.T) {
	g := polar(t)
	tt, err := tensor.NewTensor(g, 2)
	require.NoError(t, err)
	require.NoError(t, tensor.ForEachIndex(2, 2, func(idx []int) error {
		return tt.SetMixed(symbolic.MulOf(symbolic.N(int64(idx[0]+1)), symbolic.S("r")), idx...)
	}))

	first, err := tt.Co(1, 0)
	require.NoError(t, err)
	second, err := tt.Co(1, 0)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	stats := tt.Stats()
	assert.Equal(t, 1, stats.Co.Computed)
	assert.Equal(t, 1, stats.Co.Hits)
	// g_1m T^m_0 = r^2 * T^1_0 = r^2 * 2r
	assert.True(t, symbolic.Equivalent(first, symbolic.MustParse("2*r^3")))
}

func TestTensor_RoundTripRank1(t *testing.T) {
	g := polar(t)
	v := []symbolic.Expr{symbolic.S("a"), symbolic.MustParse("b*sin(phi)")}

	up, err := tensor.NewTensor(g, 1)
	require.NoError(t, err)
	for i, e := range v {
		require.NoError(t, up.SetContra(e, i))
	}

	down, err := tensor.NewTensor(g, 1)
	require.NoError(t, err)
	for i := range v {
		co, err := up.Co(i)
		require.NoError(t, err)
		require.NoError(t, down.SetCo(co, i))
	}
	for i, want := range v {
		got, err := down.Contra(i)
		require.NoError(t, err)
		assert.True(t, symbolic.Equivalent(got, want), "component %d: %s", i, got)
	}
}

func TestTensor_MixedRank1IsContra(t *testing.T) {
	tt, err := tensor.NewTensor(polar(t), 1)
	require.NoError(t, err)
	require.NoError(t, tt.SetContra(symbolic.S("w"), 1))
	m, err := tt.Mixed(1)
	require.NoError(t, err)
	assert.Equal(t, "w", m.String())
}

func TestTensor_UnderdeterminedRollsBack(t *testing.T) {
	tt, err := tensor.NewTensor(minkowski(t), 2)
	require.NoError(t, err)

	_, err = tt.Co(0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrUnderdetermined))

	for _, v := range []tensor.Variance{tensor.Covariant, tensor.Contravariant, tensor.Mixed} {
		populated, err := tt.IsPopulated(v, 0, 0)
		require.NoError(t, err)
		assert.False(t, populated, "%s[0,0] must not be populated after a failure", v)
	}
	assert.False(t, tt.IsFullyDetermined())
}

func TestTensor_OutOfRange(t *testing.T) {
	tt, err := tensor.NewTensor(minkowski(t), 2)
	require.NoError(t, err)
	_, err = tt.Co(0, 4)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)
	assert.ErrorIs(t, tt.SetCo(symbolic.N(1), 0), tensor.ErrIndexOutOfRange)
}

func TestTensor_ComputeAllAndTrace(t *testing.T) {
	g := minkowski(t)
	tt, err := tensor.NewTensor(g, 2)
	require.NoError(t, err)
	require.NoError(t, tensor.ForEachIndex(2, 4, func(idx []int) error {
		return tt.SetCo(g.Co(idx[0], idx[1]), idx...)
	}))
	require.NoError(t, tt.ComputeAll())
	assert.True(t, tt.IsFullyDetermined())

	up, err := tt.Contra(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "-1", up.String())

	mixed, err := tt.Mixed(2, 2)
	require.NoError(t, err)
	assert.Equal(t, "1", mixed.String())

	tr, err := tt.Trace()
	require.NoError(t, err)
	assert.Equal(t, "4", tr.String())
}

func TestTensor_TraceRequiresRank2(t *testing.T) {
	tt, err := tensor.NewTensor(minkowski(t), 3)
	require.NoError(t, err)
	_, err = tt.Trace()
	assert.ErrorIs(t, err, tensor.ErrInvalidRank)
}

func TestParseVariance(t *testing.T) {
	for in, want := range map[string]tensor.Variance{
		"co": tensor.Covariant, "Contravariant": tensor.Contravariant, "mixed": tensor.Mixed,
	} {
		got, err := tensor.ParseVariance(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := tensor.ParseVariance("sideways")
	assert.Error(t, err)
}

// ============================================================
// Manifold
// ============================================================

func constantKind(name string, value int64) tensor.Kind {
	return tensor.Kind{
		Name: name,
		Rank: 2,
		Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
			return tensor.ForEachIndex(2, m.Dim(), func(idx []int) error {
				return t.SetCo(symbolic.N(value), idx...)
			})
		},
	}
}

func TestManifold_DefineDuplicate(t *testing.T) {
	ctx := context.Background()
	m, err := tensor.NewManifold(minkowski(t))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID())

	status, err := m.Define(ctx, "ricci", constantKind("ricci", 3))
	require.NoError(t, err)
	assert.Equal(t, tensor.Defined, status)

	status, err = m.Define(ctx, "ricci", constantKind("ricci", 7))
	require.NoError(t, err)
	assert.Equal(t, tensor.Duplicate, status)

	c, err := m.Component("ricci", tensor.Covariant, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "3", c.String())
	assert.Equal(t, []string{"ricci"}, m.Tensors())
}

func TestManifold_LookupUndefined(t *testing.T) {
	m, err := tensor.NewManifold(minkowski(t))
	require.NoError(t, err)

	_, err = m.Lookup("riemann")
	assert.ErrorIs(t, err, tensor.ErrUndefinedTensor)

	_, err = m.Component("riemann", tensor.Mixed, 0, 1, 0, 1)
	assert.ErrorIs(t, err, tensor.ErrUndefinedTensor)

	_, err = m.Require(tensor.RoleRiemann)
	assert.ErrorIs(t, err, tensor.ErrUndefinedTensor)
}

func TestManifold_FailedPopulateRegistersNothing(t *testing.T) {
	ctx := context.Background()
	m, err := tensor.NewManifold(minkowski(t))
	require.NoError(t, err)

	kind := tensor.Kind{
		Role: tensor.RoleRicci,
		Rank: 2,
		Populate: func(m *tensor.Manifold, t *tensor.Tensor) error {
			_, err := m.Require(tensor.RoleRiemann)
			return err
		},
	}
	_, err = m.DefineKind(ctx, kind)
	assert.ErrorIs(t, err, tensor.ErrUndefinedTensor)

	_, err = m.Lookup("ricci")
	assert.ErrorIs(t, err, tensor.ErrUndefinedTensor)
	assert.Empty(t, m.Tensors())
}

func TestManifold_DefineKindUsesNames(t *testing.T) {
	ctx := context.Background()
	names := tensor.DefaultNames()
	names.Ricci = "Ric"
	m, err := tensor.NewManifold(minkowski(t), tensor.WithSettings(tensor.Settings{Names: names}))
	require.NoError(t, err)

	kind := constantKind("", 1)
	kind.Role = tensor.RoleRicci
	status, err := m.DefineKind(ctx, kind)
	require.NoError(t, err)
	assert.Equal(t, tensor.Defined, status)

	got, err := m.Require(tensor.RoleRicci)
	require.NoError(t, err)
	assert.Equal(t, "Ric", got.Name())
	assert.NotNil(t, m.Settings().Kappa)

	m.Close()
	assert.Empty(t, m.Tensors())
}

func TestManifold_InvalidRank(t *testing.T) {
	m, err := tensor.NewManifold(minkowski(t))
	require.NoError(t, err)
	_, err = m.Define(context.Background(), "bad", tensor.Kind{Rank: 0})
	assert.ErrorIs(t, err, tensor.ErrInvalidRank)
}

func TestNames_Validate(t *testing.T) {
	names := tensor.DefaultNames()
	require.NoError(t, names.Validate())

	names.Ricci = names.Riemann
	err := names.Validate()
	assert.ErrorIs(t, err, tensor.ErrDuplicateName)
	assert.ErrorContains(t, err, "riemann and ricci")
}
