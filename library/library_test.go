package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/library"
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

func names(results []library.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Entry.Name
	}
	return out
}

func TestBuiltin_Valid(t *testing.T) {
	c := library.Builtin()
	require.Greater(t, c.Len(), 10)
	for _, e := range c.Entries() {
		assert.NoError(t, e.Validate(), e.Name)
	}
}

func TestSearch_ScoresAndTies(t *testing.T) {
	c := library.Builtin()
	got := c.Search([]string{"minkowski"}, nil)
	assert.Equal(t, []string{
		"cylindrical Minkowski metric",
		"rectangular Minkowski metric",
		"spherical Minkowski metric",
	}, names(got))
	for _, r := range got {
		assert.Equal(t, 10, r.Score)
	}
}

func TestSearch_TagsAndFilters(t *testing.T) {
	c := library.Builtin()
	got := c.Search([]string{"coords"}, map[string]bool{"3D": true})
	assert.Equal(t, []string{"foliated cylindrical coordinates", "foliated spherical coordinates"}, names(got))

	got = c.Search([]string{"minkowski"}, map[string]bool{"flat": false})
	assert.Empty(t, got)
}

func TestGet(t *testing.T) {
	c := library.Builtin()

	e, err := c.Get("Schwarzschild metric")
	require.NoError(t, err)
	assert.Equal(t, library.KindMetric, e.Kind)

	e, err = c.Get("schwarzschild")
	require.NoError(t, err)
	assert.Equal(t, "Schwarzschild metric", e.Name)

	_, err = c.Get("kerr-newman")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestMetric_NaturalUnits(t *testing.T) {
	c := library.Builtin()
	g, err := c.Metric("Schwarzschild metric", library.Natural())
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "r", "theta", "phi"}, g.Coordinates().Names())
	assert.True(t, symbolic.Equivalent(g.Co(0, 0), symbolic.MustParse("1 - 2*M/r")), "g00 = %s", g.Co(0, 0))
	assert.True(t, symbolic.Equivalent(g.Contra(1, 1), symbolic.MustParse("2*M/r - 1")), "g^11 = %s", g.Contra(1, 1))

	_, err = c.Metric("spherical coordinates", library.Natural())
	assert.ErrorIs(t, err, library.ErrWrongKind)
}

func TestMetric_SIKeepsConstants(t *testing.T) {
	c := library.Builtin()
	g, err := c.Metric("de Sitter metric", library.SI())
	require.NoError(t, err)
	assert.Contains(t, symbolic.SortedSymbols(g.Co(0, 0)), "Lambda")
	assert.Contains(t, symbolic.SortedSymbols(g.Co(0, 0)), "c")

	flat, err := c.Metric("de Sitter metric", library.Natural())
	require.NoError(t, err)
	assert.Equal(t, "1", flat.Co(0, 0).String())
}

func TestUnits_Settings(t *testing.T) {
	s := library.Natural().Settings(tensor.DefaultNames())
	assert.True(t, symbolic.Equivalent(s.Kappa, symbolic.MustParse("8*pi")))
	assert.Equal(t, "0", s.Lambda.String())

	s = library.SI().Settings(tensor.DefaultNames())
	assert.Equal(t, "Lambda", s.Lambda.String())
}

func TestKinds(t *testing.T) {
	c := library.Builtin()
	kinds, err := c.Kinds("everything")
	require.NoError(t, err)
	require.Len(t, kinds, 6)
	assert.Equal(t, tensor.RoleConnection, kinds[0].Role)
	assert.Equal(t, tensor.RoleStressEnergyMomentum, kinds[5].Role)

	_, err = c.Kinds("rectangular coordinates")
	assert.ErrorIs(t, err, library.ErrWrongKind)
}

func TestResolve(t *testing.T) {
	c := library.Builtin()
	kinds, err := c.Resolve("weyl")
	require.NoError(t, err)
	require.Len(t, kinds, 1)
	assert.Equal(t, tensor.RoleWeyl, kinds[0].Role)

	kinds, err = c.Resolve("Weyl tensor")
	require.NoError(t, err)
	require.Len(t, kinds, 5)
	assert.Equal(t, tensor.RoleSchouten, kinds[3].Role)

	_, err = c.Resolve("Schwarzschild metric")
	assert.ErrorIs(t, err, library.ErrWrongKind)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	doc := `entries:
  - name: polar plane
    kind: metric
    tags: [2D, flat]
    coordinates: [r, phi]
    metric:
      - ["1", "0"]
      - ["0", "r^2"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c := library.Builtin()
	before := c.Len()
	require.NoError(t, c.Load(path))
	assert.Equal(t, before+1, c.Len())

	g, err := c.Metric("polar plane", library.SI())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Dim())
}

func TestParse_InvalidEntries(t *testing.T) {
	for name, doc := range map[string]string{
		"missing metric": "entries:\n  - name: a\n    kind: metric\n    coordinates: [x]\n",
		"bad kind":       "entries:\n  - name: a\n    kind: scalar\n    coordinates: [x]\n",
		"ragged metric":  "entries:\n  - name: a\n    kind: metric\n    coordinates: [x, y]\n    metric: [[\"1\", \"0\"], [\"0\"]]\n",
		"no name":        "entries:\n  - kind: coordinates\n    coordinates: [x]\n",
	} {
		_, err := library.Parse([]byte(doc))
		assert.ErrorIs(t, err, library.ErrInvalidEntry, name)
	}

	_, err := library.Parse([]byte("entries: [unterminated"))
	assert.Error(t, err)
}
