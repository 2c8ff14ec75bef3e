package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/config"
	"github.com/njchilds90/spacetime/server"
	"github.com/njchilds90/spacetime/tensor"
	"github.com/njchilds90/spacetime/worldline"
)

// execute runs the root command once. Slice flags accumulate across runs
// of the same command, so each test passes them at most once.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, unitsFlag = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestIndexLabel(t *testing.T) {
	tests := []struct {
		v    tensor.Variance
		idx  []int
		want string
	}{
		{tensor.Covariant, []int{0, 1}, "T_{01}"},
		{tensor.Contravariant, []int{2, 3}, "T^{23}"},
		{tensor.Mixed, []int{0, 1, 2, 3}, "T^{0}_{123}"},
		{tensor.Mixed, []int{3}, "T^{3}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, indexLabel("T", tt.v, tt.idx))
	}
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	assert.False(t, p.styled)

	p.components("ricci", tensor.Covariant, nil, false)
	p.components("ricci", tensor.Covariant, []server.ReportRow{
		{Indices: []int{1, 1}, String: "2/r^2", LaTeX: `\frac{2}{r^{2}}`},
	}, true)
	p.value("ricci scalar", "0")
	p.states([]string{"t", "x"}, []worldline.State{{Tau: 0, Position: []float64{0, 1}}})

	out := buf.String()
	assert.Contains(t, out, "all components vanish")
	assert.Contains(t, out, `ricci_{11} = \frac{2}{r^{2}}`)
	assert.Contains(t, out, "ricci scalar = 0")
	assert.Contains(t, out, "tau\tt\tx")
	assert.Contains(t, out, "0\t0\t1")
	assert.NotContains(t, out, "\x1b[")
}

func TestSearchCommand(t *testing.T) {
	out, err := execute(t, "search", "minkowski", "--tag", "flat")
	require.NoError(t, err)
	assert.Contains(t, out, "rectangular Minkowski metric")
	assert.Contains(t, out, "spherical Minkowski metric")
	assert.NotContains(t, out, "Schwarzschild")
}

func TestScalarCommand(t *testing.T) {
	out, err := execute(t, "scalar", "spherical Minkowski metric", "--kind", "ricci")
	require.NoError(t, err)
	assert.Equal(t, "ricci scalar = 0\n", out)

	_, err = execute(t, "scalar", "spherical Minkowski metric", "--kind", "weyl")
	assert.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	out, err := execute(t, "report", "spherical Minkowski metric",
		"--tensor", "Ricci tensor", "--show", "connection", "--variance", "mixed")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "connection coefficients (mixed)", lines[0])
	assert.Contains(t, out, "connection coefficients^{1}_{22} = ")
	assert.Contains(t, out, "connection coefficients^{2}_{12} = ")
	assert.NotContains(t, out, "^{0}")
}

func TestGeodesicCommand(t *testing.T) {
	out, err := execute(t, "geodesic", "rectangular Minkowski metric",
		"--position", "0,0,0,0", "--velocity", "1,0.6,0,0", "--steps", "2", "--dtau", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "tau\tt\tx\ty\tz", lines[0])
	assert.Equal(t, "2\t2.5\t1.5\t0\t0", lines[3])
}

func TestUnitsFlag(t *testing.T) {
	_, err := execute(t, "scalar", "spherical Minkowski metric", "--kind", "ricci", "--units", "planck")
	assert.ErrorContains(t, err, "unknown unit system")

	c := config.Default()
	require.NoError(t, applyUnits(&c, "si"))
	assert.False(t, c.Units.NormalizeC)
	require.NoError(t, applyUnits(&c, ""))
	assert.False(t, c.Units.NormalizeC)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sxl", "sxl.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestParseParams(t *testing.T) {
	got, err := parseParams(map[string]string{"M": "1", "a": "0.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"M": 1, "a": 0.5}, got)

	_, err = parseParams(map[string]string{"M": "heavy"})
	assert.Error(t, err)
}
