package symbolic

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================
// Matrix: symbolic matrix
// ============================================================

var (
	// ErrNotSquare is returned when rows are ragged or the matrix is not square.
	ErrNotSquare = errors.New("symbolic: matrix is not square")

	// ErrSingular is returned by Inverse when the determinant vanishes.
	ErrSingular = errors.New("symbolic: matrix is singular")
)

type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	data := make([][]Expr, rows)
	for i := range data {
		data[i] = make([]Expr, cols)
		for j := range data[i] {
			data[i][j] = N(0)
		}
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// NewMatrixFromRows builds a square matrix from literal rows. The rows are
// copied.
func NewMatrixFromRows(rows [][]Expr) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrNotSquare)
	}
	m := NewMatrix(n, n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d entries, want %d: %w", i, len(row), n, ErrNotSquare)
		}
		for j, e := range row {
			if e == nil {
				return nil, fmt.Errorf("entry [%d,%d] is nil", i, j)
			}
			m.data[i][j] = e.Simplify()
		}
	}
	return m, nil
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("symbolic: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}
func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val
}
func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.data[i][j].String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

func (m *Matrix) LaTeX() string {
	var sb strings.Builder
	sb.WriteString("\\begin{pmatrix}")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(" \\\\ ")
		}
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(" & ")
			}
			sb.WriteString(m.data[i][j].LaTeX())
		}
	}
	sb.WriteString("\\end{pmatrix}")
	return sb.String()
}

// Copy returns a matrix sharing no row storage with m.
func (m *Matrix) Copy() *Matrix {
	return m.Map(func(e Expr) Expr { return e })
}

// Map applies fn to every entry and returns the resulting matrix.
func (m *Matrix) Map(fn func(Expr) Expr) *Matrix {
	result := NewMatrix(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			result.data[i][j] = fn(m.data[i][j])
		}
	}
	return result
}

func (m *Matrix) MatMul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic("symbolic: matrix dimension mismatch in MatMul")
	}
	result := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			terms := make([]Expr, 0, m.cols)
			for k := 0; k < m.cols; k++ {
				if IsZeroNum(m.data[i][k]) || IsZeroNum(other.data[k][j]) {
					continue
				}
				terms = append(terms, MulOf(m.data[i][k], other.data[k][j]))
			}
			result.data[i][j] = AddOf(terms...)
		}
	}
	return result
}

func (m *Matrix) Trace() Expr {
	if m.rows != m.cols {
		panic("symbolic: Trace requires a square matrix")
	}
	terms := make([]Expr, m.rows)
	for i := 0; i < m.rows; i++ {
		terms[i] = m.data[i][i]
	}
	return AddOf(terms...)
}

// IsDiagonal reports whether every off-diagonal entry is the literal zero.
func (m *Matrix) IsDiagonal() bool {
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if i != j && !IsZeroNum(m.data[i][j]) {
				return false
			}
		}
	}
	return true
}

// Det is the cofactor expansion along the row with the most literal zeros.
func (m *Matrix) Det() Expr {
	if m.rows != m.cols {
		panic("symbolic: Det requires a square matrix")
	}
	return matDet(m.data, m.rows)
}

func matDet(data [][]Expr, n int) Expr {
	switch n {
	case 1:
		return data[0][0]
	case 2:
		return AddOf(
			MulOf(data[0][0], data[1][1]),
			MulOf(N(-1), data[0][1], data[1][0]),
		)
	}
	row := sparsestRow(data, n)
	terms := make([]Expr, 0, n)
	for j := 0; j < n; j++ {
		if IsZeroNum(data[row][j]) {
			continue
		}
		sign := N(1)
		if (row+j)%2 == 1 {
			sign = N(-1)
		}
		terms = append(terms, MulOf(sign, data[row][j], matDet(makeMinor(data, n, row, j), n-1)))
	}
	return AddOf(terms...)
}

func sparsestRow(data [][]Expr, n int) int {
	best, bestZeros := 0, -1
	for i := 0; i < n; i++ {
		zeros := 0
		for j := 0; j < n; j++ {
			if IsZeroNum(data[i][j]) {
				zeros++
			}
		}
		if zeros > bestZeros {
			best, bestZeros = i, zeros
		}
	}
	return best
}

func makeMinor(data [][]Expr, n, skipRow, skipCol int) [][]Expr {
	minor := make([][]Expr, n-1)
	mi := 0
	for i := 0; i < n; i++ {
		if i == skipRow {
			continue
		}
		minor[mi] = make([]Expr, n-1)
		mj := 0
		for j := 0; j < n; j++ {
			if j == skipCol {
				continue
			}
			minor[mi][mj] = data[i][j]
			mj++
		}
		mi++
	}
	return minor
}

// Inverse returns the adjugate divided by the determinant, with every entry
// in normal form. A diagonal matrix is inverted entrywise.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("inverse of %dx%d matrix: %w", m.rows, m.cols, ErrNotSquare)
	}
	n := m.rows
	det := Normalize(m.Det())
	if IsZero(det) {
		return nil, ErrSingular
	}
	if m.IsDiagonal() {
		inv := NewMatrix(n, n)
		for i := 0; i < n; i++ {
			inv.data[i][i] = Normalize(PowOf(m.data[i][i], N(-1)))
		}
		return inv, nil
	}
	if n == 1 {
		inv := NewMatrix(1, 1)
		inv.data[0][0] = Normalize(PowOf(det, N(-1)))
		return inv, nil
	}
	invDet := PowOf(det, N(-1))
	inv := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			minor := makeMinor(m.data, n, i, j)
			sign := N(1)
			if (i+j)%2 == 1 {
				sign = N(-1)
			}
			// adjugate is the transposed cofactor matrix
			inv.data[j][i] = Normalize(MulOf(sign, matDet(minor, n-1), invDet))
		}
	}
	return inv, nil
}

func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = N(1)
	}
	return m
}
