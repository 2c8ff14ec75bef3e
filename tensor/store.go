package tensor

import (
	"fmt"

	"github.com/njchilds90/spacetime/symbolic"
)

// maxStoreLen bounds dim^rank so that a typo in a rank cannot allocate
// gigabytes.
const maxStoreLen = 1 << 22

// Store is a rank-R, dimension-D container of expressions addressed by index
// tuples in [0,D)^R. Each tuple carries a populated flag. Storage is a flat
// buffer indexed by the mixed-radix offset sum(idx[k] * D^(R-1-k)).
type Store struct {
	rank, dim int
	data      []symbolic.Expr
	filled    []bool
	count     int
}

// NewStore allocates an empty store.
func NewStore(rank, dim int) (*Store, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("store rank %d: %w", rank, ErrInvalidRank)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("store dimension %d: %w", dim, ErrDimensionMismatch)
	}
	size := 1
	for i := 0; i < rank; i++ {
		size *= dim
		if size > maxStoreLen {
			return nil, fmt.Errorf("store %d^%d exceeds %d entries: %w", dim, rank, maxStoreLen, ErrInvalidRank)
		}
	}
	return &Store{
		rank:   rank,
		dim:    dim,
		data:   make([]symbolic.Expr, size),
		filled: make([]bool, size),
	}, nil
}

func (s *Store) Rank() int { return s.rank }
func (s *Store) Dim() int  { return s.dim }

// Len is the number of addressable tuples, dim^rank.
func (s *Store) Len() int { return len(s.data) }

// Populated is the number of populated tuples.
func (s *Store) Populated() int { return s.count }

// Full reports whether every tuple is populated.
func (s *Store) Full() bool { return s.count == len(s.data) }

// Offset returns the flat offset of idx.
func (s *Store) Offset(idx []int) (int, error) {
	if len(idx) != s.rank {
		return 0, fmt.Errorf("%d indices for rank %d: %w", len(idx), s.rank, ErrIndexOutOfRange)
	}
	off := 0
	for _, i := range idx {
		if i < 0 || i >= s.dim {
			return 0, fmt.Errorf("index %v outside [0,%d): %w", idx, s.dim, ErrIndexOutOfRange)
		}
		off = off*s.dim + i
	}
	return off, nil
}

// Get returns the value at idx and whether it is populated.
func (s *Store) Get(idx []int) (symbolic.Expr, bool, error) {
	off, err := s.Offset(idx)
	if err != nil {
		return nil, false, err
	}
	return s.data[off], s.filled[off], nil
}

// Set writes v at idx and marks the tuple populated.
func (s *Store) Set(idx []int, v symbolic.Expr) error {
	off, err := s.Offset(idx)
	if err != nil {
		return err
	}
	s.setAt(off, v)
	return nil
}

func (s *Store) setAt(off int, v symbolic.Expr) {
	if !s.filled[off] {
		s.count++
	}
	s.data[off] = v
	s.filled[off] = true
}

func (s *Store) IsPopulated(idx []int) (bool, error) {
	off, err := s.Offset(idx)
	if err != nil {
		return false, err
	}
	return s.filled[off], nil
}

// Clear drops the value at idx and its populated flag.
func (s *Store) Clear(idx []int) error {
	off, err := s.Offset(idx)
	if err != nil {
		return err
	}
	if s.filled[off] {
		s.count--
	}
	s.data[off] = nil
	s.filled[off] = false
	return nil
}

// ForEachIndex calls fn for every tuple of [0,dim)^rank in offset order,
// stopping at the first error. fn must not retain idx.
func ForEachIndex(rank, dim int, fn func(idx []int) error) error {
	if rank <= 0 || dim <= 0 {
		return nil
	}
	idx := make([]int, rank)
	for {
		if err := fn(idx); err != nil {
			return err
		}
		k := rank - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < dim {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return nil
		}
	}
}
