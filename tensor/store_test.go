package tensor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/tensor"
)

func TestNewStore_Invalid(t *testing.T) {
	_, err := tensor.NewStore(0, 4)
	assert.ErrorIs(t, err, tensor.ErrInvalidRank)

	_, err = tensor.NewStore(2, 0)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	_, err = tensor.NewStore(40, 4)
	assert.ErrorIs(t, err, tensor.ErrInvalidRank)
}

func TestStore_MixedRadixOffset(t *testing.T) {
	s, err := tensor.NewStore(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Len())

	off, err := s.Offset([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1*16+2*4+3, off)
}

func TestStore_SetGet(t *testing.T) {
	s, err := tensor.NewStore(2, 3)
	require.NoError(t, err)

	_, ok, err := s.Get([]int{1, 2})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set([]int{1, 2}, symbolic.S("x")))
	v, ok, err := s.Get([]int{1, 2})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v.String())
	assert.Equal(t, 1, s.Populated())

	require.NoError(t, s.Clear([]int{1, 2}))
	populated, err := s.IsPopulated([]int{1, 2})
	require.NoError(t, err)
	assert.False(t, populated)
	assert.Equal(t, 0, s.Populated())
}

func TestStore_OutOfRange(t *testing.T) {
	s, err := tensor.NewStore(2, 3)
	require.NoError(t, err)

	for _, idx := range [][]int{{3, 0}, {0, -1}, {0}, {0, 0, 0}} {
		_, _, err := s.Get(idx)
		assert.True(t, errors.Is(err, tensor.ErrIndexOutOfRange), "index %v", idx)
		assert.ErrorIs(t, s.Set(idx, symbolic.N(1)), tensor.ErrIndexOutOfRange)
	}
}

func TestStore_Full(t *testing.T) {
	s, err := tensor.NewStore(2, 2)
	require.NoError(t, err)
	err = tensor.ForEachIndex(2, 2, func(idx []int) error {
		return s.Set(idx, symbolic.N(0))
	})
	require.NoError(t, err)
	assert.True(t, s.Full())
}

func TestForEachIndex_Order(t *testing.T) {
	var seen [][]int
	err := tensor.ForEachIndex(2, 3, func(idx []int) error {
		seen = append(seen, append([]int(nil), idx...))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 9)
	assert.Equal(t, []int{0, 0}, seen[0])
	assert.Equal(t, []int{0, 1}, seen[1])
	assert.Equal(t, []int{2, 2}, seen[8])
}

func TestForEachIndex_StopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := tensor.ForEachIndex(3, 2, func([]int) error {
		calls++
		if calls == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, calls)
}
