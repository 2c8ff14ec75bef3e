package tensor

import "errors"

var (
	// ErrDimensionMismatch is returned when a metric's size disagrees with its
	// coordinate system, when a matrix is not square, or when a dimension is
	// not positive.
	ErrDimensionMismatch = errors.New("tensor: dimension mismatch")

	// ErrInvalidRank is returned for tensors and stores with rank <= 0.
	ErrInvalidRank = errors.New("tensor: invalid rank")

	// ErrIndexOutOfRange is returned when an index tuple has the wrong length
	// or a component outside [0, dim).
	ErrIndexOutOfRange = errors.New("tensor: index out of range")

	// ErrUndefinedTensor is returned when a name is not registered in a manifold.
	ErrUndefinedTensor = errors.New("tensor: undefined tensor reference")

	// ErrUnderdetermined is returned when a component depends on itself, which
	// happens when none of a tensor's representations were populated.
	ErrUnderdetermined = errors.New("tensor: component is underdetermined")

	// ErrSingularMetric is returned when the metric has no inverse.
	ErrSingularMetric = errors.New("tensor: metric is singular")

	// ErrUndefinedComponent is returned when a metric entry, its determinant
	// or one of its derivatives has no normal form, e.g. a division by zero.
	ErrUndefinedComponent = errors.New("tensor: component has no normal form")

	// ErrDuplicateName is returned when two roles are given the same name.
	ErrDuplicateName = errors.New("tensor: duplicate tensor name")

	// ErrDuplicateCoordinate is returned when a coordinate name repeats.
	ErrDuplicateCoordinate = errors.New("tensor: duplicate coordinate")
)

// Status reports the outcome of a successful Define.
type Status int

const (
	// Defined means the tensor was populated and registered.
	Defined Status = iota + 1
	// Duplicate means the name was already registered; nothing changed.
	Duplicate
)

func (s Status) String() string {
	switch s {
	case Defined:
		return "defined"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}
