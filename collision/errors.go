package collision

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/collide/shape"
)

// ErrUnsupportedQuery is returned by an algorithm that does not implement a query.
var ErrUnsupportedQuery = errors.New("query not supported by this collision algorithm")

// UnsupportedShapePairError is returned when no algorithm is registered for a pair of shape kinds in
// either order.
type UnsupportedShapePairError struct {
	Kind1 shape.Kind
	Kind2 shape.Kind
}

func (e *UnsupportedShapePairError) Error() string {
	return fmt.Sprintf("no collision algorithm registered for shape pair (%v, %v)", e.Kind1, e.Kind2)
}

// NewUnsupportedShapePairError returns an error for the ordered pair (kind1, kind2).
func NewUnsupportedShapePairError(kind1, kind2 shape.Kind) error {
	return &UnsupportedShapePairError{Kind1: kind1, Kind2: kind2}
}

// IsUnsupportedShapePair reports whether err (or anything it wraps) is an UnsupportedShapePairError.
func IsUnsupportedShapePair(err error) bool {
	var pairErr *UnsupportedShapePairError
	return errors.As(err, &pairErr)
}
