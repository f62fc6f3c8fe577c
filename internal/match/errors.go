package match

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when the query is empty or longer than the
	// series it is matched against. Use errors.Is to check for it.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownStrategy is returned when a strategy name is not recognised.
	ErrUnknownStrategy = errors.New("unknown search strategy")
	// ErrUnknownAxis is returned when a dispatch axis name is not recognised.
	ErrUnknownAxis = errors.New("unknown dispatch axis")
)

// InvalidQueryError carries the lengths that failed the precondition.
type InvalidQueryError struct {
	QueryLen  int
	SeriesLen int
}

func (e *InvalidQueryError) Error() string {
	if e.QueryLen == 0 {
		return "invalid query: query is empty"
	}
	return fmt.Sprintf("invalid query: query length %d exceeds series length %d", e.QueryLen, e.SeriesLen)
}

func (e *InvalidQueryError) Is(target error) bool {
	if target == ErrInvalidQuery {
		return true
	}
	_, ok := target.(*InvalidQueryError)
	return ok
}

// lastOffset checks the search precondition and returns the largest valid
// window offset.
func lastOffset(series, query []float64) (int, error) {
	if len(query) == 0 || len(query) > len(series) {
		return 0, &InvalidQueryError{QueryLen: len(query), SeriesLen: len(series)}
	}
	return len(series) - len(query), nil
}
