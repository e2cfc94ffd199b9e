package query

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidPredicate    = errors.New("invalid predicate")
	ErrInvalidLimit        = errors.New("invalid limit")
	ErrStoreRequired       = errors.New("record store is required")
)

// ReadError reports a store failure while scanning. The whole execution
// fails; no partial result is returned alongside it.
type ReadError struct {
	Ordinal int
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read record %d: %v", e.Ordinal, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
