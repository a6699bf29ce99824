package db

import (
	"errors"
	"fmt"
)

// ErrNotFound marks operations that target a nonexistent item.
// Match with errors.Is.
var ErrNotFound = errors.New("item not found")

// ValidationError reports malformed or out-of-domain input: an empty name,
// a category or status outside its enumerated set. The operation is rejected
// before any state is mutated. Match with errors.As.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(id string) error {
	return fmt.Errorf("%w: %s (use 'supplements list' to see tracked items)", ErrNotFound, id)
}
