package rental

import (
	"errors"
	"fmt"
)

// Sentinel errors for state conflicts. Callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("item not found")
	ErrAlreadyRented   = errors.New("item is already rented")
	ErrNotRented       = errors.New("item is not rented")
	ErrBlacklisted     = errors.New("user is blacklisted")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrDuplicateProof  = errors.New("proof image was already submitted")
	ErrProofDecided    = errors.New("proof was already decided")
)

// ValidationError reports malformed user input. Message is safe to show to
// the user verbatim.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. The operation did not apply.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
