package types

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the structured types
// below satisfy errors.Is against their sentinel.
var (
	ErrInvalid          = errors.New("invalid input")
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrInvalidReference = errors.New("owner does not exist")
	ErrNotFound         = errors.New("not found")
	ErrCascade          = errors.New("cascade delete incomplete")
	ErrStore            = errors.New("store operation did not complete")
)

// ValidationError reports malformed input caught before any store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalid.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Constraint classifies a store-side constraint violation.
type Constraint int

const (
	ConstraintNone Constraint = iota
	ConstraintUnique
	ConstraintForeignKey
)

func (c Constraint) String() string {
	switch c {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	default:
		return "none"
	}
}

// StoreError wraps a driver or connectivity failure. Beyond Constraint,
// which repositories use to translate violations, it is opaque.
type StoreError struct {
	Op         string
	Constraint Constraint
	Err        error
}

func (e *StoreError) Error() string {
	if e.Constraint != ConstraintNone {
		return fmt.Sprintf("store %s: %s violation: %v", e.Op, e.Constraint, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is matches ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// IsConstraint reports whether err carries a StoreError with constraint c.
func IsConstraint(err error, c Constraint) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Constraint == c
}

// OrphanError reports a persisted property whose owner no longer exists.
// A read that meets one fails as a whole.
type OrphanError struct {
	PropertyID int64
	OwnerID    int64
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("property %d references missing user %d", e.PropertyID, e.OwnerID)
}

// Is matches ErrStore.
func (e *OrphanError) Is(target error) bool { return target == ErrStore }

// CascadeError means the user row was deleted but its dependent properties
// could not be removed. The data is inconsistent until an operator fixes it.
type CascadeError struct {
	UserID int64
	Err    error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("user %d deleted but dependent properties remain: %v", e.UserID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// Is matches ErrCascade.
func (e *CascadeError) Is(target error) bool { return target == ErrCascade }
