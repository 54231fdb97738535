package platform

import (
	"errors"
	"fmt"
)

// Error wraps a platform API failure with the operation that produced it and
// whether it is transient. Transient failures are logged and skipped; the
// next reconciliation pass corrects their effects.
type Error struct {
	Op        string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a transient platform failure.
func NewTransient(op string, err error) error {
	return &Error{Op: op, Transient: true, Err: err}
}

// NewPermanent wraps err as a permanent platform failure.
func NewPermanent(op string, err error) error {
	return &Error{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a transient platform failure.
func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Transient
}
