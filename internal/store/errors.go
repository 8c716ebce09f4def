package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind classifies a store failure so callers can tell retryable conditions
// apart from missing records and bad input.
type Kind int

const (
	KindUnavailable Kind = iota + 1
	KindTransaction
	KindNotFound
	KindValidation
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTransaction:
		return "transaction"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every Gateway and repository call.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same Kind, so errors.Is(err, ErrNotFound)
// works regardless of the operation that failed.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrTransaction = &Error{Kind: KindTransaction}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrBlocked     = &Error{Kind: KindBlocked}
)

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify wraps a raw driver error. Errors that already carry a Kind pass
// through unchanged.
func classify(op string, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if isBusy(err) {
		return newError(KindBlocked, op, err)
	}
	return newError(fallback, op, err)
}

func isBusy(err error) bool {
	var le *sqlite.Error
	if !errors.As(err, &le) {
		return false
	}
	switch le.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isConstraint(err error) bool {
	var le *sqlite.Error
	if !errors.As(err, &le) {
		return false
	}
	return le.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
