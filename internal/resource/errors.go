package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors for the coded-text model and the components built on it.
var (
	// ErrInvalidPosition indicates a range boundary inside a marker pair or out of bounds.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrIllegalOperation indicates malformed input structure (unbalanced groups, bad escapes, ...).
	ErrIllegalOperation = errors.New("illegal operation")
	// ErrTooManyCodes indicates a fragment ran out of marker index space.
	ErrTooManyCodes = errors.New("too many codes")
)

// InvalidPositionError reports a rejected position or range.
type InvalidPositionError struct {
	Op       string // Operation that rejected the position
	Position int    // Offending position in the coded text
	Length   int    // Length of the coded text at the time
	Reason   string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("%s: invalid position %d (length %d): %s", e.Op, e.Position, e.Length, e.Reason)
}

func (e *InvalidPositionError) Unwrap() error { return ErrInvalidPosition }

// IllegalOperationError reports an operation that the current structure
// does not allow.
type IllegalOperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *IllegalOperationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *IllegalOperationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrIllegalOperation
}

// Illegal is shorthand for building an *IllegalOperationError.
func Illegal(op, format string, args ...any) error {
	return &IllegalOperationError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// CodeLimitError is the panic value used when a fragment would exceed MaxCodes.
type CodeLimitError struct {
	Count int
}

func (e *CodeLimitError) Error() string {
	return fmt.Sprintf("fragment holds %d codes, limit is %d", e.Count, MaxCodes)
}

func (e *CodeLimitError) Unwrap() error { return ErrTooManyCodes }
