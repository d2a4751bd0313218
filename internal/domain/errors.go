package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrConflict is returned when a stored collection changed between read and write.
	ErrConflict = errors.New("collection was modified concurrently")
	ErrOffline  = errors.New("offline")
)

// ValidationError carries a message meant for the person at the counter.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid returns a *ValidationError with msg.
func Invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
