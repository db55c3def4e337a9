package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("checkout validation failed")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrSessionNotFound   = errors.New("checkout session not found")
)

// ValidationError is a gate that blocked the pipeline. The session status is
// left as it was.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RedirectUnavailableError means the payment page could not be opened. The
// payment session exists; URL has to be shown to the user instead.
type RedirectUnavailableError struct {
	URL string
	Err error
}

func (e *RedirectUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot open payment url %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("cannot open payment url %s", e.URL)
}

func (e *RedirectUnavailableError) Unwrap() error { return e.Err }
