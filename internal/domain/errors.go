package domain

import (
	"errors"
	"fmt"
)

// ValidationError marks a malformed proposal. Rejected before submission,
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientExchangeError wraps a network or rate-limit failure that is safe to
// retry with backoff.
type TransientExchangeError struct {
	Err error
}

func (e *TransientExchangeError) Error() string {
	return fmt.Sprintf("transient exchange error: %v", e.Err)
}

func (e *TransientExchangeError) Unwrap() error {
	return e.Err
}

// ExchangeRejection is a definitive refusal by the venue. Surfaced, not retried.
type ExchangeRejection struct {
	Code    int
	Message string
}

func (e *ExchangeRejection) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange rejected order (code=%d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("exchange rejected order: %s", e.Message)
}

// InvariantViolation signals corrupted or conflicting state, e.g. a duplicate
// open position. Fatal to that symbol's action for the cycle; the cycle
// continues for other symbols.
type InvariantViolation struct {
	Symbol string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s", e.Symbol, e.Reason)
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	var t *TransientExchangeError
	return errors.As(err, &t)
}

// IsRejection reports whether the venue definitively refused the order.
func IsRejection(err error) bool {
	var r *ExchangeRejection
	return errors.As(err, &r)
}

// IsValidation reports whether err is a pre-submission validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool {
	var i *InvariantViolation
	return errors.As(err, &i)
}
