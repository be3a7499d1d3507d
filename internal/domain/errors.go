package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the purchase and reconciliation flows. Handlers map
// these to HTTP statuses; nothing below the orchestrator boundary panics or
// returns raw driver errors to callers.
var (
	// ErrPaymentNotCompleted means the checkout session exists but its
	// payment status is not "paid".
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrAmountMismatch means the captured amount does not equal the amount
	// recomputed from trusted session metadata.
	ErrAmountMismatch = errors.New("payment amount mismatch")

	// ErrDuplicatePayment means a ledger row already references the
	// checkout session id.
	ErrDuplicatePayment = errors.New("payment already processed")

	// ErrDomainUnavailable means the registrar reports the domain as taken.
	ErrDomainUnavailable = errors.New("domain not available for registration")

	// ErrRegistrationFailed means the registrar rejected the registration
	// call. Nothing has been persisted when this is returned.
	ErrRegistrationFailed = errors.New("domain registration failed")

	// ErrInvalidMetadata means a paid session lacks required metadata
	// fields. Money-related fields are never defaulted.
	ErrInvalidMetadata = errors.New("invalid payment session metadata")

	// ErrInvalidSignature means a webhook payload failed signature
	// verification. The event is rejected with no side effects.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrConflict means a uniqueness constraint (username, email, session
	// id, invoice id) was violated.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstream wraps gateway or registrar failures, including timeouts.
	// Retryable by resubmitting with the same external identifiers.
	ErrUpstream = errors.New("upstream service failure")
)

// ValidationError reports malformed user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
