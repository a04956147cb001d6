// Package errors provides standardized domain errors that express protocol intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Access verification errors. Each corresponds to a single deny reason and
// maps to a 402 (missing proof) or 403 (proof present but invalid) response.
var (
	// ErrMissingProof indicates no access proof headers were supplied.
	// The gateway answers with a payment challenge instead of a hard failure.
	ErrMissingProof = errors.New("missing access proof")

	// ErrPassNotFound indicates the presented pass id does not resolve on the ledger.
	ErrPassNotFound = errors.New("access pass not found")

	// ErrOwnershipMismatch indicates the request signer does not own the pass.
	ErrOwnershipMismatch = errors.New("pass ownership mismatch")

	// ErrScopeMismatch indicates the pass was bought for a different domain/resource.
	ErrScopeMismatch = errors.New("pass scope mismatch")

	// ErrPassExhausted indicates the pass has no remaining uses.
	ErrPassExhausted = errors.New("access pass exhausted")

	// ErrPassExpired indicates the pass validity window has ended.
	ErrPassExpired = errors.New("access pass expired")

	// ErrBadSignature indicates the request signature is malformed, stale or
	// fails cryptographic verification.
	ErrBadSignature = errors.New("bad request signature")
)

// Upstream collaborator errors. These cross component boundaries instead of
// raw transport errors and map to 404/5xx responses.
var (
	// ErrResourceNotFound indicates no resource entry exists for the
	// requested domain/path pair.
	ErrResourceNotFound = errors.New("resource entry not found")

	// ErrContentUnavailable indicates every configured blob store endpoint
	// failed to serve the content.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrDecryptionAuthorization indicates the decryption service rejected
	// the authorization artifact (including byte-mismatched artifact pairs).
	ErrDecryptionAuthorization = errors.New("decryption authorization rejected")

	// ErrLedgerUnavailable indicates a ledger RPC failed at the transport
	// level after bounded retries.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrPaymentRejected indicates the ledger refused a purchase, typically
	// for insufficient funds.
	ErrPaymentRejected = errors.New("payment rejected")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
