package domain

import (
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// DenyReason enumerates the machine-readable reasons a request is denied.
// The values are stable wire identifiers used in 403 response bodies.
type DenyReason string

const (
	ReasonMissingProof      DenyReason = "missing_proof"
	ReasonPassNotFound      DenyReason = "pass_not_found"
	ReasonOwnershipMismatch DenyReason = "ownership_mismatch"
	ReasonScopeMismatch     DenyReason = "scope_mismatch"
	ReasonExhausted         DenyReason = "exhausted"
	ReasonExpired           DenyReason = "expired"
	ReasonBadSignature      DenyReason = "bad_signature"
)

// Decision is the outcome of access verification. It is a pure function of
// the resource entry, the pass snapshot, the proof and the current time,
// and never itself a source of mutation.
type Decision struct {
	// Granted indicates the request may be served.
	Granted bool
	// Reason is set on denial and identifies the single failed check.
	Reason DenyReason
	// Pass is the verified pass snapshot, set only when Granted.
	Pass *ledgerDomain.AccessPass
}

// Grant builds a granted decision carrying the verified pass snapshot.
func Grant(pass *ledgerDomain.AccessPass) *Decision {
	return &Decision{Granted: true, Pass: pass}
}

// Deny builds a denied decision with the given reason.
func Deny(reason DenyReason) *Decision {
	return &Decision{Granted: false, Reason: reason}
}

// Err maps a denied decision back onto the domain error taxonomy. Granted
// decisions return nil.
func (d *Decision) Err() error {
	if d.Granted {
		return nil
	}
	switch d.Reason {
	case ReasonMissingProof:
		return apperrors.ErrMissingProof
	case ReasonPassNotFound:
		return apperrors.ErrPassNotFound
	case ReasonOwnershipMismatch:
		return apperrors.ErrOwnershipMismatch
	case ReasonScopeMismatch:
		return apperrors.ErrScopeMismatch
	case ReasonExhausted:
		return apperrors.ErrPassExhausted
	case ReasonExpired:
		return apperrors.ErrPassExpired
	case ReasonBadSignature:
		return apperrors.ErrBadSignature
	default:
		return apperrors.ErrUnauthorized
	}
}
