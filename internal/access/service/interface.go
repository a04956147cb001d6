// Package service provides technical services for access verification:
// request signature checking, payment challenge generation and price
// conversion.
package service

import (
	"time"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// SignatureVerifier validates that a signed request proof was produced by
// the claimed signer within the freshness window.
//
// Verification is purely computational and side-effect free. It does NOT
// check that the signer owns the presented pass; ownership is a separate
// step of the access verification state machine.
type SignatureVerifier interface {
	// Verify reconstructs the canonical signed message for the proof and
	// checks the signature against the signer's public key. Returns
	// ErrBadSignature when the signature is malformed, stale, produced by a
	// key that does not derive the claimed signer address, or fails
	// cryptographic verification.
	Verify(proof *accessDomain.AccessProof, domain, path string, now time.Time) error
}

// ChallengeGenerator builds the payment challenge served on unauthenticated
// access to a protected resource.
type ChallengeGenerator interface {
	// NewChallenge builds a challenge for the entry with a freshly generated
	// unpredictable nonce. It must not leak any pass state.
	NewChallenge(entry *ledgerDomain.ResourceEntry) (*accessDomain.PaymentChallenge, error)
}
