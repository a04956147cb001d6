package usecase

import (
	"context"
	"strings"
	"time"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	accessService "github.com/tollgate-io/tollgate/internal/access/service"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// accessVerifier implements AccessVerifier.
type accessVerifier struct {
	passReader PassReader
	signatures accessService.SignatureVerifier
	now        func() time.Time
}

// NewAccessVerifier creates the verifier. The now function may be nil, in
// which case time.Now is used.
func NewAccessVerifier(
	passReader PassReader,
	signatures accessService.SignatureVerifier,
	now func() time.Time,
) AccessVerifier {
	if now == nil {
		now = time.Now
	}
	return &accessVerifier{
		passReader: passReader,
		signatures: signatures,
		now:        now,
	}
}

// Verify runs the sequential checks in fixed order: presence, existence,
// ownership, scope, lifetime, signature. The order is part of the protocol
// contract; it gives deterministic, minimal-information deny reasons.
func (v *accessVerifier) Verify(
	ctx context.Context,
	entry *ledgerDomain.ResourceEntry,
	proof *accessDomain.AccessProof,
) (*accessDomain.Decision, error) {
	// Presence: an incomplete proof maps to "issue challenge", not a denial
	// of a presented credential.
	if proof == nil || !proof.Complete() {
		return accessDomain.Deny(accessDomain.ReasonMissingProof), nil
	}

	// Existence: resolve the pass on the ledger, fresh on every request.
	pass, err := v.passReader.FetchPass(ctx, proof.PassID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrPassNotFound) || apperrors.Is(err, apperrors.ErrNotFound) {
			return accessDomain.Deny(accessDomain.ReasonPassNotFound), nil
		}
		return nil, err
	}

	// Ownership: the claimed signer must own the pass. Addresses compare
	// case-insensitively.
	if !strings.EqualFold(pass.Owner, proof.Signer) {
		return accessDomain.Deny(accessDomain.ReasonOwnershipMismatch), nil
	}

	// Scope: the pass must have been bought for this exact domain/path pair.
	if pass.Domain != entry.Domain || pass.Path != entry.Path {
		return accessDomain.Deny(accessDomain.ReasonScopeMismatch), nil
	}

	// Lifetime: remaining uses first, then expiry.
	now := v.now()
	if pass.Exhausted() {
		return accessDomain.Deny(accessDomain.ReasonExhausted), nil
	}
	if pass.ExpiredAt(now) {
		return accessDomain.Deny(accessDomain.ReasonExpired), nil
	}

	// Signature: full cryptographic verification, last so earlier checks
	// report their own reasons.
	if err := v.signatures.Verify(proof, entry.Domain, entry.Path, now); err != nil {
		return accessDomain.Deny(accessDomain.ReasonBadSignature), nil
	}

	return accessDomain.Grant(pass), nil
}
