package service

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// DefaultFreshnessWindow bounds request signature replay when no window is
// configured.
const DefaultFreshnessWindow = 5 * time.Minute

// signatureVerifier implements SignatureVerifier with full ed25519
// verification against the ledger's native signature scheme.
type signatureVerifier struct {
	freshnessWindow time.Duration
}

// NewSignatureVerifier creates a verifier enforcing the given freshness
// window; zero or negative falls back to DefaultFreshnessWindow.
func NewSignatureVerifier(freshnessWindow time.Duration) SignatureVerifier {
	if freshnessWindow <= 0 {
		freshnessWindow = DefaultFreshnessWindow
	}
	return &signatureVerifier{freshnessWindow: freshnessWindow}
}

// Verify checks proof shape, timestamp freshness, signer key/address
// correspondence and the ed25519 signature over the canonical message.
func (v *signatureVerifier) Verify(
	proof *accessDomain.AccessProof,
	domain, path string,
	now time.Time,
) error {
	if proof == nil || !proof.Complete() {
		return apperrors.Wrap(apperrors.ErrBadSignature, "incomplete proof")
	}

	ts, err := strconv.ParseInt(proof.Timestamp, 10, 64)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrBadSignature, "unparsable timestamp")
	}

	// A timestamp exactly at the window edge is still fresh.
	age := now.UnixMilli() - ts
	if age < 0 {
		age = -age
	}
	if age > v.freshnessWindow.Milliseconds() {
		return apperrors.Wrapf(apperrors.ErrBadSignature,
			"timestamp outside freshness window (%dms old)", age)
	}

	pubBytes, err := base64.StdEncoding.DecodeString(proof.SignerPublicKey)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return apperrors.Wrap(apperrors.ErrBadSignature, "malformed signer public key")
	}
	pub := ed25519.PublicKey(pubBytes)

	// The supplied public key must derive the claimed signer address,
	// otherwise any key could impersonate any address.
	if !strings.EqualFold(signing.DeriveAddress(pub), proof.Signer) {
		return apperrors.Wrap(apperrors.ErrBadSignature, "public key does not match signer address")
	}

	sig, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil || len(sig) == 0 {
		return apperrors.Wrap(apperrors.ErrBadSignature, "malformed signature")
	}

	message := accessDomain.SignedMessage(proof.PassID, domain, path, proof.Timestamp)
	if !ed25519.Verify(pub, message, sig) {
		return apperrors.Wrap(apperrors.ErrBadSignature, "signature verification failed")
	}

	return nil
}
