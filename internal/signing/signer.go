// Package signing provides ed25519 signing identities for the ledger's
// native signature scheme, including address derivation and keeper-backed
// key loading for the gateway's own signer.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"
)

// SeedSize is the required ed25519 seed length in bytes.
const SeedSize = ed25519.SeedSize

// Signer is an ed25519 ledger identity.
type Signer struct {
	priv    ed25519.PrivateKey
	address string
}

// NewSignerFromSeed builds a signer from a raw 32-byte ed25519 seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != SeedSize {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput,
			"signing seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{
		priv:    priv,
		address: DeriveAddress(priv.Public().(ed25519.PublicKey)),
	}, nil
}

// Sign signs the message with the signer's private key.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}

// Address returns the signer's derived ledger address.
func (s *Signer) Address() string {
	return s.address
}

// PublicKeyBase64 returns the signer's public key, base64-encoded for header
// transport.
func (s *Signer) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(s.priv.Public().(ed25519.PublicKey))
}

// DeriveAddress derives the ledger address for an ed25519 public key:
// 0x-prefixed hex of the blake2b-256 digest of the key bytes.
func DeriveAddress(pub ed25519.PublicKey) string {
	digest := blake2b.Sum256(pub)
	return "0x" + hex.EncodeToString(digest[:])
}
