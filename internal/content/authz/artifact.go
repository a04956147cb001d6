// Package authz builds the signed authorization artifact handed to the
// threshold decryption service. The artifact is constructed once per
// retrieval and the exact same bytes must accompany every call belonging
// to that retrieval; the decryption service rejects mismatched pairs.
package authz

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tollgate-io/tollgate/internal/signing"
)

const nonceBytes = 16

// Params identify what the artifact authorizes.
type Params struct {
	// EntryID is the resource entry being accessed.
	EntryID string
	// PassID is the verified access pass backing the authorization.
	PassID string
	// PolicyID is the decryption policy governing the content keys.
	PolicyID string
	// IssuedAtMs is the artifact creation time in epoch milliseconds.
	IssuedAtMs int64
}

// payload is the canonical JSON form covered by the artifact signature.
// Field order is fixed by declaration; the struct must not be reordered.
type payload struct {
	Version    string `json:"version"`
	EntryID    string `json:"entryId"`
	PassID     string `json:"passId"`
	PolicyID   string `json:"policyId"`
	Signer     string `json:"signer"`
	Nonce      string `json:"nonce"`
	IssuedAtMs int64  `json:"issuedAtMs"`
}

// Artifact is an immutable signed authorization. Copies share the same
// underlying bytes, so an artifact built once and passed along stays
// byte-identical across every call that carries it.
type Artifact struct {
	payload   []byte
	signature []byte
}

// New builds a signed artifact. Each call draws a fresh nonce, so two
// artifacts for the same params are never byte-identical.
func New(signer *signing.Signer, params Params) (Artifact, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return Artifact{}, fmt.Errorf("failed to generate artifact nonce: %w", err)
	}

	raw, err := json.Marshal(payload{
		Version:    "tollgate/authz/v1",
		EntryID:    params.EntryID,
		PassID:     params.PassID,
		PolicyID:   params.PolicyID,
		Signer:     signer.Address(),
		Nonce:      hex.EncodeToString(nonce),
		IssuedAtMs: params.IssuedAtMs,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to encode artifact payload: %w", err)
	}

	return Artifact{
		payload:   raw,
		signature: signer.Sign(raw),
	}, nil
}

// Payload returns the canonical JSON bytes covered by the signature.
func (a Artifact) Payload() []byte {
	return a.payload
}

// Signature returns the ed25519 signature over Payload.
func (a Artifact) Signature() []byte {
	return a.signature
}

// Empty reports whether the artifact is the zero value.
func (a Artifact) Empty() bool {
	return len(a.payload) == 0
}

// Equal reports whether two artifacts are byte-identical, payload and
// signature both.
func (a Artifact) Equal(other Artifact) bool {
	return bytes.Equal(a.payload, other.payload) && bytes.Equal(a.signature, other.signature)
}
