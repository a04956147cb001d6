// Package domain defines the access-control types of the gateway protocol:
// the signed request proof presented by clients, the verification decision,
// and the payment challenge returned when no proof is supplied.
package domain

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/tollgate-io/tollgate/internal/validation"
)

// Header names used to transport the access proof.
const (
	HeaderPassID    = "x-pass-id"
	HeaderSigner    = "x-signer"
	HeaderSignerKey = "x-signer-pk"
	HeaderSignature = "x-sig"
	HeaderTimestamp = "x-ts"
)

// AccessProof is the client-supplied evidence accompanying a request. It is
// transient and exists only within one HTTP request's lifetime.
type AccessProof struct {
	// PassID is the id of the access pass being presented.
	PassID string
	// Signer is the ledger address claiming ownership of the pass.
	Signer string
	// SignerPublicKey is the signer's ed25519 public key, base64-encoded.
	// The verifier requires the address derived from it to equal Signer.
	SignerPublicKey string
	// Signature is the base64-encoded ed25519 signature over the canonical
	// request message.
	Signature string
	// Timestamp is the signing time as decimal milliseconds since epoch.
	Timestamp string
}

// Complete reports whether every proof field was supplied. An incomplete
// proof triggers a payment challenge rather than a denial.
func (p *AccessProof) Complete() bool {
	return p.PassID != "" &&
		p.Signer != "" &&
		p.SignerPublicKey != "" &&
		p.Signature != "" &&
		p.Timestamp != ""
}

// Validate checks the shape of the supplied proof fields.
func (p *AccessProof) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PassID, validation.Required, customValidation.NotBlank),
		validation.Field(&p.Signer, validation.Required, customValidation.HexAddress),
		validation.Field(&p.SignerPublicKey, validation.Required, customValidation.Base64),
		validation.Field(&p.Signature, validation.Required, customValidation.Base64),
		validation.Field(&p.Timestamp, validation.Required, customValidation.MillisTimestamp),
	)
}

// SignedMessage builds the canonical byte serialization that request
// signatures cover. Both the gateway verifier and the client SDK must
// produce exactly these bytes for the same inputs.
func SignedMessage(passID, domain, path, timestamp string) []byte {
	msg := "tollgate/access/v1\n" + passID + "\n" + domain + "\n" + path + "\n" + timestamp
	return []byte(msg)
}
