package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"gocloud.dev/secrets"

	"github.com/tollgate-io/tollgate/internal/signing"
)

// signerKeyOutput is the result of generating a wrapped signing key.
type signerKeyOutput struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	WrappedKey string `json:"wrapped_key"`
	KeyURI     string `json:"key_uri"`
}

// RunCreateSignerKey generates a fresh ed25519 signing seed, wraps it with
// the keeper at keyURI and prints the wrapped key for use as
// SIGNER_WRAPPED_KEY. The plaintext seed never touches disk.
func RunCreateSignerKey(ctx context.Context, io IOTuple, keyURI, format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}

	seed := make([]byte, signing.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to generate signing seed: %w", err)
	}

	signer, err := signing.NewSignerFromSeed(seed)
	if err != nil {
		return fmt.Errorf("failed to build signer: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return fmt.Errorf("failed to open keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := keeper.Encrypt(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to wrap signing seed: %w", err)
	}

	output := signerKeyOutput{
		Address:    signer.Address(),
		PublicKey:  signer.PublicKeyBase64(),
		WrappedKey: base64.StdEncoding.EncodeToString(wrapped),
		KeyURI:     keyURI,
	}

	if format == "json" {
		encoder := json.NewEncoder(io.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}

	fmt.Fprintf(io.Writer, "Gateway signing key created\n")
	fmt.Fprintf(io.Writer, "  Address:     %s\n", output.Address)
	fmt.Fprintf(io.Writer, "  Public key:  %s\n", output.PublicKey)
	fmt.Fprintf(io.Writer, "  Key URI:     %s\n", output.KeyURI)
	fmt.Fprintf(io.Writer, "  Wrapped key: %s\n", output.WrappedKey)
	fmt.Fprintf(io.Writer, "\nSet SIGNER_KEY_URI and SIGNER_WRAPPED_KEY to these values.\n")
	return nil
}
