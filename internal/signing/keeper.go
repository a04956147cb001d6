package signing

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register keeper drivers for the supported key backends.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeyLoader unwraps the gateway's signing seed through a secrets keeper.
type KeyLoader interface {
	// LoadSigner opens the keeper at keyURI and decrypts the wrapped,
	// base64-encoded seed into a ready signer.
	LoadSigner(ctx context.Context, keyURI, wrappedKey string) (*Signer, error)
}

// keeperLoader implements KeyLoader using gocloud.dev/secrets.
type keeperLoader struct{}

// NewKeyLoader creates a keeper-backed key loader.
// Supported URIs: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func NewKeyLoader() KeyLoader {
	return &keeperLoader{}
}

// LoadSigner opens the keeper, decrypts the wrapped seed and builds a signer.
func (l *keeperLoader) LoadSigner(ctx context.Context, keyURI, wrappedKey string) (*Signer, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open signing key keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wrapped signing key: %w", err)
	}

	seed, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap signing key: %w", err)
	}

	return NewSignerFromSeed(seed)
}
