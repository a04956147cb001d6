// Package decryption implements the HTTP client for the external threshold
// decryption service. Every call carries a signed authorization artifact;
// calls belonging to one retrieval must present byte-identical artifacts.
package decryption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"

	"github.com/tollgate-io/tollgate/internal/content/authz"
)

// Config holds decryption service client configuration.
type Config struct {
	// URL is the decryption service base URL.
	URL string
	// RequestTimeout bounds each request.
	RequestTimeout time.Duration
}

// Client talks to the threshold decryption service.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a decryption service client.
func NewClient(config Config, logger *slog.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}
}

// authorizationEnvelope is the wire form of an authorization artifact.
type authorizationEnvelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

func envelope(artifact authz.Artifact) authorizationEnvelope {
	return authorizationEnvelope{
		Payload:   base64.StdEncoding.EncodeToString(artifact.Payload()),
		Signature: base64.StdEncoding.EncodeToString(artifact.Signature()),
	}
}

type fetchKeysRequest struct {
	PolicyID      string                `json:"policyId"`
	Authorization authorizationEnvelope `json:"authorization"`
}

type fetchKeysResponse struct {
	Keys []string `json:"keys"`
}

type decryptRequest struct {
	PolicyID      string                `json:"policyId"`
	Ciphertext    string                `json:"ciphertext"`
	Authorization authorizationEnvelope `json:"authorization"`
}

type decryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// FetchKeys requests the wrapped decryption key shares governed by the
// policy. The caller decrypts locally; used when server-side decryption
// is disabled.
func (c *Client) FetchKeys(ctx context.Context, policyID string, artifact authz.Artifact) ([][]byte, error) {
	if artifact.Empty() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "empty authorization artifact")
	}

	var out fetchKeysResponse
	err := c.post(ctx, "/v1/keys/fetch", fetchKeysRequest{
		PolicyID:      policyID,
		Authorization: envelope(artifact),
	}, &out)
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, 0, len(out.Keys))
	for _, encoded := range out.Keys {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode key share: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Decrypt asks the service to decrypt the ciphertext under the policy. The
// artifact must be the same bytes passed to any sibling call for this
// retrieval; the service rejects mismatches and the client never retries
// with regenerated bytes.
func (c *Client) Decrypt(ctx context.Context, policyID string, ciphertext []byte, artifact authz.Artifact) ([]byte, error) {
	if artifact.Empty() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "empty authorization artifact")
	}

	var out decryptResponse
	err := c.post(ctx, "/v1/decrypt", decryptRequest{
		PolicyID:      policyID,
		Ciphertext:    base64.StdEncoding.EncodeToString(ciphertext),
		Authorization: envelope(artifact),
	}, &out)
	if err != nil {
		return nil, err
	}

	plaintext, err := base64.StdEncoding.DecodeString(out.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}
	return plaintext, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDecryptionAuthorization, "decryption service unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusForbidden:
		// Authorization rejected, including mismatched artifact bytes.
		return apperrors.Wrapf(apperrors.ErrDecryptionAuthorization, "status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperrors.Wrapf(apperrors.ErrDecryptionAuthorization, "unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
