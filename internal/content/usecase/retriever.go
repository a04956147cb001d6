// Package usecase orchestrates content retrieval after access has been
// granted: fetch the encrypted blob, then authorize decryption with a
// signed artifact when server-side decryption is enabled.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/tollgate-io/tollgate/internal/content/authz"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// BlobFetcher fetches encrypted content blobs by locator.
type BlobFetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Decrypter asks the threshold decryption service to decrypt under a policy.
type Decrypter interface {
	Decrypt(ctx context.Context, policyID string, ciphertext []byte, artifact authz.Artifact) ([]byte, error)
}

// Retriever delivers resource content for a verified request.
type Retriever interface {
	// Retrieve fetches the entry's content blob and, when server-side
	// decryption is enabled, decrypts it under the entry's policy. With
	// decryption disabled the encrypted blob is returned unchanged and the
	// client performs its own key retrieval.
	Retrieve(ctx context.Context, entry *ledgerDomain.ResourceEntry, passID string) ([]byte, error)
}

type retriever struct {
	blobs                BlobFetcher
	decrypter            Decrypter
	signer               *signing.Signer
	serverSideDecryption bool
	logger               *slog.Logger
	now                  func() time.Time
}

// NewRetriever creates a content retriever. The now function may be nil,
// in which case time.Now is used.
func NewRetriever(
	blobs BlobFetcher,
	decrypter Decrypter,
	signer *signing.Signer,
	serverSideDecryption bool,
	logger *slog.Logger,
	now func() time.Time,
) Retriever {
	if now == nil {
		now = time.Now
	}
	return &retriever{
		blobs:                blobs,
		decrypter:            decrypter,
		signer:               signer,
		serverSideDecryption: serverSideDecryption,
		logger:               logger,
		now:                  now,
	}
}

func (r *retriever) Retrieve(ctx context.Context, entry *ledgerDomain.ResourceEntry, passID string) ([]byte, error) {
	blob, err := r.blobs.Fetch(ctx, entry.ContentLocator)
	if err != nil {
		return nil, err
	}

	if !r.serverSideDecryption || entry.DecryptionPolicyID == "" {
		return blob, nil
	}

	// One artifact per retrieval; the same bytes back every decryption
	// service call for this request.
	artifact, err := authz.New(r.signer, authz.Params{
		EntryID:    entry.ID,
		PassID:     passID,
		PolicyID:   entry.DecryptionPolicyID,
		IssuedAtMs: r.now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	plaintext, err := r.decrypter.Decrypt(ctx, entry.DecryptionPolicyID, blob, artifact)
	if err != nil {
		r.logger.Warn("decryption failed",
			slog.String("entry_id", entry.ID),
			slog.String("policy_id", entry.DecryptionPolicyID),
			slog.Any("error", err),
		)
		return nil, err
	}
	return plaintext, nil
}
