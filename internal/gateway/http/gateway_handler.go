// Package http provides the gateway's HTTP surface: the catch-all resource
// handler implementing the payment-challenge handshake and verified content
// delivery.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	accessService "github.com/tollgate-io/tollgate/internal/access/service"
	accessUseCase "github.com/tollgate-io/tollgate/internal/access/usecase"
	contentUseCase "github.com/tollgate-io/tollgate/internal/content/usecase"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	"github.com/tollgate-io/tollgate/internal/httputil"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// HeaderDomainOverride lets proxies and tests supply the logical domain
// explicitly instead of deriving it from the Host header.
const HeaderDomainOverride = "x-tollgate-domain"

// HeaderResourceEntryID carries the resolved entry id on successful delivery
// so clients can drive their own decryption.
const HeaderResourceEntryID = "x-resource-entry-id"

// EntryReader resolves resource entries on the ledger.
type EntryReader interface {
	LookupEntry(ctx context.Context, domain, path string) (*ledgerDomain.ResourceEntry, error)
}

// PassConsumer decrements a pass's remaining uses on the ledger.
type PassConsumer interface {
	ConsumePass(ctx context.Context, passID, owner string, signature []byte) (uint64, error)
}

// GatewayHandler handles resource requests: it issues payment challenges to
// unauthenticated clients and serves verified content to pass holders.
type GatewayHandler struct {
	entries        EntryReader
	challenges     accessService.ChallengeGenerator
	verifier       accessUseCase.AccessVerifier
	retriever      contentUseCase.Retriever
	consumer       PassConsumer
	signer         *signing.Signer
	consumeTimeout time.Duration
	logger         *slog.Logger
}

// NewGatewayHandler creates a gateway handler with required dependencies.
func NewGatewayHandler(
	entries EntryReader,
	challenges accessService.ChallengeGenerator,
	verifier accessUseCase.AccessVerifier,
	retriever contentUseCase.Retriever,
	consumer PassConsumer,
	signer *signing.Signer,
	consumeTimeout time.Duration,
	logger *slog.Logger,
) *GatewayHandler {
	return &GatewayHandler{
		entries:        entries,
		challenges:     challenges,
		verifier:       verifier,
		retriever:      retriever,
		consumer:       consumer,
		signer:         signer,
		consumeTimeout: consumeTimeout,
		logger:         logger,
	}
}

// ResourceHandler serves GET /*path.
//
// Without a complete proof it answers 402 with a fresh payment challenge.
// With a proof it runs access verification: denials become 403 with a
// machine-readable reason (a present proof never triggers a challenge),
// grants deliver the content with 200. Pass consumption happens after the
// response is written and never affects the delivered bytes.
func (h *GatewayHandler) ResourceHandler(c *gin.Context) {
	ctx := c.Request.Context()
	domain := h.requestDomain(c)

	// Mounted as the router's NoRoute fallback, so the raw URL path is the
	// resource path when no wildcard parameter is bound.
	path := c.Param("path")
	if path == "" {
		path = c.Request.URL.Path
	}
	if path == "" {
		path = "/"
	}

	entry, err := h.entries.LookupEntry(ctx, domain, path)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	proof := proofFromHeaders(c)
	if !proof.Complete() {
		h.serveChallenge(c, entry)
		return
	}

	// Schema validation before any ledger read: a complete proof with
	// malformed fields is a denial, never a challenge.
	if err := proof.Validate(); err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrBadSignature, err.Error()), h.logger)
		return
	}

	decision, err := h.verifier.Verify(ctx, entry, proof)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !decision.Granted {
		// A presented proof is answered with a denial, never a challenge.
		httputil.HandleErrorGin(c, decision.Err(), h.logger)
		return
	}

	content, err := h.retriever.Retrieve(ctx, entry, proof.PassID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header(HeaderResourceEntryID, entry.ID)
	c.Data(http.StatusOK, "application/octet-stream", content)

	// Optimistic delivery: consumption is best effort after the bytes are
	// on the wire, with its own deadline detached from the request.
	go h.consumePass(decision.Pass)
}

func (h *GatewayHandler) serveChallenge(c *gin.Context, entry *ledgerDomain.ResourceEntry) {
	// An inactive entry no longer accepts purchases, so a challenge would
	// dead-end at the ledger. Holders of previously purchased passes are
	// unaffected since they never reach this path.
	if !entry.Active {
		httputil.HandleErrorGin(c, apperrors.ErrResourceNotFound, h.logger)
		return
	}
	challenge, err := h.challenges.NewChallenge(entry)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusPaymentRequired, challenge)
}

func (h *GatewayHandler) consumePass(pass *ledgerDomain.AccessPass) {
	ctx, cancel := context.WithTimeout(context.Background(), h.consumeTimeout)
	defer cancel()

	message := []byte("tollgate/consume/v1\n" + pass.ID)
	remaining, err := h.consumer.ConsumePass(ctx, pass.ID, pass.Owner, h.signer.Sign(message))
	if err != nil {
		h.logger.Warn("pass consumption failed",
			slog.String("pass_id", pass.ID),
			slog.Any("error", err),
		)
		return
	}
	h.logger.Info("pass consumed",
		slog.String("pass_id", pass.ID),
		slog.Uint64("remaining_uses", remaining),
	)
}

// requestDomain resolves the logical domain for the request: the override
// header when present, otherwise the Host header with any port stripped.
func (h *GatewayHandler) requestDomain(c *gin.Context) string {
	if override := c.GetHeader(HeaderDomainOverride); override != "" {
		return override
	}
	host := c.Request.Host
	if hostname, _, err := net.SplitHostPort(host); err == nil {
		return hostname
	}
	return host
}

func proofFromHeaders(c *gin.Context) *accessDomain.AccessProof {
	return &accessDomain.AccessProof{
		PassID:          strings.TrimSpace(c.GetHeader(accessDomain.HeaderPassID)),
		Signer:          strings.TrimSpace(c.GetHeader(accessDomain.HeaderSigner)),
		SignerPublicKey: strings.TrimSpace(c.GetHeader(accessDomain.HeaderSignerKey)),
		Signature:       strings.TrimSpace(c.GetHeader(accessDomain.HeaderSignature)),
		Timestamp:       strings.TrimSpace(c.GetHeader(accessDomain.HeaderTimestamp)),
	}
}
