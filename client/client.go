// Package client implements the consumer-side SDK for the gateway protocol:
// it settles payment challenges by purchasing access passes on the ledger,
// signs request proofs, and optionally drives client-side decryption of
// delivered content.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	accessDomain "github.com/tollgate-io/tollgate/internal/access/domain"
	"github.com/tollgate-io/tollgate/internal/content/authz"
	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
	"github.com/tollgate-io/tollgate/internal/ledger/rpc"
	"github.com/tollgate-io/tollgate/internal/signing"
)

// LedgerAPI is the subset of ledger operations the SDK needs.
type LedgerAPI interface {
	LookupEntry(ctx context.Context, domain, path string) (*ledgerDomain.ResourceEntry, error)
	LookupEntryByID(ctx context.Context, id string) (*ledgerDomain.ResourceEntry, error)
	PurchasePass(ctx context.Context, req rpc.PurchaseRequest) (string, error)
	ListPaymentCoins(ctx context.Context, owner string) ([]*ledgerDomain.PaymentCoin, error)
	SplitPaymentCoin(ctx context.Context, coinID string, amount uint64, sender string) (string, error)
}

// Decrypter performs client-side decryption of delivered content.
type Decrypter interface {
	Decrypt(ctx context.Context, policyID string, ciphertext []byte, artifact authz.Artifact) ([]byte, error)
}

// DeniedError is returned when the gateway denies a presented proof. The
// SDK never auto-retries a denial; callers inspect Reason to decide.
type DeniedError struct {
	// Reason is the machine-readable deny reason from the 403 body.
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Config holds SDK configuration.
type Config struct {
	// HTTPTimeout bounds each gateway request.
	HTTPTimeout time.Duration
	// PassUses is the number of uses requested per purchased pass.
	// Zero requests a single use.
	PassUses uint64
	// PassValidityMs is the requested validity duration for purchased
	// passes; zero requests no expiry.
	PassValidityMs int64
}

// Client fetches protected resources, settling payment challenges as needed.
type Client struct {
	config     Config
	httpClient *http.Client
	ledger     LedgerAPI
	signer     *signing.Signer
	decrypter  Decrypter
	logger     *slog.Logger

	// mu serializes coin selection and splitting so concurrent fetches
	// under one signer never race for the same coin.
	mu     sync.Mutex
	passes map[string]string
}

// NewClient creates an SDK client. The decrypter may be nil when the
// gateway performs server-side decryption.
func NewClient(
	config Config,
	ledger LedgerAPI,
	signer *signing.Signer,
	decrypter Decrypter,
	logger *slog.Logger,
) *Client {
	if config.PassUses == 0 {
		config.PassUses = 1
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		ledger:    ledger,
		signer:    signer,
		decrypter: decrypter,
		logger:    logger,
		passes:    make(map[string]string),
	}
}

// Address returns the client's ledger address.
func (c *Client) Address() string {
	return c.signer.Address()
}

// Fetch retrieves the resource at rawURL. Public resources come back
// directly; protected ones go through the challenge handshake: a cached or
// freshly purchased pass backs a signed proof, and the request is retried
// once with the proof attached. A denial surfaces as *DeniedError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resource url: %w", err)
	}
	domain := parsed.Hostname()
	path := parsed.Path
	if path == "" {
		path = "/"
	}

	cacheKey := domain + "\x00" + path
	if passID := c.cachedPass(cacheKey); passID != "" {
		content, err := c.fetchSigned(ctx, rawURL, domain, path, passID)
		if err == nil {
			return content, nil
		}
		// A stale cached pass (expired, exhausted) denies; forget it and
		// fall through to a fresh handshake.
		var denied *DeniedError
		if !apperrors.As(err, &denied) {
			return nil, err
		}
		c.forgetPass(cacheKey)
	}

	resp, err := c.do(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
		return c.maybeDecrypt(ctx, resp, "")
	case http.StatusPaymentRequired:
		var challenge accessDomain.PaymentChallenge
		if err := json.Unmarshal(resp.body, &challenge); err != nil {
			return nil, fmt.Errorf("malformed payment challenge: %w", err)
		}
		passID, err := c.purchasePass(ctx, &challenge, domain, path)
		if err != nil {
			return nil, err
		}
		c.rememberPass(cacheKey, passID)

		content, err := c.fetchSigned(ctx, rawURL, domain, path, passID)
		if err != nil {
			return nil, err
		}
		return content, nil
	case http.StatusForbidden:
		return nil, deniedFromBody(resp.body)
	default:
		return nil, fmt.Errorf("unexpected gateway status %d", resp.status)
	}
}

// fetchSigned issues one request carrying a signed proof for the pass.
func (c *Client) fetchSigned(ctx context.Context, rawURL, domain, path, passID string) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := accessDomain.SignedMessage(passID, domain, path, timestamp)
	signature := c.signer.Sign(message)

	headers := map[string]string{
		accessDomain.HeaderPassID:    passID,
		accessDomain.HeaderSigner:    c.signer.Address(),
		accessDomain.HeaderSignerKey: c.signer.PublicKeyBase64(),
		accessDomain.HeaderSignature: base64.StdEncoding.EncodeToString(signature),
		accessDomain.HeaderTimestamp: timestamp,
	}

	resp, err := c.do(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
		return c.maybeDecrypt(ctx, resp, passID)
	case http.StatusForbidden:
		return nil, deniedFromBody(resp.body)
	case http.StatusPaymentRequired:
		// A presented proof must never be answered with a challenge.
		return nil, fmt.Errorf("gateway answered a signed request with a payment challenge")
	default:
		return nil, fmt.Errorf("unexpected gateway status %d", resp.status)
	}
}

// purchasePass settles a challenge: it selects or splits a payment coin and
// purchases a pass bound to the challenge nonce. Purchases that time out are
// retried once with a fresh nonce and idempotency key; a stale pair must
// never be resubmitted after a timeout.
func (c *Client) purchasePass(
	ctx context.Context,
	challenge *accessDomain.PaymentChallenge,
	domain, path string,
) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.ledger.LookupEntry(ctx, domain, path)
	if err != nil {
		return "", err
	}

	price, err := strconv.ParseUint(challenge.PriceInSmallestUnit, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed challenge price %q: %w", challenge.PriceInSmallestUnit, err)
	}

	coinID, err := c.selectCoin(ctx, price)
	if err != nil {
		return "", err
	}

	nonce := challenge.Nonce
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			// The previous attempt may have landed on the ledger despite
			// the timeout; fresh nonce and key keep the retry distinct.
			nonce, err = freshNonce()
			if err != nil {
				return "", err
			}
		}

		passID, err := c.ledger.PurchasePass(ctx, rpc.PurchaseRequest{
			EntryID:        entry.ID,
			CoinID:         coinID,
			Uses:           c.config.PassUses,
			ValidForMs:     c.config.PassValidityMs,
			Nonce:          nonce,
			Sender:         c.signer.Address(),
			IdempotencyKey: ulid.Make().String(),
		})
		if err == nil {
			return passID, nil
		}
		if !apperrors.Is(err, apperrors.ErrLedgerUnavailable) {
			return "", err
		}
		lastErr = err
		c.logger.Warn("pass purchase timed out, retrying with fresh nonce",
			slog.String("entry_id", entry.ID),
			slog.Any("error", err),
		)
	}

	return "", lastErr
}

// selectCoin picks the smallest coin covering the price, splitting off the
// exact amount when the coin is larger. Callers hold c.mu.
func (c *Client) selectCoin(ctx context.Context, price uint64) (string, error) {
	coins, err := c.ledger.ListPaymentCoins(ctx, c.signer.Address())
	if err != nil {
		return "", err
	}

	var best *ledgerDomain.PaymentCoin
	for _, coin := range coins {
		if coin.Value < price {
			continue
		}
		if best == nil || coin.Value < best.Value {
			best = coin
		}
	}
	if best == nil {
		return "", apperrors.Wrapf(apperrors.ErrPaymentRejected, "no coin covers price %d", price)
	}

	if best.Value == price {
		return best.ID, nil
	}
	return c.ledger.SplitPaymentCoin(ctx, best.ID, price, c.signer.Address())
}

// maybeDecrypt performs client-side decryption when a decrypter is
// configured and the response names a resource entry with a policy.
func (c *Client) maybeDecrypt(ctx context.Context, resp *gatewayResponse, passID string) ([]byte, error) {
	if c.decrypter == nil || resp.entryID == "" {
		return resp.body, nil
	}

	entry, err := c.ledger.LookupEntryByID(ctx, resp.entryID)
	if err != nil {
		return nil, err
	}
	if entry.DecryptionPolicyID == "" {
		return resp.body, nil
	}

	artifact, err := authz.New(c.signer, authz.Params{
		EntryID:    entry.ID,
		PassID:     passID,
		PolicyID:   entry.DecryptionPolicyID,
		IssuedAtMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	return c.decrypter.Decrypt(ctx, entry.DecryptionPolicyID, resp.body, artifact)
}

type gatewayResponse struct {
	status  int
	body    []byte
	entryID string
}

func (c *Client) do(ctx context.Context, rawURL string, headers map[string]string) (*gatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &gatewayResponse{
		status:  resp.StatusCode,
		body:    body,
		entryID: resp.Header.Get("x-resource-entry-id"),
	}, nil
}

func (c *Client) cachedPass(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes[key]
}

func (c *Client) rememberPass(key, passID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passes[key] = passID
}

func (c *Client) forgetPass(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.passes, key)
}

func deniedFromBody(body []byte) error {
	var parsed struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Reason == "" {
		return &DeniedError{Reason: "unknown"}
	}
	return &DeniedError{Reason: parsed.Reason}
}

func freshNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

