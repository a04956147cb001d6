// Package rpc implements the JSON-RPC client for the external capability
// ledger. All transport failures are mapped to domain errors at this
// boundary; callers never see raw network errors. Reads return point-in-time
// snapshots, writes are transactional RPCs whose outcome is reported
// synchronously.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"
	ledgerDomain "github.com/tollgate-io/tollgate/internal/ledger/domain"
)

// JSON-RPC application error codes returned by the ledger's access module.
const (
	codeInsufficientFunds = -41001
	codeUnauthorized      = -41002
	codeExhausted         = -41003
)

// Config holds the client settings.
type Config struct {
	// URL is the fullnode JSON-RPC endpoint.
	URL string
	// RequestTimeout bounds each individual RPC attempt.
	RequestTimeout time.Duration
	// MaxAttempts is the total number of attempts for retryable calls.
	MaxAttempts int
	// RetryBaseDelay is the initial backoff delay; doubled per attempt with jitter.
	RetryBaseDelay time.Duration
}

// Client is a capability ledger accessor. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	lookups    singleflight.Group
}

// NewClient creates a ledger client with the given configuration.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 200 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// PurchaseRequest carries the parameters of a pass purchase transaction.
type PurchaseRequest struct {
	// EntryID is the resource entry being purchased against.
	EntryID string
	// CoinID is the payment coin spent by the purchase.
	CoinID string
	// Uses is the requested number of uses for the new pass.
	Uses uint64
	// ValidForMs is the requested validity duration; 0 requests no expiry.
	ValidForMs int64
	// Nonce is the challenge nonce bound into the transaction.
	Nonce string
	// Sender is the purchasing ledger address.
	Sender string
	// IdempotencyKey deduplicates retried submissions ledger-side. A timed-out
	// purchase must be re-submitted with a fresh key and nonce, never reused.
	IdempotencyKey string
}

// wire representations of ledger objects.

type wireEntry struct {
	ID                 string `json:"id"`
	Domain             string `json:"domain"`
	Path               string `json:"path"`
	ContentLocator     string `json:"contentLocator"`
	DecryptionPolicyID string `json:"decryptionPolicyId"`
	Price              string `json:"price"`
	Receiver           string `json:"receiver"`
	MaxUsesPerPass     uint64 `json:"maxUsesPerPass"`
	ValidityDurationMs int64  `json:"validityDurationMs"`
	Active             bool   `json:"active"`
}

type wirePass struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Domain        string `json:"domain"`
	Path          string `json:"path"`
	RemainingUses uint64 `json:"remainingUses"`
	ExpiryMs      int64  `json:"expiryMs"`
	Nonce         string `json:"nonce"`
	PricePaid     uint64 `json:"pricePaid"`
}

type wireCoin struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Value uint64 `json:"value"`
}

// LookupEntry resolves a resource entry by its domain/path pair. Concurrent
// identical lookups are collapsed into one in-flight RPC; results are never
// cached across calls.
func (c *Client) LookupEntry(
	ctx context.Context,
	domain, path string,
) (*ledgerDomain.ResourceEntry, error) {
	key := domain + "\x00" + path
	result, err, _ := c.lookups.Do(key, func() (any, error) {
		var entry *wireEntry
		err := c.call(ctx, "tollgate_getResourceEntry", map[string]any{
			"domain": domain,
			"path":   path,
		}, &entry)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ledgerDomain.ErrEntryNotFound
		}
		return fromWireEntry(entry), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ledgerDomain.ResourceEntry), nil
}

// LookupEntryByID resolves a resource entry via the direct-identifier fast path.
func (c *Client) LookupEntryByID(ctx context.Context, id string) (*ledgerDomain.ResourceEntry, error) {
	var entry *wireEntry
	err := c.call(ctx, "tollgate_getResourceEntryById", map[string]any{"id": id}, &entry)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ledgerDomain.ErrEntryNotFound
	}
	return fromWireEntry(entry), nil
}

// FetchPass reads the current state of an access pass. The snapshot reflects
// the most recent committed ledger state at read time.
func (c *Client) FetchPass(ctx context.Context, passID string) (*ledgerDomain.AccessPass, error) {
	var pass *wirePass
	err := c.call(ctx, "tollgate_getAccessPass", map[string]any{"passId": passID}, &pass)
	if err != nil {
		return nil, err
	}
	if pass == nil {
		return nil, ledgerDomain.ErrPassNotFound
	}
	return fromWirePass(pass), nil
}

// PurchasePass submits a payment-carrying purchase transaction and returns
// the new pass id.
func (c *Client) PurchasePass(ctx context.Context, req PurchaseRequest) (string, error) {
	var result struct {
		PassID string `json:"passId"`
	}
	err := c.call(ctx, "tollgate_purchasePass", map[string]any{
		"entryId":        req.EntryID,
		"coinId":         req.CoinID,
		"uses":           req.Uses,
		"validForMs":     req.ValidForMs,
		"nonce":          req.Nonce,
		"sender":         req.Sender,
		"idempotencyKey": req.IdempotencyKey,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.PassID, nil
}

// ConsumePass submits a decrement transaction for the pass. The signature
// must prove control of the pass owner's address; consumption past zero is
// rejected ledger-side.
func (c *Client) ConsumePass(
	ctx context.Context,
	passID, owner string,
	signature []byte,
) (uint64, error) {
	var result struct {
		RemainingUses uint64 `json:"remainingUses"`
	}
	err := c.call(ctx, "tollgate_consumePass", map[string]any{
		"passId":    passID,
		"owner":     owner,
		"signature": signature,
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.RemainingUses, nil
}

// ListPaymentCoins returns the payment coins owned by the given address.
func (c *Client) ListPaymentCoins(ctx context.Context, owner string) ([]*ledgerDomain.PaymentCoin, error) {
	var coins []*wireCoin
	err := c.call(ctx, "tollgate_listPaymentCoins", map[string]any{"owner": owner}, &coins)
	if err != nil {
		return nil, err
	}
	out := make([]*ledgerDomain.PaymentCoin, 0, len(coins))
	for _, coin := range coins {
		out = append(out, &ledgerDomain.PaymentCoin{ID: coin.ID, Owner: coin.Owner, Value: coin.Value})
	}
	return out, nil
}

// SplitPaymentCoin splits amount off a coin into a new coin and returns the
// new coin's id.
func (c *Client) SplitPaymentCoin(
	ctx context.Context,
	coinID string,
	amount uint64,
	sender string,
) (string, error) {
	var result struct {
		CoinID string `json:"coinId"`
	}
	err := c.call(ctx, "tollgate_splitPaymentCoin", map[string]any{
		"coinId": coinID,
		"amount": amount,
		"sender": sender,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.CoinID, nil
}

// JSON-RPC plumbing ------------------------------------------------------

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call executes one JSON-RPC method with bounded retries. Transport errors
// and 5xx responses are retried with exponential backoff and mapped to
// ErrLedgerUnavailable on exhaustion; application errors are returned
// immediately without retry.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return apperrors.Wrapf(err, "marshal %s request", method)
	}

	var lastErr error
	delay := c.cfg.RetryBaseDelay
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return apperrors.Wrap(apperrors.ErrLedgerUnavailable, ctx.Err().Error())
			}
			delay *= 2

			c.logger.Warn("retrying ledger rpc",
				slog.String("method", method),
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr),
			)
		}

		done, err := c.attempt(ctx, method, payload, out)
		if done {
			return err
		}
		lastErr = err
	}

	return apperrors.Wrapf(apperrors.ErrLedgerUnavailable, "%s failed after %d attempts: %v",
		method, c.cfg.MaxAttempts, lastErr)
}

// attempt performs a single HTTP round trip. The first return value is true
// when the outcome is final (success or non-retryable error).
func (c *Client) attempt(ctx context.Context, method string, payload []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return true, apperrors.Wrapf(err, "build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return true, apperrors.Wrapf(apperrors.ErrLedgerUnavailable,
			"%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return true, mapRPCError(method, rpcResp.Error)
	}

	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return true, apperrors.Wrapf(err, "unmarshal %s result", method)
		}
	}
	return true, nil
}

// mapRPCError converts ledger application errors into domain errors.
func mapRPCError(method string, rpcErr *rpcError) error {
	switch rpcErr.Code {
	case codeInsufficientFunds:
		return apperrors.Wrapf(apperrors.ErrPaymentRejected, "%s: %s", method, rpcErr.Message)
	case codeUnauthorized:
		return apperrors.Wrapf(apperrors.ErrUnauthorized, "%s: %s", method, rpcErr.Message)
	case codeExhausted:
		return apperrors.Wrapf(apperrors.ErrPassExhausted, "%s: %s", method, rpcErr.Message)
	default:
		return apperrors.Wrapf(apperrors.ErrLedgerUnavailable,
			"%s: rpc error %d: %s", method, rpcErr.Code, rpcErr.Message)
	}
}

func fromWireEntry(w *wireEntry) *ledgerDomain.ResourceEntry {
	return &ledgerDomain.ResourceEntry{
		ID:                 w.ID,
		Domain:             w.Domain,
		Path:               w.Path,
		ContentLocator:     w.ContentLocator,
		DecryptionPolicyID: w.DecryptionPolicyID,
		Price:              w.Price,
		Receiver:           w.Receiver,
		MaxUsesPerPass:     w.MaxUsesPerPass,
		ValidityDurationMs: w.ValidityDurationMs,
		Active:             w.Active,
	}
}

func fromWirePass(w *wirePass) *ledgerDomain.AccessPass {
	return &ledgerDomain.AccessPass{
		ID:            w.ID,
		Owner:         w.Owner,
		Domain:        w.Domain,
		Path:          w.Path,
		RemainingUses: w.RemainingUses,
		ExpiryMs:      w.ExpiryMs,
		Nonce:         w.Nonce,
		PricePaid:     w.PricePaid,
	}
}
