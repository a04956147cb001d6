// Package blobstore implements the HTTP client for the external blob
// storage nodes that hold encrypted resource content. Content is addressed
// by locator; the gateway never interprets the stored bytes.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"
)

// Config holds blob store client configuration.
type Config struct {
	// Endpoints is the ordered list of blob store base URLs. Fetches try
	// them in order and fall through on any failure.
	Endpoints []string
	// RequestTimeout bounds each individual endpoint attempt.
	RequestTimeout time.Duration
}

// Client fetches and uploads content blobs.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a blob store client.
func NewClient(config Config, logger *slog.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}
}

// Fetch retrieves the blob identified by locator. Endpoints are tried in
// configured order; transport errors and non-2xx responses both fall
// through to the next endpoint. When every endpoint fails the aggregate
// outcome is ErrContentUnavailable.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "empty content locator")
	}

	var lastErr error
	for _, endpoint := range c.config.Endpoints {
		blob, err := c.fetchFrom(ctx, endpoint, locator)
		if err == nil {
			return blob, nil
		}
		lastErr = err
		c.logger.Warn("blob store endpoint failed",
			slog.String("endpoint", endpoint),
			slog.String("locator", locator),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, apperrors.Wrapf(apperrors.ErrContentUnavailable, "locator %s: %v", locator, lastErr)
}

func (c *Client) fetchFrom(ctx context.Context, endpoint, locator string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/blobs/%s", endpoint, locator)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return blob, nil
}

// putResponse is the upload acknowledgement from a blob store node.
type putResponse struct {
	Locator string `json:"locator"`
}

// Put uploads a blob and returns the locator assigned by the store. Only
// the first endpoint is targeted; stores replicate among themselves.
func (c *Client) Put(ctx context.Context, blob []byte) (string, error) {
	if len(c.config.Endpoints) == 0 {
		return "", apperrors.Wrap(apperrors.ErrContentUnavailable, "no blob store endpoints configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/blobs", c.config.Endpoints[0])
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrContentUnavailable, "upload failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Wrapf(apperrors.ErrContentUnavailable, "upload status %d", resp.StatusCode)
	}

	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if out.Locator == "" {
		return "", fmt.Errorf("upload response missing locator")
	}
	return out.Locator, nil
}
