// Package indexer is the HTTP client for the remote proxy-table, multisig
// and identity endpoints that back discovery.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dbsmedya/godelegate/internal/config"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

// maxErrorBody caps how much of a failed response is echoed into errors.
const maxErrorBody = 512

// Client talks JSON over POST to the indexer endpoints.
type Client struct {
	http        *http.Client
	proxyURL    string
	multisigURL string
	identityURL string
	apiKey      string
	pageSize    int
	log         *logger.Logger
}

// New creates a client from configuration.
func New(cfg config.IndexerConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		proxyURL:    cfg.ProxyURL,
		multisigURL: cfg.MultisigURL,
		identityURL: cfg.IdentityURL,
		apiKey:      cfg.APIKey,
		pageSize:    pageSize,
		log:         log,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// HasIdentity reports whether an identity endpoint is configured.
func (c *Client) HasIdentity() bool {
	return c.identityURL != ""
}

// post sends req and decodes the answer into resp. Transport failures map to
// source.ErrConnectionUnavailable, non-200 answers to RemoteQueryError and
// undecodable bodies to DecodingError.
func (c *Client) post(ctx context.Context, url, name string, chain types.ChainID, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &source.RemoteQueryError{Chain: chain, Source: name, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &source.RemoteQueryError{
			Chain:  chain,
			Source: name,
			Cause:  fmt.Errorf("%w: %v", source.ErrConnectionUnavailable, err),
		}
	}
	defer func() { _ = httpResp.Body.Close() }()

	c.log.Debugw("indexer request",
		"source", name,
		"chain", chain,
		"status", httpResp.StatusCode,
		"elapsed", time.Since(start))

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return &source.RemoteQueryError{
			Chain:  chain,
			Source: name,
			Cause:  fmt.Errorf("http status %d: %s", httpResp.StatusCode, bytes.TrimSpace(snippet)),
		}
	}

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return &source.DecodingError{Chain: chain, Source: name, Cause: err}
	}
	return nil
}

func hexList(ids []types.AccountID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
