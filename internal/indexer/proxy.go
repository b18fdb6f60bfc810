package indexer

import (
	"context"
	"fmt"

	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

type proxyTableRequest struct {
	Chain  string `json:"chain"`
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit"`
}

type proxyEntry struct {
	Delegator string `json:"delegator"`
	Delegatee string `json:"delegatee"`
	Type      string `json:"type"`
	Delay     uint32 `json:"delay"`
}

type proxyTableResponse struct {
	Proxies    []proxyEntry `json:"proxies"`
	NextCursor string       `json:"next_cursor"`
}

// FetchProxyTable pages through the whole proxy table of chain.
func (c *Client) FetchProxyTable(ctx context.Context, chain types.ChainID) ([]types.ProxyRelation, error) {
	var (
		rows   []types.ProxyRelation
		cursor string
		seen   = make(map[string]bool)
	)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var resp proxyTableResponse
		req := proxyTableRequest{Chain: string(chain), Cursor: cursor, Limit: c.pageSize}
		if err := c.post(ctx, c.proxyURL, source.NameProxy, chain, req, &resp); err != nil {
			return nil, err
		}

		for i, e := range resp.Proxies {
			rel, err := e.decode(chain)
			if err != nil {
				return nil, &source.DecodingError{
					Chain:  chain,
					Source: source.NameProxy,
					Cause:  fmt.Errorf("page %d entry %d: %w", page, i, err),
				}
			}
			rows = append(rows, rel)
		}

		if resp.NextCursor == "" {
			break
		}
		if seen[resp.NextCursor] {
			return nil, &source.DecodingError{
				Chain:  chain,
				Source: source.NameProxy,
				Cause:  fmt.Errorf("cursor %q repeated", resp.NextCursor),
			}
		}
		seen[resp.NextCursor] = true
		cursor = resp.NextCursor
	}

	c.log.Debugw("proxy table fetched", "chain", chain, "rows", len(rows))
	return rows, nil
}

func (e proxyEntry) decode(chain types.ChainID) (types.ProxyRelation, error) {
	delegator, err := types.ParseAccountID(e.Delegator)
	if err != nil {
		return types.ProxyRelation{}, fmt.Errorf("delegator: %w", err)
	}
	delegatee, err := types.ParseAccountID(e.Delegatee)
	if err != nil {
		return types.ProxyRelation{}, fmt.Errorf("delegatee: %w", err)
	}
	if e.Type == "" {
		return types.ProxyRelation{}, fmt.Errorf("missing proxy type")
	}
	return types.ProxyRelation{
		Controller: delegatee,
		Controlled: delegator,
		Kind:       types.ProxyKind(e.Type),
		Chain:      chain,
		HasDelay:   e.Delay > 0,
	}, nil
}
