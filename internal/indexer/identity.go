package indexer

import (
	"context"

	"github.com/dbsmedya/godelegate/internal/types"
)

const identitySource = "identity"

type identityRequest struct {
	Accounts []string `json:"accounts"`
}

type identityResponse struct {
	Identities map[string]string `json:"identities"`
}

// Resolve looks up on-chain display names. Accounts are sent in pages of the
// configured page size; unknown accounts are simply absent from the result.
func (c *Client) Resolve(ctx context.Context, ids types.AccountSet) (map[types.AccountID]string, error) {
	names := make(map[types.AccountID]string)
	if ids.Len() == 0 || c.identityURL == "" {
		return names, nil
	}

	all := ids.Sorted()
	for start := 0; start < len(all); start += c.pageSize {
		end := start + c.pageSize
		if end > len(all) {
			end = len(all)
		}

		var resp identityResponse
		req := identityRequest{Accounts: hexList(all[start:end])}
		if err := c.post(ctx, c.identityURL, identitySource, "", req, &resp); err != nil {
			return names, err
		}

		for account, name := range resp.Identities {
			id, err := types.ParseAccountID(account)
			if err != nil || name == "" {
				c.log.Debugw("skipping identity entry", "account", account, "error", err)
				continue
			}
			names[id] = name
		}
	}
	return names, nil
}
