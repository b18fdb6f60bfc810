package indexer

import (
	"context"
	"fmt"

	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

type multisigRequest struct {
	Chain       string   `json:"chain"`
	Signatories []string `json:"signatories"`
}

type multisigEntry struct {
	Account     string   `json:"account"`
	Signatories []string `json:"signatories"`
	Threshold   int      `json:"threshold"`
}

type multisigResponse struct {
	Multisigs []multisigEntry `json:"multisigs"`
}

// FindMultisigs returns every multisig on chain that has at least one of
// signatories as a member.
func (c *Client) FindMultisigs(ctx context.Context, chain types.ChainID, signatories []types.AccountID) ([]source.MultisigRecord, error) {
	if len(signatories) == 0 {
		return nil, nil
	}

	var resp multisigResponse
	req := multisigRequest{Chain: string(chain), Signatories: hexList(signatories)}
	if err := c.post(ctx, c.multisigURL, source.NameMultisig, chain, req, &resp); err != nil {
		return nil, err
	}

	records := make([]source.MultisigRecord, 0, len(resp.Multisigs))
	for i, e := range resp.Multisigs {
		rec, err := e.decode()
		if err != nil {
			return nil, &source.DecodingError{
				Chain:  chain,
				Source: source.NameMultisig,
				Cause:  fmt.Errorf("entry %d: %w", i, err),
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e multisigEntry) decode() (source.MultisigRecord, error) {
	var rec source.MultisigRecord
	if e.Account != "" {
		account, err := types.ParseAccountID(e.Account)
		if err != nil {
			return rec, fmt.Errorf("account: %w", err)
		}
		rec.Account = account
	}
	if len(e.Signatories) == 0 {
		return rec, fmt.Errorf("no signatories")
	}
	for j, s := range e.Signatories {
		id, err := types.ParseAccountID(s)
		if err != nil {
			return rec, fmt.Errorf("signatory %d: %w", j, err)
		}
		rec.Signatories = append(rec.Signatories, id)
	}
	rec.Threshold = e.Threshold
	return rec, nil
}
