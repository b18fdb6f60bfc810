// Package store persists the known wallet list.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/godelegate/internal/types"
)

// Store loads the known wallets and applies change sets atomically.
type Store interface {
	Load(ctx context.Context) ([]types.KnownWallet, error)
	Apply(ctx context.Context, cs types.ChangeSet) error
	Close() error
}

// encodeSignatories renders signatories as comma-separated hex.
func encodeSignatories(ids []types.AccountID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Hex()
	}
	return strings.Join(parts, ",")
}

func decodeSignatories(s string) ([]types.AccountID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]types.AccountID, 0, len(parts))
	for _, p := range parts {
		id, err := types.ParseAccountID(p)
		if err != nil {
			return nil, fmt.Errorf("signatory: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}

func parseRelationType(s string) (types.RelationType, error) {
	switch s {
	case types.RelationProxy.String():
		return types.RelationProxy, nil
	case types.RelationMultisig.String():
		return types.RelationMultisig, nil
	default:
		return 0, fmt.Errorf("unknown wallet kind %q", s)
	}
}

// record is the flat form shared by both stores.
type record struct {
	WalletKey   string  `json:"wallet_key"`
	Scope       string  `json:"scope"`
	Delegate    string  `json:"delegate"`
	Delegator   string  `json:"delegator"`
	Variant     string  `json:"variant,omitempty"`
	Kind        string  `json:"kind"`
	ProxyKind   string  `json:"proxy_kind,omitempty"`
	Threshold   int     `json:"threshold,omitempty"`
	Signatories string  `json:"signatories,omitempty"`
	Status      string  `json:"status"`
	DisplayName *string `json:"display_name,omitempty"`
}

func toRecord(key string, w types.DiscoveredWallet) record {
	return record{
		WalletKey:   key,
		Scope:       w.Identity.Scope.String(),
		Delegate:    w.Identity.Delegate.Hex(),
		Delegator:   w.Identity.Delegator.Hex(),
		Variant:     w.Identity.Variant,
		Kind:        w.Kind.Type.String(),
		ProxyKind:   string(w.Kind.ProxyKind),
		Threshold:   w.Kind.Threshold,
		Signatories: encodeSignatories(w.Kind.Signatories),
		Status:      w.Status.String(),
		DisplayName: w.DisplayName,
	}
}

func (r record) known() (types.KnownWallet, error) {
	var k types.KnownWallet
	delegate, err := types.ParseAccountID(r.Delegate)
	if err != nil {
		return k, fmt.Errorf("wallet %s delegate: %w", r.WalletKey, err)
	}
	delegator, err := types.ParseAccountID(r.Delegator)
	if err != nil {
		return k, fmt.Errorf("wallet %s delegator: %w", r.WalletKey, err)
	}
	kind, err := parseRelationType(r.Kind)
	if err != nil {
		return k, fmt.Errorf("wallet %s: %w", r.WalletKey, err)
	}
	signatories, err := decodeSignatories(r.Signatories)
	if err != nil {
		return k, fmt.Errorf("wallet %s: %w", r.WalletKey, err)
	}
	status, err := types.ParseStatus(r.Status)
	if err != nil {
		return k, fmt.Errorf("wallet %s: %w", r.WalletKey, err)
	}

	return types.KnownWallet{
		WalletKey: r.WalletKey,
		Identity: types.DelegationIdentity{
			Delegate:  delegate,
			Delegator: delegator,
			Scope:     types.ParseScope(r.Scope),
			Variant:   r.Variant,
		},
		Kind: types.WalletKind{
			Type:        kind,
			ProxyKind:   types.ProxyKind(r.ProxyKind),
			Threshold:   r.Threshold,
			Signatories: signatories,
		},
		Status:      status,
		DisplayName: r.DisplayName,
	}, nil
}
