// Package source implements the per-chain query sources used by discovery
// and the aggregator that combines them behind one cached Find call.
package source

import (
	"context"

	"github.com/dbsmedya/godelegate/internal/types"
)

// Source names used in errors, logs and metrics.
const (
	NameProxy    = "proxy"
	NameMultisig = "multisig"
)

// ChainQuerySource resolves, for a set of controller keys, the relations in
// which they hold control on one chain. An empty input returns an empty map
// without a remote call.
type ChainQuerySource interface {
	Name() string
	Kind() types.RelationType
	Find(ctx context.Context, controllers types.AccountSet) (map[types.AccountID][]types.ChainRelation, error)
}

// ProxyTableFetcher reads the full proxy table of a chain.
type ProxyTableFetcher interface {
	FetchProxyTable(ctx context.Context, chain types.ChainID) ([]types.ProxyRelation, error)
}

// MultisigRecord is one multisig returned by the external index. A zero
// Account means the index did not report it and it must be derived.
type MultisigRecord struct {
	Account     types.AccountID
	Signatories []types.AccountID
	Threshold   int
}

// MultisigIndex looks up the multisigs that any of signatories belongs to.
type MultisigIndex interface {
	FindMultisigs(ctx context.Context, chain types.ChainID, signatories []types.AccountID) ([]MultisigRecord, error)
}

// Capabilities are the static discovery flags of a chain.
type Capabilities struct {
	Proxy             bool
	Multisig          bool
	UniversalMultisig bool
}

// Any reports whether the chain supports at least one mechanism.
func (c Capabilities) Any() bool {
	return c.Proxy || c.Multisig
}

// Supports reports whether relations of type t can be discovered.
func (c Capabilities) Supports(t types.RelationType) bool {
	switch t {
	case types.RelationProxy:
		return c.Proxy
	case types.RelationMultisig:
		return c.Multisig
	default:
		return false
	}
}

// Observer receives query accounting. discovery.Metrics implements it.
type Observer interface {
	RemoteQuery(chain types.ChainID, source string)
	CacheHits(chain types.ChainID, source string, n int)
}

type nopObserver struct{}

func (nopObserver) RemoteQuery(types.ChainID, string)    {}
func (nopObserver) CacheHits(types.ChainID, string, int) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
