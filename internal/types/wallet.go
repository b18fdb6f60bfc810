package types

import (
	"fmt"
	"sort"
	"strings"
)

// Scope says whether an identity is bound to one chain or shared by all
// chains with universal multisig addressing. An empty Chain means cross-chain.
type Scope struct {
	Chain ChainID
}

// SingleChain scopes an identity to chain.
func SingleChain(chain ChainID) Scope {
	return Scope{Chain: chain}
}

// CrossChain is the scope of a universal multisig.
func CrossChain() Scope {
	return Scope{}
}

// IsCrossChain reports whether the scope spans chains.
func (s Scope) IsCrossChain() bool {
	return s.Chain == ""
}

func (s Scope) String() string {
	if s.IsCrossChain() {
		return "*"
	}
	return string(s.Chain)
}

// ParseScope is the inverse of Scope.String.
func ParseScope(s string) Scope {
	if s == "*" || s == "" {
		return CrossChain()
	}
	return SingleChain(ChainID(s))
}

// DelegationIdentity is the stable key of a discovered wallet across runs.
// Variant holds the proxy kind for proxy identities and is empty for multisig.
type DelegationIdentity struct {
	Delegate  AccountID
	Delegator AccountID
	Scope     Scope
	Variant   string
}

// Key is a printable, order-stable form used by stores and for sorting.
func (d DelegationIdentity) Key() string {
	return strings.Join([]string{d.Scope.String(), d.Delegator.Hex(), d.Delegate.Hex(), d.Variant}, "/")
}

func (d DelegationIdentity) String() string {
	return fmt.Sprintf("%s:%s<-%s", d.Scope, d.Delegator.Short(), d.Delegate.Short())
}

// SortIdentities sorts identities by Key.
func SortIdentities(ids []DelegationIdentity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
}

// Status is the lifecycle state of a discovered wallet. Higher values take
// precedence when the same identity is reported more than once.
type Status int

const (
	StatusRevoked Status = iota
	StatusActive
	StatusNew
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusActive:
		return "active"
	case StatusRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "new":
		return StatusNew, nil
	case "active":
		return StatusActive, nil
	case "revoked":
		return StatusRevoked, nil
	default:
		return StatusRevoked, fmt.Errorf("unknown wallet status %q", s)
	}
}

// MaxStatus returns the highest-precedence status (new > active > revoked).
func MaxStatus(statuses ...Status) Status {
	best := StatusRevoked
	for _, s := range statuses {
		if s > best {
			best = s
		}
	}
	return best
}

// WalletKind describes how the wallet is controlled.
type WalletKind struct {
	Type        RelationType
	ProxyKind   ProxyKind
	Threshold   int
	Signatories []AccountID
}

// Equal compares kinds by value.
func (k WalletKind) Equal(o WalletKind) bool {
	if k.Type != o.Type || k.ProxyKind != o.ProxyKind || k.Threshold != o.Threshold {
		return false
	}
	if len(k.Signatories) != len(o.Signatories) {
		return false
	}
	for i := range k.Signatories {
		if k.Signatories[i] != o.Signatories[i] {
			return false
		}
	}
	return true
}

func (k WalletKind) String() string {
	if k.Type == RelationMultisig {
		return fmt.Sprintf("multisig %d/%d", k.Threshold, len(k.Signatories))
	}
	return fmt.Sprintf("proxy %s", k.ProxyKind)
}

// DiscoveredWallet is one upsert produced by reconciliation.
type DiscoveredWallet struct {
	Identity    DelegationIdentity
	Kind        WalletKind
	Status      Status
	DisplayName *string
}

// KnownWallet is the persisted counterpart of a DiscoveredWallet.
type KnownWallet struct {
	WalletKey   string
	Identity    DelegationIdentity
	Kind        WalletKind
	Status      Status
	DisplayName *string
}

// ChangeSet is the output of one reconciliation run.
type ChangeSet struct {
	Upserts   []DiscoveredWallet
	Deletions []DelegationIdentity
}

// IsEmpty reports whether applying the change set would be a no-op.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Upserts) == 0 && len(c.Deletions) == 0
}

// MergedRelation is a relation after the cross-chain merge: its identity is
// fixed and Chains lists every chain it was observed on.
type MergedRelation struct {
	Identity DelegationIdentity
	Relation Relation
	Chains   []ChainID
}

// IdentityFor derives the delegation identity of rel under scope.
func IdentityFor(rel Relation, scope Scope) DelegationIdentity {
	id := DelegationIdentity{
		Delegate:  rel.Controller(),
		Delegator: rel.Controlled(),
		Scope:     scope,
	}
	if rel.Type == RelationProxy {
		id.Variant = string(rel.Proxy.Kind)
	}
	return id
}

// KindOf derives the wallet kind of rel.
func KindOf(rel Relation) WalletKind {
	if rel.Type == RelationMultisig {
		return WalletKind{
			Type:        RelationMultisig,
			Threshold:   rel.Multisig.Threshold,
			Signatories: append([]AccountID(nil), rel.Multisig.Signatories...),
		}
	}
	return WalletKind{Type: RelationProxy, ProxyKind: rel.Proxy.Kind}
}

// EqualNames compares optional display names.
func EqualNames(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
