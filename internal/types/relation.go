package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedRelation marks relation data that violates its invariants.
var ErrMalformedRelation = errors.New("malformed relation")

// ProxyKind is the permission class of a proxy.
type ProxyKind string

const (
	ProxyAny               ProxyKind = "Any"
	ProxyNonTransfer       ProxyKind = "NonTransfer"
	ProxyGovernance        ProxyKind = "Governance"
	ProxyStaking           ProxyKind = "Staking"
	ProxyIdentityJudgement ProxyKind = "IdentityJudgement"
	ProxyCancelProxy       ProxyKind = "CancelProxy"
	ProxyAuction           ProxyKind = "Auction"
	ProxyNominationPools   ProxyKind = "NominationPools"
)

// RelationType tags the Relation union.
type RelationType int

const (
	RelationProxy RelationType = iota + 1
	RelationMultisig
)

func (t RelationType) String() string {
	switch t {
	case RelationProxy:
		return "proxy"
	case RelationMultisig:
		return "multisig"
	default:
		return "unknown"
	}
}

// ProxyRelation lets Controller act on behalf of Controlled on one chain.
type ProxyRelation struct {
	Controller AccountID
	Controlled AccountID
	Kind       ProxyKind
	Chain      ChainID
	HasDelay   bool
}

// MultisigRelation records Signatory's membership in Account.
// Signatories is kept sorted; the chain is carried by ChainRelation.
type MultisigRelation struct {
	Account     AccountID
	Signatory   AccountID
	Signatories []AccountID
	Threshold   int
}

// Relation is a delegation discovered on some chain.
type Relation struct {
	Type     RelationType
	Proxy    ProxyRelation
	Multisig MultisigRelation
}

// NewProxyRelation builds a proxy relation.
func NewProxyRelation(controller, controlled AccountID, kind ProxyKind, chain ChainID, hasDelay bool) Relation {
	return Relation{
		Type: RelationProxy,
		Proxy: ProxyRelation{
			Controller: controller,
			Controlled: controlled,
			Kind:       kind,
			Chain:      chain,
			HasDelay:   hasDelay,
		},
	}
}

// NewMultisigRelation builds a multisig relation with a sorted copy of signatories.
func NewMultisigRelation(account, signatory AccountID, signatories []AccountID, threshold int) Relation {
	sorted := SortAccountIDs(append([]AccountID(nil), signatories...))
	return Relation{
		Type: RelationMultisig,
		Multisig: MultisigRelation{
			Account:     account,
			Signatory:   signatory,
			Signatories: sorted,
			Threshold:   threshold,
		},
	}
}

// Controller is the key that gains control: the proxy or the signatory.
func (r Relation) Controller() AccountID {
	if r.Type == RelationMultisig {
		return r.Multisig.Signatory
	}
	return r.Proxy.Controller
}

// Controlled is the account reached through the relation.
func (r Relation) Controlled() AccountID {
	if r.Type == RelationMultisig {
		return r.Multisig.Account
	}
	return r.Proxy.Controlled
}

// Key is a value key: two relations with equal keys are the same relation.
func (r Relation) Key() string {
	var sb strings.Builder
	sb.WriteString(r.Type.String())
	sb.WriteByte('|')
	switch r.Type {
	case RelationProxy:
		p := r.Proxy
		sb.WriteString(p.Controller.Hex())
		sb.WriteByte('|')
		sb.WriteString(p.Controlled.Hex())
		sb.WriteByte('|')
		sb.WriteString(string(p.Kind))
		sb.WriteByte('|')
		sb.WriteString(string(p.Chain))
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatBool(p.HasDelay))
	case RelationMultisig:
		m := r.Multisig
		sb.WriteString(m.Account.Hex())
		sb.WriteByte('|')
		sb.WriteString(m.Signatory.Hex())
		sb.WriteByte('|')
		sb.WriteString(strconv.Itoa(m.Threshold))
		for _, s := range m.Signatories {
			sb.WriteByte('|')
			sb.WriteString(s.Hex())
		}
	}
	return sb.String()
}

// Validate checks the union's invariants.
func (r Relation) Validate() error {
	switch r.Type {
	case RelationProxy:
		if r.Proxy.Controller == r.Proxy.Controlled {
			return fmt.Errorf("%w: proxy controller equals controlled account %s", ErrMalformedRelation, r.Proxy.Controller.Short())
		}
		if r.Proxy.Chain == "" {
			return fmt.Errorf("%w: proxy without chain", ErrMalformedRelation)
		}
	case RelationMultisig:
		m := r.Multisig
		if !containsAccount(m.Signatories, m.Signatory) {
			return fmt.Errorf("%w: signatory %s not in signatories of %s", ErrMalformedRelation, m.Signatory.Short(), m.Account.Short())
		}
		if m.Threshold < 1 || m.Threshold > len(m.Signatories) {
			return fmt.Errorf("%w: threshold %d outside [1, %d]", ErrMalformedRelation, m.Threshold, len(m.Signatories))
		}
	default:
		return fmt.Errorf("%w: unknown relation type %d", ErrMalformedRelation, r.Type)
	}
	return nil
}

// OtherSignatories returns the signatories except the relation's own signatory.
func (m MultisigRelation) OtherSignatories() []AccountID {
	out := make([]AccountID, 0, len(m.Signatories))
	for _, s := range m.Signatories {
		if s != m.Signatory {
			out = append(out, s)
		}
	}
	return out
}

// GroupKey identifies the logical multisig independent of signatory and chain.
func (m MultisigRelation) GroupKey() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(m.Threshold))
	for _, s := range m.Signatories {
		sb.WriteByte('|')
		sb.WriteString(s.Hex())
	}
	return sb.String()
}

// ChainRelation is a relation together with the chain it was found on.
type ChainRelation struct {
	Chain ChainID
	Relation
}

// Key extends Relation.Key with the chain.
func (c ChainRelation) Key() string {
	return string(c.Chain) + "#" + c.Relation.Key()
}

func containsAccount(ids []AccountID, id AccountID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
