package discovery

import (
	"sort"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// Prior is what Merge knows about a run beyond the chains that succeeded.
type Prior struct {
	// Unchecked lists chains with roots that were not searched, because
	// they failed or were left out of a scoped run.
	Unchecked map[types.ChainID]bool
	// Known holds the stored wallets. While a universal chain is unchecked
	// they decide whether a multisig is cross-chain.
	Known []types.KnownWallet
}

// Merge combines the closure results of the chains that succeeded into one
// relation list keyed by delegation identity.
//
// Proxy relations stay bound to their chain. Multisig relations are grouped by
// threshold and signatory set; a group becomes a single cross-chain identity
// when every universal chain reports it under one common multisig account.
// Any other occurrence is tracked per chain. When a universal chain was not
// checked that test cannot be decided, so each multisig keeps the scope of
// its stored wallet and new ones stay per chain. Relations that fail
// validation or that the chain is not capable of are dropped.
func Merge(results []*ClosureResult, registry *Registry, prior Prior, log *logger.Logger) []types.MergedRelation {
	if log == nil {
		log = logger.NewDefault()
	}

	succeeded := make(map[types.ChainID]bool, len(results))
	for _, res := range results {
		succeeded[res.Chain] = true
	}
	var universal []types.ChainID
	var pinned map[string]bool
	for _, chain := range registry.Universal() {
		if succeeded[chain] {
			universal = append(universal, chain)
		}
		if prior.Unchecked[chain] && pinned == nil {
			pinned = knownCrossChain(prior.Known)
		}
	}

	acc := newMergeAccumulator()
	groups := make(map[string][]types.ChainRelation)

	for _, res := range results {
		caps := registry.Lookup(res.Chain)
		for _, rel := range res.Relations {
			if err := rel.Validate(); err != nil {
				log.Warnw("dropping relation", "chain", res.Chain, "error", err)
				continue
			}
			if !caps.Supports(rel.Type) {
				log.Debugw("dropping relation unsupported by chain", "chain", res.Chain, "type", rel.Type.String())
				continue
			}

			switch rel.Type {
			case types.RelationProxy:
				acc.add(types.SingleChain(res.Chain), rel)
			case types.RelationMultisig:
				key := rel.Multisig.GroupKey()
				groups[key] = append(groups[key], rel)
			}
		}
	}

	groupKeys := make([]string, 0, len(groups))
	for key := range groups {
		groupKeys = append(groupKeys, key)
	}
	sort.Strings(groupKeys)

	for _, key := range groupKeys {
		occurrences := groups[key]
		crossChain := pinned == nil && isUniversalGroup(occurrences, universal, registry)
		for _, rel := range occurrences {
			scope := types.SingleChain(rel.Chain)
			if registry.Lookup(rel.Chain).UniversalMultisig {
				if crossChain || pinned[types.IdentityFor(rel.Relation, types.CrossChain()).Key()] {
					scope = types.CrossChain()
				}
			}
			acc.add(scope, rel)
		}
	}
	if pinned != nil {
		log.Debugw("universal chain unchecked, multisig scopes follow stored wallets", "cross_chain_known", len(pinned))
	}

	return acc.list()
}

// isUniversalGroup reports whether occurrences of one multisig group were
// found on every chain in universal with the same multisig account.
func isUniversalGroup(occurrences []types.ChainRelation, universal []types.ChainID, registry *Registry) bool {
	if len(universal) == 0 {
		return false
	}

	found := make(map[types.ChainID]bool)
	accounts := make(types.AccountSet)
	for _, rel := range occurrences {
		if !registry.Lookup(rel.Chain).UniversalMultisig {
			continue
		}
		found[rel.Chain] = true
		accounts.Add(rel.Multisig.Account)
	}
	if accounts.Len() != 1 {
		return false
	}
	for _, chain := range universal {
		if !found[chain] {
			return false
		}
	}
	return true
}

// knownCrossChain returns the identity keys of stored cross-chain wallets.
// The result is never nil.
func knownCrossChain(known []types.KnownWallet) map[string]bool {
	out := make(map[string]bool)
	for _, k := range known {
		if k.Identity.Scope.IsCrossChain() {
			out[k.Identity.Key()] = true
		}
	}
	return out
}

type mergeAccumulator struct {
	byKey map[string]*types.MergedRelation
}

func newMergeAccumulator() *mergeAccumulator {
	return &mergeAccumulator{byKey: make(map[string]*types.MergedRelation)}
}

func (m *mergeAccumulator) add(scope types.Scope, rel types.ChainRelation) {
	id := types.IdentityFor(rel.Relation, scope)
	key := id.Key()

	merged, ok := m.byKey[key]
	if !ok {
		merged = &types.MergedRelation{Identity: id, Relation: rel.Relation}
		m.byKey[key] = merged
	}
	for _, c := range merged.Chains {
		if c == rel.Chain {
			return
		}
	}
	merged.Chains = append(merged.Chains, rel.Chain)
	types.SortChainIDs(merged.Chains)
}

func (m *mergeAccumulator) list() []types.MergedRelation {
	keys := make([]string, 0, len(m.byKey))
	for key := range m.byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]types.MergedRelation, 0, len(keys))
	for _, key := range keys {
		out = append(out, *m.byKey[key])
	}
	return out
}
