// Package reconcile diffs discovered delegations against the known wallet
// list. The engine holds no state between calls.
package reconcile

import (
	"github.com/dbsmedya/godelegate/internal/graph"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// Input is everything one reconciliation needs.
type Input struct {
	Roots     types.RootAccounts
	Relations []types.MergedRelation
	Names     map[types.AccountID]string
	Known     []types.KnownWallet

	// FailedChains lists chains that were not checked in this run. Wallets
	// scoped to them are kept as they are.
	FailedChains map[types.ChainID]bool
	// UniversalFailed is set when a universal multisig chain was not
	// checked, which leaves cross-chain wallets unverified.
	UniversalFailed bool
}

// Options tune the engine.
type Options struct {
	// RevokeMissing turns deletions of wallets that are not yet revoked
	// into revoked upserts.
	RevokeMissing bool
}

// Engine computes change sets.
type Engine struct {
	opts   Options
	logger *logger.Logger
}

// NewEngine creates an engine.
func NewEngine(opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{opts: opts, logger: log}
}

// Candidate is one status proposal for an identity.
type Candidate struct {
	Relation types.Relation
	Identity types.DelegationIdentity
	Status   types.Status
}

// Reconcile produces the change set that turns in.Known into the state
// discovered in in.Relations.
func (e *Engine) Reconcile(in Input) types.ChangeSet {
	known := make(map[string]types.KnownWallet, len(in.Known))
	for _, k := range in.Known {
		known[k.Identity.Key()] = k
	}

	candidates := e.candidates(in, known)
	merged := MergeCandidates(candidates)

	var cs types.ChangeSet
	reproduced := make(map[string]bool, len(merged))

	for _, c := range merged {
		key := c.Identity.Key()
		reproduced[key] = true

		wallet := types.DiscoveredWallet{
			Identity:    c.Identity,
			Kind:        types.KindOf(c.Relation),
			Status:      c.Status,
			DisplayName: nameOf(in.Names, c.Identity.Delegator),
		}

		if k, ok := known[key]; ok {
			// An unresolved name is not a removed name.
			if wallet.DisplayName == nil {
				wallet.DisplayName = k.DisplayName
			}
			if unchanged(k, wallet) {
				continue
			}
		}
		cs.Upserts = append(cs.Upserts, wallet)
	}

	for _, k := range in.Known {
		key := k.Identity.Key()
		if reproduced[key] {
			continue
		}
		if e.unchecked(in, k.Identity.Scope) {
			e.logger.Debugw("keeping wallet on unchecked scope", "wallet", k.Identity.String())
			continue
		}
		if e.opts.RevokeMissing {
			if k.Status != types.StatusRevoked {
				cs.Upserts = append(cs.Upserts, types.DiscoveredWallet{
					Identity:    k.Identity,
					Kind:        k.Kind,
					Status:      types.StatusRevoked,
					DisplayName: k.DisplayName,
				})
			}
			continue
		}
		cs.Deletions = append(cs.Deletions, k.Identity)
	}

	sortChangeSet(&cs)

	e.logger.Debugf("Reconciled %d relations against %d known wallets: %d upserts, %d deletions",
		len(in.Relations), len(in.Known), len(cs.Upserts), len(cs.Deletions))

	return cs
}

// candidates applies the acceptance rule and derives one status proposal per
// identity per chain it was accepted on.
func (e *Engine) candidates(in Input, known map[string]types.KnownWallet) []Candidate {
	byChain := make(map[types.ChainID][]int)
	for i, rel := range in.Relations {
		if err := rel.Relation.Validate(); err != nil {
			e.logger.Warnw("dropping relation", "wallet", rel.Identity.String(), "error", err)
			continue
		}
		for _, chain := range rel.Chains {
			byChain[chain] = append(byChain[chain], i)
		}
	}

	chains := make([]types.ChainID, 0, len(byChain))
	for chain := range byChain {
		chains = append(chains, chain)
	}
	types.SortChainIDs(chains)

	var out []Candidate
	for _, chain := range chains {
		roots := in.Roots.Set(chain)
		g := graph.NewGraph(roots.Sorted()...)
		for _, i := range byChain[chain] {
			g.AddRelation(in.Relations[i].Relation)
		}
		controlled := g.ReachableSet(roots)

		for _, i := range byChain[chain] {
			rel := in.Relations[i]
			if !controlled.Has(rel.Identity.Delegate) {
				e.logger.Debugw("skipping relation without a controlled delegate",
					"chain", chain, "wallet", rel.Identity.String())
				continue
			}
			out = append(out, Candidate{
				Relation: rel.Relation,
				Identity: rel.Identity,
				Status:   passStatus(known, rel.Identity),
			})
		}
	}
	return out
}

// passStatus is the status one chain pass proposes for id. It depends only on
// the stored wallet, so passes over different chains agree and
// MergeCandidates only collapses duplicates here.
func passStatus(known map[string]types.KnownWallet, id types.DelegationIdentity) types.Status {
	k, ok := known[id.Key()]
	if !ok || k.Status == types.StatusRevoked {
		return types.StatusNew
	}
	return k.Status
}

// MergeCandidates collapses candidates with the same identity, keeping the
// highest-precedence status. Order of first appearance is preserved.
func MergeCandidates(candidates []Candidate) []Candidate {
	index := make(map[string]int, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		key := c.Identity.Key()
		if i, ok := index[key]; ok {
			out[i].Status = types.MaxStatus(out[i].Status, c.Status)
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

func (e *Engine) unchecked(in Input, scope types.Scope) bool {
	if scope.IsCrossChain() {
		return in.UniversalFailed
	}
	return in.FailedChains[scope.Chain]
}

func unchanged(k types.KnownWallet, w types.DiscoveredWallet) bool {
	return k.Status == w.Status && k.Kind.Equal(w.Kind) && types.EqualNames(k.DisplayName, w.DisplayName)
}

func nameOf(names map[types.AccountID]string, id types.AccountID) *string {
	name, ok := names[id]
	if !ok || name == "" {
		return nil
	}
	return &name
}
