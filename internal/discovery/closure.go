// Package discovery finds every account reachable from a user's root keys
// through proxy and multisig delegation, across chains, and turns the result
// into a change set against the known wallet list.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/godelegate/internal/graph"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// Finder is the query contract the closure search runs against. The
// per-chain source.Aggregator implements it.
type Finder interface {
	Find(ctx context.Context, controllers types.AccountSet) (map[types.AccountID][]types.ChainRelation, error)
}

// ClosureResult is everything one chain's search reached.
type ClosureResult struct {
	Chain     types.ChainID
	Seeds     types.AccountSet
	Relations []types.ChainRelation // deduplicated, in discovery order
	Graph     *graph.Graph
	Stats     types.DiscoveryStats
	Cycle     *graph.CycleInfo // nil when the delegation graph is acyclic
}

// ClosureSearch runs the fixed-point search for one chain.
type ClosureSearch struct {
	chain  types.ChainID
	finder Finder
	logger *logger.Logger
}

// NewClosureSearch creates a search over finder for chain.
func NewClosureSearch(chain types.ChainID, finder Finder, log *logger.Logger) (*ClosureSearch, error) {
	if finder == nil {
		return nil, fmt.Errorf("finder is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &ClosureSearch{
		chain:  chain,
		finder: finder,
		logger: log.WithChain(string(chain)),
	}, nil
}

// Run queries the controllers in the frontier, collects their relations and
// makes the newly controlled accounts the next frontier, until no new
// account appears. Every account is queried at most once, so the loop ends
// on any finite relation graph, cycles included.
func (s *ClosureSearch) Run(ctx context.Context, seeds types.AccountSet) (*ClosureResult, error) {
	startTime := time.Now()

	result := &ClosureResult{
		Chain: s.chain,
		Seeds: seeds.Difference(nil),
		Graph: graph.NewGraph(seeds.Sorted()...),
	}

	if seeds.Len() == 0 {
		s.logger.Debug("No seeds provided, returning empty result")
		return result, nil
	}

	frontier := seeds.Difference(nil)
	visited := make(types.AccountSet)
	seenKeys := make(map[string]bool)

	for frontier.Len() > 0 {
		select {
		case <-ctx.Done():
			s.logger.Warnf("Closure search interrupted: %v", ctx.Err())
			return nil, ctx.Err()
		default:
		}

		result.Stats.Iterations++

		found, err := s.finder.Find(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("closure iteration %d on %s: %w", result.Stats.Iterations, s.chain, err)
		}

		visited = visited.Union(frontier)
		next := make(types.AccountSet)
		added := 0

		for _, controller := range frontier.Sorted() {
			for _, rel := range found[controller] {
				key := rel.Key()
				if seenKeys[key] {
					continue
				}
				seenKeys[key] = true
				result.Relations = append(result.Relations, rel)
				result.Graph.AddRelation(rel.Relation)
				added++

				if controlled := rel.Controlled(); !visited.Has(controlled) {
					next.Add(controlled)
				}
			}
		}

		s.logger.Debugf("Iteration %d: %d controllers queried, %d new relations, %d new accounts",
			result.Stats.Iterations, frontier.Len(), added, next.Len())

		frontier = next
	}

	if info := result.Graph.DetectIncompleteProcessing(); info != nil {
		result.Cycle = info
		s.logger.Infow("Delegation cycle",
			"path", shortIDs(info.CyclePath),
			"participants", len(info.CycleParticipants),
			"behind", len(info.Behind()))
	}

	result.Stats.AccountsVisited = visited.Len()
	result.Stats.RelationsFound = len(result.Relations)
	result.Stats.MaxDepth = result.Graph.MaxDepth(result.Seeds)
	result.Stats.Duration = time.Since(startTime)

	s.logger.Infof("Closure complete: %d iterations, %d accounts, %d relations, depth %d, duration: %s",
		result.Stats.Iterations,
		result.Stats.AccountsVisited,
		result.Stats.RelationsFound,
		result.Stats.MaxDepth,
		result.Stats.Duration,
	)

	return result, nil
}

func shortIDs(ids []types.AccountID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Short()
	}
	return strings.Join(parts, " -> ")
}
