package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// Aggregator combines the sources enabled for one chain into a single Find.
// It remembers every controller it has already resolved; callers create one
// aggregator per chain per discovery session.
type Aggregator struct {
	chain   types.ChainID
	caps    Capabilities
	sources []ChainQuerySource
	log     *logger.Logger

	mu    sync.Mutex
	cache map[types.AccountID][]types.ChainRelation // replaced, never mutated
}

// NewAggregator keeps the sources whose kind the chain supports.
func NewAggregator(chain types.ChainID, caps Capabilities, log *logger.Logger, sources ...ChainQuerySource) *Aggregator {
	if log == nil {
		log = logger.NewDefault()
	}
	a := &Aggregator{
		chain: chain,
		caps:  caps,
		log:   log.WithChain(string(chain)),
		cache: make(map[types.AccountID][]types.ChainRelation),
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		if !caps.Supports(src.Kind()) {
			a.log.Debugw("source disabled by chain capabilities", "source", src.Name())
			continue
		}
		a.sources = append(a.sources, src)
	}
	return a
}

// Chain returns the chain this aggregator serves.
func (a *Aggregator) Chain() types.ChainID {
	return a.chain
}

// Capabilities returns the chain's capability flags.
func (a *Aggregator) Capabilities() Capabilities {
	return a.caps
}

// SourceCount returns the number of enabled sources (0 to 2).
func (a *Aggregator) SourceCount() int {
	return len(a.sources)
}

// Require returns ErrCapabilityUnsupported if relations of type t cannot be
// discovered on this chain.
func (a *Aggregator) Require(t types.RelationType) error {
	if a.caps.Supports(t) {
		return nil
	}
	return fmt.Errorf("%s discovery on %s: %w", t, a.chain, ErrCapabilityUnsupported)
}

// Find merges the answers of every enabled source. Controllers resolved by
// an earlier call are answered from cache. A failing source fails the call.
func (a *Aggregator) Find(ctx context.Context, controllers types.AccountSet) (map[types.AccountID][]types.ChainRelation, error) {
	result := make(map[types.AccountID][]types.ChainRelation)
	if controllers.Len() == 0 || len(a.sources) == 0 {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	snapshot := a.cache
	a.mu.Unlock()

	missing := make(types.AccountSet)
	for c := range controllers {
		if _, ok := snapshot[c]; !ok {
			missing.Add(c)
		}
	}

	if missing.Len() > 0 {
		fresh := make(map[types.AccountID][]types.ChainRelation, missing.Len())
		for c := range missing {
			fresh[c] = nil
		}

		for _, src := range a.sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			found, err := src.Find(ctx, missing)
			if err != nil {
				return nil, err
			}
			for controller, rels := range found {
				if !missing.Has(controller) {
					continue
				}
				for _, rel := range rels {
					if !a.caps.Supports(rel.Type) {
						continue
					}
					fresh[controller] = append(fresh[controller], rel)
				}
			}
		}

		a.mu.Lock()
		next := make(map[types.AccountID][]types.ChainRelation, len(a.cache)+len(fresh))
		for k, v := range a.cache {
			next[k] = v
		}
		for k, v := range fresh {
			next[k] = v
		}
		a.cache = next
		snapshot = next
		a.mu.Unlock()
	}

	for c := range controllers {
		if rels := snapshot[c]; len(rels) > 0 {
			result[c] = rels
		}
	}
	return result, nil
}
