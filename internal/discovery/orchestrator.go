package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/godelegate/internal/graph"
	"github.com/dbsmedya/godelegate/internal/identity"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/reconcile"
	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

// Options configures an Orchestrator.
type Options struct {
	Registry       *Registry
	ProxyFetcher   source.ProxyTableFetcher
	MultisigIndex  source.MultisigIndex
	Identity       identity.Resolver // optional
	Workers        int
	QueryBatchSize int
	RevokeMissing  bool
	Metrics        *Metrics       // optional
	Logger         *logger.Logger // optional
}

// ChainReport is the outcome of one chain's closure search.
type ChainReport struct {
	Chain     types.ChainID
	Stats     types.DiscoveryStats
	Relations int
	Cycle     *graph.CycleInfo // nil when the chain's delegation graph is acyclic
}

// Result is the outcome of one discovery run.
type Result struct {
	RunID        string
	ChangeSet    types.ChangeSet
	Relations    []types.MergedRelation
	FailedChains map[types.ChainID]error
	Skipped      []types.ChainID // chains with roots left out of a scoped run
	Chains       map[types.ChainID]ChainReport
	Duration     time.Duration
}

// Partial reports whether at least one chain could not be checked.
func (r *Result) Partial() bool {
	return len(r.FailedChains) > 0
}

// FailedChainIDs returns the failed chains, sorted.
func (r *Result) FailedChainIDs() []types.ChainID {
	out := make([]types.ChainID, 0, len(r.FailedChains))
	for chain := range r.FailedChains {
		out = append(out, chain)
	}
	types.SortChainIDs(out)
	return out
}

// Orchestrator fans closure searches out across chains, merges the results
// and reconciles them against the known wallets.
type Orchestrator struct {
	opts    Options
	engine  *reconcile.Engine
	metrics *Metrics
	logger  *logger.Logger
}

// NewOrchestrator validates opts and creates an orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("chain registry is nil")
	}
	for _, chain := range opts.Registry.Chains() {
		caps := opts.Registry.Lookup(chain)
		if caps.Proxy && opts.ProxyFetcher == nil {
			return nil, fmt.Errorf("chain %s needs proxy discovery but no proxy fetcher is set", chain)
		}
		if caps.Multisig && opts.MultisigIndex == nil {
			return nil, fmt.Errorf("chain %s needs multisig discovery but no multisig index is set", chain)
		}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueryBatchSize < 1 {
		opts.QueryBatchSize = source.DefaultQueryBatchSize
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewDefault()
	}

	return &Orchestrator{
		opts:    opts,
		engine:  reconcile.NewEngine(reconcile.Options{RevokeMissing: opts.RevokeMissing}, log),
		metrics: opts.Metrics,
		logger:  log,
	}, nil
}

// Discover checks every chain that has roots and a discovery capability.
func (o *Orchestrator) Discover(ctx context.Context, roots types.RootAccounts, known []types.KnownWallet) (*Result, error) {
	return o.DiscoverScoped(ctx, roots, known, nil)
}

// DiscoverScoped is Discover restricted to the chains in scope. Chains with
// roots outside scope are treated like failed chains for deletion purposes
// so a retry of a few chains never removes wallets elsewhere. A nil scope
// means every chain.
func (o *Orchestrator) DiscoverScoped(ctx context.Context, roots types.RootAccounts, known []types.KnownWallet, scope []types.ChainID) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	log := o.logger.WithRun(runID)

	result := &Result{
		RunID:        runID,
		FailedChains: make(map[types.ChainID]error),
		Chains:       make(map[types.ChainID]ChainReport),
	}

	chains, skipped := o.plan(roots, scope, log)
	result.Skipped = skipped

	log.Infow("Starting discovery", "chains", len(chains), "skipped", len(skipped), "workers", o.opts.Workers)

	var (
		mu        sync.Mutex
		succeeded []*ClosureResult
	)

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)

	for _, chain := range chains {
		chain := chain
		g.Go(func() error {
			res, err := o.searchChain(ctx, chain, roots.Set(chain), log)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Errorw("chain could not be checked", "chain", chain, "error", err)
				if o.metrics != nil {
					o.metrics.chainFailed(chain)
				}
				mu.Lock()
				result.FailedChains[chain] = err
				mu.Unlock()
				return nil
			}

			if o.metrics != nil {
				o.metrics.chainSearched(chain, res.Stats)
			}
			mu.Lock()
			succeeded = append(succeeded, res)
			result.Chains[chain] = ChainReport{
				Chain:     chain,
				Stats:     res.Stats,
				Relations: len(res.Relations),
				Cycle:     res.Cycle,
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warnf("Discovery cancelled: %v", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unchecked := make(map[types.ChainID]bool, len(result.FailedChains)+len(skipped))
	for chain := range result.FailedChains {
		unchecked[chain] = true
	}
	for _, chain := range skipped {
		unchecked[chain] = true
	}
	universalFailed := false
	for _, chain := range o.opts.Registry.Universal() {
		if unchecked[chain] {
			universalFailed = true
		}
	}

	result.Relations = Merge(succeeded, o.opts.Registry, Prior{Unchecked: unchecked, Known: known}, log)

	names := identity.BestEffort(ctx, o.opts.Identity, delegators(result.Relations), log)

	result.ChangeSet = o.engine.Reconcile(reconcile.Input{
		Roots:           roots,
		Relations:       result.Relations,
		Names:           names,
		Known:           known,
		FailedChains:    unchecked,
		UniversalFailed: universalFailed,
	})
	result.Duration = time.Since(startTime)

	if o.metrics != nil {
		o.metrics.runFinished(result.ChangeSet, result.Duration)
	}

	log.Infow("Discovery complete",
		"checked", len(result.Chains),
		"failed", len(result.FailedChains),
		"relations", len(result.Relations),
		"upserts", len(result.ChangeSet.Upserts),
		"deletions", len(result.ChangeSet.Deletions),
		"duration", result.Duration.String(),
	)

	return result, nil
}

// plan returns the chains to search and the chains with roots that the
// scope leaves out.
func (o *Orchestrator) plan(roots types.RootAccounts, scope []types.ChainID, log *logger.Logger) (chains, skipped []types.ChainID) {
	inScope := func(types.ChainID) bool { return true }
	if scope != nil {
		allowed := make(map[types.ChainID]bool, len(scope))
		for _, c := range scope {
			allowed[c] = true
		}
		inScope = func(c types.ChainID) bool { return allowed[c] }
	}

	for _, chain := range roots.Chains() {
		if !o.opts.Registry.Lookup(chain).Any() {
			log.Debugw("chain has no discovery capability", "chain", chain)
			continue
		}
		if !inScope(chain) {
			skipped = append(skipped, chain)
			continue
		}
		chains = append(chains, chain)
	}
	return chains, skipped
}

// searchChain runs one closure search over a fresh aggregator, so caches
// never outlive the run.
func (o *Orchestrator) searchChain(ctx context.Context, chain types.ChainID, seeds types.AccountSet, log *logger.Logger) (*ClosureResult, error) {
	search, err := NewClosureSearch(chain, o.newAggregator(chain, log), log)
	if err != nil {
		return nil, err
	}
	return search.Run(ctx, seeds)
}

func (o *Orchestrator) newAggregator(chain types.ChainID, log *logger.Logger) *source.Aggregator {
	caps := o.opts.Registry.Lookup(chain)

	var observer source.Observer
	if o.metrics != nil {
		observer = o.metrics
	}

	var sources []source.ChainQuerySource
	if caps.Proxy {
		sources = append(sources, source.NewProxySource(chain, o.opts.ProxyFetcher, log, observer))
	}
	if caps.Multisig {
		sources = append(sources, source.NewMultisigSource(chain, o.opts.MultisigIndex, o.opts.QueryBatchSize, log, observer))
	}
	return source.NewAggregator(chain, caps, log, sources...)
}

// delegators collects the accounts whose display names the wallets carry.
func delegators(rels []types.MergedRelation) types.AccountSet {
	ids := make(types.AccountSet, len(rels))
	for _, rel := range rels {
		ids.Add(rel.Identity.Delegator)
	}
	return ids
}
