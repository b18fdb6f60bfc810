package source

import (
	"context"
	"sync"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// ProxySource serves proxy relations from one full scan of a chain's proxy
// table. The scan happens on first use and is kept for the lifetime of the
// instance.
type ProxySource struct {
	chain    types.ChainID
	fetcher  ProxyTableFetcher
	log      *logger.Logger
	observer Observer

	mu           sync.Mutex
	byController map[types.AccountID][]types.ProxyRelation // nil until scanned
}

// NewProxySource creates a proxy source for chain.
func NewProxySource(chain types.ChainID, fetcher ProxyTableFetcher, log *logger.Logger, observer Observer) *ProxySource {
	if log == nil {
		log = logger.NewDefault()
	}
	return &ProxySource{
		chain:    chain,
		fetcher:  fetcher,
		log:      log.WithChain(string(chain)).WithSource(NameProxy),
		observer: observerOrNop(observer),
	}
}

func (s *ProxySource) Name() string { return NameProxy }

func (s *ProxySource) Kind() types.RelationType { return types.RelationProxy }

// Find returns the undelayed proxies held by each requested controller.
func (s *ProxySource) Find(ctx context.Context, controllers types.AccountSet) (map[types.AccountID][]types.ChainRelation, error) {
	result := make(map[types.AccountID][]types.ChainRelation)
	if controllers.Len() == 0 {
		return result, nil
	}

	table, err := s.table(ctx)
	if err != nil {
		return nil, err
	}

	for controller := range controllers {
		for _, p := range table[controller] {
			rel := types.NewProxyRelation(p.Controller, p.Controlled, p.Kind, p.Chain, p.HasDelay)
			result[controller] = append(result[controller], types.ChainRelation{Chain: s.chain, Relation: rel})
		}
	}
	return result, nil
}

// table returns the indexed scan, fetching it once. Concurrent callers wait
// for the first fetch instead of issuing their own.
func (s *ProxySource) table(ctx context.Context) (map[types.AccountID][]types.ProxyRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byController != nil {
		s.observer.CacheHits(s.chain, NameProxy, 1)
		return s.byController, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.observer.RemoteQuery(s.chain, NameProxy)
	rows, err := s.fetcher.FetchProxyTable(ctx, s.chain)
	if err != nil {
		return nil, wrapQueryError(s.chain, NameProxy, err)
	}

	index := make(map[types.AccountID][]types.ProxyRelation)
	delayed := 0
	for _, p := range rows {
		if p.HasDelay {
			delayed++
			continue
		}
		if p.Chain == "" {
			p.Chain = s.chain
		}
		index[p.Controller] = append(index[p.Controller], p)
	}

	s.log.Debugw("proxy table scanned",
		"rows", len(rows),
		"delayed_skipped", delayed,
		"controllers", len(index))

	s.byController = index
	return index, nil
}
