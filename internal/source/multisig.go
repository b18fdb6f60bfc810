package source

import (
	"context"
	"sync"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

// DefaultQueryBatchSize bounds the signatories sent in one index query.
const DefaultQueryBatchSize = 100

// MultisigSource point-queries an external index by signatory. Resolved
// signatories, including those with no multisig, are cached so a repeated
// controller never costs another remote call.
type MultisigSource struct {
	chain     types.ChainID
	index     MultisigIndex
	batchSize int
	log       *logger.Logger
	observer  Observer

	mu    sync.Mutex
	cache map[types.AccountID][]MultisigRecord
}

// NewMultisigSource creates a multisig source for chain.
func NewMultisigSource(chain types.ChainID, index MultisigIndex, batchSize int, log *logger.Logger, observer Observer) *MultisigSource {
	if log == nil {
		log = logger.NewDefault()
	}
	if batchSize <= 0 {
		batchSize = DefaultQueryBatchSize
	}
	return &MultisigSource{
		chain:     chain,
		index:     index,
		batchSize: batchSize,
		log:       log.WithChain(string(chain)).WithSource(NameMultisig),
		observer:  observerOrNop(observer),
		cache:     make(map[types.AccountID][]MultisigRecord),
	}
}

func (s *MultisigSource) Name() string { return NameMultisig }

func (s *MultisigSource) Kind() types.RelationType { return types.RelationMultisig }

// Find returns one multisig relation per (controller, multisig) membership.
func (s *MultisigSource) Find(ctx context.Context, controllers types.AccountSet) (map[types.AccountID][]types.ChainRelation, error) {
	result := make(map[types.AccountID][]types.ChainRelation)
	if controllers.Len() == 0 {
		return result, nil
	}

	s.mu.Lock()
	cached := s.cache
	s.mu.Unlock()

	var missing []types.AccountID
	for _, c := range controllers.Sorted() {
		if _, ok := cached[c]; !ok {
			missing = append(missing, c)
		}
	}
	if hits := controllers.Len() - len(missing); hits > 0 {
		s.observer.CacheHits(s.chain, NameMultisig, hits)
	}

	if len(missing) > 0 {
		fetched, err := s.fetch(ctx, missing)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		next := make(map[types.AccountID][]MultisigRecord, len(s.cache)+len(fetched))
		for k, v := range s.cache {
			next[k] = v
		}
		for k, v := range fetched {
			next[k] = v
		}
		s.cache = next
		cached = next
		s.mu.Unlock()
	}

	for controller := range controllers {
		for _, rec := range cached[controller] {
			rel := types.NewMultisigRelation(rec.Account, controller, rec.Signatories, rec.Threshold)
			result[controller] = append(result[controller], types.ChainRelation{Chain: s.chain, Relation: rel})
		}
	}
	return result, nil
}

// fetch queries the index in chunks and attributes every record to the
// requested signatories it contains.
func (s *MultisigSource) fetch(ctx context.Context, signatories []types.AccountID) (map[types.AccountID][]MultisigRecord, error) {
	out := make(map[types.AccountID][]MultisigRecord, len(signatories))

	for start := 0; start < len(signatories); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.batchSize
		if end > len(signatories) {
			end = len(signatories)
		}
		chunk := signatories[start:end]
		requested := types.NewAccountSet(chunk...)

		s.observer.RemoteQuery(s.chain, NameMultisig)
		records, err := s.index.FindMultisigs(ctx, s.chain, chunk)
		if err != nil {
			return nil, wrapQueryError(s.chain, NameMultisig, err)
		}

		for _, c := range chunk {
			out[c] = nil
		}
		for _, rec := range records {
			rec.Signatories = types.SortAccountIDs(append([]types.AccountID(nil), rec.Signatories...))
			if rec.Account.IsZero() {
				rec.Account = types.DeriveMultisigAccount(rec.Signatories, rec.Threshold)
			}
			for _, signatory := range rec.Signatories {
				if requested.Has(signatory) {
					out[signatory] = append(out[signatory], rec)
				}
			}
		}

		s.log.Debugw("multisig index queried",
			"signatories", len(chunk),
			"multisigs", len(records))
	}

	return out, nil
}
