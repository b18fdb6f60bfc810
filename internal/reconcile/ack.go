package reconcile

import (
	"sort"

	"github.com/dbsmedya/godelegate/internal/types"
)

// Acknowledge is the transition applied once the user has seen the wallet
// list: new wallets become active and revoked wallets are removed.
func Acknowledge(known []types.KnownWallet) types.ChangeSet {
	var cs types.ChangeSet
	for _, k := range known {
		switch k.Status {
		case types.StatusNew:
			cs.Upserts = append(cs.Upserts, types.DiscoveredWallet{
				Identity:    k.Identity,
				Kind:        k.Kind,
				Status:      types.StatusActive,
				DisplayName: k.DisplayName,
			})
		case types.StatusRevoked:
			cs.Deletions = append(cs.Deletions, k.Identity)
		}
	}
	sortChangeSet(&cs)
	return cs
}

func sortChangeSet(cs *types.ChangeSet) {
	sort.Slice(cs.Upserts, func(i, j int) bool {
		return cs.Upserts[i].Identity.Key() < cs.Upserts[j].Identity.Key()
	})
	types.SortIdentities(cs.Deletions)
}
