package discovery

import (
	"github.com/dbsmedya/godelegate/internal/config"
	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

// ChainInfo is the static description of one chain.
type ChainInfo struct {
	ID            types.ChainID
	AddressPrefix uint16
	Capabilities  source.Capabilities
}

// Registry answers capability lookups for the configured chains.
type Registry struct {
	chains map[types.ChainID]ChainInfo
}

// NewRegistry builds a registry from chain infos.
func NewRegistry(infos ...ChainInfo) *Registry {
	r := &Registry{chains: make(map[types.ChainID]ChainInfo, len(infos))}
	for _, info := range infos {
		r.chains[info.ID] = info
	}
	return r
}

// RegistryFromConfig builds a registry from the chains section.
func RegistryFromConfig(chains map[string]config.ChainConfig) *Registry {
	infos := make([]ChainInfo, 0, len(chains))
	for id, c := range chains {
		infos = append(infos, ChainInfo{
			ID:            types.ChainID(id),
			AddressPrefix: c.AddressPrefix,
			Capabilities: source.Capabilities{
				Proxy:             c.Proxy,
				Multisig:          c.Multisig,
				UniversalMultisig: c.UniversalMultisig,
			},
		})
	}
	return NewRegistry(infos...)
}

// Lookup returns the capabilities of chain. Unknown chains have none.
func (r *Registry) Lookup(chain types.ChainID) source.Capabilities {
	return r.chains[chain].Capabilities
}

// Info returns the chain description and whether the chain is known.
func (r *Registry) Info(chain types.ChainID) (ChainInfo, bool) {
	info, ok := r.chains[chain]
	return info, ok
}

// Chains returns every known chain, sorted.
func (r *Registry) Chains() []types.ChainID {
	out := make([]types.ChainID, 0, len(r.chains))
	for id := range r.chains {
		out = append(out, id)
	}
	types.SortChainIDs(out)
	return out
}

// Universal returns the chains participating in universal multisig addressing, sorted.
func (r *Registry) Universal() []types.ChainID {
	var out []types.ChainID
	for _, id := range r.Chains() {
		if r.chains[id].Capabilities.UniversalMultisig {
			out = append(out, id)
		}
	}
	return out
}
