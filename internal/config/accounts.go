package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/godelegate/internal/ss58"
	"github.com/dbsmedya/godelegate/internal/types"
)

// ParseAccount accepts a 0x-prefixed hex account id or an SS58 address of
// any network prefix.
func ParseAccount(s string) (types.AccountID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") {
		return types.ParseAccountID(s)
	}
	id, _, err := ss58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("invalid account %q: %w", s, err)
	}
	return id, nil
}

// RootAccounts resolves the configured roots into per-chain key sets.
// Roots without an explicit chain list apply to every configured chain.
func (c *Config) RootAccounts() (types.RootAccounts, error) {
	roots := make(types.RootAccounts)
	seen := make(map[types.ChainID]types.AccountSet)

	for i, root := range c.Roots {
		id, err := ParseAccount(root.Account)
		if err != nil {
			return nil, fmt.Errorf("roots[%d]: %w", i, err)
		}

		chains := root.Chains
		if len(chains) == 0 {
			chains = c.ChainIDs()
		}
		for _, name := range chains {
			if _, ok := c.Chains[name]; !ok {
				return nil, fmt.Errorf("roots[%d]: unknown chain %q", i, name)
			}
			chain := types.ChainID(name)
			if seen[chain] == nil {
				seen[chain] = make(types.AccountSet)
			}
			if seen[chain].Add(id) {
				roots[chain] = append(roots[chain], id)
			}
		}
	}

	return roots, nil
}

// RootNames maps root accounts to their configured names, for display.
func (c *Config) RootNames() map[types.AccountID]string {
	names := make(map[types.AccountID]string)
	for _, root := range c.Roots {
		if root.Name == "" {
			continue
		}
		if id, err := ParseAccount(root.Account); err == nil {
			names[id] = root.Name
		}
	}
	return names
}

// IdentityNames parses the static display-name table.
func (c *Config) IdentityNames() (map[types.AccountID]string, error) {
	names := make(map[types.AccountID]string, len(c.Identity.Names))
	for account, name := range c.Identity.Names {
		id, err := ParseAccount(account)
		if err != nil {
			return nil, fmt.Errorf("identity.names: %w", err)
		}
		names[id] = name
	}
	return names, nil
}
