// Package types contains the value types shared by discovery, reconciliation
// and persistence.
package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// AccountIDLength is the byte length of every account id.
const AccountIDLength = 32

// AccountID is a chain-format-independent account identifier.
type AccountID [AccountIDLength]byte

// ParseAccountID decodes a 0x-prefixed (or bare) hex string.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return id, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	return AccountIDFromBytes(raw)
}

// AccountIDFromBytes copies b into an AccountID. b must be exactly AccountIDLength long.
func AccountIDFromBytes(b []byte) (AccountID, error) {
	var id AccountID
	if len(b) != AccountIDLength {
		return id, fmt.Errorf("account id must be %d bytes, got %d", AccountIDLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MustParseAccountID is ParseAccountID for constants and tests.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Hex returns the 0x-prefixed hex form.
func (a AccountID) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a AccountID) String() string {
	return a.Hex()
}

// Short returns an abbreviated form for log lines.
func (a AccountID) Short() string {
	h := hex.EncodeToString(a[:])
	return "0x" + h[:6] + "…" + h[len(h)-4:]
}

// IsZero reports whether every byte is zero.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Compare orders account ids bytewise.
func (a AccountID) Compare(b AccountID) int {
	return bytes.Compare(a[:], b[:])
}

// SortAccountIDs sorts ids in place and returns them.
func SortAccountIDs(ids []AccountID) []AccountID {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// AccountSet is a set of account ids.
type AccountSet map[AccountID]struct{}

// NewAccountSet builds a set from ids.
func NewAccountSet(ids ...AccountID) AccountSet {
	s := make(AccountSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s AccountSet) Add(id AccountID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership.
func (s AccountSet) Has(id AccountID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s AccountSet) Len() int {
	return len(s)
}

// Union returns a new set holding members of s and other.
func (s AccountSet) Union(other AccountSet) AccountSet {
	out := make(AccountSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Difference returns members of s that are not in other.
func (s AccountSet) Difference(other AccountSet) AccountSet {
	out := make(AccountSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in byte order.
func (s AccountSet) Sorted() []AccountID {
	ids := make([]AccountID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return SortAccountIDs(ids)
}

// ChainID identifies one ledger.
type ChainID string

// RootAccounts lists, per chain, the keys the user directly controls.
type RootAccounts map[ChainID][]AccountID

// Set returns the roots of chain as a set.
func (r RootAccounts) Set(chain ChainID) AccountSet {
	return NewAccountSet(r[chain]...)
}

// Chains returns the chains that have at least one root, sorted.
func (r RootAccounts) Chains() []ChainID {
	chains := make([]ChainID, 0, len(r))
	for chain, ids := range r {
		if len(ids) > 0 {
			chains = append(chains, chain)
		}
	}
	SortChainIDs(chains)
	return chains
}

// SortChainIDs sorts chains in place.
func SortChainIDs(chains []ChainID) {
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
}
