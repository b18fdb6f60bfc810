package types

import "time"

// DiscoveryStats summarises one closure search on one chain.
type DiscoveryStats struct {
	Iterations      int           // Closure iterations until the frontier emptied
	AccountsVisited int           // Distinct controllers queried
	RelationsFound  int           // Relations after deduplication
	MaxDepth        int           // Longest controller chain from a seed
	Duration        time.Duration // Wall time of the search
}

// Add accumulates other into s. MaxDepth keeps the larger value.
func (s *DiscoveryStats) Add(other DiscoveryStats) {
	s.Iterations += other.Iterations
	s.AccountsVisited += other.AccountsVisited
	s.RelationsFound += other.RelationsFound
	if other.MaxDepth > s.MaxDepth {
		s.MaxDepth = other.MaxDepth
	}
	s.Duration += other.Duration
}
