package graph

import "github.com/dbsmedya/godelegate/internal/types"

// Reachable walks the graph forward from seeds and returns every account
// reached together with its hop distance from the nearest seed. Seeds are
// included at depth 0 even when they are not nodes of the graph.
func (g *Graph) Reachable(seeds types.AccountSet) map[types.AccountID]int {
	depth := make(map[types.AccountID]int, len(seeds))
	queue := NewProcessingQueue()

	for _, s := range seeds.Sorted() {
		depth[s] = 0
		queue.Enqueue(s)
	}

	for !queue.IsEmpty() {
		current, _ := queue.Dequeue()
		for _, child := range g.GetChildren(current) {
			if _, seen := depth[child]; seen {
				continue
			}
			depth[child] = depth[current] + 1
			queue.Enqueue(child)
		}
	}

	return depth
}

// ReachableSet is Reachable without the depths.
func (g *Graph) ReachableSet(seeds types.AccountSet) types.AccountSet {
	out := make(types.AccountSet)
	for id := range g.Reachable(seeds) {
		out.Add(id)
	}
	return out
}

// MaxDepth returns the longest shortest-path distance from the seeds to any
// reachable account.
func (g *Graph) MaxDepth(seeds types.AccountSet) int {
	deepest := 0
	for _, d := range g.Reachable(seeds) {
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}
