package graph

import (
	"container/list"

	"github.com/dbsmedya/godelegate/internal/types"
)

// ProcessingQueue is a FIFO of accounts used by the graph walks.
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// InitializeQueue creates a processing queue populated with all accounts
// that have in-degree of 0 (controlled by nobody), in byte order.
func (g *Graph) InitializeQueue(inDegree map[types.AccountID]int) *ProcessingQueue {
	pq := NewProcessingQueue()

	for _, id := range g.GetZeroInDegreeNodes(inDegree) {
		pq.Enqueue(id)
	}

	return pq
}

// Enqueue adds an account to the back of the queue.
func (pq *ProcessingQueue) Enqueue(id types.AccountID) {
	pq.queue.PushBack(id)
}

// Dequeue removes and returns the account at the front of the queue.
// Returns the zero id and false if the queue is empty.
func (pq *ProcessingQueue) Dequeue() (types.AccountID, bool) {
	if pq.queue.Len() == 0 {
		return types.AccountID{}, false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(types.AccountID), true
}

// Len returns the number of accounts in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no accounts.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of controllers of each account.
func (g *Graph) CalculateInDegrees() map[types.AccountID]int {
	inDegree := make(map[types.AccountID]int, len(g.Nodes))

	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// GetZeroInDegreeNodes returns all accounts with in-degree of 0, sorted.
func (g *Graph) GetZeroInDegreeNodes(inDegree map[types.AccountID]int) []types.AccountID {
	var nodes []types.AccountID
	for id, degree := range inDegree {
		if degree == 0 {
			nodes = append(nodes, id)
		}
	}
	return types.SortAccountIDs(nodes)
}

// CycleInfo describes the part of the graph Kahn's algorithm could not order.
// Delegation cycles are legal (a multisig can proxy to one of its own
// signatories) so this is diagnostic, not fatal.
type CycleInfo struct {
	TotalNodes        int               // Total number of accounts in the graph
	ProcessedNodes    int               // Accounts successfully ordered
	UnprocessedNodes  []types.AccountID // Accounts on or behind a cycle
	CycleParticipants []types.AccountID // Accounts that are actually on a cycle
	CyclePath         []types.AccountID // Ordered path showing one cycle (e.g., [A, B, C, A])
}

// Behind returns the unordered accounts that are only controlled through a
// cycle without being on one.
func (c *CycleInfo) Behind() []types.AccountID {
	participants := types.NewAccountSet(c.CycleParticipants...)
	var behind []types.AccountID
	for _, id := range c.UnprocessedNodes {
		if !participants.Has(id) {
			behind = append(behind, id)
		}
	}
	return behind
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about accounts that couldn't be ordered, or nil when the graph is acyclic.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	processed := make(types.AccountSet)

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed.Add(node)

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if processed.Len() == len(g.Nodes) {
		return nil
	}

	unprocessedSet := make(types.AccountSet)
	for id := range g.Nodes {
		if !processed.Has(id) {
			unprocessedSet.Add(id)
		}
	}
	unprocessed := unprocessedSet.Sorted()

	var cycleParticipants []types.AccountID
	for _, id := range unprocessed {
		if g.canReachSelf(id, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, id)
		}
	}

	var cyclePath []types.AccountID
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    processed.Len(),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// FindCyclePath finds a path that leaves start and returns to it, using only
// accounts in allowed. The start account appears at both ends.
func (g *Graph) FindCyclePath(start types.AccountID, allowed types.AccountSet) []types.AccountID {
	visited := make(types.AccountSet)
	path := []types.AccountID{start}

	if g.dfsFindPath(start, start, visited, allowed, &path) {
		return path
	}

	return nil
}

func (g *Graph) dfsFindPath(current, target types.AccountID, visited, allowed types.AccountSet, path *[]types.AccountID) bool {
	for _, child := range g.GetChildren(current) {
		if !allowed.Has(child) {
			continue
		}

		if child == target {
			*path = append(*path, target)
			return true
		}

		if !visited.Add(child) {
			continue
		}
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowed, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if start can reach itself within allowed.
func (g *Graph) canReachSelf(start types.AccountID, allowed types.AccountSet) bool {
	visited := make(types.AccountSet)
	return g.dfsCanReach(start, start, visited, allowed, true)
}

// dfsCanReach performs DFS to check if target is reachable.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target types.AccountID, visited, allowed types.AccountSet, isStart bool) bool {
	if current == target && !isStart {
		return true
	}
	if visited.Has(current) || !allowed.Has(current) {
		return false
	}
	visited.Add(current)

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowed, false) {
			return true
		}
	}

	return false
}
