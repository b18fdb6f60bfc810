// Package graph models the delegation graph of one chain. An edge points from
// the account that holds control to the account it controls, so walking the
// graph forward from a set of seeds yields everything those seeds can sign for.
package graph

import (
	"github.com/dbsmedya/godelegate/internal/types"
)

// Edge represents a delegation from a controller to a controlled account.
type Edge struct {
	From types.AccountID // Controller (proxy or signatory)
	To   types.AccountID // Controlled account (delegator or multisig account)
}

// Graph represents the delegation structure discovered for one chain.
type Graph struct {
	Nodes    types.AccountSet
	Children map[types.AccountID][]types.AccountID // controller -> controlled accounts
	edges    map[Edge]struct{}
}

// NewGraph creates a graph containing the given seed accounts.
func NewGraph(seeds ...types.AccountID) *Graph {
	return &Graph{
		Nodes:    types.NewAccountSet(seeds...),
		Children: make(map[types.AccountID][]types.AccountID),
		edges:    make(map[Edge]struct{}),
	}
}

// AddEdge adds a controller -> controlled edge. Repeated edges are ignored.
// It reports whether the edge was new.
func (g *Graph) AddEdge(from, to types.AccountID) bool {
	g.Nodes.Add(from)
	g.Nodes.Add(to)

	edge := Edge{From: from, To: to}
	if _, exists := g.edges[edge]; exists {
		return false
	}
	g.edges[edge] = struct{}{}
	g.Children[from] = append(g.Children[from], to)
	return true
}

// AddRelation adds the edge implied by rel. Several relations on the same
// pair, e.g. two proxy kinds, share one edge.
func (g *Graph) AddRelation(rel types.Relation) {
	g.AddEdge(rel.Controller(), rel.Controlled())
}

// GetChildren returns the accounts directly controlled by id.
func (g *Graph) GetChildren(id types.AccountID) []types.AccountID {
	return g.Children[id]
}

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
