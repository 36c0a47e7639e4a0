package dialogue

import (
	"log/slog"
)

// Graph is an immutable index of dialogue nodes keyed by ID.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// NewGraph indexes nodes by ID. Nodes with an empty ID are skipped.
// When two nodes share an ID the first one wins and the duplicate is logged.
func NewGraph(nodes []Node, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Graph{
		nodes: make(map[string]*Node, len(nodes)),
		order: make([]string, 0, len(nodes)),
	}
	for i := range nodes {
		node := nodes[i]
		if node.ID == "" {
			logger.Warn("Skipping dialogue node without ID", "index", i)
			continue
		}
		if _, exists := g.nodes[node.ID]; exists {
			logger.Warn("Duplicate dialogue node ID, keeping first", "node_id", node.ID, "index", i)
			continue
		}
		g.nodes[node.ID] = &node
		g.order = append(g.order, node.ID)
	}
	return g
}

// Node looks up a node by ID
func (g *Graph) Node(id string) (*Node, bool) {
	if id == "" {
		return nil, false
	}
	node, ok := g.nodes[id]
	return node, ok
}

// Has reports whether a node with the given ID exists
func (g *Graph) Has(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// IDs returns node IDs in content order
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of indexed nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}
