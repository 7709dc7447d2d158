// Package dag provides the directed graph behind transitive layer allowances.
// A node is a layer; an edge upstream -> layer means the layer inherits
// everything upstream is allowed to depend on. It supports cycle detection,
// topological ordering, and upstream closure.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a reference cycle. Path starts and ends on the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Graph is a directed graph with deterministic iteration: nodes are visited in
// insertion order, edges in the order they were added.
type Graph struct {
	order   []string
	index   map[string]int
	edges   map[string][]string // upstream -> dependents
	parents map[string][]string // dependent -> upstreams
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:   make(map[string]int),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.index[id]; exists {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
}

// HasNode reports whether id was added.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// AddEdge adds an edge from upstream to dependent. Both nodes must exist.
// A self-loop is reported as a one-node cycle.
func (g *Graph) AddEdge(upstream, dependent string) error {
	if !g.HasNode(upstream) {
		return fmt.Errorf("node %q does not exist", upstream)
	}
	if !g.HasNode(dependent) {
		return fmt.Errorf("node %q does not exist", dependent)
	}
	if upstream == dependent {
		return &CycleError{Path: []string{upstream, upstream}}
	}

	if !slices.Contains(g.edges[upstream], dependent) {
		g.edges[upstream] = append(g.edges[upstream], dependent)
	}
	if !slices.Contains(g.parents[dependent], upstream) {
		g.parents[dependent] = append(g.parents[dependent], upstream)
	}
	return nil
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Parents returns the direct upstreams of a node.
func (g *Graph) Parents(id string) []string {
	return slices.Clone(g.parents[id])
}

// Children returns the direct dependents of a node.
func (g *Graph) Children(id string) []string {
	return slices.Clone(g.edges[id])
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// FindCycle returns a CycleError for the first cycle found, or nil.
func (g *Graph) FindCycle() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = active
		stack = append(stack, id)

		for _, child := range g.edges[id] {
			switch state[child] {
			case active:
				start := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[start:]), child)
				return true
			case unvisited:
				if dfs(child) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for _, id := range g.order {
		if state[id] == unvisited && dfs(id) {
			return &CycleError{Path: cycle}
		}
	}
	return nil
}

// TopologicalSort returns nodes with upstreams before dependents. Ties keep
// insertion order. Returns a CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}

	visited := make(map[string]bool, len(g.order))
	result := make([]string, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range g.parents[id] {
			visit(parent)
		}
		result = append(result, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Upstream returns every node reachable by following parents from id,
// excluding id itself, in insertion order. Safe on cyclic graphs.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parent := range g.parents[nodeID] {
			if !seen[parent] {
				seen[parent] = true
				mark(parent)
			}
		}
	}
	mark(id)
	delete(seen, id)

	result := make([]string, 0, len(seen))
	for nodeID := range seen {
		result = append(result, nodeID)
	}
	slices.SortFunc(result, func(a, b string) int { return g.index[a] - g.index[b] })
	return result
}
