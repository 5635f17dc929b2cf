package graph

import (
	"github.com/moolen/depscope/internal/models"
)

// ResolvedGraph is the conflict-free dependency graph: one winning claim
// per directed edge. Vertices are interned to integer ids with side
// tables so the traversal algorithms never hash strings in their inner
// loops. The graph is append-only while the resolver builds it and
// treated as immutable afterwards.
type ResolvedGraph struct {
	names     []string
	ids       map[string]int
	adjacency [][]int
	edges     []*models.Claim
	edgeByKey map[string]*models.Claim
}

// NewResolvedGraph creates an empty resolved graph.
func NewResolvedGraph() *ResolvedGraph {
	return &ResolvedGraph{
		ids:       make(map[string]int),
		edgeByKey: make(map[string]*models.Claim),
	}
}

// AddVertex interns a service name and returns its id.
func (g *ResolvedGraph) AddVertex(name string) int {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := len(g.names)
	g.ids[name] = id
	g.names = append(g.names, name)
	g.adjacency = append(g.adjacency, nil)
	return id
}

// AddEdge records a winning claim as the edge fromService -> toService.
// Re-adding an edge replaces the stored winner but keeps its adjacency
// position.
func (g *ResolvedGraph) AddEdge(winner *models.Claim) {
	from := g.AddVertex(winner.FromService)
	to := g.AddVertex(winner.ToService)

	key := winner.EdgeKey()
	if _, exists := g.edgeByKey[key]; !exists {
		g.adjacency[from] = append(g.adjacency[from], to)
		g.edges = append(g.edges, winner)
	} else {
		for i, e := range g.edges {
			if e.EdgeKey() == key {
				g.edges[i] = winner
				break
			}
		}
	}
	g.edgeByKey[key] = winner
}

// VertexCount returns the number of services.
func (g *ResolvedGraph) VertexCount() int { return len(g.names) }

// EdgeCount returns the number of directed edges.
func (g *ResolvedGraph) EdgeCount() int { return len(g.edges) }

// Services returns all service names in insertion order.
func (g *ResolvedGraph) Services() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Edges returns the winning claims in edge insertion order.
func (g *ResolvedGraph) Edges() []*models.Claim {
	out := make([]*models.Claim, len(g.edges))
	copy(out, g.edges)
	return out
}

// Winner returns the winning claim for a directed edge.
func (g *ResolvedGraph) Winner(from, to string) (*models.Claim, bool) {
	c, ok := g.edgeByKey[models.EdgeKey(from, to)]
	return c, ok
}

// VertexID returns the interned id for a service name.
func (g *ResolvedGraph) VertexID(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// Name returns the service name for an id. Panics on out-of-range ids.
func (g *ResolvedGraph) Name(id int) string { return g.names[id] }

// Adjacency exposes the out-edge lists indexed by vertex id. The
// returned slices are the graph's own storage; callers must not modify
// them.
func (g *ResolvedGraph) Adjacency() [][]int { return g.adjacency }

// Outgoing returns the direct dependencies of a service, in edge
// insertion order.
func (g *ResolvedGraph) Outgoing(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.adjacency[id]))
	for _, to := range g.adjacency[id] {
		out = append(out, g.names[to])
	}
	return out
}

// Incoming returns the direct dependents of a service, in vertex id
// order.
func (g *ResolvedGraph) Incoming(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	var out []string
	for from, targets := range g.adjacency {
		for _, to := range targets {
			if to == id {
				out = append(out, g.names[from])
				break
			}
		}
	}
	return out
}
