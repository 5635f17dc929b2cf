package analytics

import (
	"github.com/moolen/depscope/internal/graph"
)

// Topology summarizes the resolved graph's shape.
type Topology struct {
	Services              int     `json:"services"`
	Edges                 int     `json:"edges"`
	Density               float64 `json:"density"`
	ClusteringCoefficient float64 `json:"clusteringCoefficient"`
	Diameter              int     `json:"diameter"`
}

// Topology computes density, average clustering coefficient, and
// diameter. All divide-by-zero cases yield 0.
func (a *Analyzer) Topology(g *graph.ResolvedGraph) Topology {
	n := g.VertexCount()
	topo := Topology{
		Services: n,
		Edges:    g.EdgeCount(),
	}
	if n > 1 {
		topo.Density = float64(g.EdgeCount()) / float64(n*(n-1))
	}
	topo.ClusteringCoefficient = clusteringCoefficient(g)
	topo.Diameter = diameter(g)
	return topo
}

// clusteringCoefficient averages the per-vertex coefficient over all
// vertices with at least two neighbors (neighbors counted without
// direction). The per-vertex coefficient is the share of directed edges
// present among the vertex's neighbors.
func clusteringCoefficient(g *graph.ResolvedGraph) float64 {
	n := g.VertexCount()
	adj := g.Adjacency()

	// undirected neighbor sets
	neighbors := make([]map[int]bool, n)
	for i := range neighbors {
		neighbors[i] = make(map[int]bool)
	}
	for u, targets := range adj {
		for _, v := range targets {
			neighbors[u][v] = true
			neighbors[v][u] = true
		}
	}

	// directed edge lookup
	hasEdge := make(map[[2]int]bool, g.EdgeCount())
	for u, targets := range adj {
		for _, v := range targets {
			hasEdge[[2]int{u, v}] = true
		}
	}

	var sum float64
	eligible := 0
	for v := 0; v < n; v++ {
		k := len(neighbors[v])
		if k < 2 {
			continue
		}
		eligible++

		links := 0
		for a := range neighbors[v] {
			for b := range neighbors[v] {
				if a != b && hasEdge[[2]int{a, b}] {
					links++
				}
			}
		}
		sum += float64(links) / float64(k*(k-1))
	}

	if eligible == 0 {
		return 0
	}
	return sum / float64(eligible)
}

// diameter is the longest finite shortest-path distance between any two
// vertices.
func diameter(g *graph.ResolvedGraph) int {
	n := g.VertexCount()
	adj := g.Adjacency()
	max := 0

	dist := make([]int, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := range dist {
			dist[i] = -1
		}
		dist[s] = 0
		queue = append(queue[:0], s)

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range adj[u] {
				if dist[v] == -1 {
					dist[v] = dist[u] + 1
					if dist[v] > max {
						max = dist[v]
					}
					queue = append(queue, v)
				}
			}
		}
	}
	return max
}
