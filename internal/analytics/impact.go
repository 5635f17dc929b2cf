package analytics

import (
	"github.com/moolen/depscope/internal/graph"
)

// CascadeImpact lists the services affected by the failure of one
// service: direct dependents and their transitive upstream closure.
type CascadeImpact struct {
	Service  string   `json:"service"`
	Direct   []string `json:"direct"`
	Indirect []string `json:"indirect"`
	Total    int      `json:"total"`
}

// Impact computes the cascade impact of a service failing. Direct is
// every service with an edge into the failed one; indirect is the
// upstream closure of the direct set (everything that depends on a
// direct dependent, transitively), excluding the failed service and the
// direct set itself. Unknown services yield an empty impact.
func (a *Analyzer) Impact(g *graph.ResolvedGraph, service string) CascadeImpact {
	impact := CascadeImpact{
		Service:  service,
		Direct:   []string{},
		Indirect: []string{},
	}

	target, ok := g.VertexID(service)
	if !ok {
		return impact
	}

	n := g.VertexCount()
	reverse := make([][]int, n)
	for u, targets := range g.Adjacency() {
		for _, v := range targets {
			reverse[v] = append(reverse[v], u)
		}
	}

	direct := reverse[target]
	inDirect := make([]bool, n)
	for _, id := range direct {
		impact.Direct = append(impact.Direct, g.Name(id))
		inDirect[id] = true
	}

	// upstream BFS from the direct set
	visited := make([]bool, n)
	visited[target] = true
	queue := make([]int, 0, len(direct))
	for _, id := range direct {
		visited[id] = true
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, up := range reverse[current] {
			if visited[up] {
				continue
			}
			visited[up] = true
			queue = append(queue, up)
			impact.Indirect = append(impact.Indirect, g.Name(up))
		}
	}

	impact.Total = len(impact.Direct) + len(impact.Indirect)
	return impact
}
