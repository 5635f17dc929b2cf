package graph

// TransitiveClosure computes, for every service, the set of services
// reachable over outgoing edges, excluding the start vertex itself.
// Reachable sets are ordered by first BFS discovery. Cycles are handled
// by the visited set; a cyclic graph is not an error.
func (g *ResolvedGraph) TransitiveClosure() map[string][]string {
	out := make(map[string][]string, len(g.names))
	for start := range g.names {
		out[g.names[start]] = g.reachableFrom(start)
	}
	return out
}

// ReachableFrom returns the services reachable from one start service,
// in first-discovery order. Unknown services yield nil.
func (g *ResolvedGraph) ReachableFrom(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	return g.reachableFrom(id)
}

func (g *ResolvedGraph) reachableFrom(start int) []string {
	visited := make([]bool, len(g.names))
	visited[start] = true

	reachable := []string{}
	queue := make([]int, 0, len(g.adjacency[start]))
	queue = append(queue, g.adjacency[start]...)
	for _, id := range g.adjacency[start] {
		visited[id] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		reachable = append(reachable, g.names[current])

		for _, next := range g.adjacency[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}
