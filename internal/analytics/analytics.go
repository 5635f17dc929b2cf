package analytics

import (
	"sort"

	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/logging"
)

// Criticality weights. Betweenness carries the most signal: a service on
// many shortest paths is the one whose failure partitions the system.
const (
	weightBetweenness = 0.30
	weightDegree      = 0.25
	weightPageRank    = 0.25
	weightConfidence  = 0.20

	pageRankIterations = 10
	pageRankDamping    = 0.85
)

// CriticalityScore breaks down one service's criticality.
type CriticalityScore struct {
	Service          string  `json:"service"`
	Score            float64 `json:"score"`
	Betweenness      float64 `json:"betweenness"`
	DegreeCentrality float64 `json:"degreeCentrality"`
	PageRank         float64 `json:"pageRank"`
	AvgConfidence    float64 `json:"avgConfidence"`
}

// Analyzer computes graph analytics over an immutable ResolvedGraph
// snapshot. Results are recomputed per call; nothing is cached.
type Analyzer struct {
	logger *logging.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{logger: logging.GetLogger("analytics")}
}

// Criticality scores every service, sorted by descending score with
// service name as a stable second key.
func (a *Analyzer) Criticality(g *graph.ResolvedGraph) []CriticalityScore {
	n := g.VertexCount()
	if n == 0 {
		return nil
	}

	betweenness := betweennessScores(g)
	pageRank := pageRankScores(g)
	inDeg, outDeg := degrees(g)
	avgConf := avgConfidences(g)

	degreeNorm := float64(2 * (n - 1))

	scores := make([]CriticalityScore, n)
	for id := 0; id < n; id++ {
		degree := 0.0
		if degreeNorm > 0 {
			degree = float64(inDeg[id]+outDeg[id]) / degreeNorm
		}
		scores[id] = CriticalityScore{
			Service:          g.Name(id),
			Betweenness:      betweenness[id],
			DegreeCentrality: degree,
			PageRank:         pageRank[id],
			AvgConfidence:    avgConf[id],
		}
		scores[id].Score = weightBetweenness*betweenness[id] +
			weightDegree*degree +
			weightPageRank*pageRank[id] +
			weightConfidence*avgConf[id]
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Service < scores[j].Service
	})
	return scores
}

// betweennessScores approximates betweenness centrality: for every
// ordered pair (s, t) walk the first BFS shortest path and count the
// interior vertices, normalized by the (n-1)(n-2) possible pairs.
func betweennessScores(g *graph.ResolvedGraph) []float64 {
	n := g.VertexCount()
	counts := make([]float64, n)
	adj := g.Adjacency()

	parent := make([]int, n)
	visited := make([]bool, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := range visited {
			visited[i] = false
			parent[i] = -1
		}
		visited[s] = true
		queue = append(queue[:0], s)

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					parent[v] = u
					queue = append(queue, v)
				}
			}
		}

		for t := 0; t < n; t++ {
			if t == s || !visited[t] {
				continue
			}
			for v := parent[t]; v != -1 && v != s; v = parent[v] {
				counts[v]++
			}
		}
	}

	norm := float64((n - 1) * (n - 2))
	if norm <= 0 {
		return counts
	}
	for i := range counts {
		counts[i] /= norm
	}
	return counts
}

// pageRankScores runs the fixed-iteration power method with uniform
// initialization.
func pageRankScores(g *graph.ResolvedGraph) []float64 {
	n := g.VertexCount()
	if n == 0 {
		return nil
	}
	adj := g.Adjacency()

	pr := make([]float64, n)
	next := make([]float64, n)
	uniform := 1.0 / float64(n)
	for i := range pr {
		pr[i] = uniform
	}

	base := (1 - pageRankDamping) / float64(n)
	for iter := 0; iter < pageRankIterations; iter++ {
		for i := range next {
			next[i] = base
		}
		for u := 0; u < n; u++ {
			if len(adj[u]) == 0 {
				continue
			}
			share := pageRankDamping * pr[u] / float64(len(adj[u]))
			for _, v := range adj[u] {
				next[v] += share
			}
		}
		pr, next = next, pr
	}
	return pr
}

func degrees(g *graph.ResolvedGraph) (in, out []int) {
	n := g.VertexCount()
	in = make([]int, n)
	out = make([]int, n)
	for u, targets := range g.Adjacency() {
		out[u] = len(targets)
		for _, v := range targets {
			in[v]++
		}
	}
	return in, out
}

// avgConfidences returns the mean winning-claim confidence over all
// edges touching each vertex. Vertices with no edges score 0.
func avgConfidences(g *graph.ResolvedGraph) []float64 {
	n := g.VertexCount()
	sums := make([]float64, n)
	counts := make([]int, n)

	for _, e := range g.Edges() {
		from, _ := g.VertexID(e.FromService)
		to, _ := g.VertexID(e.ToService)
		sums[from] += e.Confidence
		counts[from]++
		sums[to] += e.Confidence
		counts[to]++
	}

	out := make([]float64, n)
	for i := range out {
		if counts[i] > 0 {
			out[i] = sums[i] / float64(counts[i])
		}
	}
	return out
}
