package analytics

import (
	"sort"

	"github.com/moolen/depscope/internal/graph"
)

// RiskLevel bands a bottleneck's severity.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// Bottleneck is a service whose position and fan-in make it a likely
// single point of failure.
type Bottleneck struct {
	Service     string    `json:"service"`
	Betweenness float64   `json:"betweenness"`
	InDegree    int       `json:"inDegree"`
	Risk        RiskLevel `json:"risk"`
}

// Bottlenecks returns the services with betweenness above 0.1 and
// in-degree above 1.5x the average in-degree, sorted by descending
// betweenness.
func (a *Analyzer) Bottlenecks(g *graph.ResolvedGraph) []Bottleneck {
	n := g.VertexCount()
	if n == 0 {
		return nil
	}

	betweenness := betweennessScores(g)
	inDeg, _ := degrees(g)

	avgIn := 0.0
	for _, d := range inDeg {
		avgIn += float64(d)
	}
	avgIn /= float64(n)

	var out []Bottleneck
	for id := 0; id < n; id++ {
		b := betweenness[id]
		in := float64(inDeg[id])
		if b <= 0.1 || in <= 1.5*avgIn {
			continue
		}
		out = append(out, Bottleneck{
			Service:     g.Name(id),
			Betweenness: b,
			InDegree:    inDeg[id],
			Risk:        riskLevel(b, in, avgIn),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Betweenness != out[j].Betweenness {
			return out[i].Betweenness > out[j].Betweenness
		}
		return out[i].Service < out[j].Service
	})
	return out
}

func riskLevel(betweenness, inDegree, avgIn float64) RiskLevel {
	switch {
	case betweenness > 0.2 && inDegree > 2*avgIn:
		return RiskHigh
	case betweenness < 0.15 && inDegree < 1.8*avgIn:
		return RiskLow
	default:
		return RiskMedium
	}
}
