package analytics

import (
	"context"
	"math"

	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/store"
)

// Health weights and status thresholds.
const (
	weightMeanConfidence = 0.4
	weightConsistency    = 0.3
	weightReliability    = 0.3

	healthyThreshold = 0.7
	warningThreshold = 0.5
)

// HealthStatus bands an edge's health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthWarning  HealthStatus = "WARNING"
	HealthCritical HealthStatus = "CRITICAL"
)

// ReliabilityScorer provides the per-source reliability factor.
type ReliabilityScorer interface {
	Score(source string) float64
}

// EdgeHealth scores the evidence quality behind one resolved edge.
type EdgeHealth struct {
	From           string       `json:"from"`
	To             string       `json:"to"`
	Score          float64      `json:"score"`
	MeanConfidence float64      `json:"meanConfidence"`
	Consistency    float64      `json:"consistency"`
	Reliability    float64      `json:"reliability"`
	ClaimCount     int          `json:"claimCount"`
	Status         HealthStatus `json:"status"`
}

// Health scores every resolved edge from the full evidence behind it:
// mean claim confidence, agreement between claims (1 - stddev, floored
// at 0), and the winning source's reliability.
func (a *Analyzer) Health(ctx context.Context, g *graph.ResolvedGraph,
	evidence store.EvidenceStore, scorer ReliabilityScorer) ([]EdgeHealth, error) {

	edges := g.Edges()
	out := make([]EdgeHealth, 0, len(edges))

	for _, winner := range edges {
		claims, err := evidence.FindByEdge(ctx, winner.FromService, winner.ToService)
		if err != nil {
			return nil, err
		}

		h := EdgeHealth{
			From:       winner.FromService,
			To:         winner.ToService,
			ClaimCount: len(claims),
		}

		if len(claims) > 0 {
			var sum float64
			for _, c := range claims {
				sum += c.Confidence
			}
			h.MeanConfidence = sum / float64(len(claims))

			var variance float64
			for _, c := range claims {
				d := c.Confidence - h.MeanConfidence
				variance += d * d
			}
			stddev := math.Sqrt(variance / float64(len(claims)))
			h.Consistency = math.Max(0, 1-stddev)
		}

		h.Reliability = scorer.Score(winner.Source)
		h.Score = weightMeanConfidence*h.MeanConfidence +
			weightConsistency*h.Consistency +
			weightReliability*h.Reliability
		h.Status = healthStatus(h.Score)
		out = append(out, h)
	}

	return out, nil
}

func healthStatus(score float64) HealthStatus {
	switch {
	case score >= healthyThreshold:
		return HealthHealthy
	case score >= warningThreshold:
		return HealthWarning
	default:
		return HealthCritical
	}
}
