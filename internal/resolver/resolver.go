package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
	"github.com/moolen/depscope/internal/store"
)

// ReliabilityScorer provides the per-source reliability factor.
type ReliabilityScorer interface {
	Score(source string) float64
}

// Config carries the resolver's tunable knobs. Both maps may be updated
// at runtime through UpdateConfig.
type Config struct {
	// Priorities weights sources during scoring; unlisted sources get 1.0.
	Priorities map[string]float64
	// Overrides maps an edge key "from->to" to the source that must win
	// that edge, bypassing scoring.
	Overrides map[string]string
}

// Resolver picks one winning claim per directed edge by weighted
// scoring:
//
//	score = confidence * priority(source) * reliability(source)
//	      + multiplicity
//	      + recency
//
// Ties break on the most recent timestamp, then the lexicographically
// smallest source. The resolver never mutates the store or the claims
// it reads.
type Resolver struct {
	store       store.EvidenceStore
	reliability ReliabilityScorer

	mu         sync.RWMutex
	priorities map[string]float64
	overrides  map[string]string

	now    func() time.Time
	logger *logging.Logger
	tracer trace.Tracer
}

// New creates a resolver over the given evidence store.
func New(evidence store.EvidenceStore, scorer ReliabilityScorer, cfg Config) *Resolver {
	r := &Resolver{
		store:       evidence,
		reliability: scorer,
		now:         time.Now,
		logger:      logging.GetLogger("resolver"),
		tracer:      otel.Tracer("depscope/resolver"),
	}
	r.UpdateConfig(cfg)
	return r
}

// UpdateConfig swaps in new priorities and overrides. Safe to call while
// Resolve runs; the next Resolve observes the new knobs.
func (r *Resolver) UpdateConfig(cfg Config) {
	priorities := make(map[string]float64, len(cfg.Priorities))
	for k, v := range cfg.Priorities {
		priorities[k] = v
	}
	overrides := make(map[string]string, len(cfg.Overrides))
	for k, v := range cfg.Overrides {
		overrides[normalizeOverrideKey(k)] = strings.TrimSpace(v)
	}

	r.mu.Lock()
	r.priorities = priorities
	r.overrides = overrides
	r.mu.Unlock()
}

func normalizeOverrideKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Resolve loads all evidence and returns the conflict-free graph. An
// empty store yields an empty graph, not an error.
func (r *Resolver) Resolve(ctx context.Context) (*graph.ResolvedGraph, error) {
	ctx, span := r.tracer.Start(ctx, "resolve")
	defer span.End()

	claims, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*models.Claim)
	var order []string
	for _, c := range claims {
		key := c.EdgeKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	r.mu.RLock()
	priorities := r.priorities
	overrides := r.overrides
	r.mu.RUnlock()

	resolved := graph.NewResolvedGraph()
	for _, key := range order {
		winner := r.resolveEdge(key, groups[key], priorities, overrides)
		resolved.AddEdge(winner)
	}

	span.SetAttributes(
		attribute.Int("claims", len(claims)),
		attribute.Int("edges", resolved.EdgeCount()),
	)
	r.logger.Debug("resolved %d edges from %d claims", resolved.EdgeCount(), len(claims))
	return resolved, nil
}

// resolveEdge picks the winner among all claims for one edge.
func (r *Resolver) resolveEdge(key string, group []*models.Claim,
	priorities map[string]float64, overrides map[string]string) *models.Claim {

	if wanted, ok := overrides[normalizeOverrideKey(key)]; ok {
		for _, c := range group {
			if strings.EqualFold(strings.TrimSpace(c.Source), wanted) {
				return c
			}
		}
		// no claim from the override source; fall through to scoring
		r.logger.Warn("override for %s names source %q with no claim, scoring instead", key, wanted)
	}

	n := float64(len(group))
	winner := group[0]
	winnerScore := r.score(winner, n, priorities)

	for _, c := range group[1:] {
		s := r.score(c, n, priorities)
		if s > winnerScore || (s == winnerScore && beatsOnTie(c, winner)) {
			winner = c
			winnerScore = s
		}
	}
	return winner
}

func (r *Resolver) score(c *models.Claim, n float64, priorities map[string]float64) float64 {
	priority := 1.0
	if p, ok := priorities[c.Source]; ok {
		priority = p
	}
	return c.Confidence*priority*r.reliability.Score(c.Source) + n + r.recency(c)
}

// recency rewards fresh claims: 1/(1+ageSeconds). Claims without a
// timestamp contribute 0.
func (r *Resolver) recency(c *models.Claim) float64 {
	if c.Timestamp.IsZero() {
		return 0
	}
	age := r.now().Sub(c.Timestamp).Seconds()
	if age < 0 {
		age = 0
	}
	return 1 / (1 + age)
}

// beatsOnTie breaks equal scores: most recent timestamp first, then
// lexicographically smallest source.
func beatsOnTie(challenger, incumbent *models.Claim) bool {
	if !challenger.Timestamp.Equal(incumbent.Timestamp) {
		return challenger.Timestamp.After(incumbent.Timestamp)
	}
	return challenger.Source < incumbent.Source
}
