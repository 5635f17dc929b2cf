package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
	"github.com/moolen/depscope/internal/reliability"
	"github.com/moolen/depscope/internal/store"
)

var fixedNow = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T, s store.EvidenceStore, cfg Config) *Resolver {
	t.Helper()
	r := New(s, reliability.NewTracker(), cfg)
	r.now = func() time.Time { return fixedNow }
	return r
}

func seed(t *testing.T, s store.EvidenceStore, claims ...*models.Claim) {
	t.Helper()
	for _, c := range claims {
		require.NoError(t, s.Save(context.Background(), c))
	}
}

func claim(from, to, source string, conf float64, ts time.Time) *models.Claim {
	return models.NewClaim(from, to, models.DependencyTypeAPICall, source).
		WithConfidence(conf).
		WithTimestamp(ts)
}

func TestResolveOverrideWins(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("servicea", "servicec", "auto", 0.9, fixedNow.Add(-time.Hour)),
		claim("servicea", "servicec", "manual", 0.6, fixedNow),
	)

	r := newTestResolver(t, s, Config{
		Overrides: map[string]string{"ServiceA->ServiceC": " Manual "},
	})

	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, ok := g.Winner("servicea", "servicec")
	require.True(t, ok)
	assert.Equal(t, "manual", winner.Source)
}

func TestResolvePriorityDominates(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("servicea", "servicec", "auto", 0.9, fixedNow.Add(-time.Hour)),
		claim("servicea", "servicec", "manual", 0.6, fixedNow),
	)

	r := newTestResolver(t, s, Config{
		Priorities: map[string]float64{"manual": 5},
	})

	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("servicea", "servicec")
	assert.Equal(t, "manual", winner.Source)
}

func TestResolveHigherConfidenceWinsByDefault(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("a", "b", "auto", 0.9, fixedNow.Add(-time.Minute)),
		claim("a", "b", "manual", 0.6, fixedNow.Add(-time.Minute)),
	)

	r := newTestResolver(t, s, Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("a", "b")
	assert.Equal(t, "auto", winner.Source)
}

func TestResolveOverrideUnknownSourceFallsBackToScoring(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("a", "b", "auto", 0.9, fixedNow),
		claim("a", "b", "manual", 0.2, fixedNow),
	)

	r := newTestResolver(t, s, Config{
		Overrides: map[string]string{"a->b": "no-such-source"},
	})

	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("a", "b")
	assert.Equal(t, "auto", winner.Source)
}

func TestResolvePerEdgeScoring(t *testing.T) {
	// two corroborating claims for a->b, a single stronger one for a->c;
	// each edge resolves independently
	s := store.NewMemoryStore()
	seed(t, s,
		claim("a", "b", "auto", 0.7, fixedNow.Add(-time.Minute)),
		claim("a", "b", "auto", 0.7, fixedNow),
		claim("a", "c", "auto", 0.9, fixedNow),
	)

	r := newTestResolver(t, s, Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, g.EdgeCount())
	_, hasB := g.Winner("a", "b")
	_, hasC := g.Winner("a", "c")
	assert.True(t, hasB)
	assert.True(t, hasC)

	closure := g.TransitiveClosure()
	assert.ElementsMatch(t, []string{"b", "c"}, closure["a"])
}

func TestResolveTieBreaks(t *testing.T) {
	s := store.NewMemoryStore()
	ts := fixedNow.Add(-time.Hour)
	seed(t, s,
		claim("a", "b", "zeta", 0.8, ts),
		claim("a", "b", "alpha", 0.8, ts.Add(time.Minute)), // newer
	)

	r := newTestResolver(t, s, Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("a", "b")
	assert.Equal(t, "alpha", winner.Source, "newer timestamp should win the tie")

	// identical timestamps: lexicographic source
	s2 := store.NewMemoryStore()
	seed(t, s2,
		claim("a", "b", "zeta", 0.8, ts),
		claim("a", "b", "alpha", 0.8, ts),
	)
	r2 := newTestResolver(t, s2, Config{})
	g2, err := r2.Resolve(context.Background())
	require.NoError(t, err)
	winner2, _ := g2.Winner("a", "b")
	assert.Equal(t, "alpha", winner2.Source)
}

func TestResolveDeterministic(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("a", "b", "s1", 0.8, fixedNow.Add(-time.Hour)),
		claim("a", "b", "s2", 0.7, fixedNow),
		claim("b", "c", "s1", 0.9, fixedNow),
		claim("c", "a", "s3", 0.5, fixedNow),
	)

	r := newTestResolver(t, s, Config{})
	first, err := r.Resolve(context.Background())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := r.Resolve(context.Background())
		require.NoError(t, err)
		require.Equal(t, first.EdgeCount(), again.EdgeCount())
		assert.Equal(t, first.Services(), again.Services())
		for _, e := range first.Edges() {
			w, ok := again.Winner(e.FromService, e.ToService)
			require.True(t, ok)
			assert.Equal(t, e.Source, w.Source)
		}
	}
}

func TestResolveDoesNotMutateStore(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, claim("a", "b", "auto", 0.9, fixedNow))

	r := newTestResolver(t, s, Config{})
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	all, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0.9, all[0].Confidence)
	assert.Equal(t, "auto", all[0].Source)
}

func TestResolveEmptyStore(t *testing.T) {
	r := newTestResolver(t, store.NewMemoryStore(), Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestResolveMissingTimestampRecencyZero(t *testing.T) {
	s := store.NewMemoryStore()
	noTS := claim("a", "b", "old", 0.8, time.Time{})
	withTS := claim("a", "b", "new", 0.8, fixedNow)
	seed(t, s, noTS, withTS)

	r := newTestResolver(t, s, Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("a", "b")
	assert.Equal(t, "new", winner.Source)
}

func TestUpdateConfigHotSwap(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		claim("a", "b", "auto", 0.9, fixedNow),
		claim("a", "b", "manual", 0.3, fixedNow),
	)

	r := newTestResolver(t, s, Config{})
	g, err := r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ := g.Winner("a", "b")
	assert.Equal(t, "auto", winner.Source)

	r.UpdateConfig(Config{Overrides: map[string]string{"a->b": "manual"}})
	g, err = r.Resolve(context.Background())
	require.NoError(t, err)
	winner, _ = g.Winner("a", "b")
	assert.Equal(t, "manual", winner.Source)
}
