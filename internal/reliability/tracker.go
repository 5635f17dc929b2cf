package reliability

import (
	"sync"
	"sync/atomic"

	"github.com/moolen/depscope/internal/logging"
)

// DefaultScore is the reliability assumed for a source with no feedback.
const DefaultScore = 0.8

// SourceStats is a point-in-time view of one source's feedback counters.
type SourceStats struct {
	Source       string  `json:"source"`
	ClaimCount   int64   `json:"claimCount"`
	CorrectCount int64   `json:"correctCount"`
	Score        float64 `json:"score"`
}

// counter pairs the feedback tallies for one source. Updates hold the
// mutex so the pair stays coherent; scoring reads the atomics without
// the lock, which may observe a half-applied update. That staleness is
// acceptable for resolver scoring.
type counter struct {
	mu      sync.Mutex
	claims  atomic.Int64
	correct atomic.Int64
}

// Tracker learns per-source reliability from operator feedback:
// reliability = correctCount / claimCount, defaulting when no feedback
// has been recorded yet.
type Tracker struct {
	mu      sync.RWMutex
	sources map[string]*counter
	logger  *logging.Logger
}

// NewTracker creates an empty reliability tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sources: make(map[string]*counter),
		logger:  logging.GetLogger("reliability"),
	}
}

// Update records one piece of feedback for a source.
func (t *Tracker) Update(source string, correct bool) {
	c := t.counterFor(source)

	c.mu.Lock()
	c.claims.Add(1)
	if correct {
		c.correct.Add(1)
	}
	c.mu.Unlock()

	t.logger.Debug("feedback for %s: correct=%t, score now %.3f", source, correct, t.Score(source))
}

func (t *Tracker) counterFor(source string) *counter {
	t.mu.RLock()
	c, ok := t.sources[source]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.sources[source]; !ok {
		c = &counter{}
		t.sources[source] = c
	}
	return c
}

// Score returns the source's reliability in [0,1]. Sources without
// feedback score DefaultScore.
func (t *Tracker) Score(source string) float64 {
	t.mu.RLock()
	c, ok := t.sources[source]
	t.mu.RUnlock()
	if !ok {
		return DefaultScore
	}

	claims := c.claims.Load()
	if claims == 0 {
		return DefaultScore
	}
	return float64(c.correct.Load()) / float64(claims)
}

// Restore seeds a source's counters from persisted stats, replacing any
// current values. Used to reload feedback across process restarts.
func (t *Tracker) Restore(source string, claimCount, correctCount int64) {
	if claimCount < 0 || correctCount < 0 || correctCount > claimCount {
		t.logger.Warn("ignoring invalid persisted feedback for %s: %d/%d", source, correctCount, claimCount)
		return
	}
	c := t.counterFor(source)

	c.mu.Lock()
	c.claims.Store(claimCount)
	c.correct.Store(correctCount)
	c.mu.Unlock()
}

// Snapshot returns the current stats for every source with feedback.
func (t *Tracker) Snapshot() []SourceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SourceStats, 0, len(t.sources))
	for source, c := range t.sources {
		claims := c.claims.Load()
		score := DefaultScore
		if claims > 0 {
			score = float64(c.correct.Load()) / float64(claims)
		}
		out = append(out, SourceStats{
			Source:       source,
			ClaimCount:   claims,
			CorrectCount: c.correct.Load(),
			Score:        score,
		})
	}
	return out
}
