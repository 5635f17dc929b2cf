package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/adapters"
	"github.com/moolen/depscope/internal/models"
	"github.com/moolen/depscope/internal/normalizer"
	"github.com/moolen/depscope/internal/store"
)

func newTestOrchestrator(s store.EvidenceStore) *Orchestrator {
	return NewOrchestrator(
		adapters.NewDefaultRegistry(),
		normalizer.New(),
		s,
		NewMetrics(prometheus.NewRegistry()),
	)
}

func TestIngestRouterLogEndToEnd(t *testing.T) {
	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)

	raw := "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /api/users 200 125ms"
	result, err := o.Ingest(context.Background(), Request{Raw: []byte(raw), SourceID: "batch-1"})
	require.NoError(t, err)

	assert.Equal(t, "router-log", result.SourceType)
	assert.Equal(t, "batch-1", result.SourceID)
	assert.Equal(t, 1, result.RawClaimsExtracted)
	assert.Equal(t, 1, result.ClaimsAfterNormalization)
	assert.Equal(t, 1, result.ClaimsSaved)
	assert.Equal(t, 0, result.ErrorCount)

	claims, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "web-portal->user-management-service", claims[0].EdgeKey())
	assert.Equal(t, models.BandVeryHigh, claims[0].Band())
}

func TestIngestGeneratesSourceID(t *testing.T) {
	o := newTestOrchestrator(store.NewMemoryStore())
	result, err := o.Ingest(context.Background(), Request{Raw: []byte("a -> b")})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SourceID)
}

func TestIngestPartiallyBadBatch(t *testing.T) {
	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)

	raw := "web-portal -> order-service\n" +
		"%%% not parseable %%%\n" +
		"web-portal -> payment-service\n"
	result, err := o.Ingest(context.Background(), Request{
		Raw:            []byte(raw),
		SourceTypeHint: adapters.SourceCustomText,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RawClaimsExtracted)
	assert.Equal(t, 2, result.ClaimsSaved)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, result.RawClaimsExtracted, result.ClaimsSaved+result.ErrorCount)
}

func TestIngestEmptyInput(t *testing.T) {
	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)

	for _, input := range []string{"", "   \n\t\n"} {
		result, err := o.Ingest(context.Background(), Request{Raw: []byte(input)})
		require.NoError(t, err)
		assert.Equal(t, 0, result.RawClaimsExtracted)
		assert.Equal(t, 0, result.ClaimsSaved)
	}

	count, _ := s.Count(context.Background())
	assert.Equal(t, 0, count)
}

func TestIngestFileAbsent(t *testing.T) {
	o := newTestOrchestrator(store.NewMemoryStore())
	_, err := o.Ingest(context.Background(), Request{FilePath: "/does/not/exist.log"})
	require.Error(t, err)
	assert.True(t, models.IsAdapterError(err))
}

func TestIngestFromFileUsesFilenameDetection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "application.properties")
	content := "spring.application.name=web-portal\nspring.datasource.url=jdbc:mysql://mysql-primary:3306/portal\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)

	result, err := o.Ingest(context.Background(), Request{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, adapters.SourceConfigurationFile, result.SourceType)
	assert.Equal(t, 1, result.ClaimsSaved)

	claims, _ := s.FindAll(context.Background())
	require.Len(t, claims, 1)
	// alias applied during normalization
	assert.Equal(t, "web-portal->mysql-database", claims[0].EdgeKey())
}

func TestIngestCancellation(t *testing.T) {
	o := newTestOrchestrator(store.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Ingest(ctx, Request{Raw: []byte("a -> b")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, models.IsAdapterError(err), "cancellation must not be wrapped")
}

func TestIngestEmptyRegistry(t *testing.T) {
	o := NewOrchestrator(adapters.NewRegistry(), normalizer.New(),
		store.NewMemoryStore(), NewMetrics(prometheus.NewRegistry()))

	_, err := o.Ingest(context.Background(), Request{Raw: []byte("a -> b")})
	require.Error(t, err)
	assert.True(t, models.IsAdapterError(err))
}

func TestIngestCustomTextDeclaredSource(t *testing.T) {
	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)

	_, err := o.Ingest(context.Background(), Request{
		Raw:            []byte("web-portal -> order-service 0.9 manual"),
		SourceTypeHint: adapters.SourceCustomText,
	})
	require.NoError(t, err)

	claims, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "manual", claims[0].Source,
		"declared source must be addressable by priorities and overrides")
}

// failingStore rejects every save.
type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) Save(ctx context.Context, c *models.Claim) error {
	return models.NewPersistenceError(c.EdgeKey(), fmt.Errorf("disk full"))
}

func TestIngestPerClaimSaveFailureContinues(t *testing.T) {
	o := newTestOrchestrator(&failingStore{store.NewMemoryStore()})

	raw := "a -> b\nc -> d\n"
	result, err := o.Ingest(context.Background(), Request{
		Raw:            []byte(raw),
		SourceTypeHint: adapters.SourceCustomText,
	})
	require.NoError(t, err, "per-claim failures must not abort the batch")
	assert.Equal(t, 2, result.RawClaimsExtracted)
	assert.Equal(t, 0, result.ClaimsSaved)
	assert.Equal(t, 2, result.ErrorCount)
}

func TestPoolConcurrentIngestions(t *testing.T) {
	s := store.NewMemoryStore()
	o := newTestOrchestrator(s)
	p := NewPool(o, 4, 8)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	reqs := make([]Request, 10)
	for i := range reqs {
		reqs[i] = Request{
			Raw:            []byte(fmt.Sprintf("svc-%d -> shared-target", i)),
			SourceTypeHint: adapters.SourceCustomText,
			SourceID:       fmt.Sprintf("batch-%d", i),
		}
	}

	outcomes, err := p.IngestAll(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 10)
	for i, out := range outcomes {
		require.NoError(t, out.Err)
		assert.Equal(t, fmt.Sprintf("batch-%d", i), out.Result.SourceID)
		assert.Equal(t, 1, out.Result.ClaimsSaved)
	}

	count, _ := s.Count(ctx)
	assert.Equal(t, 10, count)

	require.NoError(t, p.Stop(ctx))
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	p := NewPool(newTestOrchestrator(store.NewMemoryStore()), 2, 2)
	_, err := p.Submit(context.Background(), Request{Raw: []byte("a -> b")})
	assert.Error(t, err)
}

func TestPoolStartStopIdempotent(t *testing.T) {
	p := NewPool(newTestOrchestrator(store.NewMemoryStore()), 2, 2)
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))
}

// gatedStore blocks every save until the gate closes.
type gatedStore struct {
	*store.MemoryStore
	gate chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, c *models.Claim) error {
	<-g.gate
	return g.MemoryStore.Save(ctx, c)
}

func TestPoolStopWithBlockedSubmit(t *testing.T) {
	gate := make(chan struct{})
	p := NewPool(newTestOrchestrator(&gatedStore{store.NewMemoryStore(), gate}), 1, 1)
	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	req := Request{Raw: []byte("a -> b"), SourceTypeHint: adapters.SourceCustomText}

	// First request occupies the single worker (blocked in Save), second
	// fills the single queue slot.
	_, err := p.Submit(ctx, req)
	require.NoError(t, err)
	_, err = p.Submit(ctx, req)
	require.NoError(t, err)

	// Third submitter blocks on the full queue until shutdown.
	submitErr := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx, req)
		submitErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate)
	}()

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(stopCtx))

	select {
	case err := <-submitErr:
		assert.Error(t, err, "a submit caught by shutdown must be rejected")
	case <-time.After(time.Second):
		t.Fatal("blocked submit was not released by Stop")
	}

	_, err = p.Submit(ctx, req)
	assert.Error(t, err, "submits after Stop must be rejected")
}
