package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

func testClaim(from, to, source string) *models.Claim {
	return models.NewClaim(from, to, models.DependencyTypeAPICall, source)
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testClaim("a", "b", "router-log")))
	require.NoError(t, s.Save(ctx, testClaim("a", "b", "configuration-file")))
	require.NoError(t, s.Save(ctx, testClaim("a", "c", "router-log")))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// append order preserved
	assert.Equal(t, "router-log", all[0].Source)
	assert.Equal(t, "configuration-file", all[1].Source)

	byEdge, err := s.FindByEdge(ctx, "a", "b")
	require.NoError(t, err)
	assert.Len(t, byEdge, 2)

	bySource, err := s.FindBySource(ctx, "router-log")
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	services, err := s.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, services)
}

func TestMemoryStoreRejectsInvalidClaim(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Save(ctx, testClaim("a", "a", "x"))
	require.Error(t, err)
	assert.True(t, models.IsPersistenceError(err))

	err = s.Save(ctx, nil)
	require.Error(t, err)
	assert.True(t, models.IsPersistenceError(err))

	count, _ := s.Count(ctx)
	assert.Equal(t, 0, count)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	claim := testClaim("a", "b", "x").WithMeta("k", "v")
	require.NoError(t, s.Save(ctx, claim))

	// mutating the original after save must not affect the store
	claim.Metadata.Set("k", "changed")

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	v, _ := all[0].Metadata.Get("k")
	assert.Equal(t, "v", v)

	// mutating a read result must not affect later reads
	all[0].Metadata.Set("k", "tampered")
	again, err := s.FindAll(ctx)
	require.NoError(t, err)
	v, _ = again[0].Metadata.Get("k")
	assert.Equal(t, "v", v)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				claim := testClaim(fmt.Sprintf("svc-%d", w), "shared", "load")
				if err := s.Save(ctx, claim); err != nil {
					t.Error(err)
					return
				}
				if _, err := s.FindAll(ctx); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, count)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Save(ctx, testClaim("a", "b", "x")))
	_, err := s.FindAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testClaim("a", "b", "router-log")))
	require.NoError(t, s.Save(ctx, testClaim("a", "b", "router-log")))
	require.NoError(t, s.Save(ctx, testClaim("b", "c", "custom-text")))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ClaimCount)
	assert.Equal(t, 3, stats.ServiceCount)
	assert.Equal(t, 2, stats.EdgeCount)
	assert.Equal(t, 2, stats.ClaimsBySource["router-log"])
	assert.Equal(t, 1, stats.ClaimsBySource["custom-text"])
}
