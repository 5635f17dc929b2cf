package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/store"
)

func waitForClaims(t *testing.T, s store.EvidenceStore, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		count, err := s.Count(context.Background())
		require.NoError(t, err)
		if count >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d claims", want)
}

func TestSpoolWatcherIngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	s := store.NewMemoryStore()
	pool := NewPool(newTestOrchestrator(s), 2, 4)
	spool := NewSpoolWatcher(dir, pool)
	spool.debounce = 20 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, spool.Start(ctx))
	defer func() {
		require.NoError(t, spool.Stop(ctx))
		require.NoError(t, pool.Stop(ctx))
	}()

	path := filepath.Join(dir, "evidence.log")
	line := "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /api/users 200 125ms\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

	waitForClaims(t, s, 1)

	// processed file is renamed out of the way
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path + doneSuffix); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for .done rename")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSpoolWatcherPicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre-existing.txt"),
		[]byte("web-portal -> order-service\n"), 0o600))
	// already-processed and hidden files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.log.done"),
		[]byte("a -> b\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-editor"),
		[]byte("a -> b\n"), 0o600))

	s := store.NewMemoryStore()
	pool := NewPool(newTestOrchestrator(s), 2, 4)
	spool := NewSpoolWatcher(dir, pool)
	spool.debounce = 20 * time.Millisecond

	ctx := context.Background()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, spool.Start(ctx))
	defer func() {
		require.NoError(t, spool.Stop(ctx))
		require.NoError(t, pool.Stop(ctx))
	}()

	waitForClaims(t, s, 1)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSpoolWatcherStopWithoutStart(t *testing.T) {
	pool := NewPool(newTestOrchestrator(store.NewMemoryStore()), 1, 1)
	spool := NewSpoolWatcher(t.TempDir(), pool)
	assert.NoError(t, spool.Stop(context.Background()))
}
