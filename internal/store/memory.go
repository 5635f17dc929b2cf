package store

import (
	"context"
	"sync"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// MemoryStore is the in-process EvidenceStore. Appends are serialized by
// a mutex; reads copy out a snapshot so callers never observe later
// appends through a returned slice.
type MemoryStore struct {
	mu           sync.RWMutex
	claims       []*models.Claim
	edgeIndex    map[string][]int
	sourceIndex  map[string][]int
	serviceSeen  map[string]bool
	serviceOrder []string
	logger       *logging.Logger
}

// NewMemoryStore creates an empty in-memory evidence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		edgeIndex:   make(map[string][]int),
		sourceIndex: make(map[string][]int),
		serviceSeen: make(map[string]bool),
		logger:      logging.GetLogger("store.memory"),
	}
}

// Save implements EvidenceStore.
func (s *MemoryStore) Save(ctx context.Context, claim *models.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if claim == nil {
		return models.NewPersistenceError("", models.NewValidationError("nil claim"))
	}
	if err := claim.Validate(); err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}

	stored := claim.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.claims)
	s.claims = append(s.claims, stored)
	s.edgeIndex[stored.EdgeKey()] = append(s.edgeIndex[stored.EdgeKey()], idx)
	s.sourceIndex[stored.Source] = append(s.sourceIndex[stored.Source], idx)
	s.recordService(stored.FromService)
	s.recordService(stored.ToService)
	return nil
}

func (s *MemoryStore) recordService(name string) {
	if !s.serviceSeen[name] {
		s.serviceSeen[name] = true
		s.serviceOrder = append(s.serviceOrder, name)
	}
}

// FindAll implements EvidenceStore.
func (s *MemoryStore) FindAll(ctx context.Context) ([]*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Claim, len(s.claims))
	for i, c := range s.claims {
		out[i] = c.Clone()
	}
	return out, nil
}

// FindByEdge implements EvidenceStore.
func (s *MemoryStore) FindByEdge(ctx context.Context, from, to string) ([]*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimsAt(s.edgeIndex[models.EdgeKey(from, to)]), nil
}

// FindBySource implements EvidenceStore.
func (s *MemoryStore) FindBySource(ctx context.Context, source string) ([]*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimsAt(s.sourceIndex[source]), nil
}

func (s *MemoryStore) claimsAt(indexes []int) []*models.Claim {
	out := make([]*models.Claim, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, s.claims[i].Clone())
	}
	return out
}

// Services implements EvidenceStore.
func (s *MemoryStore) Services(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.serviceOrder))
	copy(out, s.serviceOrder)
	return out, nil
}

// Count implements EvidenceStore.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claims), nil
}

// Stats summarizes the stored evidence. Not part of EvidenceStore; used
// by CLI status output.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ClaimCount:     len(s.claims),
		ServiceCount:   len(s.serviceOrder),
		EdgeCount:      len(s.edgeIndex),
		ClaimsBySource: make(map[string]int, len(s.sourceIndex)),
	}
	for source, indexes := range s.sourceIndex {
		stats.ClaimsBySource[source] = len(indexes)
	}
	return stats, nil
}
