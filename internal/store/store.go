package store

import (
	"context"

	"github.com/moolen/depscope/internal/models"
)

// EvidenceStore is the append-only claim store. Claims are never updated
// or deleted; re-ingestion appends new evidence. Implementations keep two
// logical indexes, by directed edge and by source, and must serialize
// appends while allowing concurrent readers.
type EvidenceStore interface {
	// Save appends one claim. Failures are reported as *models.PersistenceError.
	Save(ctx context.Context, claim *models.Claim) error

	// FindAll returns a snapshot of every stored claim in append order.
	FindAll(ctx context.Context) ([]*models.Claim, error)

	// FindByEdge returns all claims for the directed edge (from, to) in
	// append order.
	FindByEdge(ctx context.Context, from, to string) ([]*models.Claim, error)

	// FindBySource returns all claims recorded by the given source.
	FindBySource(ctx context.Context, source string) ([]*models.Claim, error)

	// Services returns the distinct service names seen so far, in first
	// appearance order.
	Services(ctx context.Context) ([]string, error)

	// Count returns the number of stored claims.
	Count(ctx context.Context) (int, error)
}

// Stats summarizes the stored evidence.
type Stats struct {
	ClaimCount     int            `json:"claimCount"`
	ServiceCount   int            `json:"serviceCount"`
	EdgeCount      int            `json:"edgeCount"`
	ClaimsBySource map[string]int `json:"claimsBySource"`
}
