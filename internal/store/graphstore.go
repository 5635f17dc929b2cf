package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moolen/depscope/internal/logging"
	"github.com/moolen/depscope/internal/models"
)

// serviceCacheSize bounds the name -> persisted marker cache. Large
// enough that a batch never evicts its own services.
const serviceCacheSize = 4096

// GraphStore persists claims in FalkorDB. Services are nodes upserted
// with MERGE; each claim is its own CLAIMS edge, so multiplicity per
// directed pair is preserved for the resolver's corroboration bonus.
// A small LRU cache short-circuits repeated service upserts within and
// across batches.
type GraphStore struct {
	client       Client
	serviceCache *lru.Cache[string, struct{}]
	logger       *logging.Logger
}

// NewGraphStore creates a GraphStore over an already-configured client.
func NewGraphStore(client Client) (*GraphStore, error) {
	cache, err := lru.New[string, struct{}](serviceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating service cache: %w", err)
	}
	return &GraphStore{
		client:       client,
		serviceCache: cache,
		logger:       logging.GetLogger("store.graph"),
	}, nil
}

// Connect connects the underlying client and initializes the schema.
func (g *GraphStore) Connect(ctx context.Context) error {
	if err := g.client.Connect(ctx); err != nil {
		return err
	}
	return g.client.InitializeSchema(ctx)
}

// Close closes the underlying client.
func (g *GraphStore) Close() error {
	return g.client.Close()
}

// Save implements EvidenceStore.
func (g *GraphStore) Save(ctx context.Context, claim *models.Claim) error {
	if claim == nil {
		return models.NewPersistenceError("", models.NewValidationError("nil claim"))
	}
	if err := claim.Validate(); err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}

	if err := g.ensureService(ctx, claim.FromService); err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}
	if err := g.ensureService(ctx, claim.ToService); err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}

	metadataJSON, err := json.Marshal(claim.Metadata.ToMap())
	if err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}

	query := GraphQuery{
		Query: `MATCH (a:Service {name: $from}), (b:Service {name: $to})
CREATE (a)-[r:CLAIMS {
	edge_key: $edgeKey,
	source: $source,
	dependency_type: $depType,
	confidence: $confidence,
	timestamp_ns: $timestampNs,
	ingested_at_ns: $ingestedAtNs,
	raw_data: $rawData,
	metadata: $metadata
}]->(b)`,
		Parameters: map[string]interface{}{
			"from":         claim.FromService,
			"to":           claim.ToService,
			"edgeKey":      claim.EdgeKey(),
			"source":       claim.Source,
			"depType":      string(claim.DependencyType),
			"confidence":   claim.Confidence,
			"timestampNs":  claim.Timestamp.UnixNano(),
			"ingestedAtNs": time.Now().UnixNano(),
			"rawData":      claim.RawData,
			"metadata":     string(metadataJSON),
		},
	}

	result, err := g.client.ExecuteQuery(ctx, query)
	if err != nil {
		return models.NewPersistenceError(claim.EdgeKey(), err)
	}
	if result.Stats.RelationshipsCreated == 0 {
		return models.NewPersistenceError(claim.EdgeKey(),
			fmt.Errorf("claim edge was not created"))
	}
	return nil
}

// ensureService upserts a Service node unless the cache already saw it.
func (g *GraphStore) ensureService(ctx context.Context, name string) error {
	if _, ok := g.serviceCache.Get(name); ok {
		return nil
	}

	query := GraphQuery{
		Query: `MERGE (s:Service {name: $name})
ON CREATE SET s.first_seen_ns = $now`,
		Parameters: map[string]interface{}{
			"name": name,
			"now":  time.Now().UnixNano(),
		},
	}
	if _, err := g.client.ExecuteQuery(ctx, query); err != nil {
		return fmt.Errorf("upserting service %q: %w", name, err)
	}

	g.serviceCache.Add(name, struct{}{})
	return nil
}

const claimReturnClause = `RETURN a.name, b.name, r.source, r.dependency_type,
	r.confidence, r.timestamp_ns, r.raw_data, r.metadata
ORDER BY r.ingested_at_ns`

// FindAll implements EvidenceStore.
func (g *GraphStore) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return g.queryClaims(ctx, GraphQuery{
		Query: "MATCH (a:Service)-[r:CLAIMS]->(b:Service)\n" + claimReturnClause,
	})
}

// FindByEdge implements EvidenceStore.
func (g *GraphStore) FindByEdge(ctx context.Context, from, to string) ([]*models.Claim, error) {
	return g.queryClaims(ctx, GraphQuery{
		Query: "MATCH (a:Service)-[r:CLAIMS]->(b:Service)\nWHERE r.edge_key = $edgeKey\n" + claimReturnClause,
		Parameters: map[string]interface{}{
			"edgeKey": models.EdgeKey(from, to),
		},
	})
}

// FindBySource implements EvidenceStore.
func (g *GraphStore) FindBySource(ctx context.Context, source string) ([]*models.Claim, error) {
	return g.queryClaims(ctx, GraphQuery{
		Query: "MATCH (a:Service)-[r:CLAIMS]->(b:Service)\nWHERE r.source = $source\n" + claimReturnClause,
		Parameters: map[string]interface{}{
			"source": source,
		},
	})
}

func (g *GraphStore) queryClaims(ctx context.Context, query GraphQuery) ([]*models.Claim, error) {
	result, err := g.client.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	claims := make([]*models.Claim, 0, len(result.Rows))
	for i, row := range result.Rows {
		claim, err := claimFromRow(row)
		if err != nil {
			g.logger.Warn("skipping unparsable claim row %d: %v", i, err)
			continue
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// claimFromRow rebuilds a claim from the CLAIMS return clause columns.
func claimFromRow(row []interface{}) (*models.Claim, error) {
	if len(row) < 8 {
		return nil, fmt.Errorf("expected 8 columns, got %d", len(row))
	}

	from, err := stringValue(row[0])
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, err := stringValue(row[1])
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	source, err := stringValue(row[2])
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	depType, err := stringValue(row[3])
	if err != nil {
		return nil, fmt.Errorf("dependency_type: %w", err)
	}
	confidence, err := floatValue(row[4])
	if err != nil {
		return nil, fmt.Errorf("confidence: %w", err)
	}
	timestampNs, err := intValue(row[5])
	if err != nil {
		return nil, fmt.Errorf("timestamp_ns: %w", err)
	}
	rawData, _ := stringValue(row[6])
	metadataJSON, _ := stringValue(row[7])

	claim := models.NewClaim(from, to, models.DependencyType(depType), source).
		WithConfidence(confidence).
		WithTimestamp(time.Unix(0, timestampNs)).
		WithRawData(rawData)

	if metadataJSON != "" {
		var md map[string]string
		if err := json.Unmarshal([]byte(metadataJSON), &md); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		// JSON maps lose the original order; sort keys for determinism
		keys := make([]string, 0, len(md))
		for k := range md {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			claim.WithMeta(k, md[k])
		}
	}

	return claim, nil
}

// Services implements EvidenceStore.
func (g *GraphStore) Services(ctx context.Context) ([]string, error) {
	result, err := g.client.ExecuteQuery(ctx, GraphQuery{
		Query: "MATCH (n:Service)\nRETURN n.name\nORDER BY n.first_seen_ns",
	})
	if err != nil {
		return nil, err
	}

	services := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		name, err := stringValue(row[0])
		if err != nil {
			continue
		}
		services = append(services, name)
	}
	return services, nil
}

// Count implements EvidenceStore.
func (g *GraphStore) Count(ctx context.Context) (int, error) {
	result, err := g.client.ExecuteQuery(ctx, GraphQuery{
		Query: "MATCH ()-[r:CLAIMS]->()\nRETURN count(r)",
	})
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	n, err := intValue(result.Rows[0][0])
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats summarizes the persisted evidence.
func (g *GraphStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ClaimsBySource: make(map[string]int)}

	claimCount, err := g.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.ClaimCount = claimCount

	services, err := g.Services(ctx)
	if err != nil {
		return nil, err
	}
	stats.ServiceCount = len(services)

	result, err := g.client.ExecuteQuery(ctx, GraphQuery{
		Query: "MATCH ()-[r:CLAIMS]->()\nRETURN r.edge_key, count(r)",
	})
	if err != nil {
		return nil, err
	}
	stats.EdgeCount = len(result.Rows)

	bySource, err := g.client.ExecuteQuery(ctx, GraphQuery{
		Query: "MATCH ()-[r:CLAIMS]->()\nRETURN r.source, count(r)",
	})
	if err != nil {
		return nil, err
	}
	for _, row := range bySource.Rows {
		if len(row) < 2 {
			continue
		}
		source, err := stringValue(row[0])
		if err != nil {
			continue
		}
		count, err := intValue(row[1])
		if err != nil {
			continue
		}
		stats.ClaimsBySource[source] = int(count)
	}

	return stats, nil
}

// Value coercion helpers: FalkorDB rows surface numbers as int64 or
// float64 depending on the query path.

func stringValue(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func floatValue(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func intValue(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}
