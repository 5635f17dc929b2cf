package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

// fakeClient records queries and plays back canned results.
type fakeClient struct {
	queries []GraphQuery
	results []*QueryResult
	errs    []error
}

func (f *fakeClient) Connect(ctx context.Context) error          { return nil }
func (f *fakeClient) Close() error                               { return nil }
func (f *fakeClient) Ping(ctx context.Context) error             { return nil }
func (f *fakeClient) InitializeSchema(ctx context.Context) error { return nil }
func (f *fakeClient) DeleteGraph(ctx context.Context) error      { return nil }

func (f *fakeClient) ExecuteQuery(ctx context.Context, query GraphQuery) (*QueryResult, error) {
	f.queries = append(f.queries, query)
	idx := len(f.queries) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) && f.results[idx] != nil {
		return f.results[idx], nil
	}
	return &QueryResult{Stats: QueryStats{RelationshipsCreated: 1}}, nil
}

func TestGraphStoreSaveUpsertsServicesOnce(t *testing.T) {
	fake := &fakeClient{}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, testClaim("web-portal", "user-service", "router-log")))
	require.NoError(t, g.Save(ctx, testClaim("web-portal", "user-service", "custom-text")))

	// first save: two MERGEs plus the edge CREATE; second save: cache hit,
	// edge CREATE only
	require.Len(t, fake.queries, 4)
	assert.Contains(t, fake.queries[0].Query, "MERGE (s:Service")
	assert.Contains(t, fake.queries[1].Query, "MERGE (s:Service")
	assert.Contains(t, fake.queries[2].Query, "CREATE (a)-[r:CLAIMS")
	assert.Contains(t, fake.queries[3].Query, "CREATE (a)-[r:CLAIMS")

	assert.Equal(t, "web-portal", fake.queries[0].Parameters["name"])
	assert.Equal(t, "user-service", fake.queries[1].Parameters["name"])
	assert.Equal(t, "web-portal->user-service", fake.queries[2].Parameters["edgeKey"])
}

func TestGraphStoreSaveRejectsInvalidClaim(t *testing.T) {
	fake := &fakeClient{}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)

	saveErr := g.Save(context.Background(), testClaim("a", "a", "x"))
	require.Error(t, saveErr)
	assert.True(t, models.IsPersistenceError(saveErr))
	assert.Empty(t, fake.queries)
}

func TestGraphStoreSaveReportsMissingEdge(t *testing.T) {
	fake := &fakeClient{
		results: []*QueryResult{
			{}, // MERGE from
			{}, // MERGE to
			{}, // CREATE reports zero relationships
		},
	}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)

	saveErr := g.Save(context.Background(), testClaim("a", "b", "x"))
	require.Error(t, saveErr)
	assert.True(t, models.IsPersistenceError(saveErr))
}

func TestGraphStoreFindAllParsesRows(t *testing.T) {
	ts := time.Date(2024, 7, 4, 10, 30, 45, 0, time.UTC)
	fake := &fakeClient{
		results: []*QueryResult{
			{
				Rows: [][]interface{}{
					{
						"web-portal", "user-service", "router-log", "API_CALL",
						0.95, ts.UnixNano(), "raw line",
						`{"target_port":"8080"}`,
					},
					{"bad row"},
				},
			},
		},
	}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)

	claims, err := g.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, claims, 1)

	claim := claims[0]
	assert.Equal(t, "web-portal->user-service", claim.EdgeKey())
	assert.Equal(t, models.DependencyTypeAPICall, claim.DependencyType)
	assert.Equal(t, 0.95, claim.Confidence)
	assert.Equal(t, ts, claim.Timestamp.UTC())
	port, _ := claim.Metadata.Get("target_port")
	assert.Equal(t, "8080", port)
}

func TestGraphStoreFindByEdgeAndSourceFilter(t *testing.T) {
	fake := &fakeClient{results: []*QueryResult{{}, {}}}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = g.FindByEdge(ctx, "a", "b")
	require.NoError(t, err)
	_, err = g.FindBySource(ctx, "router-log")
	require.NoError(t, err)

	require.Len(t, fake.queries, 2)
	assert.True(t, strings.Contains(fake.queries[0].Query, "r.edge_key = $edgeKey"))
	assert.Equal(t, "a->b", fake.queries[0].Parameters["edgeKey"])
	assert.True(t, strings.Contains(fake.queries[1].Query, "r.source = $source"))
	assert.Equal(t, "router-log", fake.queries[1].Parameters["source"])
}

func TestGraphStoreCount(t *testing.T) {
	fake := &fakeClient{
		results: []*QueryResult{
			{Rows: [][]interface{}{{int64(42)}}},
		},
	}
	g, err := NewGraphStore(fake)
	require.NoError(t, err)

	count, err := g.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}
