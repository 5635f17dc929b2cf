package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"

	"github.com/moolen/depscope/internal/logging"
)

// GraphQuery is a Cypher query with parameters.
type GraphQuery struct {
	Query      string
	Parameters map[string]interface{}
	Timeout    int // milliseconds, 0 = server default
}

// QueryResult holds the rows and statistics of one graph query.
type QueryResult struct {
	Columns []string
	Rows    [][]interface{}
	Stats   QueryStats
}

// QueryStats carries the write counters FalkorDB reports per query.
type QueryStats struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
	ExecutionTime        time.Duration
}

// Client is the FalkorDB access interface used by GraphStore. A fake
// implementation backs the unit tests.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	ExecuteQuery(ctx context.Context, query GraphQuery) (*QueryResult, error)
	InitializeSchema(ctx context.Context) error
	DeleteGraph(ctx context.Context) error
}

// ClientConfig holds FalkorDB connection settings.
type ClientConfig struct {
	Host         string
	Port         int
	Password     string
	GraphName    string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultClientConfig returns the default connection settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:         "localhost",
		Port:         6379,
		GraphName:    "depscope",
		MaxRetries:   3,
		DialTimeout:  30 * time.Second,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		PoolSize:     10,
	}
}

type falkorClient struct {
	config ClientConfig
	logger *logging.Logger
	db     *falkordb.FalkorDB
	graph  *falkordb.Graph
}

// NewClient creates a FalkorDB-backed Client.
func NewClient(config ClientConfig) Client {
	return &falkorClient{
		config: config,
		logger: logging.GetLogger("store.client"),
	}
}

// Connect establishes the connection and selects the graph.
func (c *falkorClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to FalkorDB at %s:%d (graph: %s)",
		c.config.Host, c.config.Port, c.config.GraphName)

	// falkordb.ConnectionOption is an alias for redis.Options
	db, err := falkordb.FalkorDBNew(&falkordb.ConnectionOption{
		Addr:         fmt.Sprintf("%s:%d", c.config.Host, c.config.Port),
		Password:     c.config.Password,
		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,
		PoolSize:     c.config.PoolSize,
		MaxRetries:   c.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create FalkorDB client: %w", err)
	}
	c.db = db
	c.graph = db.SelectGraph(c.config.GraphName)

	c.logger.Info("Successfully connected to FalkorDB")
	return nil
}

// Close closes the connection.
func (c *falkorClient) Close() error {
	c.logger.Info("Closing FalkorDB connection")
	if c.db != nil && c.db.Conn != nil {
		return c.db.Conn.Close()
	}
	return nil
}

// Ping checks the connection with a trivial query.
func (c *falkorClient) Ping(ctx context.Context) error {
	if c.graph == nil {
		return fmt.Errorf("client not connected")
	}
	_, err := c.graph.Query("RETURN 1", nil, nil)
	return err
}

// ExecuteQuery runs a Cypher query and converts the result.
func (c *falkorClient) ExecuteQuery(ctx context.Context, query GraphQuery) (*QueryResult, error) {
	if c.graph == nil {
		return nil, fmt.Errorf("client not connected")
	}

	var options *falkordb.QueryOptions
	if query.Timeout > 0 {
		options = falkordb.NewQueryOptions().SetTimeout(query.Timeout)
	}

	start := time.Now()
	result, err := c.graph.Query(query.Query, query.Parameters, options)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	qr := convertResult(result)
	qr.Stats.ExecutionTime = time.Since(start)
	return qr, nil
}

func convertResult(result *falkordb.QueryResult) *QueryResult {
	qr := &QueryResult{}

	firstRow := true
	for result.Next() {
		record := result.Record()
		if firstRow {
			qr.Columns = record.Keys()
			firstRow = false
		}
		qr.Rows = append(qr.Rows, record.Values())
	}

	qr.Stats.NodesCreated = result.NodesCreated()
	qr.Stats.RelationshipsCreated = result.RelationshipsCreated()
	qr.Stats.PropertiesSet = result.PropertiesSet()
	return qr
}

// InitializeSchema creates the indexes the claim queries rely on:
// Service.name for upsert matching, Claim edge source and the edge
// endpoints for the two store lookups.
func (c *falkorClient) InitializeSchema(ctx context.Context) error {
	c.logger.Info("Initializing graph schema for graph: %s", c.config.GraphName)

	indexes := []string{
		"CREATE INDEX FOR (n:Service) ON (n.name)",
		"CREATE INDEX FOR ()-[r:CLAIMS]-() ON (r.source)",
		"CREATE INDEX FOR ()-[r:CLAIMS]-() ON (r.edge_key)",
	}
	for _, indexQuery := range indexes {
		if _, err := c.ExecuteQuery(ctx, GraphQuery{Query: indexQuery}); err != nil {
			// FalkorDB errors when the index already exists
			c.logger.Warn("Failed to create index (may already exist): %v", err)
		}
	}

	c.logger.Info("Schema initialization complete")
	return nil
}

// DeleteGraph removes the whole graph. Used by tests and the CLI reset.
func (c *falkorClient) DeleteGraph(ctx context.Context) error {
	if c.graph == nil {
		return fmt.Errorf("client not connected")
	}
	if err := c.graph.Delete(); err != nil {
		if strings.Contains(err.Error(), "empty key") {
			c.logger.Debug("Graph %q does not exist, nothing to delete", c.config.GraphName)
		} else {
			return fmt.Errorf("failed to delete graph: %w", err)
		}
	}
	c.graph = c.db.SelectGraph(c.config.GraphName)
	return nil
}
