package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/models"
)

func demoGraph() *graph.ResolvedGraph {
	g := graph.NewResolvedGraph()
	g.AddEdge(models.NewClaim("web-portal", "user-service", models.DependencyTypeAPICall, "router-log").
		WithConfidence(0.95))
	g.AddEdge(models.NewClaim("user-service", "mysql-database", models.DependencyTypeConfiguration, "configuration-file").
		WithConfidence(0.9))
	return g
}

func TestSnapshotGraphML(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir)
	e.now = func() time.Time { return time.Date(2024, 7, 4, 10, 30, 45, 0, time.UTC) }

	path, err := e.Snapshot(demoGraph(), FormatGraphML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "depscope-20240704-103045.graphml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc graphmlDoc
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, "directed", doc.Graph.EdgeDefault)
	assert.Len(t, doc.Graph.Nodes, 3)
	require.Len(t, doc.Graph.Edges, 2)
	assert.Equal(t, "web-portal", doc.Graph.Edges[0].Source)
	assert.Equal(t, "user-service", doc.Graph.Edges[0].Target)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(t.TempDir()).Write(&buf, demoGraph(), FormatJSON))

	var doc jsonSnapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.ElementsMatch(t, []string{"web-portal", "user-service", "mysql-database"}, doc.Services)
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "VERY_HIGH", doc.Edges[0].Band)
}

func TestWriteEmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	e := NewExporter(t.TempDir())
	require.NoError(t, e.Write(&buf, graph.NewResolvedGraph(), FormatGraphML))
	assert.Contains(t, buf.String(), "graphml")
}

func TestUnsupportedFormat(t *testing.T) {
	e := NewExporter(t.TempDir())
	_, err := e.Snapshot(demoGraph(), Format("dot"))
	assert.Error(t, err)
}
