// Package export writes resolved dependency graphs to disk as GraphML
// or JSON snapshots.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/moolen/depscope/internal/graph"
	"github.com/moolen/depscope/internal/logging"
)

// Format selects the snapshot encoding.
type Format string

const (
	FormatGraphML Format = "graphml"
	FormatJSON    Format = "json"
)

var extensions = map[Format]string{
	FormatGraphML: ".graphml",
	FormatJSON:    ".json",
}

// Exporter writes graph snapshots into a directory.
type Exporter struct {
	dir    string
	now    func() time.Time
	logger *logging.Logger
}

// NewExporter creates an exporter targeting the given snapshot directory.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir:    dir,
		now:    time.Now,
		logger: logging.GetLogger("export"),
	}
}

// Snapshot writes the graph in the given format to a timestamped file
// in the snapshot directory and returns its path.
func (e *Exporter) Snapshot(g *graph.ResolvedGraph, format Format) (string, error) {
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("unsupported export format %q", format)
	}

	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating snapshot directory %s: %w", e.dir, err)
	}

	name := fmt.Sprintf("depscope-%s%s", e.now().UTC().Format("20060102-150405"), ext)
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path) // #nosec G304 -- snapshot dir is operator-configured
	if err != nil {
		return "", fmt.Errorf("creating snapshot file %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	if err := e.Write(f, g, format); err != nil {
		return "", fmt.Errorf("writing snapshot %s: %w", path, err)
	}

	e.logger.Info("exported graph snapshot to %s (%d services, %d edges)",
		path, g.VertexCount(), g.EdgeCount())
	return path, nil
}

// Write renders the graph in the given format to an arbitrary writer.
func (e *Exporter) Write(w io.Writer, g *graph.ResolvedGraph, format Format) error {
	switch format {
	case FormatGraphML:
		return writeGraphML(w, g)
	case FormatJSON:
		return writeJSON(w, g)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// jsonSnapshot is the JSON snapshot document.
type jsonSnapshot struct {
	ExportedAt time.Time   `json:"exportedAt"`
	Services   []string    `json:"services"`
	Edges      []jsonEdge  `json:"edges"`
}

type jsonEdge struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	DependencyType string  `json:"dependencyType"`
	Source         string  `json:"source"`
	Confidence     float64 `json:"confidence"`
	Band           string  `json:"band"`
}

func writeJSON(w io.Writer, g *graph.ResolvedGraph) error {
	doc := jsonSnapshot{
		ExportedAt: time.Now().UTC(),
		Services:   g.Services(),
		Edges:      []jsonEdge{},
	}
	for _, claim := range g.Edges() {
		doc.Edges = append(doc.Edges, jsonEdge{
			From:           claim.FromService,
			To:             claim.ToService,
			DependencyType: string(claim.DependencyType),
			Source:         claim.Source,
			Confidence:     claim.Confidence,
			Band:           string(claim.Band()),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
