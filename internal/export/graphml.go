package export

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/moolen/depscope/internal/graph"
)

// GraphML document structure, per the graphml.graphdrawing.org schema.
// Node ids are the canonical service names; edge data carries the
// winning claim's source, dependency type, and confidence.

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

var graphmlKeys = []graphmlKey{
	{ID: "d0", For: "node", AttrName: "name", AttrType: "string"},
	{ID: "d1", For: "edge", AttrName: "source_type", AttrType: "string"},
	{ID: "d2", For: "edge", AttrName: "dependency_type", AttrType: "string"},
	{ID: "d3", For: "edge", AttrName: "confidence", AttrType: "double"},
	{ID: "d4", For: "edge", AttrName: "band", AttrType: "string"},
}

// writeGraphML renders the resolved graph as GraphML.
func writeGraphML(w io.Writer, g *graph.ResolvedGraph) error {
	doc := graphmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys:  graphmlKeys,
		Graph: graphmlGraph{
			ID:          "dependencies",
			EdgeDefault: "directed",
		},
	}

	for _, name := range g.Services() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID:   name,
			Data: []graphmlData{{Key: "d0", Value: name}},
		})
	}

	for _, claim := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: claim.FromService,
			Target: claim.ToService,
			Data: []graphmlData{
				{Key: "d1", Value: claim.Source},
				{Key: "d2", Value: string(claim.DependencyType)},
				{Key: "d3", Value: fmt.Sprintf("%g", claim.Confidence)},
				{Key: "d4", Value: string(claim.Band())},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
