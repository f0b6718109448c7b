package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vietddude/chaintrace/internal/graph"
)

// Document is the node/edge shape consumed by interactive graph renderers
// (vis-network style "from"/"to" edges).
type Document struct {
	Nodes []DocumentNode `json:"nodes"`
	Edges []DocumentEdge `json:"edges"`
}

type DocumentNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Tag   string `json:"tag,omitempty"`
	Color string `json:"color,omitempty"`
	Title string `json:"title,omitempty"`
}

type DocumentEdge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Weight     float64  `json:"weight"`
	Width      float64  `json:"width"`
	Count      int      `json:"count"`
	Value      string   `json:"value"`
	HumanValue float64  `json:"value_human"`
	FirstSeen  string   `json:"first_seen"`
	LastSeen   string   `json:"last_seen"`
	TxHashes   []string `json:"tx_hashes"`
	Label      string   `json:"label"`
	Title      string   `json:"title"`
}

func NewDocument(g *graph.Graph) Document {
	doc := Document{
		Nodes: make([]DocumentNode, 0, g.NodeCount()),
		Edges: make([]DocumentEdge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, DocumentNode{
			ID:    n.ID,
			Label: n.ID,
			Type:  n.Type,
			Tag:   n.Tag,
			Color: n.Color,
			Title: n.Tag,
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, DocumentEdge{
			From:       e.Source,
			To:         e.Target,
			Weight:     e.Weight,
			Width:      e.Width,
			Count:      e.Count,
			Value:      e.TotalValue.String(),
			HumanValue: e.HumanValue,
			FirstSeen:  e.FirstSeen.UTC().Format(time.RFC3339),
			LastSeen:   e.LastSeen.UTC().Format(time.RFC3339),
			TxHashes:   e.TxHashes,
			Label:      e.Label,
			Title:      e.Title,
		})
	}
	return doc
}

func WriteGraphJSON(out io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(g))
}
