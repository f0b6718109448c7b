package graph

import (
	"sort"
	"time"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

// TopNodeDegree is the total degree a node must exceed to be reported as a top node.
const TopNodeDegree = 5

// Summary is the per-analysis digest handed to report consumers.
type Summary struct {
	Target      string   `json:"target"`
	Chain       string   `json:"chain,omitempty"`
	TotalTxs    int      `json:"total_txs"`
	TotalVolume float64  `json:"total_volume"`
	Symbol      string   `json:"symbol,omitempty"`
	NodeCount   int      `json:"node_count"`
	EdgeCount   int      `json:"edge_count"`
	TopNodes    []string `json:"top_nodes"`
}

// Summarize digests one analysis. Counts and volume cover every fetched
// transaction, failed ones included; top nodes come from the graph.
func Summarize(target string, txs []*domain.Transaction, g *Graph) Summary {
	s := Summary{
		Target:    domain.CanonicalAddress(target),
		TotalTxs:  len(txs),
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		TopNodes:  make([]string, 0),
	}
	if len(txs) > 0 && txs[0] != nil {
		s.Chain = string(txs[0].ChainID)
		s.Symbol = txs[0].TokenSymbol
	}

	for _, tx := range txs {
		if tx != nil {
			s.TotalVolume += tx.HumanValue()
		}
	}

	for _, n := range g.Nodes() {
		if g.Degree(n.ID) > TopNodeDegree {
			s.TopNodes = append(s.TopNodes, n.ID)
		}
	}
	sort.Strings(s.TopNodes)

	return s
}

// EdgeRow is the tabular view of one edge.
type EdgeRow struct {
	Source     string
	Target     string
	Count      int
	TotalValue string
	HumanValue float64
	FirstSeen  string
	LastSeen   string
	Weight     float64
	Label      string
}

// EdgeRows returns one row per edge in Edges order.
func (g *Graph) EdgeRows() []EdgeRow {
	edges := g.Edges()
	rows := make([]EdgeRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, EdgeRow{
			Source:     e.Source,
			Target:     e.Target,
			Count:      e.Count,
			TotalValue: e.TotalValue.String(),
			HumanValue: e.HumanValue,
			FirstSeen:  e.FirstSeen.UTC().Format(time.RFC3339),
			LastSeen:   e.LastSeen.UTC().Format(time.RFC3339),
			Weight:     e.Weight,
			Label:      e.Label,
		})
	}
	return rows
}
