package analysis

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/chaintrace/internal/graph"
)

func addEdge(g *graph.Graph, src, dst string) {
	g.AddEdge(&graph.Edge{Source: src, Target: dst, Count: 1, TotalValue: new(big.Int)})
}

// star adds n distinct counterparties sending to (in) or receiving from (out) hub.
func star(g *graph.Graph, hub, prefix string, in, out int) {
	for i := 0; i < in; i++ {
		addEdge(g, fmt.Sprintf("%s_in%d", prefix, i), hub)
	}
	for i := 0; i < out; i++ {
		addEdge(g, hub, fmt.Sprintf("%s_out%d", prefix, i))
	}
}

func TestTag(t *testing.T) {
	tests := []struct {
		name      string
		in, out   int
		wantTag   string
		wantColor string
	}{
		{name: "dispenser", in: 1, out: 6, wantTag: TagDispenser, wantColor: ColorDispenser},
		{name: "dispenser at in limit", in: 2, out: 6, wantTag: TagDispenser, wantColor: ColorDispenser},
		{name: "out at threshold", in: 0, out: 5},
		{name: "collector", in: 6, out: 2, wantTag: TagCollector, wantColor: ColorCollector},
		{name: "high activity", in: 11, out: 11, wantTag: TagHighActivity, wantColor: ColorHighActivity},
		{name: "busy but below mixer threshold", in: 10, out: 11},
		{name: "quiet", in: 3, out: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			star(g, "hub", "n", tt.in, tt.out)

			Tag(g)

			hub := g.Node("hub")
			require.NotNil(t, hub)
			assert.Equal(t, tt.wantTag, hub.Tag)
			assert.Equal(t, tt.wantColor, hub.Color)
		})
	}
}

func TestDetectPatterns(t *testing.T) {
	g := graph.New()
	star(g, "dispenser", "d", 1, 7)
	star(g, "collector", "c", 8, 0)
	star(g, "mixer", "m", 12, 12)

	patterns := DetectPatterns(g)

	assert.Equal(t, []string{"dispenser"}, patterns[PatternFanOut])
	assert.Equal(t, []string{"collector"}, patterns[PatternFanIn])
	assert.Equal(t, []string{"mixer"}, patterns[PatternBridgeMixer])

	// detection alone does not annotate
	assert.Empty(t, g.Node("dispenser").Tag)
}

func TestTag_LaterRuleWins(t *testing.T) {
	saved := Rules
	t.Cleanup(func() { Rules = saved })

	Rules = []Rule{
		{Pattern: PatternFanOut, Tag: TagDispenser, Color: ColorDispenser, Match: func(in, out int) bool { return out > 0 }},
		{Pattern: PatternBridgeMixer, Tag: TagHighActivity, Color: ColorHighActivity, Match: func(in, out int) bool { return out > 1 }},
	}

	g := graph.New()
	star(g, "hub", "n", 0, 2)
	patterns := Tag(g)

	assert.Equal(t, []string{"hub"}, patterns[PatternFanOut])
	assert.Equal(t, TagHighActivity, g.Node("hub").Tag)
	assert.Equal(t, ColorHighActivity, g.Node("hub").Color)
}

func TestTag_EmptyGraph(t *testing.T) {
	g := graph.New()

	patterns := Tag(g)

	assert.Zero(t, g.NodeCount())
	for _, r := range Rules {
		assert.NotNil(t, patterns[r.Pattern])
		assert.Empty(t, patterns[r.Pattern])
	}
}

func TestTag_LeavesOthersUntagged(t *testing.T) {
	g := graph.New()
	star(g, "hub", "n", 0, 6)

	Tag(g)

	for _, n := range g.Nodes() {
		if n.ID == "hub" {
			continue
		}
		assert.Empty(t, n.Tag, n.ID)
		assert.Empty(t, n.Color, n.ID)
	}
}
