// Package analysis annotates transfer graphs with structural risk tags.
package analysis

import (
	"log/slog"

	"github.com/vietddude/chaintrace/internal/graph"
	"github.com/vietddude/chaintrace/internal/metrics"
)

type Pattern string

const (
	PatternFanOut      Pattern = "fan_out"
	PatternFanIn       Pattern = "fan_in"
	PatternBridgeMixer Pattern = "bridge/mixer"
)

const (
	TagDispenser    = "Dispenser"
	TagCollector    = "Collector"
	TagHighActivity = "High Activity"

	ColorDispenser    = "#FF9900"
	ColorCollector    = "#00CCFF"
	ColorHighActivity = "#FF0000"
)

// Rule is one degree heuristic and the annotation it applies.
type Rule struct {
	Pattern Pattern
	Tag     string
	Color   string
	Match   func(in, out int) bool
}

// Rules are evaluated and applied in this order; a later match overwrites
// an earlier tag on the same node.
var Rules = []Rule{
	{
		Pattern: PatternFanOut,
		Tag:     TagDispenser,
		Color:   ColorDispenser,
		Match:   func(in, out int) bool { return out > 5 && in <= 2 },
	},
	{
		Pattern: PatternFanIn,
		Tag:     TagCollector,
		Color:   ColorCollector,
		Match:   func(in, out int) bool { return in > 5 && out <= 2 },
	},
	{
		Pattern: PatternBridgeMixer,
		Tag:     TagHighActivity,
		Color:   ColorHighActivity,
		Match:   func(in, out int) bool { return in > 10 && out > 10 },
	},
}

// Patterns maps each pattern to the matching node IDs in graph node order.
type Patterns map[Pattern][]string

// DetectPatterns evaluates every rule against every node independently.
// All patterns are present in the result, possibly with empty lists.
func DetectPatterns(g *graph.Graph) Patterns {
	patterns := make(Patterns, len(Rules))
	for _, r := range Rules {
		patterns[r.Pattern] = make([]string, 0)
	}

	for _, n := range g.Nodes() {
		in, out := g.InDegree(n.ID), g.OutDegree(n.ID)
		for _, r := range Rules {
			if r.Match(in, out) {
				patterns[r.Pattern] = append(patterns[r.Pattern], n.ID)
			}
		}
	}
	return patterns
}

// Tag annotates the matching nodes of g in place and returns the detected patterns.
func Tag(g *graph.Graph) Patterns {
	patterns := DetectPatterns(g)

	for _, r := range Rules {
		for _, id := range patterns[r.Pattern] {
			n := g.Node(id)
			n.Tag = r.Tag
			n.Color = r.Color
		}
		if len(patterns[r.Pattern]) > 0 {
			metrics.TagsApplied.WithLabelValues(r.Tag).Add(float64(len(patterns[r.Pattern])))
			slog.Debug("tagged nodes", "pattern", r.Pattern, "count", len(patterns[r.Pattern]))
		}
	}
	return patterns
}
