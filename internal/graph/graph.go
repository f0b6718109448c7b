// Package graph holds the directed transfer graph produced for one analysis:
// one node per address identity and one aggregated edge per ordered
// (sender, recipient) pair.
package graph

import (
	"math/big"
	"sort"
	"time"
)

// NodeTypeAddress is the type marker every node carries, sentinels included.
const NodeTypeAddress = "address"

// Node is an address identity with the annotations added after aggregation.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Tag   string `json:"tag,omitempty"`
	Color string `json:"color,omitempty"`
}

// Edge aggregates every transfer from Source to Target.
type Edge struct {
	Source     string
	Target     string
	Count      int
	TotalValue *big.Int
	HumanValue float64
	FirstSeen  time.Time
	LastSeen   time.Time
	TxHashes   []string
	Weight     float64
	Width      float64
	Label      string
	Title      string
}

type edgeKey struct {
	source string
	target string
}

// Graph is a directed graph with at most one edge per ordered pair.
// It is not safe for concurrent mutation.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges map[edgeKey]*Edge
	in    map[string]int
	out   map[string]int
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
		in:    make(map[string]int),
		out:   make(map[string]int),
	}
}

// AddNode returns the node for id, creating it on first appearance.
func (g *Graph) AddNode(id string) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Type: NodeTypeAddress}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddEdge inserts e, replacing any edge with the same endpoints. Both
// endpoints become nodes.
func (g *Graph) AddEdge(e *Edge) {
	g.AddNode(e.Source)
	g.AddNode(e.Target)

	k := edgeKey{e.Source, e.Target}
	if _, ok := g.edges[k]; !ok {
		g.out[e.Source]++
		g.in[e.Target]++
	}
	g.edges[k] = e
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Edge returns the edge from source to target, or nil.
func (g *Graph) Edge(source, target string) *Edge {
	return g.edges[edgeKey{source, target}]
}

func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edges[edgeKey{source, target}]
	return ok
}

// Nodes returns the nodes in first-appearance order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns the edges sorted by (source, target).
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// InDegree counts distinct senders into id. A self-transfer counts once
// towards both in and out degree.
func (g *Graph) InDegree(id string) int { return g.in[id] }

func (g *Graph) OutDegree(id string) int { return g.out[id] }

// Degree is in-degree plus out-degree.
func (g *Graph) Degree(id string) int { return g.in[id] + g.out[id] }
