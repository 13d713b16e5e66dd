package model

import "fmt"

// GraphData is the serialisable input form of a road graph.
type GraphData struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// RoadGraph is an immutable road network: nodes, undirected weighted edges
// and a symmetric adjacency mapping. Build one per problem instance and do
// not mutate it afterwards; path caches are scoped to a single graph.
type RoadGraph struct {
	nodes    map[NodeID]Node
	edges    map[EdgeID]Edge
	adjacent map[NodeID][]EdgeID
	order    []NodeID // insertion order, for deterministic iteration
}

// NewRoadGraph validates and indexes the graph. Dangling edge endpoints,
// duplicate identifiers and negative travel times are construction errors:
// a scoring engine must refuse malformed input rather than mis-score it.
func NewRoadGraph(data GraphData) (*RoadGraph, error) {
	g := &RoadGraph{
		nodes:    make(map[NodeID]Node, len(data.Nodes)),
		edges:    make(map[EdgeID]Edge, len(data.Edges)),
		adjacent: make(map[NodeID][]EdgeID, len(data.Nodes)),
	}
	for _, n := range data.Nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %q already exists", n.ID)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	for _, e := range data.Edges {
		if _, dup := g.edges[e.ID]; dup {
			return nil, fmt.Errorf("edge %q already exists", e.ID)
		}
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("edge %q: endpoint %q not found", e.ID, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("edge %q: endpoint %q not found", e.ID, e.To)
		}
		if e.TravelTime < 0 {
			return nil, fmt.Errorf("edge %q: negative travel time %v", e.ID, e.TravelTime)
		}
		g.edges[e.ID] = e
		g.adjacent[e.From] = append(g.adjacent[e.From], e.ID)
		if e.To != e.From {
			g.adjacent[e.To] = append(g.adjacent[e.To], e.ID)
		}
	}
	return g, nil
}

// Node looks up a node by ID.
func (g *RoadGraph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge looks up an edge by ID.
func (g *RoadGraph) Edge(id EdgeID) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Adjacent returns the identities of all edges incident to the node.
func (g *RoadGraph) Adjacent(id NodeID) []EdgeID { return g.adjacent[id] }

// NodeIDs returns all node identities in insertion order.
func (g *RoadGraph) NodeIDs() []NodeID { return g.order }

// NumNodes reports the node count.
func (g *RoadGraph) NumNodes() int { return len(g.nodes) }
