// Package routing implements shortest-time pathfinding over a road graph
// and the per-graph memoization layer the simulator and solver lean on.
package routing

import (
	"container/heap"
	"math"

	"ridenav/internal/model"
)

// heuristicScale keeps the straight-line estimate admissible on the
// grid-like graphs this engine targets. Raising it risks non-optimal paths.
const heuristicScale = 0.5

// Path is an ordered node sequence with its total travel time in minutes.
type Path struct {
	Nodes []model.NodeID `json:"nodes"`
	Cost  float64        `json:"cost"`
}

// FindPath runs A* from start to end. It returns false when either node is
// absent or the goal is unreachable; absence is an expected outcome, not an
// error. Edges are traversed symmetrically with symmetric cost.
func FindPath(g *model.RoadGraph, start, end model.NodeID) (Path, bool) {
	if _, ok := g.Node(start); !ok {
		return Path{}, false
	}
	endNode, ok := g.Node(end)
	if !ok {
		return Path{}, false
	}
	if start == end {
		return Path{Nodes: []model.NodeID{start}, Cost: 0}, true
	}

	h := func(id model.NodeID) float64 {
		n, _ := g.Node(id)
		dx := n.X - endNode.X
		dy := n.Y - endNode.Y
		return math.Sqrt(dx*dx+dy*dy) * heuristicScale
	}

	gScore := map[model.NodeID]float64{start: 0}
	cameFrom := map[model.NodeID]model.NodeID{}
	closed := map[model.NodeID]bool{}

	pq := &frontier{}
	heap.Init(pq)
	heap.Push(pq, &frontierItem{node: start, priority: h(start)})

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*frontierItem).node
		if current == end {
			return Path{Nodes: reconstruct(cameFrom, current), Cost: gScore[current]}, true
		}
		if closed[current] {
			continue
		}
		closed[current] = true
		for _, eid := range g.Adjacent(current) {
			e, _ := g.Edge(eid)
			neighbor, _ := e.Other(current)
			tentative := gScore[current] + e.TravelTime
			if old, seen := gScore[neighbor]; !seen || tentative < old {
				cameFrom[neighbor] = current
				gScore[neighbor] = tentative
				heap.Push(pq, &frontierItem{node: neighbor, priority: tentative + h(neighbor)})
			}
		}
	}
	return Path{}, false
}

func reconstruct(cameFrom map[model.NodeID]model.NodeID, current model.NodeID) []model.NodeID {
	path := []model.NodeID{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		current = prev
		path = append(path, current)
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type frontierItem struct {
	node     model.NodeID
	priority float64 // f = g + h
}

type frontier []*frontierItem

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].priority < f[j].priority }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)         { *f = append(*f, x.(*frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
