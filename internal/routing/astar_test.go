package routing

import (
	"math"
	"testing"

	"ridenav/internal/model"
)

// gridGraph builds a w x h grid with unit coordinates. Horizontal edges cost
// hCost, vertical edges cost vCost. Node IDs are "x,y".
func gridGraph(t *testing.T, w, h int, hCost, vCost float64) *model.RoadGraph {
	t.Helper()
	data := model.GraphData{}
	id := func(x, y int) model.NodeID {
		return model.NodeID(string(rune('a'+x)) + string(rune('0'+y)))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data.Nodes = append(data.Nodes, model.Node{ID: id(x, y), X: float64(x), Y: float64(y)})
		}
	}
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w {
				n++
				data.Edges = append(data.Edges, model.Edge{ID: model.EdgeID(string(rune('A' + n))), From: id(x, y), To: id(x+1, y), TravelTime: hCost})
			}
			if y+1 < h {
				n++
				data.Edges = append(data.Edges, model.Edge{ID: model.EdgeID(string(rune('A' + n))), From: id(x, y), To: id(x, y+1), TravelTime: vCost})
			}
		}
	}
	g, err := model.NewRoadGraph(data)
	if err != nil {
		t.Fatalf("grid graph: %v", err)
	}
	return g
}

func lineGraph(t *testing.T, costs ...float64) *model.RoadGraph {
	t.Helper()
	data := model.GraphData{Nodes: []model.Node{{ID: "n0", X: 0, Y: 0}}}
	for i, c := range costs {
		data.Nodes = append(data.Nodes, model.Node{ID: model.NodeID("n" + string(rune('1'+i))), X: float64(i + 1), Y: 0})
		data.Edges = append(data.Edges, model.Edge{
			ID:         model.EdgeID("e" + string(rune('1'+i))),
			From:       model.NodeID("n" + string(rune('0'+i))),
			To:         model.NodeID("n" + string(rune('1'+i))),
			TravelTime: c,
		})
	}
	g, err := model.NewRoadGraph(data)
	if err != nil {
		t.Fatalf("line graph: %v", err)
	}
	return g
}

func TestFindPathSameNode(t *testing.T) {
	g := lineGraph(t, 5)
	p, ok := FindPath(g, "n0", "n0")
	if !ok {
		t.Fatal("expected path")
	}
	if len(p.Nodes) != 1 || p.Nodes[0] != "n0" || p.Cost != 0 {
		t.Fatalf("want single-node zero-cost path, got %+v", p)
	}
}

func TestFindPathUnknownNode(t *testing.T) {
	g := lineGraph(t, 5)
	if _, ok := FindPath(g, "n0", "missing"); ok {
		t.Fatal("unknown goal should not be found")
	}
	if _, ok := FindPath(g, "missing", "n0"); ok {
		t.Fatal("unknown start should not be found")
	}
}

func TestFindPathUnreachable(t *testing.T) {
	data := model.GraphData{Nodes: []model.Node{{ID: "a"}, {ID: "b", X: 1}}}
	g, err := model.NewRoadGraph(data)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if _, ok := FindPath(g, "a", "b"); ok {
		t.Fatal("disconnected pair should not be found")
	}
}

func TestFindPathCostMatchesEdges(t *testing.T) {
	g := lineGraph(t, 2, 3, 4)
	p, ok := FindPath(g, "n0", "n3")
	if !ok {
		t.Fatal("expected path")
	}
	if p.Cost != 9 {
		t.Fatalf("cost: want 9, got %v", p.Cost)
	}
	// accumulated edge costs along the returned node sequence must equal Cost
	sum := 0.0
	for i := 0; i+1 < len(p.Nodes); i++ {
		sum += edgeCostBetween(t, g, p.Nodes[i], p.Nodes[i+1])
	}
	if sum != p.Cost {
		t.Fatalf("accumulated %v != reported %v", sum, p.Cost)
	}
	if p.Nodes[0] != "n0" || p.Nodes[len(p.Nodes)-1] != "n3" {
		t.Fatalf("path endpoints wrong: %v", p.Nodes)
	}
}

func edgeCostBetween(t *testing.T, g *model.RoadGraph, a, b model.NodeID) float64 {
	t.Helper()
	for _, eid := range g.Adjacent(a) {
		e, _ := g.Edge(eid)
		if other, _ := e.Other(a); other == b {
			return e.TravelTime
		}
	}
	t.Fatalf("no edge between %s and %s", a, b)
	return 0
}

// TestFindPathOptimal brute-forces all simple paths on a small grid and
// checks A* never returns a costlier route.
func TestFindPathOptimal(t *testing.T) {
	g := gridGraph(t, 3, 3, 2, 7) // asymmetric costs make detours tempting
	ids := g.NodeIDs()
	for _, from := range ids {
		for _, to := range ids {
			got, ok := FindPath(g, from, to)
			if !ok {
				t.Fatalf("no path %s -> %s", from, to)
			}
			want := bruteForceCost(g, from, to)
			if math.Abs(got.Cost-want) > 1e-9 {
				t.Fatalf("%s -> %s: a* cost %v, brute force %v", from, to, got.Cost, want)
			}
		}
	}
}

func bruteForceCost(g *model.RoadGraph, from, to model.NodeID) float64 {
	best := math.Inf(1)
	visited := map[model.NodeID]bool{}
	var dfs func(at model.NodeID, cost float64)
	dfs = func(at model.NodeID, cost float64) {
		if cost >= best {
			return
		}
		if at == to {
			best = cost
			return
		}
		visited[at] = true
		for _, eid := range g.Adjacent(at) {
			e, _ := g.Edge(eid)
			next, _ := e.Other(at)
			if !visited[next] {
				dfs(next, cost+e.TravelTime)
			}
		}
		visited[at] = false
	}
	dfs(from, 0)
	return best
}

func TestFindPathDeterministic(t *testing.T) {
	g := gridGraph(t, 3, 3, 1, 1)
	first, ok := FindPath(g, "a0", "c2")
	if !ok {
		t.Fatal("expected path")
	}
	for i := 0; i < 5; i++ {
		again, _ := FindPath(g, "a0", "c2")
		if len(again.Nodes) != len(first.Nodes) || again.Cost != first.Cost {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
		for j := range again.Nodes {
			if again.Nodes[j] != first.Nodes[j] {
				t.Fatalf("run %d node %d differs: %v vs %v", i, j, again.Nodes, first.Nodes)
			}
		}
	}
}
