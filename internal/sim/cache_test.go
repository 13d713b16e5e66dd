package sim

import (
	"reflect"
	"testing"

	"ridenav/internal/model"
)

// TestSimulationCacheMatchesFresh edits a solution step by step and checks
// the cached simulation always agrees with a from-scratch one.
func TestSimulationCacheMatchesFresh(t *testing.T) {
	r1 := model.Rider{ID: "r1", PickupNode: "n0", DropoffNode: "n2"}
	r2 := model.Rider{ID: "r2", PickupNode: "n1", DropoffNode: "n3",
		PickupWindow: &model.TimeWindow{Earliest: 3, Latest: 8}}
	p, paths := lineProblem(t, baseVehicle(), r1, r2)
	c := NewSimulationCache(p, paths)

	sols := []model.Solution{
		model.EmptySolution(p.Vehicles),
		{"v1": ride("r1")},
		{"v1": model.Itinerary{
			{RiderID: "r1", Kind: model.StopPickup},
			{RiderID: "r2", Kind: model.StopPickup},
			{RiderID: "r1", Kind: model.StopDropoff},
			{RiderID: "r2", Kind: model.StopDropoff},
		}},
		{"v1": ride("r2")},
	}
	for i, sol := range sols {
		got := c.Simulate(sol)
		want := Simulate(p, sol, paths)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("step %d: cached result diverged\ncached: %+v\nfresh:  %+v", i, got, want)
		}
	}
}

// TestSimulationCacheRepeatIsClean verifies the unchanged-solution path: the
// second call must be served without another pathfinder invocation yet still
// equal the first result.
func TestSimulationCacheRepeatIsClean(t *testing.T) {
	r1 := model.Rider{ID: "r1", PickupNode: "n0", DropoffNode: "n3"}
	p, paths := lineProblem(t, baseVehicle(), r1)
	c := NewSimulationCache(p, paths)
	sol := model.Solution{"v1": ride("r1")}

	first := c.Simulate(sol)
	_, missesAfterFirst := paths.Stats()
	again := c.Simulate(sol)
	_, missesAfterSecond := paths.Stats()

	if !reflect.DeepEqual(first, again) {
		t.Fatalf("repeat result differs:\n%+v\n%+v", first, again)
	}
	if missesAfterSecond != missesAfterFirst {
		t.Fatalf("clean repeat should do no routing work: misses %d -> %d", missesAfterFirst, missesAfterSecond)
	}
}

// An equivalent solution rebuilt from fresh slices must hash equal and hit
// the cache; a reordered one must not.
func TestSimulationCacheKeying(t *testing.T) {
	r1 := model.Rider{ID: "r1", PickupNode: "n0", DropoffNode: "n2"}
	r2 := model.Rider{ID: "r2", PickupNode: "n1", DropoffNode: "n3"}
	p, paths := lineProblem(t, baseVehicle(), r1, r2)
	c := NewSimulationCache(p, paths)

	a := model.Solution{"v1": model.Itinerary{
		{RiderID: "r1", Kind: model.StopPickup},
		{RiderID: "r1", Kind: model.StopDropoff},
		{RiderID: "r2", Kind: model.StopPickup},
		{RiderID: "r2", Kind: model.StopDropoff},
	}}
	c.Simulate(a)
	if got, want := c.Simulate(a.Clone()), Simulate(p, a, paths); !reflect.DeepEqual(got, want) {
		t.Fatalf("clone should read the same cached result")
	}

	reordered := model.Solution{"v1": model.Itinerary{
		{RiderID: "r2", Kind: model.StopPickup},
		{RiderID: "r2", Kind: model.StopDropoff},
		{RiderID: "r1", Kind: model.StopPickup},
		{RiderID: "r1", Kind: model.StopDropoff},
	}}
	got := c.Simulate(reordered)
	want := Simulate(p, reordered, paths)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reordered itinerary must be re-simulated:\n%+v\n%+v", got, want)
	}
}

func TestSimulationCacheClear(t *testing.T) {
	r1 := model.Rider{ID: "r1", PickupNode: "n0", DropoffNode: "n1"}
	p, paths := lineProblem(t, baseVehicle(), r1)
	c := NewSimulationCache(p, paths)
	sol := model.Solution{"v1": ride("r1")}

	before := c.Simulate(sol)
	c.Clear()
	after := c.Simulate(sol)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("clear must not change semantics:\n%+v\n%+v", before, after)
	}
}
