package opt

import (
	"math/rand"
	"testing"

	"ridenav/internal/model"
	"ridenav/internal/sim"
)

// TestImproveNeverWorsens runs the relocation pass on random greedy outputs
// and checks the fleet score never goes up and no rider gets dropped.
func TestImproveNeverWorsens(t *testing.T) {
	for seed := int64(100); seed < 120; seed++ {
		p, paths := randomProblem(t, rand.New(rand.NewSource(seed)))
		sol := GenerateSolution(p, paths)
		before := fleetCost(p, paths, sol)

		improved := Improve(p, paths, sol)
		if err := improved.Validate(); err != nil {
			t.Fatalf("seed %d: improve broke the solution: %v", seed, err)
		}
		after := fleetCost(p, paths, improved)
		if after > before+1e-9 {
			t.Fatalf("seed %d: improve worsened cost %v -> %v", seed, before, after)
		}
		if got, want := len(improved.AssignedRiders()), len(sol.AssignedRiders()); got != want {
			t.Fatalf("seed %d: improve changed assignment count %d -> %d", seed, want, got)
		}
	}
}

// TestImproveRelocates sets up a plan where the greedy order strands a rider
// on a distant vehicle and checks the relocation pass moves it.
func TestImproveRelocates(t *testing.T) {
	vehicles := []model.Vehicle{
		{ID: "near", Seats: 4, EndTime: 10_000, StartNode: gridNode(0, 0), EndNode: gridNode(0, 0)},
		{ID: "far", Seats: 4, EndTime: 10_000, StartNode: gridNode(3, 3), EndNode: gridNode(3, 3)},
	}
	riders := []model.Rider{
		{ID: "r1", PickupNode: gridNode(0, 1), DropoffNode: gridNode(0, 2)},
	}
	p, paths := gridProblem(t, vehicles, riders)

	// hand-build the bad assignment: the distant vehicle carries the rider
	bad := model.Solution{
		"near": model.Itinerary{},
		"far": model.Itinerary{
			{RiderID: "r1", Kind: model.StopPickup},
			{RiderID: "r1", Kind: model.StopDropoff},
		},
	}
	improved := Improve(p, paths, bad)
	if vid, _ := improved.VehicleOf("r1"); vid != "near" {
		t.Fatalf("rider should move to the nearby vehicle, still on %s", vid)
	}
	if fleetCost(p, paths, improved) >= fleetCost(p, paths, bad) {
		t.Fatal("relocation should strictly lower the fleet cost")
	}
}

func TestImproveDoesNotMutateInput(t *testing.T) {
	p, paths := randomProblem(t, rand.New(rand.NewSource(3)))
	sol := GenerateSolution(p, paths)
	key := map[model.VehicleID]string{}
	for vid, it := range sol {
		key[vid] = it.Key()
	}

	Improve(p, paths, sol)
	for vid, it := range sol {
		if it.Key() != key[vid] {
			t.Fatalf("input solution mutated for vehicle %s", vid)
		}
	}
	// sanity: the untouched input still simulates
	if res := sim.Simulate(p, sol, paths); res.Vehicles == nil {
		t.Fatal("simulate returned nil vehicles")
	}
}
