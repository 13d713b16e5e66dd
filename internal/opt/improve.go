package opt

import (
	"math"

	"ridenav/internal/model"
	"ridenav/internal/routing"
	"ridenav/internal/sim"
)

// maxImprovePasses bounds the relocation loop; each pass is
// O(riders x vehicles x itinerary_length^2) simulations.
const maxImprovePasses = 3

// Improve relocates riders one at a time to their cheapest feasible position
// anywhere in the fleet, keeping a move only when the fleet score drops. It
// never unassigns a rider and stops at the first pass with no improvement.
func Improve(p *model.Problem, paths *routing.PathCache, sol model.Solution) model.Solution {
	out, _ := improve(p, paths, sol)
	return out
}

func improve(p *model.Problem, paths *routing.PathCache, sol model.Solution) (model.Solution, int) {
	sol = sol.Clone()
	bestScore := fleetCost(p, paths, sol)
	passes := 0
	for ; passes < maxImprovePasses; passes++ {
		improved := false
		for _, rider := range p.Riders {
			from, assigned := sol.VehicleOf(rider.ID)
			if !assigned {
				continue
			}
			removed := sol[from].WithoutRider(rider.ID)

			best := candidate{cost: math.Inf(1)}
			for _, v := range p.Vehicles {
				if rider.Accessibility.NeedsWheelchair && v.WheelchairCapacity == 0 {
					continue
				}
				it := sol[v.ID]
				if v.ID == from {
					it = removed
				}
				if c, ok := bestInsertion(p, paths, v, it, rider, nil); ok && c.cost < best.cost {
					best = c
					best.vehicle = v.ID
				}
			}
			if best.vehicle == "" {
				continue
			}

			trial := sol.Clone()
			trial[from] = removed
			trial[best.vehicle] = trial[best.vehicle].WithInsertion(rider.ID, best.pickupIdx, best.dropoffIdx)
			if score := fleetCost(p, paths, trial); score+1e-9 < bestScore {
				sol = trial
				bestScore = score
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return sol, passes
}

// fleetCost scores a whole solution with the same weighting the insertion
// search uses, so construction and improvement optimize the same objective.
func fleetCost(p *model.Problem, paths *routing.PathCache, sol model.Solution) float64 {
	res := sim.Simulate(p, sol, paths)
	total := res.UnassignedPenalty
	for _, vr := range res.Vehicles {
		total += latenessWeight*vr.TotalLateness + timeWeight*vr.ElapsedTime
	}
	return total
}
