// Package opt builds solutions for a dial-a-ride problem. The construction
// heuristic is greedy insertion: riders are placed one at a time at their
// cheapest feasible position and never revisited. Improve offers an optional
// relocation pass behind the same contract.
package opt

import (
	"math"
	"sort"
	"time"

	"ridenav/internal/model"
	"ridenav/internal/routing"
	"ridenav/internal/sim"
)

const (
	latenessWeight = 10.0
	timeWeight     = 0.1
)

// Metrics summarizes one solver run.
type Metrics struct {
	CandidatesEvaluated int     `json:"candidatesEvaluated"`
	FeasibleCandidates  int     `json:"feasibleCandidates"`
	RidersAssigned      int     `json:"ridersAssigned"`
	RidersUnassigned    int     `json:"ridersUnassigned"`
	ImprovePasses       int     `json:"improvePasses,omitempty"`
	FinalScore          float64 `json:"finalScore"`
	DurationMs          int64   `json:"durationMs"`
}

// Options tunes a solver run. The zero value is the plain greedy pass.
type Options struct {
	Improve    bool                  // run the relocation pass after construction
	OnProgress func(done, total int) // called after each rider is processed
}

// GenerateSolution runs the greedy insertion heuristic and returns the
// resulting solution. Riders with no feasible placement are simply left
// unassigned; the simulator reports them.
func GenerateSolution(p *model.Problem, paths *routing.PathCache) model.Solution {
	sol, _ := Generate(p, paths, Options{})
	return sol
}

// Generate is GenerateSolution with options and run metrics.
func Generate(p *model.Problem, paths *routing.PathCache, opts Options) (model.Solution, Metrics) {
	start := time.Now()
	m := Metrics{}
	sol := model.EmptySolution(p.Vehicles)

	// Riders with the tightest earliest constraint go first; ties keep input
	// order. A heuristic ordering, not a correctness requirement.
	riders := append([]model.Rider{}, p.Riders...)
	sort.SliceStable(riders, func(i, j int) bool {
		return riders[i].EarliestConstraint() < riders[j].EarliestConstraint()
	})

	for done, rider := range riders {
		best := candidate{cost: math.Inf(1)}
		for _, v := range p.Vehicles {
			if rider.Accessibility.NeedsWheelchair && v.WheelchairCapacity == 0 {
				continue
			}
			c, ok := bestInsertion(p, paths, v, sol[v.ID], rider, &m)
			if ok && c.cost < best.cost {
				best = c
				best.vehicle = v.ID
			}
		}
		if best.vehicle != "" {
			sol[best.vehicle] = sol[best.vehicle].WithInsertion(rider.ID, best.pickupIdx, best.dropoffIdx)
			m.RidersAssigned++
		} else {
			m.RidersUnassigned++
		}
		if opts.OnProgress != nil {
			opts.OnProgress(done+1, len(riders))
		}
	}

	if opts.Improve {
		sol, m.ImprovePasses = improve(p, paths, sol)
	}
	m.FinalScore = sim.Simulate(p, sol, paths).TotalScore
	m.DurationMs = time.Since(start).Milliseconds()
	return sol, m
}

type candidate struct {
	vehicle    model.VehicleID
	pickupIdx  int
	dropoffIdx int
	cost       float64
}

// bestInsertion searches every (pickupIdx, dropoffIdx) pair with
// pickupIdx <= dropoffIdx in the vehicle's current itinerary. Existing stops
// are only shifted, never removed. Candidates that overload seats or
// wheelchair slots, or whose simulated cost is infinite, are infeasible.
func bestInsertion(p *model.Problem, paths *routing.PathCache, v model.Vehicle, it model.Itinerary, rider model.Rider, m *Metrics) (candidate, bool) {
	best := candidate{cost: math.Inf(1)}
	found := false
	for pi := 0; pi <= len(it); pi++ {
		for di := pi; di <= len(it); di++ {
			if m != nil {
				m.CandidatesEvaluated++
			}
			cand := it.WithInsertion(rider.ID, pi, di)
			if !capacityFeasible(p, v, cand) {
				continue
			}
			vr := sim.SimulateVehicle(p, v, cand, paths)
			cost := latenessWeight*vr.TotalLateness + timeWeight*vr.ElapsedTime
			if math.IsInf(cost, 1) {
				continue
			}
			if m != nil {
				m.FeasibleCandidates++
			}
			if cost < best.cost {
				best = candidate{pickupIdx: pi, dropoffIdx: di, cost: cost}
				found = true
			}
		}
	}
	return best, found
}

// capacityFeasible walks the itinerary tracking concurrent occupancy. At the
// moment of every pickup, seat-equivalents must fit the seat count and
// wheelchair passengers must fit the wheelchair slots.
func capacityFeasible(p *model.Problem, v model.Vehicle, it model.Itinerary) bool {
	seatEq := 0.0
	wheelchairs := 0
	for _, s := range it {
		r, ok := p.Rider(s.RiderID)
		if !ok {
			return false
		}
		if s.Kind == model.StopPickup {
			seatEq += r.Accessibility.SeatEquivalent
			if r.Accessibility.NeedsWheelchair {
				wheelchairs++
			}
			if seatEq > float64(v.Seats) || wheelchairs > v.WheelchairCapacity {
				return false
			}
		} else {
			seatEq -= r.Accessibility.SeatEquivalent
			if r.Accessibility.NeedsWheelchair {
				wheelchairs--
			}
		}
	}
	return true
}
