// Package sim turns an ordered stop sequence per vehicle into arrival and
// departure times, lateness penalties and a fleet-wide score.
package sim

import (
	"ridenav/internal/model"
	"ridenav/internal/routing"
)

// UnassignedRiderPenalty is charged per rider left without a pickup stop.
// It dwarfs any plausible lateness sum so the score strictly prioritizes
// full assignment over minimizing lateness.
const UnassignedRiderPenalty = 1_000_000.0

// Simulate replays every vehicle's itinerary and aggregates the fleet score.
// It is deterministic: the same problem and solution always produce the same
// result. Capacity is not checked here, the solver enforces it during
// candidate generation; this is purely a timing and penalty function.
func Simulate(p *model.Problem, sol model.Solution, paths *routing.PathCache) model.SimulationResult {
	res := model.SimulationResult{
		Vehicles:   make(map[model.VehicleID]model.VehicleResult, len(p.Vehicles)),
		Unassigned: []model.RiderID{},
	}
	for _, v := range p.Vehicles {
		vr := SimulateVehicle(p, v, sol[v.ID], paths)
		res.Vehicles[v.ID] = vr
		res.TotalLateness += vr.TotalLateness
	}
	assigned := sol.AssignedRiders()
	for _, r := range p.Riders {
		if !assigned[r.ID] {
			res.Unassigned = append(res.Unassigned, r.ID)
		}
	}
	res.UnassignedPenalty = float64(len(res.Unassigned)) * UnassignedRiderPenalty
	res.TotalScore = res.TotalLateness + res.UnassignedPenalty
	return res
}

// SimulateVehicle walks one itinerary stop by stop, carrying the vehicle's
// position and clock forward, then sends it home to its end depot.
func SimulateVehicle(p *model.Problem, v model.Vehicle, it model.Itinerary, paths *routing.PathCache) model.VehicleResult {
	vr := model.VehicleResult{Stops: make([]model.SimulatedStop, 0, len(it))}
	currentNode := v.StartNode
	currentTime := v.StartTime
	pickedUpAt := map[model.RiderID]float64{}

	for _, stop := range it {
		rider, ok := p.Rider(stop.RiderID)
		if !ok {
			// Itineraries referencing unknown riders violate the data
			// contract; skip the stop rather than invent timings for it.
			continue
		}
		target := rider.PickupNode
		window := rider.PickupWindow
		if stop.Kind == model.StopDropoff {
			target = rider.DropoffNode
			window = rider.DropoffWindow
		}

		travel := paths.TravelTime(currentNode, target)
		arrival := currentTime + travel

		ss := model.SimulatedStop{Stop: stop, ArrivalTime: arrival}

		// Ride-time check uses the raw dropoff arrival, before any window
		// wait below is applied.
		if stop.Kind == model.StopDropoff && rider.MaxTimeInVehicle > 0 {
			if dep, picked := pickedUpAt[stop.RiderID]; picked {
				if over := (arrival - dep) - rider.MaxTimeInVehicle; over > 0 {
					ss.OverMaxRide = over
					vr.TotalLateness += over
				}
			}
		}

		serviceStart := arrival
		if window != nil && arrival < window.Earliest {
			ss.MinutesEarly = window.Earliest - arrival // never penalized
			serviceStart = window.Earliest
		}
		if window != nil && serviceStart > window.Latest {
			ss.MinutesLate = serviceStart - window.Latest
			vr.TotalLateness += ss.MinutesLate
		}
		ss.ServiceStart = serviceStart
		ss.DepartureTime = serviceStart + rider.Accessibility.BoardingTime

		if stop.Kind == model.StopPickup {
			pickedUpAt[stop.RiderID] = ss.DepartureTime
		}

		vr.Stops = append(vr.Stops, ss)
		currentNode = target
		currentTime = ss.DepartureTime
	}

	vr.EndArrival = currentTime + paths.TravelTime(currentNode, v.EndNode)
	if vr.EndArrival > v.EndTime {
		vr.EndLate = vr.EndArrival - v.EndTime
		vr.TotalLateness += vr.EndLate
	}
	vr.ElapsedTime = vr.EndArrival - v.StartTime
	return vr
}
