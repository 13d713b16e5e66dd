package sim

import (
	"ridenav/internal/model"
	"ridenav/internal/routing"
)

// SimulationCache memoizes per-vehicle simulation results keyed by a content
// hash of each itinerary. The dirtiness policy is deliberately conservative:
// if any vehicle's itinerary changed since the last call, the whole problem
// is re-simulated and every entry refreshed. Only a fully clean solution is
// served from cache, by rebuilding the aggregate from stored per-vehicle
// results. Single-owner access, like PathCache.
type SimulationCache struct {
	problem *model.Problem
	paths   *routing.PathCache
	keys    map[model.VehicleID]string
	results map[model.VehicleID]model.VehicleResult
}

// NewSimulationCache scopes a cache to one problem. Discard and rebuild it
// if the problem changes.
func NewSimulationCache(p *model.Problem, paths *routing.PathCache) *SimulationCache {
	return &SimulationCache{
		problem: p,
		paths:   paths,
		keys:    map[model.VehicleID]string{},
		results: map[model.VehicleID]model.VehicleResult{},
	}
}

// Simulate returns the same result a fresh Simulate call would, reusing
// cached per-vehicle results when nothing changed.
func (c *SimulationCache) Simulate(sol model.Solution) model.SimulationResult {
	dirty := false
	for _, v := range c.problem.Vehicles {
		key := sol[v.ID].Key()
		if prev, ok := c.keys[v.ID]; !ok || prev != key {
			dirty = true
			break
		}
	}
	if dirty {
		res := Simulate(c.problem, sol, c.paths)
		for _, v := range c.problem.Vehicles {
			c.keys[v.ID] = sol[v.ID].Key()
			c.results[v.ID] = res.Vehicles[v.ID]
		}
		return res
	}
	return c.aggregate(sol)
}

// aggregate rebuilds the fleet result purely from cached vehicle results.
func (c *SimulationCache) aggregate(sol model.Solution) model.SimulationResult {
	res := model.SimulationResult{
		Vehicles:   make(map[model.VehicleID]model.VehicleResult, len(c.results)),
		Unassigned: []model.RiderID{},
	}
	for _, v := range c.problem.Vehicles {
		vr := c.results[v.ID]
		res.Vehicles[v.ID] = vr
		res.TotalLateness += vr.TotalLateness
	}
	assigned := sol.AssignedRiders()
	for _, r := range c.problem.Riders {
		if !assigned[r.ID] {
			res.Unassigned = append(res.Unassigned, r.ID)
		}
	}
	res.UnassignedPenalty = float64(len(res.Unassigned)) * UnassignedRiderPenalty
	res.TotalScore = res.TotalLateness + res.UnassignedPenalty
	return res
}

// Clear drops all cached entries; the next Simulate does full work.
func (c *SimulationCache) Clear() {
	c.keys = map[model.VehicleID]string{}
	c.results = map[model.VehicleID]model.VehicleResult{}
}
