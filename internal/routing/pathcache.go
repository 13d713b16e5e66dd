package routing

import (
	"math"

	"ridenav/internal/model"
)

type pairKey struct {
	from, to model.NodeID
}

type cacheEntry struct {
	path  Path
	found bool
}

// PathCache memoizes pathfinder results for one road graph. Keys are ordered
// (from, to) pairs; costs are symmetric so both directions agree, they are
// just cached independently. No eviction: the cache lives as long as its
// graph and must be discarded with it. Single-owner access only: callers
// sharing a cache across goroutines must serialize around it.
type PathCache struct {
	graph  *model.RoadGraph
	paths  map[pairKey]cacheEntry
	hits   int64
	misses int64
}

// NewPathCache wraps a fixed road graph.
func NewPathCache(g *model.RoadGraph) *PathCache {
	return &PathCache{graph: g, paths: map[pairKey]cacheEntry{}}
}

// Path returns the memoized shortest path from a to b, searching on first
// use. Unreachable or unknown pairs return false; the negative outcome is
// cached too.
func (c *PathCache) Path(from, to model.NodeID) (Path, bool) {
	key := pairKey{from, to}
	if e, ok := c.paths[key]; ok {
		c.hits++
		return e.path, e.found
	}
	c.misses++
	p, found := FindPath(c.graph, from, to)
	c.paths[key] = cacheEntry{path: p, found: found}
	return p, found
}

// TravelTime returns the shortest travel time in minutes, or +Inf when the
// pair is unreachable. The sentinel propagates through additive cost
// arithmetic so callers need no branching.
func (c *PathCache) TravelTime(from, to model.NodeID) float64 {
	p, ok := c.Path(from, to)
	if !ok {
		return math.Inf(1)
	}
	return p.Cost
}

// Clear drops every memoized entry. Required when the graph is replaced.
func (c *PathCache) Clear() {
	c.paths = map[pairKey]cacheEntry{}
}

// Stats reports cache hits and misses since construction. Each miss is one
// pathfinder invocation.
func (c *PathCache) Stats() (hits, misses int64) { return c.hits, c.misses }
