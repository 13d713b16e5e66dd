package model

import "fmt"

// Itinerary is the ordered stop sequence assigned to one vehicle.
type Itinerary []Stop

// Solution maps every vehicle to its itinerary (possibly empty). Solutions
// are replaced wholesale on edit, never mutated in place, so cached results
// can be diffed by content.
type Solution map[VehicleID]Itinerary

// WithInsertion returns a new itinerary with the rider's pickup inserted at
// pickupIdx and its dropoff inserted so it ends up immediately after
// position dropoffIdx of the original sequence. pickupIdx <= dropoffIdx
// keeps pickup-before-dropoff by construction. The receiver is not mutated.
func (it Itinerary) WithInsertion(r RiderID, pickupIdx, dropoffIdx int) Itinerary {
	out := make(Itinerary, 0, len(it)+2)
	out = append(out, it[:pickupIdx]...)
	out = append(out, Stop{RiderID: r, Kind: StopPickup})
	out = append(out, it[pickupIdx:dropoffIdx]...)
	out = append(out, Stop{RiderID: r, Kind: StopDropoff})
	out = append(out, it[dropoffIdx:]...)
	return out
}

// WithoutRider returns a new itinerary with both of the rider's stops removed.
func (it Itinerary) WithoutRider(r RiderID) Itinerary {
	out := make(Itinerary, 0, len(it))
	for _, s := range it {
		if s.RiderID != r {
			out = append(out, s)
		}
	}
	return out
}

// Key is a deterministic serialization of the stop sequence, used as a
// content hash for incremental re-simulation.
func (it Itinerary) Key() string {
	b := make([]byte, 0, len(it)*12)
	for _, s := range it {
		b = append(b, string(s.RiderID)...)
		if s.Kind == StopPickup {
			b = append(b, '+')
		} else {
			b = append(b, '-')
		}
		b = append(b, ';')
	}
	return string(b)
}

// EmptySolution builds a solution with an empty itinerary per vehicle.
func EmptySolution(vehicles []Vehicle) Solution {
	s := make(Solution, len(vehicles))
	for _, v := range vehicles {
		s[v.ID] = Itinerary{}
	}
	return s
}

// Clone deep-copies the solution so the original can keep serving as an
// immutable cache key.
func (s Solution) Clone() Solution {
	out := make(Solution, len(s))
	for vid, it := range s {
		out[vid] = append(Itinerary{}, it...)
	}
	return out
}

// AssignedRiders returns the set of riders with a pickup stop anywhere in
// the solution.
func (s Solution) AssignedRiders() map[RiderID]bool {
	out := map[RiderID]bool{}
	for _, it := range s {
		for _, st := range it {
			if st.Kind == StopPickup {
				out[st.RiderID] = true
			}
		}
	}
	return out
}

// VehicleOf returns the vehicle whose itinerary contains the rider.
func (s Solution) VehicleOf(r RiderID) (VehicleID, bool) {
	for vid, it := range s {
		for _, st := range it {
			if st.RiderID == r {
				return vid, true
			}
		}
	}
	return "", false
}

// Validate checks the structural invariants every mutator must preserve:
// each rider's pickup precedes its dropoff, stops pair up, and a rider
// appears in at most one vehicle's itinerary.
func (s Solution) Validate() error {
	seen := map[RiderID]VehicleID{}
	for vid, it := range s {
		open := map[RiderID]bool{}
		for _, st := range it {
			switch st.Kind {
			case StopPickup:
				if prev, dup := seen[st.RiderID]; dup {
					return fmt.Errorf("rider %q appears in vehicles %q and %q", st.RiderID, prev, vid)
				}
				seen[st.RiderID] = vid
				open[st.RiderID] = true
			case StopDropoff:
				if !open[st.RiderID] {
					return fmt.Errorf("vehicle %q: dropoff for rider %q before its pickup", vid, st.RiderID)
				}
				delete(open, st.RiderID)
			}
		}
		for r := range open {
			return fmt.Errorf("vehicle %q: rider %q picked up but never dropped off", vid, r)
		}
	}
	return nil
}
