package model

import (
	"encoding/json"
	"fmt"
)

// Identifier types for each entity kind. Keeping them distinct prevents a
// RiderID from being handed to a function expecting a NodeID.
type (
	NodeID    string
	EdgeID    string
	VehicleID string
	RiderID   string
)

// Node is a point on the road graph. Coordinates feed the A* heuristic and
// rendering; they carry no other meaning.
type Node struct {
	ID   NodeID  `json:"id" yaml:"id"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// Edge connects two nodes. Traversal is undirected: either endpoint may act
// as "from" when walking an adjacency list. TravelTime is in minutes and
// must be non-negative.
type Edge struct {
	ID         EdgeID  `json:"id" yaml:"id"`
	From       NodeID  `json:"from" yaml:"from"`
	To         NodeID  `json:"to" yaml:"to"`
	TravelTime float64 `json:"travelTime" yaml:"travelTime"`
	Distance   float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
	RoadType   string  `json:"roadType,omitempty" yaml:"roadType,omitempty"`
}

// Other returns the endpoint opposite n, and whether n is an endpoint at all.
func (e Edge) Other(n NodeID) (NodeID, bool) {
	switch n {
	case e.From:
		return e.To, true
	case e.To:
		return e.From, true
	}
	return "", false
}

// TimeWindow bounds a service time in minutes from midnight.
// Earliest <= Latest is assumed, not checked.
type TimeWindow struct {
	Earliest float64 `json:"earliest" yaml:"earliest"`
	Latest   float64 `json:"latest" yaml:"latest"`
}

// Vehicle describes one fleet member. Times are minutes from midnight.
type Vehicle struct {
	ID                 VehicleID `json:"id" yaml:"id"`
	Seats              int       `json:"seats" yaml:"seats"`
	WheelchairCapacity int       `json:"wheelchairCapacity" yaml:"wheelchairCapacity"`
	StartTime          float64   `json:"startTime" yaml:"startTime"`
	EndTime            float64   `json:"endTime" yaml:"endTime"`
	StartNode          NodeID    `json:"startNode" yaml:"startNode"`
	EndNode            NodeID    `json:"endNode" yaml:"endNode"`
}

// Accessibility captures how a rider occupies and boards a vehicle.
// SeatEquivalent is 1.0 for ambulatory riders and 1.5 for wheelchair users.
type Accessibility struct {
	NeedsWheelchair bool    `json:"needsWheelchair,omitempty" yaml:"needsWheelchair,omitempty"`
	SeatEquivalent  float64 `json:"seatEquivalent" yaml:"seatEquivalent"`
	BoardingTime    float64 `json:"boardingTime,omitempty" yaml:"boardingTime,omitempty"`
}

// Rider is one trip request: pickup to dropoff, optionally windowed, with an
// optional cap on minutes spent in the vehicle (0 = no cap).
type Rider struct {
	ID               RiderID       `json:"id" yaml:"id"`
	PickupNode       NodeID        `json:"pickupNode" yaml:"pickupNode"`
	DropoffNode      NodeID        `json:"dropoffNode" yaml:"dropoffNode"`
	PickupWindow     *TimeWindow   `json:"pickupWindow,omitempty" yaml:"pickupWindow,omitempty"`
	DropoffWindow    *TimeWindow   `json:"dropoffWindow,omitempty" yaml:"dropoffWindow,omitempty"`
	MaxTimeInVehicle float64       `json:"maxTimeInVehicle,omitempty" yaml:"maxTimeInVehicle,omitempty"`
	Accessibility    Accessibility `json:"accessibility" yaml:"accessibility"`
}

// EarliestConstraint returns the rider's earliest bound: the pickup window's
// earliest, else the dropoff window's, else 0.
func (r Rider) EarliestConstraint() float64 {
	if r.PickupWindow != nil {
		return r.PickupWindow.Earliest
	}
	if r.DropoffWindow != nil {
		return r.DropoffWindow.Earliest
	}
	return 0
}

// StopKind distinguishes pickups from dropoffs.
type StopKind int

const (
	StopPickup StopKind = iota
	StopDropoff
)

func (k StopKind) String() string {
	if k == StopPickup {
		return "pickup"
	}
	return "dropoff"
}

func (k StopKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *StopKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return k.parse(s)
}

func (k StopKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *StopKind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return k.parse(s)
}

func (k *StopKind) parse(s string) error {
	switch s {
	case "pickup":
		*k = StopPickup
	case "dropoff":
		*k = StopDropoff
	default:
		return fmt.Errorf("unknown stop kind %q", s)
	}
	return nil
}

// Stop is one scheduled visit in a vehicle's itinerary. Itinerary and
// Solution live in solution.go.
type Stop struct {
	RiderID RiderID  `json:"riderId" yaml:"riderId"`
	Kind    StopKind `json:"kind" yaml:"kind"`
}

// SimulatedStop echoes a stop with its computed timings. MinutesEarly is a
// visual indicator only and never contributes to score; MinutesLate and
// OverMaxRide do. Timings can be +Inf when a leg is unreachable; see
// minutes.go for how that survives JSON.
type SimulatedStop struct {
	Stop
	ArrivalTime   float64 `json:"arrivalTime"`
	ServiceStart  float64 `json:"serviceStart"`
	DepartureTime float64 `json:"departureTime"`
	MinutesEarly  float64 `json:"minutesEarly,omitempty"`
	MinutesLate   float64 `json:"minutesLate,omitempty"`
	OverMaxRide   float64 `json:"overMaxRide,omitempty"`
}

// VehicleResult is the simulated outcome for one vehicle's itinerary.
// TotalLateness sums stop lateness, over-max-ride excess and depot lateness.
// ElapsedTime is minutes from the vehicle's start time until it reaches its
// end depot, infinite when any leg is unreachable.
type VehicleResult struct {
	Stops         []SimulatedStop `json:"stops"`
	EndArrival    float64         `json:"endArrival"`
	EndLate       float64         `json:"endLate,omitempty"`
	TotalLateness float64         `json:"totalLateness"`
	ElapsedTime   float64         `json:"elapsedTime"`
}

// SimulationResult aggregates the fleet. Lower TotalScore is better; zero is
// a perfect plan.
type SimulationResult struct {
	Vehicles          map[VehicleID]VehicleResult `json:"vehicles"`
	Unassigned        []RiderID                   `json:"unassigned"`
	TotalLateness     float64                     `json:"totalLateness"`
	UnassignedPenalty float64                     `json:"unassignedPenalty"`
	TotalScore        float64                     `json:"totalScore"`
}
