package model

import "fmt"

// ProblemData is the serialisable input form of a puzzle instance.
type ProblemData struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Graph    GraphData `json:"graph" yaml:"graph"`
	Vehicles []Vehicle `json:"vehicles" yaml:"vehicles"`
	Riders   []Rider   `json:"riders" yaml:"riders"`
}

// Problem is a validated, immutable instance: road graph, fleet and trip
// requests. Construct once and share read-only.
type Problem struct {
	Graph    *RoadGraph
	Vehicles []Vehicle
	Riders   []Rider

	vehicleByID map[VehicleID]Vehicle
	riderByID   map[RiderID]Rider
}

// NewProblem validates ProblemData and indexes it. Vehicle depots and rider
// stops must reference graph nodes; rider seat equivalents default to 1.0
// (1.5 for wheelchair users) when unset.
func NewProblem(data ProblemData) (*Problem, error) {
	g, err := NewRoadGraph(data.Graph)
	if err != nil {
		return nil, err
	}
	p := &Problem{
		Graph:       g,
		Vehicles:    append([]Vehicle{}, data.Vehicles...),
		Riders:      append([]Rider{}, data.Riders...),
		vehicleByID: make(map[VehicleID]Vehicle, len(data.Vehicles)),
		riderByID:   make(map[RiderID]Rider, len(data.Riders)),
	}
	for _, v := range p.Vehicles {
		if _, dup := p.vehicleByID[v.ID]; dup {
			return nil, fmt.Errorf("vehicle %q already exists", v.ID)
		}
		if _, ok := g.Node(v.StartNode); !ok {
			return nil, fmt.Errorf("vehicle %q: start depot %q not found", v.ID, v.StartNode)
		}
		if _, ok := g.Node(v.EndNode); !ok {
			return nil, fmt.Errorf("vehicle %q: end depot %q not found", v.ID, v.EndNode)
		}
		p.vehicleByID[v.ID] = v
	}
	for i, r := range p.Riders {
		if _, dup := p.riderByID[r.ID]; dup {
			return nil, fmt.Errorf("rider %q already exists", r.ID)
		}
		if _, ok := g.Node(r.PickupNode); !ok {
			return nil, fmt.Errorf("rider %q: pickup node %q not found", r.ID, r.PickupNode)
		}
		if _, ok := g.Node(r.DropoffNode); !ok {
			return nil, fmt.Errorf("rider %q: dropoff node %q not found", r.ID, r.DropoffNode)
		}
		if r.Accessibility.SeatEquivalent == 0 {
			if r.Accessibility.NeedsWheelchair {
				r.Accessibility.SeatEquivalent = 1.5
			} else {
				r.Accessibility.SeatEquivalent = 1.0
			}
			p.Riders[i] = r
		}
		p.riderByID[r.ID] = r
	}
	return p, nil
}

// Vehicle looks up a vehicle by ID.
func (p *Problem) Vehicle(id VehicleID) (Vehicle, bool) {
	v, ok := p.vehicleByID[id]
	return v, ok
}

// Rider looks up a rider by ID.
func (p *Problem) Rider(id RiderID) (Rider, bool) {
	r, ok := p.riderByID[id]
	return r, ok
}
