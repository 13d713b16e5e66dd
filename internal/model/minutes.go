package model

import (
	"encoding/json"
	"math"
)

// minutes is the JSON carrier for timing fields that may hold the +Inf
// unreachable sentinel. encoding/json refuses non-finite floats, so +Inf (and
// NaN, which only arises from Inf arithmetic) serializes as null and null
// decodes back to +Inf. Finite values pass through unchanged.
type minutes float64

func (m minutes) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (m *minutes) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = minutes(math.Inf(1))
		return nil
	}
	return json.Unmarshal(b, (*float64)(m))
}

// simulatedStopJSON mirrors SimulatedStop field for field. Every timing is a
// nullable minutes value: with an unreachable leg the arrival and everything
// derived from it is +Inf.
type simulatedStopJSON struct {
	RiderID       RiderID  `json:"riderId"`
	Kind          StopKind `json:"kind"`
	ArrivalTime   minutes  `json:"arrivalTime"`
	ServiceStart  minutes  `json:"serviceStart"`
	DepartureTime minutes  `json:"departureTime"`
	MinutesEarly  minutes  `json:"minutesEarly,omitempty"`
	MinutesLate   minutes  `json:"minutesLate,omitempty"`
	OverMaxRide   minutes  `json:"overMaxRide,omitempty"`
}

func (s SimulatedStop) MarshalJSON() ([]byte, error) {
	return json.Marshal(simulatedStopJSON{
		RiderID:       s.RiderID,
		Kind:          s.Kind,
		ArrivalTime:   minutes(s.ArrivalTime),
		ServiceStart:  minutes(s.ServiceStart),
		DepartureTime: minutes(s.DepartureTime),
		MinutesEarly:  minutes(s.MinutesEarly),
		MinutesLate:   minutes(s.MinutesLate),
		OverMaxRide:   minutes(s.OverMaxRide),
	})
}

func (s *SimulatedStop) UnmarshalJSON(b []byte) error {
	var raw simulatedStopJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = SimulatedStop{
		Stop:          Stop{RiderID: raw.RiderID, Kind: raw.Kind},
		ArrivalTime:   float64(raw.ArrivalTime),
		ServiceStart:  float64(raw.ServiceStart),
		DepartureTime: float64(raw.DepartureTime),
		MinutesEarly:  float64(raw.MinutesEarly),
		MinutesLate:   float64(raw.MinutesLate),
		OverMaxRide:   float64(raw.OverMaxRide),
	}
	return nil
}

type vehicleResultJSON struct {
	Stops         []SimulatedStop `json:"stops"`
	EndArrival    minutes         `json:"endArrival"`
	EndLate       minutes         `json:"endLate,omitempty"`
	TotalLateness minutes         `json:"totalLateness"`
	ElapsedTime   minutes         `json:"elapsedTime"`
}

func (v VehicleResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(vehicleResultJSON{
		Stops:         v.Stops,
		EndArrival:    minutes(v.EndArrival),
		EndLate:       minutes(v.EndLate),
		TotalLateness: minutes(v.TotalLateness),
		ElapsedTime:   minutes(v.ElapsedTime),
	})
}

func (v *VehicleResult) UnmarshalJSON(b []byte) error {
	var raw vehicleResultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = VehicleResult{
		Stops:         raw.Stops,
		EndArrival:    float64(raw.EndArrival),
		EndLate:       float64(raw.EndLate),
		TotalLateness: float64(raw.TotalLateness),
		ElapsedTime:   float64(raw.ElapsedTime),
	}
	return nil
}

type simulationResultJSON struct {
	Vehicles          map[VehicleID]VehicleResult `json:"vehicles"`
	Unassigned        []RiderID                   `json:"unassigned"`
	TotalLateness     minutes                     `json:"totalLateness"`
	UnassignedPenalty minutes                     `json:"unassignedPenalty"`
	TotalScore        minutes                     `json:"totalScore"`
}

func (r SimulationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(simulationResultJSON{
		Vehicles:          r.Vehicles,
		Unassigned:        r.Unassigned,
		TotalLateness:     minutes(r.TotalLateness),
		UnassignedPenalty: minutes(r.UnassignedPenalty),
		TotalScore:        minutes(r.TotalScore),
	})
}

func (r *SimulationResult) UnmarshalJSON(b []byte) error {
	var raw simulationResultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = SimulationResult{
		Vehicles:          raw.Vehicles,
		Unassigned:        raw.Unassigned,
		TotalLateness:     float64(raw.TotalLateness),
		UnassignedPenalty: float64(raw.UnassignedPenalty),
		TotalScore:        float64(raw.TotalScore),
	}
	return nil
}
