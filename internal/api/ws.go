package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/websocket"

	"ridenav/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// playbackFrame is one stop visit, with the node sequence driven to reach
// it. LegPath matches the geometry the simulator priced, so clients can
// interpolate vehicle positions against the simulated timings.
type playbackFrame struct {
	VehicleID     model.VehicleID `json:"vehicleId"`
	RiderID       model.RiderID   `json:"riderId,omitempty"`
	Kind          string          `json:"kind"` // pickup, dropoff, depot
	Node          model.NodeID    `json:"node"`
	ArrivalTime   float64         `json:"arrivalTime"`
	DepartureTime float64         `json:"departureTime"`
	LegPath       []model.NodeID  `json:"legPath,omitempty"`
}

// PlaybackHandler streams a stored plan's stops in arrival order over a
// WebSocket, one JSON frame per stop, then a completion message.
func (s *Server) PlaybackHandler(w http.ResponseWriter, r *http.Request, planID string) {
	ctx, tenant := s.withTenant(r)
	plan, err := s.Store.GetPlan(ctx, tenant, planID)
	if err != nil {
		writeError(w, 404, "Plan not found", "", r.URL.Path)
		return
	}
	e, err := s.engineFor(ctx, tenant, plan.ProblemID)
	if err != nil {
		writeError(w, 500, "Problem load failed", err.Error(), r.URL.Path)
		return
	}

	e.mu.Lock()
	frames := buildPlaybackFrames(e, plan.Result)
	e.flushCacheStats()
	e.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}
	_ = conn.WriteJSON(map[string]any{"type": "complete", "planId": planID, "frames": len(frames)})
}

// buildPlaybackFrames walks each vehicle's simulated stops and attaches leg
// geometry from the path cache. Called with the engine lock held.
func buildPlaybackFrames(e *engine, res model.SimulationResult) []playbackFrame {
	frames := []playbackFrame{}
	for _, v := range e.problem.Vehicles {
		vr := res.Vehicles[v.ID]
		currentNode := v.StartNode
		for _, ss := range vr.Stops {
			rider, ok := e.problem.Rider(ss.RiderID)
			if !ok {
				continue
			}
			target := rider.PickupNode
			if ss.Kind == model.StopDropoff {
				target = rider.DropoffNode
			}
			f := playbackFrame{
				VehicleID:     v.ID,
				RiderID:       ss.RiderID,
				Kind:          ss.Kind.String(),
				Node:          target,
				ArrivalTime:   ss.ArrivalTime,
				DepartureTime: ss.DepartureTime,
			}
			if p, found := e.paths.Path(currentNode, target); found {
				f.LegPath = p.Nodes
			}
			frames = append(frames, f)
			currentNode = target
		}
		depot := playbackFrame{
			VehicleID:     v.ID,
			Kind:          "depot",
			Node:          v.EndNode,
			ArrivalTime:   vr.EndArrival,
			DepartureTime: vr.EndArrival,
		}
		if p, found := e.paths.Path(currentNode, v.EndNode); found {
			depot.LegPath = p.Nodes
		}
		frames = append(frames, depot)
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].ArrivalTime < frames[j].ArrivalTime })
	return frames
}
