package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridenav/internal/buildinfo"
	"ridenav/internal/metrics"
	"ridenav/internal/model"
	"ridenav/internal/opt"
	"ridenav/internal/store"
)

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"status": "ready"})
}

// MetricsHandler serves the Prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

// ProblemsHandler handles POST (create) and GET (list) on /v1/problems.
func (s *Server) ProblemsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		var data model.ProblemData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		// Validate before persisting; a stored problem must always load.
		if _, err := model.NewProblem(data); err != nil {
			writeError(w, 422, "Invalid problem", err.Error(), r.URL.Path)
			return
		}
		rec, err := s.Store.CreateProblem(ctx, tenant, data)
		if err != nil {
			writeError(w, 500, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	case http.MethodGet:
		items, next, err := s.Store.ListProblems(ctx, tenant, r.URL.Query().Get("cursor"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, 500, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
	}
}

// ProblemByIDHandler routes /v1/problems/{id} and its subresources:
// POST {id}/plan, POST {id}/simulate, GET {id}/path.
func (s *Server) ProblemByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/problems/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getProblem(w, r, id)
	case sub == "plan" && r.Method == http.MethodPost:
		s.planProblem(w, r, id)
	case sub == "simulate" && r.Method == http.MethodPost:
		s.simulateSolution(w, r, id)
	case sub == "path" && r.Method == http.MethodGet:
		s.getPath(w, r, id)
	default:
		writeError(w, 404, "Not found", "", r.URL.Path)
	}
}

func (s *Server) getProblem(w http.ResponseWriter, r *http.Request, id string) {
	ctx, tenant := s.withTenant(r)
	rec, err := s.Store.GetProblem(ctx, tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "Problem not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, 500, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, rec)
}

type planRequest struct {
	Algorithm string `json:"algorithm,omitempty"` // "greedy" (default) or "greedy+improve"
	Improve   bool   `json:"improve,omitempty"`
}

// planProblem runs the solver synchronously, persists the plan and publishes
// lifecycle events on the plan's channel.
func (s *Server) planProblem(w http.ResponseWriter, r *http.Request, problemID string) {
	if !s.planLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Rate limited", "plan requests exceed the configured budget", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	var req planRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	algo := "greedy"
	if req.Improve || req.Algorithm == "greedy+improve" {
		algo = "greedy+improve"
	}

	e, err := s.engineFor(ctx, tenant, problemID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "Problem not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, 500, "Problem load failed", err.Error(), r.URL.Path)
		return
	}

	planID := uuid.New().String()
	s.Broker.Publish(planID, PlanEvent{Type: "plan.started", Data: map[string]any{"planId": planID, "problemId": problemID}})

	e.mu.Lock()
	start := time.Now()
	sol, m := opt.Generate(e.problem, e.paths, opt.Options{
		Improve: algo == "greedy+improve",
		OnProgress: func(done, total int) {
			s.Broker.Publish(planID, PlanEvent{Type: "plan.progress", Data: map[string]any{"planId": planID, "done": done, "total": total}})
		},
	})
	result := e.simCache.Simulate(sol)
	e.flushCacheStats()
	e.mu.Unlock()

	metrics.PlansTotal.WithLabelValues(algo).Inc()
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	metrics.UnassignedRiders.Observe(float64(len(result.Unassigned)))
	opt.RecordMetrics(tenant, planID, m)

	rec, err := s.Store.SavePlan(ctx, store.PlanRecord{
		ID:        planID,
		TenantID:  tenant,
		ProblemID: problemID,
		Algorithm: algo,
		Solution:  sol,
		Result:    result,
		Metrics:   m,
	})
	if err != nil {
		writeError(w, 500, "Store error", err.Error(), r.URL.Path)
		return
	}

	done := map[string]any{"planId": planID, "totalScore": result.TotalScore, "unassigned": len(result.Unassigned)}
	s.Broker.Publish(planID, PlanEvent{Type: "plan.completed", Data: done})
	s.Pub.Emit(ctx, tenant, "plan.completed", done)

	writeJSON(w, 200, rec)
}

type simulateRequest struct {
	Solution model.Solution `json:"solution"`
}

// simulateSolution scores a caller-supplied solution through the problem's
// simulation cache, so successive edits only pay for what changed.
func (s *Server) simulateSolution(w http.ResponseWriter, r *http.Request, problemID string) {
	ctx, tenant := s.withTenant(r)
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := req.Solution.Validate(); err != nil {
		writeError(w, 422, "Invalid solution", err.Error(), r.URL.Path)
		return
	}
	e, err := s.engineFor(ctx, tenant, problemID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "Problem not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, 500, "Problem load failed", err.Error(), r.URL.Path)
		return
	}
	e.mu.Lock()
	// Every vehicle needs an entry; fill absent ones with empty itineraries.
	sol := req.Solution
	for _, v := range e.problem.Vehicles {
		if _, ok := sol[v.ID]; !ok {
			sol[v.ID] = model.Itinerary{}
		}
	}
	result := e.simCache.Simulate(sol)
	e.flushCacheStats()
	e.mu.Unlock()
	writeJSON(w, 200, result)
}

// getPath exposes path geometry so renderers can interpolate positions along
// exactly the node sequence the simulator priced.
func (s *Server) getPath(w http.ResponseWriter, r *http.Request, problemID string) {
	ctx, tenant := s.withTenant(r)
	from := model.NodeID(r.URL.Query().Get("from"))
	to := model.NodeID(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, 400, "Missing query", "from and to node ids are required", r.URL.Path)
		return
	}
	e, err := s.engineFor(ctx, tenant, problemID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "Problem not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, 500, "Problem load failed", err.Error(), r.URL.Path)
		return
	}
	e.mu.Lock()
	p, found := e.paths.Path(from, to)
	e.flushCacheStats()
	e.mu.Unlock()
	if !found {
		writeJSON(w, 200, map[string]any{"found": false})
		return
	}
	writeJSON(w, 200, map[string]any{"found": true, "path": p})
}

// PlansHandler lists plans, optionally filtered by problemId.
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	items, next, err := s.Store.ListPlans(ctx, tenant, r.URL.Query().Get("problemId"), r.URL.Query().Get("cursor"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, 500, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler routes /v1/plans/{id}, {id}/events/stream and {id}/playback.
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getPlan(w, r, id)
	case sub == "events/stream" && r.Method == http.MethodGet:
		s.planEventsSSE(w, r, id)
	case sub == "playback" && r.Method == http.MethodGet:
		s.PlaybackHandler(w, r, id)
	case sub == "metrics" && r.Method == http.MethodGet:
		_, tenant := s.withTenant(r)
		if m, ok := opt.GetMetrics(tenant, id); ok {
			writeJSON(w, 200, m)
			return
		}
		writeError(w, 404, "No metrics for plan", "", r.URL.Path)
	default:
		writeError(w, 404, "Not found", "", r.URL.Path)
	}
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request, id string) {
	ctx, tenant := s.withTenant(r)
	rec, err := s.Store.GetPlan(ctx, tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "Plan not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeError(w, 500, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, rec)
}

// planEventsSSE streams plan lifecycle events as server-sent events.
func (s *Server) planEventsSSE(w http.ResponseWriter, r *http.Request, planID string) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(200)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	fl.Flush()

	ch := s.Broker.Subscribe(planID)
	defer s.Broker.Unsubscribe(planID, ch)
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt.Data)
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			fl.Flush()
		}
	}
}

// SubscriptionsHandler handles POST (create) and GET (list) on /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, tenant := s.withTenant(r)
	switch r.Method {
	case http.MethodPost:
		var sub store.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if sub.URL == "" || len(sub.Events) == 0 {
			writeError(w, 422, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub.TenantID = tenant
		created, err := s.Store.CreateSubscription(ctx, sub)
		if err != nil {
			writeError(w, 500, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		items, next, err := s.Store.ListSubscriptions(ctx, tenant, r.URL.Query().Get("cursor"), queryInt(r, "limit"))
		if err != nil {
			writeError(w, 500, "Store error", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(ctx, tenant, id); err != nil {
		writeError(w, 404, "Subscription not found", "", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string) int {
	n := 0
	_, _ = fmt.Sscanf(r.URL.Query().Get(name), "%d", &n)
	return n
}
