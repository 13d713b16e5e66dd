package main

import (
	"bufio"
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"ridenav/internal/api"
	"ridenav/internal/metrics"
	"ridenav/internal/model"
)

func main() {
	srv, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	// Optionally seed a problem from a YAML file at boot.
	if path := os.Getenv("PROBLEM_FILE"); path != "" {
		_, data, err := model.LoadProblemFile(path)
		if err != nil {
			log.Fatalf("failed to load problem file: %v", err)
		}
		rec, err := srv.Store.CreateProblem(context.Background(), "t_demo", data)
		if err != nil {
			log.Fatalf("failed to seed problem: %v", err)
		}
		log.Printf("seeded problem %s from %s", rec.ID, path)
	}

	mux := http.NewServeMux()

	// Problems and plans
	mux.HandleFunc("/v1/problems", srv.ProblemsHandler)
	mux.HandleFunc("/v1/problems/", srv.ProblemByIDHandler) // includes /plan, /simulate, /path
	mux.HandleFunc("/v1/plans", srv.PlansHandler)
	mux.HandleFunc("/v1/plans/", srv.PlanByIDHandler) // includes /events/stream, /playback, /metrics

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", srv.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srv.SubscriptionByIDHandler)

	// Health and metrics
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)
	mux.Handle("/metrics", srv.MetricsHandler())

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if srv.Pub != nil {
		worker := srv.NewWebhookWorker()
		worker.Start()
	}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.code)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.code)).Observe(dur.Seconds())
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}

// statusWriter records the response code while passing Flush and Hijack
// through for the SSE and WebSocket endpoints.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(c int) {
	w.code = c
	w.ResponseWriter.WriteHeader(c)
}

func (w *statusWriter) Flush() {
	if fl, ok := w.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}
