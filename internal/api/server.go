package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ridenav/internal/metrics"
	"ridenav/internal/model"
	"ridenav/internal/routing"
	"ridenav/internal/sim"
	"ridenav/internal/store"
	"ridenav/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker

	planLimiter *rate.Limiter

	mu      sync.Mutex
	engines map[string]*engine // problem id -> loaded engine
}

// engine bundles a loaded problem with its caches. The path and simulation
// caches are not goroutine-safe, so all access goes through the engine lock.
type engine struct {
	mu       sync.Mutex
	problem  *model.Problem
	paths    *routing.PathCache
	simCache *sim.SimulationCache

	lastHits, lastMisses int64
}

// NewServer creates a Server. If DATABASE_URL is unset, uses the in-memory
// store; if REDIS_URL is set, plan events go through Redis Pub/Sub.
func NewServer() (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	perMin := 30
	if v := os.Getenv("PLAN_RATE_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perMin = n
		}
	}
	metrics.RegisterDefault()
	return &Server{
		Store:       s,
		Pub:         webhooks.NewPublisher(s),
		Broker:      broker,
		planLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		engines:     map[string]*engine{},
	}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	return r.Context(), tenant
}

// engineFor loads the problem into memory on first use and reuses it (and
// its caches) afterwards.
func (s *Server) engineFor(ctx context.Context, tenant, problemID string) (*engine, error) {
	s.mu.Lock()
	if e, ok := s.engines[problemID]; ok {
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	rec, err := s.Store.GetProblem(ctx, tenant, problemID)
	if err != nil {
		return nil, err
	}
	p, err := model.NewProblem(rec.Data)
	if err != nil {
		return nil, err
	}
	paths := routing.NewPathCache(p.Graph)
	e := &engine{problem: p, paths: paths, simCache: sim.NewSimulationCache(p, paths)}

	s.mu.Lock()
	if prev, ok := s.engines[problemID]; ok {
		e = prev
	} else {
		s.engines[problemID] = e
	}
	s.mu.Unlock()
	return e, nil
}

// flushCacheStats moves path cache counter deltas into Prometheus. Called
// with the engine lock held.
func (e *engine) flushCacheStats() {
	hits, misses := e.paths.Stats()
	if d := hits - e.lastHits; d > 0 {
		metrics.PathCacheLookups.WithLabelValues("hit").Add(float64(d))
	}
	if d := misses - e.lastMisses; d > 0 {
		metrics.PathCacheLookups.WithLabelValues("miss").Add(float64(d))
	}
	e.lastHits, e.lastMisses = hits, misses
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
