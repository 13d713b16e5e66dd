package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"ridenav/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	problems map[string]ProblemRecord
	probTen  map[string][]string // tenant -> problem ids, insertion order
	plans    map[string]PlanRecord
	planTen  map[string][]string // tenant -> plan ids
	subs     map[string][]Subscription
	// webhook queue state
	deliveries map[string]*memDelivery
	order      []string // delivery ids, enqueue order
}

func NewMemory() *Memory {
	return &Memory{
		problems:   map[string]ProblemRecord{},
		probTen:    map[string][]string{},
		plans:      map[string]PlanRecord{},
		planTen:    map[string][]string{},
		subs:       map[string][]Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func (m *Memory) CreateProblem(ctx context.Context, tenantID string, data model.ProblemData) (ProblemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := ProblemRecord{ID: uuid.New().String(), TenantID: tenantID, Name: data.Name, Data: data, CreatedAt: time.Now().UTC()}
	m.problems[rec.ID] = rec
	m.probTen[tenantID] = append(m.probTen[tenantID], rec.ID)
	return rec, nil
}

func (m *Memory) GetProblem(ctx context.Context, tenantID, id string) (ProblemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.problems[id]
	if !ok || rec.TenantID != tenantID {
		return ProblemRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListProblems(ctx context.Context, tenantID, cursor string, limit int) ([]ProblemRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.probTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []ProblemRecord{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.problems[ids[i]])
		next = ids[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.plans[rec.ID]; !exists {
		m.planTen[rec.TenantID] = append(m.planTen[rec.TenantID], rec.ID)
	}
	m.plans[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, id string) (PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plans[id]
	if !ok || rec.TenantID != tenantID {
		return PlanRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, problemID, cursor string, limit int) ([]PlanRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.planTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []PlanRecord{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		rec := m.plans[ids[i]]
		if problemID == "" || rec.ProblemID == problemID {
			out = append(out, rec)
		}
		next = ids[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = uuid.New().String()
	m.subs[sub.TenantID] = append(m.subs[sub.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]Subscription, 0, len(arr))
	for _, s := range arr {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.subs[tenantID] = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"},
		NextAttemptAt:   time.Now(),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else {
		d.Status = "retry"
		d.LastError = lastError
		if nextAttemptAt != nil {
			d.NextAttemptAt = *nextAttemptAt
		} else {
			d.NextAttemptAt = time.Now().Add(time.Minute)
		}
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.deliveries[id]; d != nil {
		d.Status = "failed"
		d.LastError = lastError
		d.ResponseCode = responseCode
		d.LatencyMs = latencyMs
	}
	return nil
}

func cursorIndex(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}
