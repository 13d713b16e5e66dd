package store

import (
	"context"
	"errors"
	"time"

	"ridenav/internal/model"
	"ridenav/internal/opt"
)

// ProblemRecord is a stored problem definition.
type ProblemRecord struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Name      string            `json:"name,omitempty"`
	Data      model.ProblemData `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PlanRecord is one solver run: the solution it produced, its simulated
// result and the run metrics.
type PlanRecord struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenantId"`
	ProblemID string                 `json:"problemId"`
	Algorithm string                 `json:"algorithm"`
	Solution  model.Solution         `json:"solution"`
	Result    model.SimulationResult `json:"result"`
	Metrics   opt.Metrics            `json:"metrics"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Subscription registers a webhook endpoint for event types.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// WebhookDelivery is one queued outbound notification.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

// Store is the persistence interface used by the API server.
type Store interface {
	// Problems
	CreateProblem(ctx context.Context, tenantID string, data model.ProblemData) (ProblemRecord, error)
	GetProblem(ctx context.Context, tenantID, id string) (ProblemRecord, error)
	ListProblems(ctx context.Context, tenantID, cursor string, limit int) ([]ProblemRecord, string, error)

	// Plans
	SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error)
	GetPlan(ctx context.Context, tenantID, id string) (PlanRecord, error)
	ListPlans(ctx context.Context, tenantID, problemID, cursor string, limit int) ([]PlanRecord, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

var ErrNotFound = errors.New("not found")
