package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ridenav/internal/model"
	"ridenav/internal/opt"
)

// Postgres persists problems, plans and the webhook queue in jsonb columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema when missing. Dev helper, idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS problems (
    id          uuid PRIMARY KEY,
    tenant_id   text NOT NULL,
    name        text,
    data        jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS problems_tenant_idx ON problems (tenant_id, id);
CREATE TABLE IF NOT EXISTS plans (
    id          uuid PRIMARY KEY,
    tenant_id   text NOT NULL,
    problem_id  uuid NOT NULL REFERENCES problems (id),
    algorithm   text NOT NULL,
    solution    jsonb NOT NULL,
    result      jsonb NOT NULL,
    metrics     jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS plans_tenant_idx ON plans (tenant_id, id);
CREATE TABLE IF NOT EXISTS subscriptions (
    id          uuid PRIMARY KEY,
    tenant_id   text NOT NULL,
    url         text NOT NULL,
    events      jsonb NOT NULL,
    secret      text
);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              uuid PRIMARY KEY,
    tenant_id       text NOT NULL,
    subscription_id text,
    event_type      text NOT NULL,
    url             text NOT NULL,
    secret          text,
    payload         bytea NOT NULL,
    status          text NOT NULL,
    attempts        int NOT NULL DEFAULT 0,
    next_attempt_at timestamptz NOT NULL DEFAULT now(),
    last_error      text,
    response_code   int,
    latency_ms      int
);
CREATE INDEX IF NOT EXISTS deliveries_due_idx ON webhook_deliveries (status, next_attempt_at);
`)
	return err
}

func (p *Postgres) CreateProblem(ctx context.Context, tenantID string, data model.ProblemData) (ProblemRecord, error) {
	rec := ProblemRecord{ID: uuid.New().String(), TenantID: tenantID, Name: data.Name, Data: data, CreatedAt: time.Now().UTC()}
	raw, err := toJSON(data)
	if err != nil {
		return ProblemRecord{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO problems (id, tenant_id, name, data, created_at) VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, tenantID, rec.Name, raw, rec.CreatedAt)
	if err != nil {
		return ProblemRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) GetProblem(ctx context.Context, tenantID, id string) (ProblemRecord, error) {
	var rec ProblemRecord
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, coalesce(name,''), data, created_at FROM problems WHERE tenant_id=$1 AND id=$2`,
		tenantID, id).Scan(&rec.ID, &rec.TenantID, &rec.Name, &raw, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ProblemRecord{}, ErrNotFound
	}
	if err != nil {
		return ProblemRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return ProblemRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) ListProblems(ctx context.Context, tenantID, cursor string, limit int) ([]ProblemRecord, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, coalesce(name,''), data, created_at FROM problems
         WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []ProblemRecord{}
	last := ""
	for rows.Next() {
		var rec ProblemRecord
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Name, &raw, &rec.CreatedAt); err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(raw, &rec.Data); err != nil {
			return nil, "", err
		}
		out = append(out, rec)
		last = rec.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	sol, err := toJSON(rec.Solution)
	if err != nil {
		return PlanRecord{}, err
	}
	res, err := toJSON(rec.Result)
	if err != nil {
		return PlanRecord{}, err
	}
	met, err := toJSON(rec.Metrics)
	if err != nil {
		return PlanRecord{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, problem_id, algorithm, solution, result, metrics, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (id) DO UPDATE SET solution=EXCLUDED.solution, result=EXCLUDED.result, metrics=EXCLUDED.metrics`,
		rec.ID, rec.TenantID, rec.ProblemID, rec.Algorithm, sol, res, met, rec.CreatedAt)
	if err != nil {
		return PlanRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, id string) (PlanRecord, error) {
	var rec PlanRecord
	var sol, res, met []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, tenant_id, problem_id::text, algorithm, solution, result, metrics, created_at
         FROM plans WHERE tenant_id=$1 AND id=$2`,
		tenantID, id).Scan(&rec.ID, &rec.TenantID, &rec.ProblemID, &rec.Algorithm, &sol, &res, &met, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, ErrNotFound
	}
	if err != nil {
		return PlanRecord{}, err
	}
	if err := decodePlan(&rec, sol, res, met); err != nil {
		return PlanRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, problemID, cursor string, limit int) ([]PlanRecord, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, problem_id::text, algorithm, solution, result, metrics, created_at
         FROM plans WHERE tenant_id=$1 AND ($2='' OR problem_id::text=$2) AND id::text > $3 ORDER BY id LIMIT $4`,
		tenantID, problemID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []PlanRecord{}
	last := ""
	for rows.Next() {
		var rec PlanRecord
		var sol, res, met []byte
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.ProblemID, &rec.Algorithm, &sol, &res, &met, &rec.CreatedAt); err != nil {
			return nil, "", err
		}
		if err := decodePlan(&rec, sol, res, met); err != nil {
			return nil, "", err
		}
		out = append(out, rec)
		last = rec.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	sub.ID = uuid.New().String()
	events, err := toJSON(sub.Events)
	if err != nil {
		return Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, events, sub.Secret)
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, coalesce(secret,'') FROM subscriptions
         WHERE tenant_id=$1 AND events ? $2`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, url, events, coalesce(secret,'') FROM subscriptions
         WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out, err := scanSubscriptions(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status)
         VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
		id, tenantID, nullIfEmpty(subscriptionID), eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, coalesce(subscription_id,''), event_type, url, coalesce(secret,''), payload, status, attempts
         FROM webhook_deliveries
         WHERE status IN ('pending','retry') AND next_attempt_at <= now()
         ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$2, latency_ms=$3 WHERE id=$1`,
			id, responseCode, latencyMs)
		return err
	}
	next := time.Now().Add(time.Minute)
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, next_attempt_at=$2, last_error=$3, response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}

func decodePlan(rec *PlanRecord, sol, res, met []byte) error {
	if err := json.Unmarshal(sol, &rec.Solution); err != nil {
		return err
	}
	if err := json.Unmarshal(res, &rec.Result); err != nil {
		return err
	}
	var m opt.Metrics
	if err := json.Unmarshal(met, &m); err != nil {
		return err
	}
	rec.Metrics = m
	return nil
}

func scanSubscriptions(rows *sql.Rows) ([]Subscription, error) {
	out := []Subscription{}
	for rows.Next() {
		var s Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(events, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// toJSON marshals for a jsonb column. Errors propagate so a value the codec
// cannot represent never lands as a corrupt or null payload.
func toJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
