package store

import (
	"context"
	"testing"
	"time"

	"ridenav/internal/model"
)

func tinyProblemData(name string) model.ProblemData {
	return model.ProblemData{
		Name: name,
		Graph: model.GraphData{
			Nodes: []model.Node{{ID: "a"}, {ID: "b", X: 1}},
			Edges: []model.Edge{{ID: "e1", From: "a", To: "b", TravelTime: 5}},
		},
		Vehicles: []model.Vehicle{{ID: "v1", Seats: 2, EndTime: 600, StartNode: "a", EndNode: "a"}},
		Riders:   []model.Rider{{ID: "r1", PickupNode: "a", DropoffNode: "b"}},
	}
}

func TestMemoryProblems(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec, err := m.CreateProblem(ctx, "t1", tinyProblemData("p1"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.Name != "p1" || rec.TenantID != "t1" {
		t.Fatalf("record: %+v", rec)
	}

	got, err := m.GetProblem(ctx, "t1", rec.ID)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := m.GetProblem(ctx, "other-tenant", rec.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant read should be ErrNotFound, got %v", err)
	}
	if _, err := m.GetProblem(ctx, "t1", "nope"); err != ErrNotFound {
		t.Fatalf("missing id should be ErrNotFound, got %v", err)
	}
}

func TestMemoryListProblemsPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		rec, _ := m.CreateProblem(ctx, "t1", tinyProblemData("p"))
		ids = append(ids, rec.ID)
	}

	page1, cursor, err := m.ListProblems(ctx, "t1", "", 2)
	if err != nil || len(page1) != 2 || cursor == "" {
		t.Fatalf("page1: %d items cursor %q err %v", len(page1), cursor, err)
	}
	page2, cursor, err := m.ListProblems(ctx, "t1", cursor, 2)
	if err != nil || len(page2) != 2 {
		t.Fatalf("page2: %d items err %v", len(page2), err)
	}
	page3, cursor, err := m.ListProblems(ctx, "t1", cursor, 2)
	if err != nil || len(page3) != 1 || cursor != "" {
		t.Fatalf("last page: %d items cursor %q err %v", len(page3), cursor, err)
	}

	seen := map[string]bool{}
	for _, rec := range append(append(page1, page2...), page3...) {
		seen[rec.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Fatalf("id %s lost in pagination", id)
		}
	}
}

func TestMemoryPlans(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	saved, err := m.SavePlan(ctx, PlanRecord{TenantID: "t1", ProblemID: "prob-1", Algorithm: "greedy"})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("save should mint id and timestamp: %+v", saved)
	}

	// resave under the same id must not duplicate the listing
	saved.Algorithm = "greedy+improve"
	if _, err := m.SavePlan(ctx, saved); err != nil {
		t.Fatal(err)
	}
	list, _, err := m.ListPlans(ctx, "t1", "", "", 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %d items err %v", len(list), err)
	}
	if list[0].Algorithm != "greedy+improve" {
		t.Fatalf("resave should overwrite: %+v", list[0])
	}

	m.SavePlan(ctx, PlanRecord{TenantID: "t1", ProblemID: "prob-2"})
	filtered, _, _ := m.ListPlans(ctx, "t1", "prob-2", "", 10)
	if len(filtered) != 1 || filtered[0].ProblemID != "prob-2" {
		t.Fatalf("problem filter: %+v", filtered)
	}

	if _, err := m.GetPlan(ctx, "t2", saved.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant plan read: %v", err)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	s1, _ := m.CreateSubscription(ctx, Subscription{TenantID: "t1", URL: "http://a", Events: []string{"plan.completed"}})
	m.CreateSubscription(ctx, Subscription{TenantID: "t1", URL: "http://b", Events: []string{"plan.started", "plan.completed"}})
	m.CreateSubscription(ctx, Subscription{TenantID: "t2", URL: "http://c", Events: []string{"plan.completed"}})

	subs, err := m.GetSubscriptionsForEvent(ctx, "t1", "plan.completed")
	if err != nil || len(subs) != 2 {
		t.Fatalf("event match: %d subs err %v", len(subs), err)
	}
	subs, _ = m.GetSubscriptionsForEvent(ctx, "t1", "plan.started")
	if len(subs) != 1 || subs[0].URL != "http://b" {
		t.Fatalf("started match: %+v", subs)
	}

	if err := m.DeleteSubscription(ctx, "t1", s1.ID); err != nil {
		t.Fatal(err)
	}
	subs, _ = m.GetSubscriptionsForEvent(ctx, "t1", "plan.completed")
	if len(subs) != 1 {
		t.Fatalf("after delete: %+v", subs)
	}

	list, _, _ := m.ListSubscriptions(ctx, "t1", "", 10)
	if len(list) != 1 {
		t.Fatalf("list after delete: %+v", list)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "t1", "sub-1", "plan.completed", "http://hook", "secret", []byte(`{}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue: %q %v", id, err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("fetch due: %+v err %v", due, err)
	}
	if due[0].Status != "pending" || due[0].EventType != "plan.completed" {
		t.Fatalf("delivery: %+v", due[0])
	}

	// failed attempt reschedules into the future
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("rescheduled delivery should not be due: %+v", due)
	}

	// pull the schedule back and deliver
	past := time.Now().Add(-time.Second)
	m.deliveries[id].NextAttemptAt = past
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].Attempts != 1 {
		t.Fatalf("retry should be due with one attempt: %+v", due)
	}
	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered hook should leave the queue: %+v", due)
	}

	// terminal failure
	id2, _ := m.EnqueueWebhook(ctx, "t1", "sub-1", "plan.completed", "http://hook", "secret", []byte(`{}`))
	if err := m.FailWebhookDelivery(ctx, id2, "gave up", 503, 20); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed hook should leave the queue: %+v", due)
	}
}
