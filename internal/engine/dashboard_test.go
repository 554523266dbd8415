package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/pkg/logger"
)

type failingTaskRepo struct {
	fakeTaskRepo
}

func (r *failingTaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FollowUpTask, error) {
	return nil, errors.New("connection refused")
}

type memoryCache struct {
	payloads map[uuid.UUID]*domain.DashboardPayload
	hits     int
	sets     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{payloads: make(map[uuid.UUID]*domain.DashboardPayload)}
}

func (c *memoryCache) Get(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardPayload, bool) {
	payload, ok := c.payloads[ownerID]
	if ok {
		c.hits++
	}
	return payload, ok
}

func (c *memoryCache) Set(ctx context.Context, ownerID uuid.UUID, payload *domain.DashboardPayload) {
	c.payloads[ownerID] = payload
	c.sets++
}

func (c *memoryCache) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	delete(c.payloads, ownerID)
}

func TestDashboardAssemblesPayload(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	ownerID := uuid.New()

	open := domain.FollowUpTask{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     "Call back",
		Priority:  domain.PriorityHigh,
		DueDate:   now.AddDate(0, 0, 1),
		CreatedAt: now.AddDate(0, 0, -1),
		Version:   1,
	}
	done := domain.FollowUpTask{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Completed:   true,
		CallOutcome: "Connected",
		CreatedAt:   now.AddDate(0, 0, -2),
		Version:     1,
	}

	d := NewDashboard(newFakeTaskRepo(open, done), nil, nil, testAggregator(t), nil, config.DashboardConfig{}, logger.NewNop())

	payload := d.Get(context.Background(), ownerID, now, domain.QueueFilters{})

	if payload.OwnerID != ownerID {
		t.Errorf("owner id = %s", payload.OwnerID)
	}
	if payload.Stats.Total != 2 || payload.Stats.Completed != 1 || payload.Stats.Pending != 1 {
		t.Errorf("stats = %+v", payload.Stats)
	}
	if len(payload.CallQueue) != 2 {
		t.Errorf("queue has %d items, want 2", len(payload.CallQueue))
	}
	if len(payload.CallVolume) != 7 {
		t.Errorf("volume has %d points, want 7", len(payload.CallVolume))
	}
	if payload.Insights.NextFollowUp == nil || payload.Insights.NextFollowUp.Task.ID != open.ID {
		t.Error("next follow-up should be the open task")
	}
	// Nil lead and activity stores leave those slots empty, not nil.
	if payload.ActivityFeed == nil || payload.ImportedLeads == nil {
		t.Error("payload slots must be initialized even without backing stores")
	}
}

func TestDashboardDegradesOnStoreError(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	ownerID := uuid.New()

	d := NewDashboard(&failingTaskRepo{}, nil, nil, testAggregator(t), nil, config.DashboardConfig{}, logger.NewNop())

	payload := d.Get(context.Background(), ownerID, now, domain.QueueFilters{})
	if payload == nil {
		t.Fatal("payload must be assembled even when the task store fails")
	}
	if payload.Stats.Total != 0 || len(payload.CallQueue) != 0 {
		t.Errorf("degraded payload should be empty, got stats %+v", payload.Stats)
	}
	if len(payload.CallVolume) != 7 {
		t.Errorf("volume series must stay dense, got %d points", len(payload.CallVolume))
	}
}

func TestDashboardCachesUnfilteredViewOnly(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	ownerID := uuid.New()
	task := domain.FollowUpTask{ID: uuid.New(), OwnerID: ownerID, DueDate: now.AddDate(0, 0, 1), Version: 1}

	cache := newMemoryCache()
	d := NewDashboard(newFakeTaskRepo(task), nil, nil, testAggregator(t), cache, config.DashboardConfig{}, logger.NewNop())

	d.Get(context.Background(), ownerID, now, domain.QueueFilters{})
	if cache.sets != 1 {
		t.Fatalf("unfiltered fetch stored %d payloads, want 1", cache.sets)
	}

	d.Get(context.Background(), ownerID, now, domain.QueueFilters{})
	if cache.hits != 1 {
		t.Errorf("second unfiltered fetch had %d cache hits, want 1", cache.hits)
	}

	status := domain.TaskStatusUpcoming
	filtered := d.Get(context.Background(), ownerID, now, domain.QueueFilters{Status: &status})
	if cache.sets != 1 {
		t.Errorf("filtered fetch must not be cached, saw %d sets", cache.sets)
	}
	if filtered.Filters.Status == nil || *filtered.Filters.Status != status {
		t.Error("payload must echo the applied filters")
	}
}
