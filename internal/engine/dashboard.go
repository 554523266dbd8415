package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/repository"
	"github.com/acme/counsel-crm/pkg/logger"
)

// DashboardCache holds assembled payloads between dashboard polls.
type DashboardCache interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardPayload, bool)
	Set(ctx context.Context, ownerID uuid.UUID, payload *domain.DashboardPayload)
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

// Dashboard assembles the per-owner read model. It is pure composition over
// the status deriver and the aggregator: each sub-aggregate is computed
// independently and a failing one degrades to its empty value instead of
// failing the payload.
type Dashboard struct {
	tasks    repository.TaskRepository
	leads    repository.LeadRepository
	activity repository.ActivityStore
	agg      *Aggregator
	cache    DashboardCache
	cfg      config.DashboardConfig
	logger   *logger.Logger
}

// NewDashboard constructs the facade. leads, activity and cache may be nil;
// the corresponding payload slots stay empty.
func NewDashboard(
	tasks repository.TaskRepository,
	leads repository.LeadRepository,
	activity repository.ActivityStore,
	agg *Aggregator,
	cache DashboardCache,
	cfg config.DashboardConfig,
	lg *logger.Logger,
) *Dashboard {
	return &Dashboard{
		tasks:    tasks,
		leads:    leads,
		activity: activity,
		agg:      agg,
		cache:    cache,
		cfg:      cfg,
		logger:   lg,
	}
}

// Get builds the dashboard payload for one telecaller at the given time.
// It never fails hard: store errors surface as empty sub-aggregates with a
// logged warning.
func (d *Dashboard) Get(ctx context.Context, ownerID uuid.UUID, now time.Time, filters domain.QueueFilters) *domain.DashboardPayload {
	// The cache only serves the unfiltered view; filtered fetches are
	// cheap recomputations over the same task set.
	if d.cache != nil && filters.Empty() {
		if payload, ok := d.cache.Get(ctx, ownerID); ok {
			return payload
		}
	}

	payload := &domain.DashboardPayload{
		OwnerID:           ownerID,
		GeneratedAt:       now,
		CallQueue:         []domain.QueueItem{},
		CallVolume:        []domain.VolumePoint{},
		EngagementAlerts:  []domain.EngagementAlert{},
		ActivityFeed:      []domain.ActivityEntry{},
		ImportedLeads:     []domain.ImportedLead{},
		ImportedFollowUps: []domain.ImportedLead{},
		Filters:           filters,
	}
	payload.Insights.PrioritySummary = []domain.PrioritySlice{}
	payload.Insights.WorkloadAging = []domain.AgingBucket{}

	tasks, err := d.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		d.warn("dashboard: list tasks", ownerID, err)
		tasks = nil
	}

	payload.Stats = d.agg.Stats(tasks, now)
	payload.CallQueue = d.agg.BuildQueue(tasks, now, filters)
	payload.CallVolume = d.agg.CallVolume(tasks, now)
	payload.CallOutcomes = d.agg.OutcomeSummary(tasks, now)
	payload.Insights = domain.Insights{
		PrioritySummary: d.agg.PrioritySummary(tasks, now),
		WorkloadAging:   d.agg.WorkloadAging(tasks, now),
		NextFollowUp:    d.agg.NextFollowUp(tasks, now),
	}
	payload.EngagementAlerts = d.agg.EngagementAlerts(tasks, now)

	if d.activity != nil {
		feed, err := d.activity.ListRecent(ctx, ownerID, d.cfg.ActivityFeedLimit)
		if err != nil {
			d.warn("dashboard: list activity", ownerID, err)
		} else {
			payload.ActivityFeed = feed
		}
	}

	if d.leads != nil {
		leads, err := d.leads.ListByStatus(ctx, nil, d.cfg.ImportedLeadLimit)
		if err != nil {
			d.warn("dashboard: list imported leads", ownerID, err)
		} else {
			payload.ImportedLeads = leads
		}

		followUp := domain.LeadStatusFollowUp
		followUps, err := d.leads.ListByStatus(ctx, &followUp, d.cfg.ImportedLeadLimit)
		if err != nil {
			d.warn("dashboard: list imported follow-ups", ownerID, err)
		} else {
			payload.ImportedFollowUps = followUps
		}
	}

	if d.cache != nil && filters.Empty() {
		d.cache.Set(ctx, ownerID, payload)
	}

	return payload
}

func (d *Dashboard) warn(op string, ownerID uuid.UUID, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(op, zap.Error(err), zap.String("owner_id", ownerID.String()))
}
