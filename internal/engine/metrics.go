package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acme/counsel-crm/internal/config"
	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/pkg/logger"
)

// volumeDays is the length of the trailing call-volume series.
const volumeDays = 7

// Aggregator computes the derived read models over a telecaller's tasks.
// All methods are pure over their inputs; the same task set and time always
// produce the same result, so dashboard refreshes are idempotent.
type Aggregator struct {
	loc        *time.Location
	bucketDays []int
	rules      []AlertRule
	logger     *logger.Logger
}

// NewAggregator builds an aggregator from engine configuration.
func NewAggregator(cfg config.EngineConfig, lg *logger.Logger) (*Aggregator, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("aggregator: load time zone %s: %w", cfg.TimeZone, err)
	}

	bucketDays := cfg.AgingBucketDays
	if len(bucketDays) == 0 {
		bucketDays = []int{1, 3, 7}
	}
	sort.Ints(bucketDays)

	rules := []AlertRule{
		RepeatedAttemptsRule(cfg.AttemptsAlertThreshold),
		OverdueEscalationRule(cfg.OverdueAlertDays),
		DueTodayRule(),
	}

	return &Aggregator{loc: loc, bucketDays: bucketDays, rules: rules, logger: lg}, nil
}

// Location exposes the operator timezone used for day arithmetic.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// BuildQueue derives each task's status and applies the caller's filters as
// an intersection. The result is ordered by due date, ties broken by id, so
// repeated fetches render identically.
func (a *Aggregator) BuildQueue(tasks []domain.FollowUpTask, now time.Time, filters domain.QueueFilters) []domain.QueueItem {
	items := make([]domain.QueueItem, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed && task.DueDate.IsZero() && a.logger != nil {
			a.logger.Warn("task has no due date, treating as upcoming", zap.String("task_id", task.ID.String()))
		}
		item := domain.QueueItem{Task: task, Status: DeriveStatus(task, now, a.loc)}
		if !matchesFilters(item, filters) {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		di, dj := items[i].Task.DueDate, items[j].Task.DueDate
		if di.IsZero() != dj.IsZero() {
			return dj.IsZero()
		}
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return items[i].Task.ID.String() < items[j].Task.ID.String()
	})

	return items
}

// CallVolume groups tasks by creation day over the trailing week, today
// inclusive. The series is dense: every day gets an entry even at zero.
func (a *Aggregator) CallVolume(tasks []domain.FollowUpTask, now time.Time) []domain.VolumePoint {
	local := now.In(a.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)

	counts := make(map[time.Time]int, volumeDays)
	for _, task := range tasks {
		if task.CreatedAt.IsZero() {
			continue
		}
		created := task.CreatedAt.In(a.loc)
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, a.loc)
		counts[day]++
	}

	points := make([]domain.VolumePoint, 0, volumeDays)
	for i := volumeDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		points = append(points, domain.VolumePoint{Date: day, Created: counts[day]})
	}

	return points
}

// OutcomeSummary counts completed, pending and overdue tasks and groups the
// completed ones by recorded outcome. Empty outcomes are excluded.
func (a *Aggregator) OutcomeSummary(tasks []domain.FollowUpTask, now time.Time) domain.OutcomeSummary {
	summary := domain.OutcomeSummary{}
	byOutcome := make(map[string]int)

	for _, task := range tasks {
		switch DeriveStatus(task, now, a.loc) {
		case domain.TaskStatusCompleted:
			summary.Completed++
			if task.CallOutcome != "" {
				byOutcome[task.CallOutcome]++
			}
		case domain.TaskStatusOverdue:
			summary.Overdue++
		default:
			summary.Pending++
		}
	}

	summary.ByOutcome = make([]domain.OutcomeCount, 0, len(byOutcome))
	for outcome, count := range byOutcome {
		summary.ByOutcome = append(summary.ByOutcome, domain.OutcomeCount{Outcome: outcome, Count: count})
	}
	sort.Slice(summary.ByOutcome, func(i, j int) bool {
		if summary.ByOutcome[i].Count != summary.ByOutcome[j].Count {
			return summary.ByOutcome[i].Count > summary.ByOutcome[j].Count
		}
		return summary.ByOutcome[i].Outcome < summary.ByOutcome[j].Outcome
	})

	return summary
}

// Stats produces the headline dashboard counters.
func (a *Aggregator) Stats(tasks []domain.FollowUpTask, now time.Time) domain.QueueStats {
	summary := a.OutcomeSummary(tasks, now)
	return domain.QueueStats{
		Total:     len(tasks),
		Completed: summary.Completed,
		Pending:   summary.Pending,
		Overdue:   summary.Overdue,
	}
}

// PrioritySummary distributes open tasks across priorities. An empty open
// queue yields an empty summary rather than a division error.
func (a *Aggregator) PrioritySummary(tasks []domain.FollowUpTask, now time.Time) []domain.PrioritySlice {
	counts := make(map[domain.Priority]int)
	totalOpen := 0
	for _, task := range tasks {
		if DeriveStatus(task, now, a.loc) == domain.TaskStatusCompleted {
			continue
		}
		counts[task.Priority]++
		totalOpen++
	}

	if totalOpen == 0 {
		return []domain.PrioritySlice{}
	}

	slices := make([]domain.PrioritySlice, 0, len(counts))
	for _, priority := range domain.Priorities() {
		count := counts[priority]
		if count == 0 {
			continue
		}
		slices = append(slices, domain.PrioritySlice{
			Priority:   priority,
			Total:      count,
			Percentage: int(math.Round(100 * float64(count) / float64(totalOpen))),
		})
	}

	return slices
}

// WorkloadAging buckets open tasks by elapsed time: since due date for
// overdue tasks, since creation otherwise. Boundaries come from
// configuration; n boundaries yield n+1 buckets.
func (a *Aggregator) WorkloadAging(tasks []domain.FollowUpTask, now time.Time) []domain.AgingBucket {
	buckets := make([]domain.AgingBucket, len(a.bucketDays)+1)
	for i := range buckets {
		buckets[i].Label = a.bucketLabel(i)
	}

	for _, task := range tasks {
		status := DeriveStatus(task, now, a.loc)
		if status == domain.TaskStatusCompleted {
			continue
		}

		var elapsed time.Duration
		if status == domain.TaskStatusOverdue {
			elapsed = now.Sub(task.DueDate)
		} else if !task.CreatedAt.IsZero() {
			elapsed = now.Sub(task.CreatedAt)
		}
		if elapsed < 0 {
			elapsed = 0
		}

		days := elapsed.Hours() / 24
		idx := len(a.bucketDays)
		for i, boundary := range a.bucketDays {
			if days < float64(boundary) {
				idx = i
				break
			}
		}
		buckets[idx].Total++
	}

	return buckets
}

func (a *Aggregator) bucketLabel(idx int) string {
	if idx >= len(a.bucketDays) {
		return fmt.Sprintf("%d+ days", a.bucketDays[len(a.bucketDays)-1])
	}
	lo := 0
	if idx > 0 {
		lo = a.bucketDays[idx-1]
	}
	hi := a.bucketDays[idx]
	if hi-lo == 1 {
		return fmt.Sprintf("%d-%d day", lo, hi)
	}
	return fmt.Sprintf("%d-%d days", lo, hi)
}

// EngagementAlerts evaluates the policy set over every task.
func (a *Aggregator) EngagementAlerts(tasks []domain.FollowUpTask, now time.Time) []domain.EngagementAlert {
	ordered := make([]domain.FollowUpTask, len(tasks))
	copy(ordered, tasks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	alerts := make([]domain.EngagementAlert, 0)
	for _, task := range ordered {
		status := DeriveStatus(task, now, a.loc)
		for _, rule := range a.rules {
			if alert := rule(task, status, now); alert != nil {
				alerts = append(alerts, *alert)
			}
		}
	}

	return alerts
}

// NextFollowUp picks the most urgent open task: earliest due date first,
// then priority rank, then earliest creation. Nil when the queue is clear.
func (a *Aggregator) NextFollowUp(tasks []domain.FollowUpTask, now time.Time) *domain.QueueItem {
	var best *domain.FollowUpTask
	for i := range tasks {
		task := &tasks[i]
		if !task.Open() {
			continue
		}
		if best == nil || moreUrgent(task, best) {
			best = task
		}
	}
	if best == nil {
		return nil
	}
	return &domain.QueueItem{Task: *best, Status: DeriveStatus(*best, now, a.loc)}
}

func moreUrgent(candidate, current *domain.FollowUpTask) bool {
	cd, bd := candidate.DueDate, current.DueDate
	if cd.IsZero() != bd.IsZero() {
		return bd.IsZero()
	}
	if !cd.Equal(bd) {
		return cd.Before(bd)
	}
	if candidate.Priority.Rank() != current.Priority.Rank() {
		return candidate.Priority.Rank() < current.Priority.Rank()
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.Before(current.CreatedAt)
	}
	return candidate.ID.String() < current.ID.String()
}

func matchesFilters(item domain.QueueItem, filters domain.QueueFilters) bool {
	if filters.Status != nil && item.Status != *filters.Status {
		return false
	}
	if filters.Priority != nil && item.Task.Priority != *filters.Priority {
		return false
	}
	if filters.Outcome != "" && !strings.EqualFold(item.Task.CallOutcome, filters.Outcome) {
		return false
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		task := item.Task
		haystacks := []string{task.Title, task.Description, task.Student.Name, task.Student.Email, task.Student.Phone}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
