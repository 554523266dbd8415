package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
)

func TestDeriveStatusBuckets(t *testing.T) {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		task domain.FollowUpTask
		want domain.TaskStatus
	}{
		{
			name: "due two days ago is overdue",
			task: domain.FollowUpTask{DueDate: now.AddDate(0, 0, -2)},
			want: domain.TaskStatusOverdue,
		},
		{
			name: "due yesterday is overdue",
			task: domain.FollowUpTask{DueDate: now.AddDate(0, 0, -1)},
			want: domain.TaskStatusOverdue,
		},
		{
			name: "due earlier today is today, not overdue",
			task: domain.FollowUpTask{DueDate: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
			want: domain.TaskStatusToday,
		},
		{
			name: "due later today is today",
			task: domain.FollowUpTask{DueDate: time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)},
			want: domain.TaskStatusToday,
		},
		{
			name: "due tomorrow is upcoming",
			task: domain.FollowUpTask{DueDate: now.AddDate(0, 0, 1)},
			want: domain.TaskStatusUpcoming,
		},
		{
			name: "completed wins regardless of due date",
			task: domain.FollowUpTask{Completed: true, DueDate: now.AddDate(0, 0, -30)},
			want: domain.TaskStatusCompleted,
		},
		{
			name: "missing due date is upcoming, not an error",
			task: domain.FollowUpTask{},
			want: domain.TaskStatusUpcoming,
		},
	}

	for _, tc := range cases {
		if got := DeriveStatus(tc.task, now, time.UTC); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDeriveStatusIsTotal(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	known := map[domain.TaskStatus]bool{
		domain.TaskStatusOverdue:   true,
		domain.TaskStatusToday:     true,
		domain.TaskStatusUpcoming:  true,
		domain.TaskStatusCompleted: true,
	}

	tasks := []domain.FollowUpTask{
		{ID: uuid.New()},
		{ID: uuid.New(), Completed: true},
		{ID: uuid.New(), DueDate: now.Add(-time.Hour)},
		{ID: uuid.New(), DueDate: now.Add(time.Hour)},
		{ID: uuid.New(), DueDate: now.AddDate(-1, 0, 0)},
		{ID: uuid.New(), DueDate: now.AddDate(1, 0, 0)},
		{ID: uuid.New(), DueDate: now.AddDate(0, 0, -1), Completed: true},
	}

	for _, task := range tasks {
		status := DeriveStatus(task, now, time.UTC)
		if !known[status] {
			t.Errorf("task %s mapped to unknown status %q", task.ID, status)
		}
		if task.Completed && status != domain.TaskStatusCompleted {
			t.Errorf("completed task %s mapped to %q", task.ID, status)
		}
	}
}

func TestDeriveStatusTimezoneBoundary(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 01:00 IST on Jan 10 is still Jan 9 in UTC. A task due late on Jan 9
	// IST must be overdue, not today, when judged in the operator zone.
	now := time.Date(2024, 1, 9, 19, 30, 0, 0, time.UTC) // 01:00 IST Jan 10
	due := time.Date(2024, 1, 9, 23, 0, 0, 0, loc)

	if got := DeriveStatus(domain.FollowUpTask{DueDate: due}, now, loc); got != domain.TaskStatusOverdue {
		t.Errorf("got %s, want %s", got, domain.TaskStatusOverdue)
	}

	// The same instant judged in UTC is still Jan 9, so the task is today.
	if got := DeriveStatus(domain.FollowUpTask{DueDate: due}, now, time.UTC); got != domain.TaskStatusToday {
		t.Errorf("in UTC got %s, want %s", got, domain.TaskStatusToday)
	}
}
