package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/repository"
)

const taskColumns = `id, owner_id, student_id, student_name, student_phone, student_email,
	title, description, due_date, priority, completed, call_outcome, call_notes,
	attempts, last_attempt_at, version, created_at, updated_at`

// TaskRepository implements repository.TaskRepository using PostgreSQL.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a new repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Get fetches a follow-up task by id.
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FollowUpTask, error) {
	q := `SELECT ` + taskColumns + ` FROM follow_up_tasks WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, q, id)
	var record taskRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, storeError("task repo: get", err)
	}

	task := record.toDomain()
	return &task, nil
}

// ListByOwner returns every follow-up task belonging to a telecaller.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FollowUpTask, error) {
	q := `SELECT ` + taskColumns + ` FROM follow_up_tasks WHERE owner_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryxContext(ctx, q, ownerID)
	if err != nil {
		return nil, storeError("task repo: list by owner", err)
	}
	defer rows.Close()

	var tasks []domain.FollowUpTask
	for rows.Next() {
		var record taskRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, fmt.Errorf("task repo: scan: %w", err)
		}
		tasks = append(tasks, record.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("task repo: rows err", err)
	}

	return tasks, nil
}

// UpdateVersioned writes the task back, bumping its version. The write only
// lands when the caller still holds the current version; otherwise the task
// either changed underneath us (ErrConflict) or is gone (ErrNotFound).
func (r *TaskRepository) UpdateVersioned(ctx context.Context, task *domain.FollowUpTask) error {
	q := `UPDATE follow_up_tasks SET
		due_date = :due_date,
		completed = :completed,
		call_outcome = :call_outcome,
		call_notes = :call_notes,
		attempts = :attempts,
		last_attempt_at = :last_attempt_at,
		updated_at = :updated_at,
		version = version + 1
	 WHERE id = :id AND version = :version`

	params := map[string]any{
		"id":              task.ID,
		"due_date":        nullTime(task.DueDate),
		"completed":       task.Completed,
		"call_outcome":    nullString(task.CallOutcome),
		"call_notes":      nullString(task.CallNotes),
		"attempts":        task.Attempts,
		"last_attempt_at": task.LastAttemptAt,
		"updated_at":      task.UpdatedAt,
		"version":         task.Version,
	}

	res, err := r.db.NamedExecContext(ctx, q, params)
	if err != nil {
		return storeError("task repo: update", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task repo: rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowxContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM follow_up_tasks WHERE id = $1)`, task.ID,
		).Scan(&exists); err != nil {
			return storeError("task repo: conflict probe", err)
		}
		if exists {
			return repository.ErrConflict
		}
		return repository.ErrNotFound
	}

	task.Version++
	return nil
}

// ListOpenOwners returns distinct owner ids that still have open tasks.
// The reminder worker uses it to know whose queues to scan.
func (r *TaskRepository) ListOpenOwners(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT DISTINCT owner_id FROM follow_up_tasks WHERE completed = FALSE ORDER BY owner_id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, storeError("task repo: list open owners", err)
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("task repo: scan owner: %w", err)
		}
		owners = append(owners, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("task repo: rows err", err)
	}

	return owners, nil
}

type taskRecord struct {
	ID            uuid.UUID      `db:"id"`
	OwnerID       uuid.UUID      `db:"owner_id"`
	StudentID     uuid.UUID      `db:"student_id"`
	StudentName   sql.NullString `db:"student_name"`
	StudentPhone  sql.NullString `db:"student_phone"`
	StudentEmail  sql.NullString `db:"student_email"`
	Title         string         `db:"title"`
	Description   sql.NullString `db:"description"`
	DueDate       sql.NullTime   `db:"due_date"`
	Priority      string         `db:"priority"`
	Completed     bool           `db:"completed"`
	CallOutcome   sql.NullString `db:"call_outcome"`
	CallNotes     sql.NullString `db:"call_notes"`
	Attempts      int            `db:"attempts"`
	LastAttemptAt sql.NullTime   `db:"last_attempt_at"`
	Version       int64          `db:"version"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

func (r taskRecord) toDomain() domain.FollowUpTask {
	task := domain.FollowUpTask{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		Student: domain.StudentRef{
			ID:    r.StudentID,
			Name:  r.StudentName.String,
			Phone: r.StudentPhone.String,
			Email: r.StudentEmail.String,
		},
		Title:       r.Title,
		Description: r.Description.String,
		Priority:    domain.Priority(r.Priority),
		Completed:   r.Completed,
		CallOutcome: r.CallOutcome.String,
		CallNotes:   r.CallNotes.String,
		Attempts:    r.Attempts,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}

	if r.DueDate.Valid {
		task.DueDate = r.DueDate.Time
	}
	if r.LastAttemptAt.Valid {
		t := r.LastAttemptAt.Time
		task.LastAttemptAt = &t
	}

	return task
}
