package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
	apperrors "github.com/acme/counsel-crm/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a version check failed on write.
	ErrConflict = apperrors.ErrConflict
)

// TaskRepository manages follow-up task persistence. Writes are guarded by
// the task's version column: UpdateVersioned fails with ErrConflict when the
// stored version no longer matches, so concurrent agents cannot silently
// overwrite each other's outcome.
type TaskRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.FollowUpTask, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FollowUpTask, error)
	UpdateVersioned(ctx context.Context, task *domain.FollowUpTask) error
	ListOpenOwners(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// LeadRepository manages imported lead persistence with the same versioned
// write discipline.
type LeadRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.ImportedLead, error)
	ListByStatus(ctx context.Context, status *domain.LeadStatus, limit int) ([]domain.ImportedLead, error)
	UpdateVersioned(ctx context.Context, lead *domain.ImportedLead) error
	BulkInsert(ctx context.Context, leads []domain.ImportedLead) error
}

// CounselorRepository resolves assignment targets.
type CounselorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Counselor, error)
}

// ActivityStore keeps the append-only mutation feed behind the dashboard.
type ActivityStore interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
	ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.ActivityEntry, error)
}
