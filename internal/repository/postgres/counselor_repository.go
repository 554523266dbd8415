package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/counsel-crm/internal/domain"
	"github.com/acme/counsel-crm/internal/repository"
)

// CounselorRepository implements repository.CounselorRepository using PostgreSQL.
type CounselorRepository struct {
	db *sqlx.DB
}

// NewCounselorRepository constructs a new repository.
func NewCounselorRepository(db *sqlx.DB) *CounselorRepository {
	return &CounselorRepository{db: db}
}

// Get fetches a counselor by id.
func (r *CounselorRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Counselor, error) {
	q := `SELECT id, name, email, active, created_at FROM counselors WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, q, id)
	var record counselorRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, storeError("counselor repo: get", err)
	}

	counselor := record.toDomain()
	return &counselor, nil
}

type counselorRecord struct {
	ID        uuid.UUID      `db:"id"`
	Name      string         `db:"name"`
	Email     sql.NullString `db:"email"`
	Active    bool           `db:"active"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

func (r counselorRecord) toDomain() domain.Counselor {
	return domain.Counselor{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email.String,
		Active:    r.Active,
		CreatedAt: r.CreatedAt.Time,
	}
}
