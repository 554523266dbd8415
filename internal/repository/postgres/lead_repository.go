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

const leadColumns = `id, name, contact_number, email_id, interested_country, services,
	comments, call_status, lead_status, counselor_id, version, created_at, updated_at`

// LeadRepository implements repository.LeadRepository using PostgreSQL.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs a new repository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Get fetches an imported lead by id.
func (r *LeadRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ImportedLead, error) {
	q := `SELECT ` + leadColumns + ` FROM imported_leads WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, q, id)
	var record leadRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, storeError("lead repo: get", err)
	}

	lead := record.toDomain()
	return &lead, nil
}

// ListByStatus returns imported leads, optionally filtered by lead status,
// newest first.
func (r *LeadRepository) ListByStatus(ctx context.Context, status *domain.LeadStatus, limit int) ([]domain.ImportedLead, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sqlx.Rows
	var err error
	if status != nil {
		rows, err = r.db.QueryxContext(ctx,
			`SELECT `+leadColumns+` FROM imported_leads WHERE lead_status = $1 ORDER BY created_at DESC, id ASC LIMIT $2`,
			string(*status), limit)
	} else {
		rows, err = r.db.QueryxContext(ctx,
			`SELECT `+leadColumns+` FROM imported_leads ORDER BY created_at DESC, id ASC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, storeError("lead repo: list by status", err)
	}
	defer rows.Close()

	var leads []domain.ImportedLead
	for rows.Next() {
		var record leadRecord
		if err := rows.StructScan(&record); err != nil {
			return nil, fmt.Errorf("lead repo: scan: %w", err)
		}
		leads = append(leads, record.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("lead repo: rows err", err)
	}

	return leads, nil
}

// UpdateVersioned writes the lead back, bumping its version. ErrConflict
// when the stored version moved on, ErrNotFound when the lead is gone.
func (r *LeadRepository) UpdateVersioned(ctx context.Context, lead *domain.ImportedLead) error {
	q := `UPDATE imported_leads SET
		call_status = :call_status,
		lead_status = :lead_status,
		counselor_id = :counselor_id,
		comments = :comments,
		updated_at = :updated_at,
		version = version + 1
	 WHERE id = :id AND version = :version`

	params := map[string]any{
		"id":           lead.ID,
		"call_status":  nullString(lead.CallStatus),
		"lead_status":  string(lead.LeadStatus),
		"counselor_id": lead.CounselorID,
		"comments":     nullString(lead.Comments),
		"updated_at":   lead.UpdatedAt,
		"version":      lead.Version,
	}

	res, err := r.db.NamedExecContext(ctx, q, params)
	if err != nil {
		return storeError("lead repo: update", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("lead repo: rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowxContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM imported_leads WHERE id = $1)`, lead.ID,
		).Scan(&exists); err != nil {
			return storeError("lead repo: conflict probe", err)
		}
		if exists {
			return repository.ErrConflict
		}
		return repository.ErrNotFound
	}

	lead.Version++
	return nil
}

// BulkInsert stores a batch of freshly imported leads.
func (r *LeadRepository) BulkInsert(ctx context.Context, leads []domain.ImportedLead) error {
	if len(leads) == 0 {
		return nil
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO imported_leads (
			id, name, contact_number, email_id, interested_country, services,
			comments, call_status, lead_status, counselor_id, version, created_at, updated_at
		) VALUES (
			:id, :name, :contact_number, :email_id, :interested_country, :services,
			:comments, :call_status, :lead_status, :counselor_id, :version, :created_at, :updated_at
		)`

		for _, lead := range leads {
			params := map[string]any{
				"id":                 lead.ID,
				"name":               lead.Name,
				"contact_number":     lead.ContactNumber,
				"email_id":           nullString(lead.EmailID),
				"interested_country": nullString(lead.InterestedCountry),
				"services":           nullString(lead.Services),
				"comments":           nullString(lead.Comments),
				"call_status":        nullString(lead.CallStatus),
				"lead_status":        string(lead.LeadStatus),
				"counselor_id":       lead.CounselorID,
				"version":            lead.Version,
				"created_at":         lead.CreatedAt,
				"updated_at":         lead.UpdatedAt,
			}
			if _, err := tx.NamedExecContext(ctx, q, params); err != nil {
				return storeError("lead repo: bulk insert", err)
			}
		}
		return nil
	})
}

type leadRecord struct {
	ID                uuid.UUID      `db:"id"`
	Name              string         `db:"name"`
	ContactNumber     string         `db:"contact_number"`
	EmailID           sql.NullString `db:"email_id"`
	InterestedCountry sql.NullString `db:"interested_country"`
	Services          sql.NullString `db:"services"`
	Comments          sql.NullString `db:"comments"`
	CallStatus        sql.NullString `db:"call_status"`
	LeadStatus        string         `db:"lead_status"`
	CounselorID       *uuid.UUID     `db:"counselor_id"`
	Version           int64          `db:"version"`
	CreatedAt         sql.NullTime   `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
}

func (r leadRecord) toDomain() domain.ImportedLead {
	return domain.ImportedLead{
		ID:                r.ID,
		Name:              r.Name,
		ContactNumber:     r.ContactNumber,
		EmailID:           r.EmailID.String,
		InterestedCountry: r.InterestedCountry.String,
		Services:          r.Services.String,
		Comments:          r.Comments.String,
		CallStatus:        r.CallStatus.String,
		LeadStatus:        domain.LeadStatus(r.LeadStatus),
		CounselorID:       r.CounselorID,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}
