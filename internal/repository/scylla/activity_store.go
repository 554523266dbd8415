package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/counsel-crm/internal/domain"
)

// ActivityStore keeps the append-only activity feed in Scylla, partitioned
// by owner and day so recent entries stay cheap to read.
type ActivityStore struct {
	session *gocql.Session
}

// NewActivityStore creates a new activity store.
func NewActivityStore(session *gocql.Session) *ActivityStore {
	return &ActivityStore{session: session}
}

// Append inserts a feed entry.
func (s *ActivityStore) Append(ctx context.Context, entry domain.ActivityEntry) error {
	bucket := bucketDate(entry.OccurredAt)
	if err := s.session.Query(`INSERT INTO activity_by_owner (owner_id, bucket, entry_id, action, subject_id, subject_name, note, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OwnerID.String(), bucket, entry.ID.String(), string(entry.Action),
		entry.SubjectID.String(), entry.SubjectName, entry.Note, entry.OccurredAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("activity store: insert: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries for an owner, scanning backwards one
// day bucket at a time until limit is met or a week is exhausted.
func (s *ActivityStore) ListRecent(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	entries := make([]domain.ActivityEntry, 0, limit)
	day := bucketDate(time.Now().UTC())

	for i := 0; i < 7 && len(entries) < limit; i++ {
		iter := s.session.Query(`SELECT entry_id, action, subject_id, subject_name, note, occurred_at
			FROM activity_by_owner WHERE owner_id = ? AND bucket = ? ORDER BY occurred_at DESC LIMIT ?`,
			ownerID.String(), day, limit-len(entries),
		).WithContext(ctx).Iter()

		var (
			entryIDStr   string
			action       string
			subjectIDStr string
			subjectName  string
			note         string
			occurredAt   time.Time
		)

		for iter.Scan(&entryIDStr, &action, &subjectIDStr, &subjectName, &note, &occurredAt) {
			entryID, err := uuid.Parse(entryIDStr)
			if err != nil {
				continue
			}
			subjectID, err := uuid.Parse(subjectIDStr)
			if err != nil {
				continue
			}
			entries = append(entries, domain.ActivityEntry{
				ID:          entryID,
				OwnerID:     ownerID,
				Action:      domain.ActivityAction(action),
				SubjectID:   subjectID,
				SubjectName: subjectName,
				Note:        note,
				OccurredAt:  occurredAt,
			})
		}

		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("activity store: iter close: %w", err)
		}

		day = day.AddDate(0, 0, -1)
	}

	return entries, nil
}

func bucketDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
