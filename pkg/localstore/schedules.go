package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type scheduleRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   string         `db:"created_at"`
	LastSynced  string         `db:"last_synced"`
}

func (r scheduleRow) toModel() model.Schedule {
	return model.Schedule{
		PK:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   parseTimestamp(r.CreatedAt),
		LastSynced:  parseTimestamp(r.LastSynced),
	}
}

// UpsertSchedule inserts or updates a schedule by primary key, the C6 pull
// path for the full-set "schedules" stream.
func (s *Store) UpsertSchedule(ctx context.Context, sc model.Schedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, name, description, created_at, last_synced)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, last_synced=excluded.last_synced
	`, sc.PK, sc.Name, nullIfEmpty(sc.Description), formatTimestamp(sc.CreatedAt), formatTimestamp(sc.LastSynced))
	if err != nil {
		return fmt.Errorf("upsert schedule %d: %w", sc.PK, err)
	}
	return nil
}

// GetScheduleByPK returns the schedule with the given primary key.
func (s *Store) GetScheduleByPK(ctx context.Context, pk int64) (model.Schedule, bool, error) {
	var row scheduleRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM schedules WHERE id = ?`, pk)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("get schedule %d: %w", pk, err)
	}
	return row.toModel(), true, nil
}
