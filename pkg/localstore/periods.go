package localstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type periodRow struct {
	ID         int64  `db:"id"`
	ScheduleID int64  `db:"schedule_id"`
	DayOfWeek  int    `db:"day_of_week"`
	PeriodName string `db:"period_name"`
	StartTime  string `db:"start_time"`
	EndTime    string `db:"end_time"`
	IsActive   bool   `db:"is_active"`
	LastSynced string `db:"last_synced"`
}

func (r periodRow) toModel() model.Period {
	start, _ := model.ParseDayTime(r.StartTime)
	end, _ := model.ParseDayTime(r.EndTime)
	return model.Period{
		PK:         r.ID,
		ScheduleID: r.ScheduleID,
		DayOfWeek:  r.DayOfWeek,
		Name:       r.PeriodName,
		Start:      start,
		End:        end,
		Active:     r.IsActive,
		LastSynced: parseTimestamp(r.LastSynced),
	}
}

// UpsertPeriod inserts or updates a schedule period by primary key.
func (s *Store) UpsertPeriod(ctx context.Context, p model.Period) error {
	return upsertPeriod(ctx, s.db, p)
}

func upsertPeriod(ctx context.Context, db sqlx.ExtContext, p model.Period) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schedule_periods (id, schedule_id, day_of_week, period_name, start_time, end_time, is_active, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schedule_id=excluded.schedule_id, day_of_week=excluded.day_of_week,
			period_name=excluded.period_name, start_time=excluded.start_time,
			end_time=excluded.end_time, is_active=excluded.is_active, last_synced=excluded.last_synced
	`, p.PK, p.ScheduleID, p.DayOfWeek, p.Name, p.Start.String(), p.End.String(), p.Active, formatTimestamp(p.LastSynced))
	if err != nil {
		return fmt.Errorf("upsert period %d: %w", p.PK, err)
	}
	return nil
}

// ReplacePeriods applies the full-set-with-delete pull policy of spec.md
// §4.5: delete local rows whose primary key is absent from remoteIDs, then
// upsert every row in periods. Runs inside one transaction so a pull that
// fails partway never leaves the local set in a mixed state.
func (s *Store) ReplacePeriods(ctx context.Context, periods []model.Period, remoteIDs []int64) (deleted int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace periods: begin: %w", err)
	}
	defer tx.Rollback()

	deleted, err = deleteAbsent(ctx, tx, "schedule_periods", remoteIDs)
	if err != nil {
		return 0, fmt.Errorf("replace periods: delete: %w", err)
	}
	for _, p := range periods {
		if err := upsertPeriod(ctx, tx, p); err != nil {
			return 0, fmt.Errorf("replace periods: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace periods: commit: %w", err)
	}
	return deleted, nil
}

// deleteAbsent deletes rows from table whose id is not in keepIDs. An empty
// keepIDs deletes every row in the table (the remote side reporting zero
// rows is authoritative, not a signal to skip the delete).
func deleteAbsent(ctx context.Context, db sqlx.ExtContext, table string, keepIDs []int64) (int, error) {
	if len(keepIDs) == 0 {
		res, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`DELETE FROM %s WHERE id NOT IN (?)`, table), keepIDs)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PeriodsForScheduleDay returns the active periods of schedule scheduleID on
// the given day-of-week (0=Monday..6=Sunday), ordered by start time. This is
// the query behind C5's "active Period for today's day-of-week" lookups.
func (s *Store) PeriodsForScheduleDay(ctx context.Context, scheduleID int64, dayOfWeek int) ([]model.Period, error) {
	var rows []periodRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM schedule_periods
		WHERE schedule_id = ? AND day_of_week = ? AND is_active = 1
		ORDER BY start_time ASC
	`, scheduleID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("periods for schedule %d day %d: %w", scheduleID, dayOfWeek, err)
	}
	out := make([]model.Period, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
