package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type employeeScheduleRow struct {
	ID            int64          `db:"id"`
	EmployeeID    int64          `db:"employee_id"`
	ScheduleID    int64          `db:"schedule_id"`
	EffectiveDate string         `db:"effective_date"`
	EndDate       sql.NullString `db:"end_date"`
	IsActive      bool           `db:"is_active"`
	CreatedAt     string         `db:"created_at"`
	LastSynced    string         `db:"last_synced"`
}

func (r employeeScheduleRow) toModel() model.EmployeeSchedule {
	var end *time.Time
	if r.EndDate.Valid {
		t := parseDate(r.EndDate.String)
		end = &t
	}
	return model.EmployeeSchedule{
		PK:            r.ID,
		EmployeePK:    r.EmployeeID,
		ScheduleID:    r.ScheduleID,
		EffectiveDate: parseDate(r.EffectiveDate),
		EndDate:       end,
		Active:        r.IsActive,
		CreatedAt:     parseTimestamp(r.CreatedAt),
		LastSynced:    parseTimestamp(r.LastSynced),
	}
}

// UpsertEmployeeSchedule inserts or updates a schedule assignment by primary key.
func (s *Store) UpsertEmployeeSchedule(ctx context.Context, es model.EmployeeSchedule) error {
	return upsertEmployeeSchedule(ctx, s.db, es)
}

func upsertEmployeeSchedule(ctx context.Context, db sqlx.ExtContext, es model.EmployeeSchedule) error {
	var endDate any
	if es.EndDate != nil {
		endDate = formatDate(*es.EndDate)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO employee_schedules (id, employee_id, schedule_id, effective_date, end_date, is_active, created_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id=excluded.employee_id, schedule_id=excluded.schedule_id,
			effective_date=excluded.effective_date, end_date=excluded.end_date,
			is_active=excluded.is_active, last_synced=excluded.last_synced
	`, es.PK, es.EmployeePK, es.ScheduleID, formatDate(es.EffectiveDate), endDate, es.Active,
		formatTimestamp(es.CreatedAt), formatTimestamp(es.LastSynced))
	if err != nil {
		return fmt.Errorf("upsert employee schedule %d: %w", es.PK, err)
	}
	return nil
}

// ReplaceEmployeeSchedules applies the same full-set-with-delete pull policy
// as ReplacePeriods.
func (s *Store) ReplaceEmployeeSchedules(ctx context.Context, assignments []model.EmployeeSchedule, remoteIDs []int64) (deleted int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace employee schedules: begin: %w", err)
	}
	defer tx.Rollback()

	deleted, err = deleteAbsent(ctx, tx, "employee_schedules", remoteIDs)
	if err != nil {
		return 0, fmt.Errorf("replace employee schedules: delete: %w", err)
	}
	for _, es := range assignments {
		if err := upsertEmployeeSchedule(ctx, tx, es); err != nil {
			return 0, fmt.Errorf("replace employee schedules: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace employee schedules: commit: %w", err)
	}
	return deleted, nil
}

// ActiveScheduleFor returns the Schedule active for employeePK on date: the
// most-recent-effective, non-expired, active assignment row. Returns
// ok=false if no assignment covers date (spec.md §3's uniqueness invariant
// means at most one row should ever match; ORDER BY + LIMIT 1 defends
// against a transient double-row during a pull).
func (s *Store) ActiveScheduleFor(ctx context.Context, employeePK int64, date time.Time) (model.Schedule, bool, error) {
	d := formatDate(date)
	var row scheduleRow
	err := s.db.GetContext(ctx, &row, `
		SELECT sc.* FROM employee_schedules es
		JOIN schedules sc ON sc.id = es.schedule_id
		WHERE es.employee_id = ? AND es.is_active = 1
			AND es.effective_date <= ?
			AND (es.end_date IS NULL OR es.end_date >= ?)
		ORDER BY es.effective_date DESC
		LIMIT 1
	`, employeePK, d, d)
	if err == sql.ErrNoRows {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("active schedule for employee %d: %w", employeePK, err)
	}
	return row.toModel(), true, nil
}
