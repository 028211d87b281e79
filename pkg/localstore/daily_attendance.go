package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type dailyAttendanceRow struct {
	ID                    int64          `db:"id"`
	EmployeeID            int64          `db:"employee_id"`
	AttendanceDate        string         `db:"attendance_date"`
	TimeIn                sql.NullString `db:"time_in"`
	TimeOut               sql.NullString `db:"time_out"`
	ScheduledHours        sql.NullFloat64 `db:"scheduled_hours"`
	ActualHours           sql.NullFloat64 `db:"actual_hours"`
	LateMinutes           int            `db:"late_minutes"`
	EarlyDepartureMinutes int            `db:"early_departure_minutes"`
	OvertimeMinutes       int            `db:"overtime_minutes"`
	BreakTimeMinutes      int            `db:"break_time_minutes"`
	Status                string         `db:"status"`
	Notes                 sql.NullString `db:"notes"`
	CalculatedAt          string         `db:"calculated_at"`
	LastSynced            string         `db:"last_synced"`
}

func (r dailyAttendanceRow) toModel() model.DailyAttendance {
	var timeIn, timeOut *model.DayTime
	if r.TimeIn.Valid {
		t, _ := model.ParseDayTime(r.TimeIn.String)
		timeIn = &t
	}
	if r.TimeOut.Valid {
		t, _ := model.ParseDayTime(r.TimeOut.String)
		timeOut = &t
	}
	return model.DailyAttendance{
		PK:                    r.ID,
		EmployeePK:            r.EmployeeID,
		Date:                  parseDate(r.AttendanceDate),
		TimeIn:                timeIn,
		TimeOut:               timeOut,
		ScheduledMinutes:      int(r.ScheduledHours.Float64),
		ActualMinutes:         int(r.ActualHours.Float64),
		LateMinutes:           r.LateMinutes,
		EarlyDepartureMinutes: r.EarlyDepartureMinutes,
		OvertimeMinutes:       r.OvertimeMinutes,
		BreakTimeMinutes:      r.BreakTimeMinutes,
		Status:                model.DailyStatus(r.Status),
		Notes:                 r.Notes.String,
		CalculatedAt:          parseTimestamp(r.CalculatedAt),
		LastSynced:            parseTimestamp(r.LastSynced),
	}
}

// GetDailyAttendance returns the (employee, date) summary row, if any.
func (s *Store) GetDailyAttendance(ctx context.Context, employeePK int64, date time.Time) (model.DailyAttendance, bool, error) {
	var row dailyAttendanceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM daily_attendance WHERE employee_id = ? AND attendance_date = ?
	`, employeePK, formatDate(date))
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyAttendance{}, false, nil
	}
	if err != nil {
		return model.DailyAttendance{}, false, fmt.Errorf("get daily attendance %d/%s: %w", employeePK, formatDate(date), err)
	}
	return row.toModel(), true, nil
}

// UpsertDailyAttendance writes the full row by the natural (employee, date)
// key — the shape both C5's Path A/B updates and C6's pull-side upsert of
// server-authoritative historical corrections use.
func (s *Store) UpsertDailyAttendance(ctx context.Context, d model.DailyAttendance) error {
	var timeIn, timeOut any
	if d.TimeIn != nil {
		timeIn = d.TimeIn.String()
	}
	if d.TimeOut != nil {
		timeOut = d.TimeOut.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_attendance (employee_id, attendance_date, time_in, time_out,
			scheduled_hours, actual_hours, late_minutes, early_departure_minutes,
			overtime_minutes, break_time_minutes, status, notes, calculated_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, attendance_date) DO UPDATE SET
			time_in=excluded.time_in, time_out=excluded.time_out,
			scheduled_hours=excluded.scheduled_hours, actual_hours=excluded.actual_hours,
			late_minutes=excluded.late_minutes, early_departure_minutes=excluded.early_departure_minutes,
			overtime_minutes=excluded.overtime_minutes, break_time_minutes=excluded.break_time_minutes,
			status=excluded.status, notes=excluded.notes, calculated_at=excluded.calculated_at,
			last_synced=excluded.last_synced
	`, d.EmployeePK, formatDate(d.Date), timeIn, timeOut, d.ScheduledMinutes, d.ActualMinutes,
		d.LateMinutes, d.EarlyDepartureMinutes, d.OvertimeMinutes, d.BreakTimeMinutes,
		string(d.Status), nullIfEmpty(d.Notes), formatTimestamp(d.CalculatedAt), formatTimestamp(d.LastSynced))
	if err != nil {
		return fmt.Errorf("upsert daily attendance %d/%s: %w", d.EmployeePK, formatDate(d.Date), err)
	}
	return nil
}

// IncompleteBeforeToday returns every daily_attendance row dated before
// today with no time_in and a status not already in {absent, leave} — the
// day-initializer's previous-day absence sweep scope (spec.md §4.4 step 1).
func (s *Store) IncompleteBeforeToday(ctx context.Context, today time.Time) ([]model.DailyAttendance, error) {
	var rows []dailyAttendanceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM daily_attendance
		WHERE attendance_date < ? AND time_in IS NULL AND status NOT IN ('absent', 'leave')
	`, formatDate(today))
	if err != nil {
		return nil, fmt.Errorf("incomplete before today: %w", err)
	}
	out := make([]model.DailyAttendance, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// PushWindow returns every daily_attendance row dated on or after
// (today - windowDays), the scope C6's push loop upserts to the remote
// mirror on every cycle (spec.md §4.5).
func (s *Store) PushWindow(ctx context.Context, today time.Time, windowDays int) ([]model.DailyAttendance, error) {
	cutoff := today.AddDate(0, 0, -windowDays)
	var rows []dailyAttendanceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM daily_attendance WHERE attendance_date >= ?
	`, formatDate(cutoff))
	if err != nil {
		return nil, fmt.Errorf("push window: %w", err)
	}
	out := make([]model.DailyAttendance, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
