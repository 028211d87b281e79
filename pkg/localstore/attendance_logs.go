package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type attendanceLogRow struct {
	ID         int64          `db:"id"`
	EmployeeID int64          `db:"employee_id"`
	LogDate    string         `db:"log_date"`
	LogType    string         `db:"log_type"`
	LogTime    string         `db:"log_time"`
	Source     string         `db:"source"`
	Notes      sql.NullString `db:"notes"`
	CreatedAt  string         `db:"created_at"`
	Synced     bool           `db:"synced"`
	SyncedAt   sql.NullString `db:"synced_at"`
	MirrorID   sql.NullInt64  `db:"mirror_id"`
}

func (r attendanceLogRow) toModel() model.AttendanceLog {
	var syncedAt *time.Time
	if r.SyncedAt.Valid {
		t := parseTimestamp(r.SyncedAt.String)
		syncedAt = &t
	}
	var mirrorID *int64
	if r.MirrorID.Valid {
		mirrorID = &r.MirrorID.Int64
	}
	return model.AttendanceLog{
		PK:         r.ID,
		EmployeePK: r.EmployeeID,
		LogDate:    parseDate(r.LogDate),
		LogType:    model.LogType(r.LogType),
		LogTime:    parseTimestamp(r.LogTime),
		Source:     r.Source,
		Notes:      r.Notes.String,
		CreatedAt:  parseTimestamp(r.CreatedAt),
		Synced:     r.Synced,
		SyncedAt:   syncedAt,
		MirrorID:   mirrorID,
	}
}

// InsertAttendanceLog writes a new immutable attendance event, C5's only
// write path into attendance_logs.
func (s *Store) InsertAttendanceLog(ctx context.Context, l model.AttendanceLog) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_logs (employee_id, log_date, log_type, log_time, source, notes, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, l.EmployeePK, formatDate(l.LogDate), string(l.LogType), formatTimestamp(l.LogTime), l.Source,
		nullIfEmpty(l.Notes), formatTimestamp(l.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert attendance log for employee %d: %w", l.EmployeePK, err)
	}
	return res.LastInsertId()
}

// LogsForEmployeeDate returns every log for employeePK on date, ordered by
// log_time ascending — the ordering §4.3's "determine next log type" and
// §5's per-employee monotonicity guarantee both depend on.
func (s *Store) LogsForEmployeeDate(ctx context.Context, employeePK int64, date time.Time) ([]model.AttendanceLog, error) {
	var rows []attendanceLogRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM attendance_logs WHERE employee_id = ? AND log_date = ? ORDER BY log_time ASC
	`, employeePK, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("logs for employee %d date %s: %w", employeePK, formatDate(date), err)
	}
	out := make([]model.AttendanceLog, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UnsyncedLogs returns every log not yet pushed to the remote mirror,
// ordered by log_time ascending (push preserves per-employee order, spec.md
// §5).
func (s *Store) UnsyncedLogs(ctx context.Context) ([]model.AttendanceLog, error) {
	var rows []attendanceLogRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM attendance_logs WHERE synced = 0 ORDER BY log_time ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("unsynced logs: %w", err)
	}
	out := make([]model.AttendanceLog, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// MarkLogSynced records a successful push of log pk against mirrorID.
func (s *Store) MarkLogSynced(ctx context.Context, pk int64, mirrorID int64, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE attendance_logs SET synced = 1, synced_at = ?, mirror_id = ? WHERE id = ?
	`, formatTimestamp(syncedAt), mirrorID, pk)
	if err != nil {
		return fmt.Errorf("mark log %d synced: %w", pk, err)
	}
	return nil
}
