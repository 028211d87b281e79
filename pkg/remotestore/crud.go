package remotestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

const timestampLayout = "2006-01-02 15:04:05"
const dateLayout = "2006-01-02"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return time.Now().UTC().Format(timestampLayout)
	}
	return t.Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(timestampLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func parseDate(s string) time.Time {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type employeeRow struct {
	ID           int64          `db:"id"`
	Code         string         `db:"code"`
	FirstName    string         `db:"first_name"`
	MiddleName   sql.NullString `db:"middle_name"`
	LastName     string         `db:"last_name"`
	Email        sql.NullString `db:"email"`
	Phone        sql.NullString `db:"phone"`
	Department   sql.NullString `db:"department"`
	Position     sql.NullString `db:"position"`
	Status       string         `db:"status"`
	ProfilePhoto sql.NullString `db:"profile_photo"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

func (r employeeRow) toModel() model.Employee {
	return model.Employee{
		PK: r.ID, Code: r.Code, FirstName: r.FirstName, MiddleName: r.MiddleName.String,
		LastName: r.LastName, Email: r.Email.String, Phone: r.Phone.String,
		Department: r.Department.String, Position: r.Position.String,
		Status: model.EmployeeStatus(r.Status), ProfilePhoto: r.ProfilePhoto.String,
		CreatedAt: parseTimestamp(r.CreatedAt), UpdatedAt: parseTimestamp(r.UpdatedAt),
	}
}

// FetchEmployeesSince returns every employee row updated or created at or
// after since — the incremental pull scope of spec.md §4.5.
func (s *Store) FetchEmployeesSince(ctx context.Context, since time.Time) ([]model.Employee, error) {
	rows, err := call(s, ctx, "fetch_employees", func(cctx context.Context) ([]employeeRow, error) {
		var out []employeeRow
		err := s.db.SelectContext(cctx, &out, `
			SELECT id, code, first_name, middle_name, last_name, email, phone,
				department, position, status, profile_photo, created_at, updated_at
			FROM employees WHERE updated_at >= ? OR created_at >= ?
		`, since.Format(timestampLayout), since.Format(timestampLayout))
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Employee, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

type scheduleRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   string         `db:"created_at"`
}

// FetchSchedules returns every schedule, the full-set pull policy of §4.5.
func (s *Store) FetchSchedules(ctx context.Context) ([]model.Schedule, error) {
	rows, err := call(s, ctx, "fetch_schedules", func(cctx context.Context) ([]scheduleRow, error) {
		var out []scheduleRow
		err := s.db.SelectContext(cctx, &out, `SELECT id, name, description, created_at FROM schedules`)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Schedule, len(rows))
	for i, r := range rows {
		out[i] = model.Schedule{PK: r.ID, Name: r.Name, Description: r.Description.String, CreatedAt: parseTimestamp(r.CreatedAt)}
	}
	return out, nil
}

type periodRow struct {
	ID         int64  `db:"id"`
	ScheduleID int64  `db:"schedule_id"`
	DayOfWeek  int    `db:"day_of_week"`
	PeriodName string `db:"period_name"`
	StartTime  string `db:"start_time"`
	EndTime    string `db:"end_time"`
	IsActive   bool   `db:"is_active"`
}

// FetchPeriods returns every schedule period, the full-set-with-delete
// stream of §4.5: the caller computes the remote id set from this result.
func (s *Store) FetchPeriods(ctx context.Context) ([]model.Period, error) {
	rows, err := call(s, ctx, "fetch_periods", func(cctx context.Context) ([]periodRow, error) {
		var out []periodRow
		err := s.db.SelectContext(cctx, &out, `
			SELECT id, schedule_id, day_of_week, period_name, start_time, end_time, is_active FROM schedule_periods
		`)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Period, len(rows))
	for i, r := range rows {
		start, _ := model.ParseDayTime(r.StartTime)
		end, _ := model.ParseDayTime(r.EndTime)
		out[i] = model.Period{PK: r.ID, ScheduleID: r.ScheduleID, DayOfWeek: r.DayOfWeek, Name: r.PeriodName, Start: start, End: end, Active: r.IsActive}
	}
	return out, nil
}

type employeeScheduleRow struct {
	ID            int64          `db:"id"`
	EmployeeID    int64          `db:"employee_id"`
	ScheduleID    int64          `db:"schedule_id"`
	EffectiveDate string         `db:"effective_date"`
	EndDate       sql.NullString `db:"end_date"`
	IsActive      bool           `db:"is_active"`
	CreatedAt     string         `db:"created_at"`
}

// FetchEmployeeSchedules returns every schedule assignment, the
// full-set-with-delete stream of §4.5.
func (s *Store) FetchEmployeeSchedules(ctx context.Context) ([]model.EmployeeSchedule, error) {
	rows, err := call(s, ctx, "fetch_employee_schedules", func(cctx context.Context) ([]employeeScheduleRow, error) {
		var out []employeeScheduleRow
		err := s.db.SelectContext(cctx, &out, `
			SELECT id, employee_id, schedule_id, effective_date, end_date, is_active, created_at FROM employee_schedules
		`)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.EmployeeSchedule, len(rows))
	for i, r := range rows {
		var end *time.Time
		if r.EndDate.Valid {
			t := parseDate(r.EndDate.String)
			end = &t
		}
		out[i] = model.EmployeeSchedule{
			PK: r.ID, EmployeePK: r.EmployeeID, ScheduleID: r.ScheduleID,
			EffectiveDate: parseDate(r.EffectiveDate), EndDate: end, Active: r.IsActive,
			CreatedAt: parseTimestamp(r.CreatedAt),
		}
	}
	return out, nil
}

type dailyAttendanceRow struct {
	ID                    int64           `db:"id"`
	EmployeeID            int64           `db:"employee_id"`
	AttendanceDate        string          `db:"attendance_date"`
	TimeIn                sql.NullString  `db:"time_in"`
	TimeOut               sql.NullString  `db:"time_out"`
	ScheduledHours        sql.NullFloat64 `db:"scheduled_hours"`
	ActualHours           sql.NullFloat64 `db:"actual_hours"`
	LateMinutes           int             `db:"late_minutes"`
	EarlyDepartureMinutes int             `db:"early_departure_minutes"`
	OvertimeMinutes       int             `db:"overtime_minutes"`
	BreakTimeMinutes      int             `db:"break_time_minutes"`
	Status                string          `db:"status"`
	Notes                 sql.NullString  `db:"notes"`
	CalculatedAt          string          `db:"calculated_at"`
}

// FetchDailyAttendance returns every daily summary row; the server is
// authoritative for historical corrections per §4.5.
func (s *Store) FetchDailyAttendance(ctx context.Context) ([]model.DailyAttendance, error) {
	rows, err := call(s, ctx, "fetch_daily_attendance", func(cctx context.Context) ([]dailyAttendanceRow, error) {
		var out []dailyAttendanceRow
		err := s.db.SelectContext(cctx, &out, `
			SELECT id, employee_id, attendance_date, time_in, time_out, scheduled_hours, actual_hours,
				late_minutes, early_departure_minutes, overtime_minutes, break_time_minutes, status, notes, calculated_at
			FROM daily_attendance
		`)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.DailyAttendance, len(rows))
	for i, r := range rows {
		var timeIn, timeOut *model.DayTime
		if r.TimeIn.Valid {
			t, _ := model.ParseDayTime(r.TimeIn.String)
			timeIn = &t
		}
		if r.TimeOut.Valid {
			t, _ := model.ParseDayTime(r.TimeOut.String)
			timeOut = &t
		}
		out[i] = model.DailyAttendance{
			PK: r.ID, EmployeePK: r.EmployeeID, Date: parseDate(r.AttendanceDate),
			TimeIn: timeIn, TimeOut: timeOut,
			ScheduledMinutes: int(r.ScheduledHours.Float64), ActualMinutes: int(r.ActualHours.Float64),
			LateMinutes: r.LateMinutes, EarlyDepartureMinutes: r.EarlyDepartureMinutes,
			OvertimeMinutes: r.OvertimeMinutes, BreakTimeMinutes: r.BreakTimeMinutes,
			Status: model.DailyStatus(r.Status), Notes: r.Notes.String,
			CalculatedAt: parseTimestamp(r.CalculatedAt),
		}
	}
	return out, nil
}

// UpsertDailyAttendance pushes the local daily summary up by its natural
// (employee, date) key, inserting if absent remotely and updating every
// calculated field if present (spec.md §4.5 push loop).
func (s *Store) UpsertDailyAttendance(ctx context.Context, d model.DailyAttendance) error {
	var timeIn, timeOut any
	if d.TimeIn != nil {
		timeIn = d.TimeIn.String()
	}
	if d.TimeOut != nil {
		timeOut = d.TimeOut.String()
	}
	_, err := call(s, ctx, "push_daily_attendance", func(cctx context.Context) (struct{}, error) {
		_, err := s.db.ExecContext(cctx, `
			INSERT INTO daily_attendance (employee_id, attendance_date, time_in, time_out,
				scheduled_hours, actual_hours, late_minutes, early_departure_minutes,
				overtime_minutes, break_time_minutes, status, notes, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				time_in=VALUES(time_in), time_out=VALUES(time_out),
				scheduled_hours=VALUES(scheduled_hours), actual_hours=VALUES(actual_hours),
				late_minutes=VALUES(late_minutes), early_departure_minutes=VALUES(early_departure_minutes),
				overtime_minutes=VALUES(overtime_minutes), break_time_minutes=VALUES(break_time_minutes),
				status=VALUES(status), notes=VALUES(notes), calculated_at=VALUES(calculated_at)
		`, d.EmployeePK, formatDate(d.Date), timeIn, timeOut, d.ScheduledMinutes, d.ActualMinutes,
			d.LateMinutes, d.EarlyDepartureMinutes, d.OvertimeMinutes, d.BreakTimeMinutes,
			string(d.Status), nullIfEmpty(d.Notes), formatTimestamp(d.CalculatedAt))
		return struct{}{}, err
	})
	if err != nil {
		return err
	}
	return nil
}

// InsertAttendanceLog pushes one unsynced local log into the remote mirror
// table, returning its server-assigned primary key (spec.md §4.5 push
// loop's per-row insert).
func (s *Store) InsertAttendanceLog(ctx context.Context, l model.AttendanceLog) (int64, error) {
	id, err := call(s, ctx, "push_attendance_log", func(cctx context.Context) (int64, error) {
		res, err := s.db.ExecContext(cctx, `
			INSERT INTO attendance_logs (employee_id, log_date, log_type, log_time, source, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, l.EmployeePK, formatDate(l.LogDate), string(l.LogType), formatTimestamp(l.LogTime), l.Source,
			nullIfEmpty(l.Notes), formatTimestamp(l.CreatedAt))
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

type leaveRow struct {
	EmployeeID int64  `db:"employee_id"`
	LeaveDate  string `db:"leave_date"`
	LeaveType  string `db:"leave_type"`
}

// ApprovedLeave implements attendance.LeaveSource against the remote Leave
// table referenced informally by spec.md §4.4.
func (s *Store) ApprovedLeave(ctx context.Context, employeePK int64, date time.Time) (model.Leave, bool, error) {
	row, err := call(s, ctx, "approved_leave", func(cctx context.Context) (*leaveRow, error) {
		var r leaveRow
		err := s.db.GetContext(cctx, &r, `
			SELECT employee_id, leave_date, leave_type FROM leaves
			WHERE employee_id = ? AND leave_date = ? AND status = 'approved'
		`, employeePK, formatDate(date))
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil {
		return model.Leave{}, false, err
	}
	if row == nil {
		return model.Leave{}, false, nil
	}
	return model.Leave{EmployeePK: row.EmployeeID, Date: parseDate(row.LeaveDate), Type: model.LeaveType(row.LeaveType)}, true, nil
}
