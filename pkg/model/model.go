// Package model defines the entities of spec.md §3, shared by the local and
// remote stores, the attendance rules engine, and the sync engine. Per
// spec.md §9's design note on dynamic typing, every payload that crosses a
// store boundary is one of these declared, fixed-shape structs rather than a
// loose map.
package model

import (
	"fmt"
	"time"
)

// EmployeeStatus is the employee lifecycle state. Employees are never
// deleted locally by the kiosk; deactivation is expressed by status alone.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// Employee is the server-assigned roster entry.
type Employee struct {
	PK            int64
	Code          string
	FirstName     string
	MiddleName    string
	LastName      string
	Email         string
	Phone         string
	Department    string
	Position      string
	Status        EmployeeStatus
	ProfilePhoto  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSynced    time.Time
}

// FullName joins the employee's name parts the way the kiosk displays them.
func (e Employee) FullName() string {
	if e.MiddleName == "" {
		return e.FirstName + " " + e.LastName
	}
	return e.FirstName + " " + e.MiddleName + " " + e.LastName
}

// Embedding is one enrolled face vector, belonging to exactly one Employee.
// Immutable once created.
type Embedding struct {
	PK         int64
	EmployeePK int64
	Vector     [512]float32
	CreatedAt  time.Time
}

// Schedule is a named template owning an ordered set of Periods.
type Schedule struct {
	PK          int64
	Name        string
	Description string
	CreatedAt   time.Time
	LastSynced  time.Time
}

// Period is a contiguous scheduled interval on one day of the week. Day 0 is
// Monday per spec.md §3. No Period may straddle midnight.
type Period struct {
	PK         int64
	ScheduleID int64
	DayOfWeek  int // 0=Monday .. 6=Sunday
	Name       string
	Start      DayTime
	End        DayTime
	Active     bool
	LastSynced time.Time
}

// DayTime is a time-of-day with no associated date, stored as HH:MM:SS.
type DayTime struct {
	Hour, Minute, Second int
}

// Minutes returns the time-of-day as minutes since midnight.
func (t DayTime) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns the time.Time obtained by placing this time-of-day onto date's
// calendar day, in date's location.
func (t DayTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, date.Location())
}

// String renders as HH:MM:SS, the local/remote store's wire format.
func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseDayTime parses an "HH:MM:SS" string.
func ParseDayTime(s string) (DayTime, error) {
	var t DayTime
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second); err != nil {
		return DayTime{}, fmt.Errorf("parse day-time %q: %w", s, err)
	}
	return t, nil
}

// EmployeeSchedule assigns one Schedule to one Employee over an effective
// date range.
type EmployeeSchedule struct {
	PK             int64
	EmployeePK     int64
	ScheduleID     int64
	EffectiveDate  time.Time
	EndDate        *time.Time
	Active         bool
	CreatedAt      time.Time
	LastSynced     time.Time
}

// LogType distinguishes time-in from time-out events.
type LogType string

const (
	TimeIn  LogType = "time_in"
	TimeOut LogType = "time_out"
)

// AttendanceLog is an immutable verification-derived event.
type AttendanceLog struct {
	PK         int64
	EmployeePK int64
	LogDate    time.Time // calendar date only, kiosk-local
	LogType    LogType
	LogTime    time.Time
	Source     string
	Notes      string
	CreatedAt  time.Time
	Synced     bool
	SyncedAt   *time.Time
	MirrorID   *int64
}

// DailyStatus is the per-day attendance summary classification.
type DailyStatus string

const (
	DailyIncomplete DailyStatus = "incomplete"
	DailyComplete   DailyStatus = "complete"
	DailyAbsent     DailyStatus = "absent"
	DailyLeave      DailyStatus = "leave"
)

// DailyAttendance is the per-(employee, date) summary record.
type DailyAttendance struct {
	PK                     int64
	EmployeePK             int64
	Date                   time.Time
	TimeIn                 *DayTime
	TimeOut                *DayTime
	ScheduledMinutes       int
	ActualMinutes          int
	LateMinutes            int
	EarlyDepartureMinutes  int
	OvertimeMinutes        int
	BreakTimeMinutes       int
	Status                 DailyStatus
	Notes                  string
	CalculatedAt           time.Time
	LastSynced             time.Time
}

// SyncStream names a logical replication stream, one row per stream in
// sync_status.
type SyncStream string

const (
	StreamEmployees        SyncStream = "employees"
	StreamSchedules        SyncStream = "schedules"
	StreamSchedulePeriods  SyncStream = "schedule_periods"
	StreamEmployeeSchedules SyncStream = "employee_schedules"
	StreamAttendanceLogs   SyncStream = "attendance_logs"
	StreamDailyAttendance  SyncStream = "daily_attendance"
)

// SyncStatus tracks the health of one replication stream.
type SyncStatus struct {
	PK              int64
	Table           SyncStream
	LastPullTime    *time.Time
	LastPushTime    *time.Time
	LastPullSuccess bool
	LastPushSuccess bool
	PullError       string
	PushError       string
	UpdatedAt       time.Time
}

// LeaveType names the kind of approved leave a day-initializer lookup may
// find covering an employee's date.
type LeaveType string

// Leave is an approved leave record, sourced from the remote store.
type Leave struct {
	EmployeePK int64
	Date       time.Time
	Type       LeaveType
}
