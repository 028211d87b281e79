// Package attendance implements C5: classifying a verified decision against
// the employee's schedule, enforcing the cooldown/logout gates, and keeping
// the daily summary record correct on every write.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

// LeaveSource answers whether an employee is on approved leave for a given
// date. It is sourced from the remote store's Leave table (spec.md §4.4); a
// nil LeaveSource always answers "no leave" per spec.md §9's Open Question,
// degrading gracefully instead of requiring a second code path.
type LeaveSource interface {
	ApprovedLeave(ctx context.Context, employeePK int64, date time.Time) (model.Leave, bool, error)
}

// ConfirmFunc is the operator UI's undertime-confirmation capability (§4.3
// G4, §6): shows message and returns whether the operator confirmed.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Config is the subset of internal/config.Config the rules engine needs.
type Config struct {
	LoginCooldownEnabled     bool
	LoginCooldownDuration    time.Duration
	LogoutRestrictionEnabled bool
	Source                   string // AttendanceLog.Source tag, e.g. "kiosk"
}

// Engine is C5, the attendance rules engine.
type Engine struct {
	cfg   Config
	store *localstore.Store
	leave LeaveSource
	clock clock.Clock
	log   *slog.Logger
}

// New constructs an Engine. leave may be nil (see LeaveSource).
func New(cfg Config, store *localstore.Store, leave LeaveSource, clk clock.Clock, log *slog.Logger) *Engine {
	return &Engine{cfg: cfg, store: store, leave: leave, clock: clk, log: log}
}

// Rejection is a ValidationFailure from one of G1-G4: a successful,
// structured rejection of an event, not an error (spec.md §7).
type Rejection = kioskerr.ValidationFailure

// RecordVerification is C5's entry point, invoked on every VERIFIED(emp)
// decision from C4. It determines the next log type, runs gates G1-G4 in
// order, and on success writes the AttendanceLog and updates the daily
// summary in one pass. A non-nil *Rejection means no event was written but
// no error occurred.
func (e *Engine) RecordVerification(ctx context.Context, employeePK int64, confirm ConfirmFunc) (*model.AttendanceLog, *Rejection, error) {
	now := e.clock.Now()
	today := startOfDay(now)

	sched, hasSched, err := e.store.ActiveScheduleFor(ctx, employeePK, today)
	if err != nil {
		return nil, nil, fmt.Errorf("record verification: %w", err)
	}
	dow := isoWeekday(today)
	var periods []model.Period
	if hasSched {
		periods, err = e.store.PeriodsForScheduleDay(ctx, sched.PK, dow)
		if err != nil {
			return nil, nil, fmt.Errorf("record verification: %w", err)
		}
	}
	if !hasSched || len(periods) == 0 {
		// G1
		return nil, &Rejection{Reason: kioskerr.ReasonNoSchedule}, nil
	}

	todayLogs, err := e.store.LogsForEmployeeDate(ctx, employeePK, today)
	if err != nil {
		return nil, nil, fmt.Errorf("record verification: %w", err)
	}
	logType := nextLogType(todayLogs)

	// G2
	if e.cfg.LogoutRestrictionEnabled {
		if hasTimeOut(todayLogs) {
			return nil, &Rejection{Reason: kioskerr.ReasonAlreadyLoggedOut}, nil
		}
	}

	// G3
	if e.cfg.LoginCooldownEnabled {
		if lastIn, ok := lastTimeIn(todayLogs); ok {
			if d := now.Sub(lastIn); d < e.cfg.LoginCooldownDuration {
				endsAt := lastIn.Add(e.cfg.LoginCooldownDuration)
				return nil, &Rejection{
					Reason: kioskerr.ReasonCooldown,
					Detail: map[string]any{"cooldown_ends_at": endsAt},
				}, nil
			}
		}
	}

	firstStart := periods[0].Start
	lastEnd := periods[0].End
	for _, p := range periods {
		if p.Start.Minutes() < firstStart.Minutes() {
			firstStart = p.Start
		}
		if p.End.Minutes() > lastEnd.Minutes() {
			lastEnd = p.End
		}
	}
	scheduledEnd := lastEnd.On(today)

	if logType == model.TimeOut && now.Before(scheduledEnd) {
		// G4: undertime confirmation required.
		if confirm == nil {
			return nil, &Rejection{Reason: kioskerr.ReasonUndertimeRefused}, nil
		}
		ok, err := confirm(ctx, "Logging out before your scheduled end time. Confirm time out?")
		if err != nil {
			return nil, nil, fmt.Errorf("record verification: confirm: %w", err)
		}
		if !ok {
			return nil, &Rejection{Reason: kioskerr.ReasonUndertimeRefused}, nil
		}
	}

	notes := classify(logType, now, firstStart, lastEnd, today)

	log := model.AttendanceLog{
		EmployeePK: employeePK,
		LogDate:    today,
		LogType:    logType,
		LogTime:    now,
		Source:     e.cfg.Source,
		Notes:      notes,
		CreatedAt:  now,
	}
	pk, err := e.store.InsertAttendanceLog(ctx, log)
	if err != nil {
		return nil, nil, fmt.Errorf("record verification: %w", err)
	}
	log.PK = pk

	switch logType {
	case model.TimeIn:
		if err := e.applyTimeIn(ctx, employeePK, today, now, firstStart); err != nil {
			return nil, nil, fmt.Errorf("record verification: %w", err)
		}
	case model.TimeOut:
		if err := e.applyTimeOut(ctx, employeePK, today, now, firstStart, lastEnd, periods); err != nil {
			return nil, nil, fmt.Errorf("record verification: %w", err)
		}
	}

	return &log, nil, nil
}

// nextLogType implements §4.3's "determine next log type": none -> time_in;
// last is time_in -> time_out; else -> time_in.
func nextLogType(todayLogs []model.AttendanceLog) model.LogType {
	if len(todayLogs) == 0 {
		return model.TimeIn
	}
	last := todayLogs[len(todayLogs)-1]
	if last.LogType == model.TimeIn {
		return model.TimeOut
	}
	return model.TimeIn
}

func hasTimeOut(logs []model.AttendanceLog) bool {
	for _, l := range logs {
		if l.LogType == model.TimeOut {
			return true
		}
	}
	return false
}

func lastTimeIn(logs []model.AttendanceLog) (time.Time, bool) {
	var best time.Time
	var ok bool
	for _, l := range logs {
		if l.LogType == model.TimeIn && (!ok || l.LogTime.After(best)) {
			best = l.LogTime
			ok = true
		}
	}
	return best, ok
}

// classify builds the AttendanceLog.Notes text per §4.3's classification
// rules.
func classify(logType model.LogType, now time.Time, firstStart, lastEnd model.DayTime, today time.Time) string {
	switch logType {
	case model.TimeIn:
		sched := firstStart.On(today)
		d := int(now.Sub(sched) / time.Minute)
		if d <= 0 {
			return "Time In: On-time"
		}
		return fmt.Sprintf("Time In: Late by %d minute(s)", d)
	case model.TimeOut:
		sched := lastEnd.On(today)
		d := int(now.Sub(sched) / time.Minute)
		switch {
		case d == 0:
			return "Time Out: On-time"
		case d > 0:
			return fmt.Sprintf("Time Out: Overtime by %d minute(s)", d)
		default:
			return fmt.Sprintf("Time Out: Undertime by %d minute(s)", -d)
		}
	}
	return ""
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// isoWeekday returns the day-of-week convention of spec.md §3: 0=Monday .. 6=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday()) // time.Sunday=0 .. time.Saturday=6
	return (wd + 6) % 7
}
