package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

// applyTimeIn is Path A of §4.4: upsert the (employee, today) row, set
// time_in and late_minutes, status=incomplete. Idempotent in effect when
// re-run for the same (employeePK, today, now).
func (e *Engine) applyTimeIn(ctx context.Context, employeePK int64, today, now time.Time, firstStart model.DayTime) error {
	row, _, err := e.store.GetDailyAttendance(ctx, employeePK, today)
	if err != nil {
		return fmt.Errorf("apply time in: %w", err)
	}
	row.EmployeePK = employeePK
	row.Date = today

	toD := toDayTime(now)
	row.TimeIn = &toD

	late := int(now.Sub(firstStart.On(today)) / time.Minute)
	if late < 0 {
		late = 0
	}
	row.LateMinutes = late
	row.Status = model.DailyIncomplete
	row.CalculatedAt = now

	if err := e.store.UpsertDailyAttendance(ctx, row); err != nil {
		return fmt.Errorf("apply time in: %w", err)
	}
	return nil
}

// applyTimeOut is Path B of §4.4: compute the day's span, overtime/early
// departure, and actual minutes, then upsert time_out and, if time_in is
// already present, mark the day complete.
func (e *Engine) applyTimeOut(ctx context.Context, employeePK int64, today, now time.Time, firstStart, lastEnd model.DayTime, periods []model.Period) error {
	row, _, err := e.store.GetDailyAttendance(ctx, employeePK, today)
	if err != nil {
		return fmt.Errorf("apply time out: %w", err)
	}
	row.EmployeePK = employeePK
	row.Date = today

	sumPeriodMinutes := 0
	for _, p := range periods {
		sumPeriodMinutes += p.End.Minutes() - p.Start.Minutes()
	}
	row.ScheduledMinutes = lastEnd.Minutes() - firstStart.Minutes()

	d := int(now.Sub(lastEnd.On(today)) / time.Minute)
	if d < 0 {
		row.EarlyDepartureMinutes = -d
		row.OvertimeMinutes = 0
	} else {
		row.EarlyDepartureMinutes = 0
		row.OvertimeMinutes = d
	}

	actual := sumPeriodMinutes - row.LateMinutes - row.EarlyDepartureMinutes
	if actual < 0 {
		actual = 0
	}
	row.ActualMinutes = actual

	toD := toDayTime(now)
	row.TimeOut = &toD
	if row.TimeIn != nil {
		row.Status = model.DailyComplete
	} else {
		row.Status = model.DailyIncomplete
	}
	row.CalculatedAt = now

	if err := e.store.UpsertDailyAttendance(ctx, row); err != nil {
		return fmt.Errorf("apply time out: %w", err)
	}
	return nil
}

func toDayTime(t time.Time) model.DayTime {
	return model.DayTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// RunDayInitializer runs the two ordered steps of §4.4's day-initializer:
// the previous-day absence sweep (supplemented as its own first step per
// original_source/faceid/daily_attendance_initializer.py), then today's row
// creation for every scheduled employee. It is safe to re-run: both steps
// only touch rows matching their own precondition, so a repeat at startup
// after a crash re-derives the same state rather than compounding it.
func (e *Engine) RunDayInitializer(ctx context.Context, today time.Time) error {
	today = startOfDay(today)

	if err := e.sweepPreviousDayAbsences(ctx, today); err != nil {
		return fmt.Errorf("day initializer: %w", err)
	}
	if err := e.initializeToday(ctx, today); err != nil {
		return fmt.Errorf("day initializer: %w", err)
	}
	return nil
}

func (e *Engine) sweepPreviousDayAbsences(ctx context.Context, today time.Time) error {
	rows, err := e.store.IncompleteBeforeToday(ctx, today)
	if err != nil {
		return err
	}
	for _, row := range rows {
		leave, onLeave, err := e.lookupLeave(ctx, row.EmployeePK, row.Date)
		if err != nil {
			return err
		}
		row.LateMinutes, row.EarlyDepartureMinutes, row.OvertimeMinutes, row.ActualMinutes = 0, 0, 0, 0
		row.ScheduledMinutes = 0
		row.CalculatedAt = e.clock.Now()
		if onLeave {
			row.Status = model.DailyLeave
			row.Notes = fmt.Sprintf("On %s Leave", leave.Type)
		} else {
			row.Status = model.DailyAbsent
			row.Notes = ""
		}
		if err := e.store.UpsertDailyAttendance(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) initializeToday(ctx context.Context, today time.Time) error {
	employees, err := e.store.ListActiveEmployees(ctx)
	if err != nil {
		return err
	}
	dow := isoWeekday(today)
	now := e.clock.Now()

	for _, emp := range employees {
		sched, hasSched, err := e.store.ActiveScheduleFor(ctx, emp.PK, today)
		if err != nil {
			return err
		}
		if !hasSched {
			continue
		}
		periods, err := e.store.PeriodsForScheduleDay(ctx, sched.PK, dow)
		if err != nil {
			return err
		}
		if len(periods) == 0 {
			continue
		}
		if _, exists, err := e.store.GetDailyAttendance(ctx, emp.PK, today); err != nil {
			return err
		} else if exists {
			continue
		}

		row := model.DailyAttendance{EmployeePK: emp.PK, Date: today, CalculatedAt: now}
		leave, onLeave, err := e.lookupLeave(ctx, emp.PK, today)
		if err != nil {
			return err
		}
		if onLeave {
			row.Status = model.DailyLeave
			row.Notes = fmt.Sprintf("On %s Leave", leave.Type)
		} else {
			row.Status = model.DailyIncomplete
		}
		if err := e.store.UpsertDailyAttendance(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// lookupLeave consults e.leave if present; a nil LeaveSource always answers
// "no leave" (spec.md §9's Open Question).
func (e *Engine) lookupLeave(ctx context.Context, employeePK int64, date time.Time) (model.Leave, bool, error) {
	if e.leave == nil {
		return model.Leave{}, false, nil
	}
	return e.leave.ApprovedLeave(ctx, employeePK, date)
}
