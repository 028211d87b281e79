package attendance

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "kiosk.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedDayShiftEmployee sets up an active employee on a Monday-Friday
// 09:00-17:00 schedule, effective well before the fixed test clock.
func seedDayShiftEmployee(t *testing.T, s *localstore.Store, employeePK int64) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertEmployee(ctx, model.Employee{PK: employeePK, Code: "E001", FirstName: "Ada", LastName: "Lovelace", Status: model.EmployeeActive}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	if err := s.UpsertSchedule(ctx, model.Schedule{PK: 1, Name: "Day Shift"}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	for dow := 0; dow <= 4; dow++ { // Monday..Friday
		p := model.Period{
			PK: int64(dow) + 1, ScheduleID: 1, DayOfWeek: dow, Name: "Core",
			Start: model.DayTime{Hour: 9}, End: model.DayTime{Hour: 17}, Active: true,
		}
		if err := s.UpsertPeriod(ctx, p); err != nil {
			t.Fatalf("seed period: %v", err)
		}
	}
	assignment := model.EmployeeSchedule{PK: 1, EmployeePK: employeePK, ScheduleID: 1, EffectiveDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	if err := s.UpsertEmployeeSchedule(ctx, assignment); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
}

// monday9am is a fixed Monday (spec.md §3's day-of-week convention: 0=Monday).
var monday9am = time.Date(2026, 7, 27, 9, 0, 0, 0, time.UTC)

func TestRecordVerificationNoScheduleRejects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEmployee(ctx, model.Employee{PK: 1, Code: "E001", FirstName: "A", LastName: "B", Status: model.EmployeeActive}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	clk := clock.NewFixed(monday9am)
	e := New(Config{Source: "kiosk"}, s, nil, clk, discardLog())

	log, rej, err := e.RecordVerification(ctx, 1, nil)
	if err != nil {
		t.Fatalf("record verification: %v", err)
	}
	if log != nil {
		t.Fatalf("no schedule should never write a log")
	}
	if rej == nil || rej.Reason != kioskerr.ReasonNoSchedule {
		t.Fatalf("rejection = %+v, want reason %q", rej, kioskerr.ReasonNoSchedule)
	}
}

func TestRecordVerificationTimeInThenTimeOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	e := New(Config{Source: "kiosk", LogoutRestrictionEnabled: true}, s, nil, clk, discardLog())

	log, rej, err := e.RecordVerification(ctx, 1, nil)
	if err != nil || rej != nil {
		t.Fatalf("time in: log=%v rej=%+v err=%v", log, rej, err)
	}
	if log.LogType != model.TimeIn || log.Notes != "Time In: On-time" {
		t.Fatalf("time in log = %+v", log)
	}

	daily, ok, err := s.GetDailyAttendance(ctx, 1, clk.Now())
	if err != nil || !ok {
		t.Fatalf("daily attendance after time in: ok=%v err=%v", ok, err)
	}
	if daily.Status != model.DailyIncomplete || daily.TimeIn == nil {
		t.Fatalf("daily after time in = %+v", daily)
	}

	clk.Set(time.Date(2026, 7, 27, 17, 5, 0, 0, time.UTC))
	log, rej, err = e.RecordVerification(ctx, 1, nil)
	if err != nil || rej != nil {
		t.Fatalf("time out: log=%v rej=%+v err=%v", log, rej, err)
	}
	if log.LogType != model.TimeOut || log.Notes != "Time Out: Overtime by 5 minute(s)" {
		t.Fatalf("time out log = %+v", log)
	}

	daily, ok, err = s.GetDailyAttendance(ctx, 1, time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC))
	if err != nil || !ok {
		t.Fatalf("daily attendance after time out: ok=%v err=%v", ok, err)
	}
	if daily.Status != model.DailyComplete || daily.OvertimeMinutes != 5 {
		t.Fatalf("daily after time out = %+v", daily)
	}
}

// TestRecordVerificationSubMinuteTruncates covers spec.md §4.3's S2/S3
// scenarios: a diff with a sub-minute remainder (10m30s, 5m45s) must
// truncate toward zero, not round, so late/overtime minutes match the
// original's int(time_diff) behavior exactly.
func TestRecordVerificationSubMinuteTruncates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(time.Date(2026, 7, 27, 9, 10, 30, 0, time.UTC))
	e := New(Config{Source: "kiosk"}, s, nil, clk, discardLog())

	log, rej, err := e.RecordVerification(ctx, 1, nil)
	if err != nil || rej != nil {
		t.Fatalf("time in: log=%v rej=%+v err=%v", log, rej, err)
	}
	if log.Notes != "Time In: Late by 10 minute(s)" {
		t.Fatalf("notes = %q, want truncated 10 minute(s)", log.Notes)
	}
	daily, ok, err := s.GetDailyAttendance(ctx, 1, clk.Now())
	if err != nil || !ok {
		t.Fatalf("daily attendance after time in: ok=%v err=%v", ok, err)
	}
	if daily.LateMinutes != 10 {
		t.Fatalf("late_minutes = %d, want 10", daily.LateMinutes)
	}

	clk.Set(time.Date(2026, 7, 27, 17, 5, 45, 0, time.UTC))
	log, rej, err = e.RecordVerification(ctx, 1, nil)
	if err != nil || rej != nil {
		t.Fatalf("time out: log=%v rej=%+v err=%v", log, rej, err)
	}
	if log.Notes != "Time Out: Overtime by 5 minute(s)" {
		t.Fatalf("notes = %q, want truncated 5 minute(s)", log.Notes)
	}
	daily, ok, err = s.GetDailyAttendance(ctx, 1, time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC))
	if err != nil || !ok {
		t.Fatalf("daily attendance after time out: ok=%v err=%v", ok, err)
	}
	if daily.OvertimeMinutes != 5 {
		t.Fatalf("overtime_minutes = %d, want 5", daily.OvertimeMinutes)
	}
}

func TestRecordVerificationLogoutFinality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	e := New(Config{Source: "kiosk", LogoutRestrictionEnabled: true}, s, nil, clk, discardLog())

	if _, rej, err := e.RecordVerification(ctx, 1, nil); err != nil || rej != nil {
		t.Fatalf("time in: rej=%+v err=%v", rej, err)
	}
	clk.Set(time.Date(2026, 7, 27, 17, 0, 0, 0, time.UTC))
	if _, rej, err := e.RecordVerification(ctx, 1, nil); err != nil || rej != nil {
		t.Fatalf("time out: rej=%+v err=%v", rej, err)
	}

	// A third verification the same day would normally compute time_in again;
	// logout finality should block it instead.
	clk.Set(time.Date(2026, 7, 27, 18, 0, 0, 0, time.UTC))
	_, rej, err := e.RecordVerification(ctx, 1, nil)
	if err != nil {
		t.Fatalf("record verification: %v", err)
	}
	if rej == nil || rej.Reason != kioskerr.ReasonAlreadyLoggedOut {
		t.Fatalf("rejection = %+v, want reason %q", rej, kioskerr.ReasonAlreadyLoggedOut)
	}
}

func TestRecordVerificationLoginCooldown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	e := New(Config{
		Source:                "kiosk",
		LoginCooldownEnabled:  true,
		LoginCooldownDuration: 10 * time.Minute,
	}, s, nil, clk, discardLog())

	if _, rej, err := e.RecordVerification(ctx, 1, nil); err != nil || rej != nil {
		t.Fatalf("first time in: rej=%+v err=%v", rej, err)
	}

	// A logout immediately after, so the next verification attempts a second
	// time-in within the cooldown window.
	clk.Advance(time.Minute)
	out := func(ctx context.Context, msg string) (bool, error) { return true, nil }
	if _, rej, err := e.RecordVerification(ctx, 1, out); err != nil || rej != nil {
		t.Fatalf("time out: rej=%+v err=%v", rej, err)
	}

	clk.Advance(time.Minute) // 2 minutes after first time in, well within the 10-minute cooldown
	_, rej, err := e.RecordVerification(ctx, 1, nil)
	if err != nil {
		t.Fatalf("record verification: %v", err)
	}
	if rej == nil || rej.Reason != kioskerr.ReasonCooldown {
		t.Fatalf("rejection = %+v, want reason %q", rej, kioskerr.ReasonCooldown)
	}
}

func TestRecordVerificationUndertimeConfirmation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	e := New(Config{Source: "kiosk"}, s, nil, clk, discardLog())
	if _, rej, err := e.RecordVerification(ctx, 1, nil); err != nil || rej != nil {
		t.Fatalf("time in: rej=%+v err=%v", rej, err)
	}

	clk.Set(time.Date(2026, 7, 27, 15, 0, 0, 0, time.UTC)) // before the 17:00 scheduled end

	if _, rej, err := e.RecordVerification(ctx, 1, nil); err != nil {
		t.Fatalf("time out with nil confirm: %v", err)
	} else if rej == nil || rej.Reason != kioskerr.ReasonUndertimeRefused {
		t.Fatalf("rejection with nil confirm = %+v, want %q", rej, kioskerr.ReasonUndertimeRefused)
	}

	declined := func(ctx context.Context, msg string) (bool, error) { return false, nil }
	if _, rej, err := e.RecordVerification(ctx, 1, declined); err != nil {
		t.Fatalf("time out declined: %v", err)
	} else if rej == nil || rej.Reason != kioskerr.ReasonUndertimeRefused {
		t.Fatalf("rejection when declined = %+v", rej)
	}

	accepted := func(ctx context.Context, msg string) (bool, error) { return true, nil }
	log, rej, err := e.RecordVerification(ctx, 1, accepted)
	if err != nil || rej != nil {
		t.Fatalf("time out accepted: log=%v rej=%+v err=%v", log, rej, err)
	}
	if log.Notes != "Time Out: Undertime by 120 minute(s)" {
		t.Fatalf("notes = %q", log.Notes)
	}
}

func TestRunDayInitializerCreatesAndSweeps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	e := New(Config{Source: "kiosk"}, s, nil, clk, discardLog())

	today := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)
	if err := e.RunDayInitializer(ctx, today); err != nil {
		t.Fatalf("day initializer: %v", err)
	}
	row, ok, err := s.GetDailyAttendance(ctx, 1, today)
	if err != nil || !ok {
		t.Fatalf("today's row after init: ok=%v err=%v", ok, err)
	}
	if row.Status != model.DailyIncomplete {
		t.Fatalf("today's row status = %v, want incomplete", row.Status)
	}

	// Re-running the same day must not duplicate the row.
	if err := e.RunDayInitializer(ctx, today); err != nil {
		t.Fatalf("day initializer rerun: %v", err)
	}
	row2, _, _ := s.GetDailyAttendance(ctx, 1, today)
	if row2.PK != row.PK {
		t.Fatalf("rerun created a second row: %d vs %d", row2.PK, row.PK)
	}

	// Next day's rollover should sweep yesterday's still-incomplete row to
	// absent, since no leave source is configured.
	tomorrow := today.AddDate(0, 0, 1)
	if err := e.RunDayInitializer(ctx, tomorrow); err != nil {
		t.Fatalf("day initializer (rollover): %v", err)
	}
	swept, ok, err := s.GetDailyAttendance(ctx, 1, today)
	if err != nil || !ok {
		t.Fatalf("swept row: ok=%v err=%v", ok, err)
	}
	if swept.Status != model.DailyAbsent {
		t.Fatalf("swept row status = %v, want absent", swept.Status)
	}
}

type fakeLeaveSource struct {
	leave model.Leave
	found bool
}

func (f fakeLeaveSource) ApprovedLeave(ctx context.Context, employeePK int64, date time.Time) (model.Leave, bool, error) {
	return f.leave, f.found, nil
}

func TestDayInitializerHonorsLeave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDayShiftEmployee(t, s, 1)

	clk := clock.NewFixed(monday9am)
	leave := fakeLeaveSource{leave: model.Leave{EmployeePK: 1, Type: "Vacation"}, found: true}
	e := New(Config{Source: "kiosk"}, s, leave, clk, discardLog())

	today := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)
	if err := e.RunDayInitializer(ctx, today); err != nil {
		t.Fatalf("day initializer: %v", err)
	}
	row, ok, err := s.GetDailyAttendance(ctx, 1, today)
	if err != nil || !ok {
		t.Fatalf("today's row: ok=%v err=%v", ok, err)
	}
	if row.Status != model.DailyLeave || row.Notes != "On Vacation Leave" {
		t.Fatalf("row = %+v, want leave status with a vacation note", row)
	}
}
