package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen existing schema: %v", err)
	}
	defer s2.Close()
	if err := s2.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestEmployeeUpsertAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := model.Employee{
		PK: 1, Code: "E001", FirstName: "Ada", LastName: "Lovelace",
		Status: model.EmployeeActive, CreatedAt: time.Now(), UpdatedAt: time.Now(), LastSynced: time.Now(),
	}
	if err := s.UpsertEmployee(ctx, e); err != nil {
		t.Fatalf("upsert employee: %v", err)
	}

	got, ok, err := s.GetEmployeeByPK(ctx, 1)
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	if !ok {
		t.Fatalf("employee 1 not found")
	}
	if got.Code != "E001" || got.FullName() != "Ada Lovelace" {
		t.Fatalf("got = %+v", got)
	}

	e.FirstName = "Augusta"
	if err := s.UpsertEmployee(ctx, e); err != nil {
		t.Fatalf("re-upsert employee: %v", err)
	}
	got, _, _ = s.GetEmployeeByPK(ctx, 1)
	if got.FirstName != "Augusta" {
		t.Fatalf("upsert did not update existing row: got %+v", got)
	}

	active, err := s.ListActiveEmployees(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active employees = %d, want 1", len(active))
	}
}

func TestReplacePeriodsDeletesAbsentRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sched := model.Schedule{PK: 1, Name: "Day Shift", CreatedAt: time.Now(), LastSynced: time.Now()}
	if err := s.UpsertSchedule(ctx, sched); err != nil {
		t.Fatalf("upsert schedule: %v", err)
	}

	mkPeriod := func(pk int64, dow int) model.Period {
		return model.Period{
			PK: pk, ScheduleID: 1, DayOfWeek: dow, Name: "Morning",
			Start: model.DayTime{Hour: 8}, End: model.DayTime{Hour: 12}, Active: true, LastSynced: time.Now(),
		}
	}

	if _, err := s.ReplacePeriods(ctx, []model.Period{mkPeriod(1, 0), mkPeriod(2, 1)}, []int64{1, 2}); err != nil {
		t.Fatalf("replace periods (seed): %v", err)
	}
	rows, err := s.PeriodsForScheduleDay(ctx, 1, 0)
	if err != nil {
		t.Fatalf("periods for day 0: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("day 0 periods = %d, want 1", len(rows))
	}

	deleted, err := s.ReplacePeriods(ctx, []model.Period{mkPeriod(1, 0)}, []int64{1})
	if err != nil {
		t.Fatalf("replace periods (drop id 2): %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	rows, err = s.PeriodsForScheduleDay(ctx, 1, 1)
	if err != nil {
		t.Fatalf("periods for day 1: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("day 1 periods after delete = %d, want 0", len(rows))
	}
}

func TestActiveScheduleForRespectsEffectiveRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSchedule(ctx, model.Schedule{PK: 1, Name: "Day Shift", CreatedAt: time.Now(), LastSynced: time.Now()}); err != nil {
		t.Fatalf("upsert schedule: %v", err)
	}
	if err := s.UpsertEmployee(ctx, model.Employee{PK: 1, Code: "E001", FirstName: "Ada", LastName: "L", Status: model.EmployeeActive}); err != nil {
		t.Fatalf("upsert employee: %v", err)
	}

	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assignment := model.EmployeeSchedule{
		PK: 1, EmployeePK: 1, ScheduleID: 1, EffectiveDate: jan1, Active: true, CreatedAt: jan1, LastSynced: jan1,
	}
	if err := s.UpsertEmployeeSchedule(ctx, assignment); err != nil {
		t.Fatalf("upsert assignment: %v", err)
	}

	if _, ok, err := s.ActiveScheduleFor(ctx, 1, jan1.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("active schedule before effective date: %v", err)
	} else if ok {
		t.Fatalf("schedule should not be active before its effective date")
	}

	if _, ok, err := s.ActiveScheduleFor(ctx, 1, feb1); err != nil {
		t.Fatalf("active schedule: %v", err)
	} else if !ok {
		t.Fatalf("schedule should be active once past its effective date with no end date")
	}
}

func TestDailyAttendanceUpsertByNaturalKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEmployee(ctx, model.Employee{PK: 1, Code: "E001", FirstName: "A", LastName: "B", Status: model.EmployeeActive}); err != nil {
		t.Fatalf("upsert employee: %v", err)
	}

	today := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	in := model.DayTime{Hour: 9}
	row := model.DailyAttendance{EmployeePK: 1, Date: today, TimeIn: &in, Status: model.DailyIncomplete, CalculatedAt: today}
	if err := s.UpsertDailyAttendance(ctx, row); err != nil {
		t.Fatalf("upsert daily attendance: %v", err)
	}

	got, ok, err := s.GetDailyAttendance(ctx, 1, today)
	if err != nil || !ok {
		t.Fatalf("get daily attendance: ok=%v err=%v", ok, err)
	}
	if got.TimeIn == nil || got.TimeIn.Hour != 9 {
		t.Fatalf("got = %+v", got)
	}

	out := model.DayTime{Hour: 17}
	got.TimeOut = &out
	got.Status = model.DailyComplete
	if err := s.UpsertDailyAttendance(ctx, got); err != nil {
		t.Fatalf("re-upsert daily attendance: %v", err)
	}

	final, _, err := s.GetDailyAttendance(ctx, 1, today)
	if err != nil {
		t.Fatalf("get final: %v", err)
	}
	if final.PK != got.PK {
		t.Fatalf("re-upsert by natural key created a new row: got PK %d, want %d", final.PK, got.PK)
	}
	if final.Status != model.DailyComplete || final.TimeOut == nil {
		t.Fatalf("final = %+v", final)
	}
}
