package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/pkg/attendance"
)

// DayRollover runs the day-initializer once at startup and again every time
// it detects a calendar-day rollover, per spec.md §5's "Day-initializer
// task" and §9's supplemented previous-day-absence sweep.
type DayRollover struct {
	Engine *attendance.Engine
	Clock  clock.Clock
	Log    *slog.Logger

	// PollInterval controls how often the current date is checked for a
	// rollover; it need not be precise to the second.
	PollInterval time.Duration
}

// Serve implements suture.Service.
func (d *DayRollover) Serve(ctx context.Context) error {
	poll := d.PollInterval
	if poll <= 0 {
		poll = time.Minute
	}

	run := func() {
		today := d.Clock.Now()
		if err := d.Engine.RunDayInitializer(ctx, today); err != nil {
			d.Log.Error("day initializer failed", slog.Any("error", err))
		}
	}

	run()
	last := dateOf(d.Clock.Now())

	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			now := dateOf(d.Clock.Now())
			if now.After(last) {
				last = now
				run()
			}
		}
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
