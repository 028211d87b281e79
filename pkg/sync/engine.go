// Package sync implements C6: two independent loops (push of local writes,
// pull of server-authoritative tables) against the remote store, tolerant
// of extended outages.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/internal/metrics"
	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/model"
	"github.com/maniegokryz-prog/EndDev/pkg/remotestore"
)

// Config is the subset of internal/config.Config the sync engine needs.
type Config struct {
	PushInterval time.Duration
	PullInterval time.Duration
	PushWindow   time.Duration // daily_attendance_push_window_days as a duration
}

// Engine is C6, the bidirectional sync engine.
type Engine struct {
	cfg     Config
	local   *localstore.Store
	remote  *remotestore.Store
	index   *faceindex.Ref
	indexer faceindex.Indexer
	clock   clock.Clock
	log     *slog.Logger
}

// New constructs an Engine. index is the C3 reference the pull loop
// refreshes after any roster-affecting change.
func New(cfg Config, local *localstore.Store, remote *remotestore.Store, index *faceindex.Ref, clk clock.Clock, log *slog.Logger) *Engine {
	return &Engine{cfg: cfg, local: local, remote: remote, index: index, clock: clk, log: log}
}

// RunPush runs the push loop until ctx is cancelled, waking every
// PushInterval (spec.md §4.5).
func (e *Engine) RunPush(ctx context.Context) error {
	t := time.NewTicker(e.cfg.PushInterval)
	defer t.Stop()
	for {
		e.PushOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunPull runs the pull loop until ctx is cancelled, waking every
// PullInterval (spec.md §4.5).
func (e *Engine) RunPull(ctx context.Context) error {
	t := time.NewTicker(e.cfg.PullInterval)
	defer t.Stop()
	for {
		e.PullOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// PushOnce runs one push cycle: unsynced attendance logs, then the daily
// attendance push window. A failed connection attempt only updates
// SyncStatus's error text and success flag — no data is lost, no state is
// rolled back, and the next cycle retries unconditionally (spec.md §4.5).
func (e *Engine) PushOnce(ctx context.Context) {
	cycle := uuid.New().String()
	log := e.log.With(slog.String("cycle", cycle), slog.String("direction", "push"))

	e.pushLogs(ctx, log)
	e.pushDailyAttendance(ctx, log)
}

func (e *Engine) pushLogs(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("push", string(model.StreamAttendanceLogs)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	logs, err := e.local.UnsyncedLogs(ctx)
	if err != nil {
		e.recordPush(ctx, model.StreamAttendanceLogs, false, err.Error())
		log.Warn("push: list unsynced logs failed", slog.Any("error", err))
		return
	}

	var lastErr error
	for _, l := range logs {
		mirrorID, err := e.remote.InsertAttendanceLog(ctx, l)
		if err != nil {
			// Per-row failure: leave this row unsynced and continue with
			// the next one rather than aborting the whole cycle.
			lastErr = err
			metrics.SyncRows.WithLabelValues("push", string(model.StreamAttendanceLogs), "error").Inc()
			continue
		}
		if err := e.local.MarkLogSynced(ctx, l.PK, mirrorID, e.clock.Now()); err != nil {
			lastErr = err
			metrics.SyncRows.WithLabelValues("push", string(model.StreamAttendanceLogs), "error").Inc()
			continue
		}
		metrics.SyncRows.WithLabelValues("push", string(model.StreamAttendanceLogs), "ok").Inc()
	}

	if lastErr != nil {
		e.recordPush(ctx, model.StreamAttendanceLogs, false, lastErr.Error())
		log.Warn("push: one or more logs failed", slog.Any("error", lastErr))
		return
	}
	e.recordPush(ctx, model.StreamAttendanceLogs, true, "")
}

func (e *Engine) pushDailyAttendance(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("push", string(model.StreamDailyAttendance)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	windowDays := int(e.cfg.PushWindow / (24 * time.Hour))
	rows, err := e.local.PushWindow(ctx, e.clock.Now(), windowDays)
	if err != nil {
		e.recordPush(ctx, model.StreamDailyAttendance, false, err.Error())
		log.Warn("push: list daily attendance window failed", slog.Any("error", err))
		return
	}

	var lastErr error
	for _, d := range rows {
		if err := e.remote.UpsertDailyAttendance(ctx, d); err != nil {
			lastErr = err
			metrics.SyncRows.WithLabelValues("push", string(model.StreamDailyAttendance), "error").Inc()
			continue
		}
		metrics.SyncRows.WithLabelValues("push", string(model.StreamDailyAttendance), "ok").Inc()
	}

	if lastErr != nil {
		e.recordPush(ctx, model.StreamDailyAttendance, false, lastErr.Error())
		log.Warn("push: one or more daily attendance rows failed", slog.Any("error", lastErr))
		return
	}
	e.recordPush(ctx, model.StreamDailyAttendance, true, "")
}

func (e *Engine) recordPush(ctx context.Context, stream model.SyncStream, success bool, errMsg string) {
	if err := e.local.RecordPushResult(ctx, stream, e.clock.Now(), success, errMsg); err != nil {
		e.log.Error("record push result failed", slog.String("stream", string(stream)), slog.Any("error", err))
	}
}

// PullOnce runs one pull cycle: the five pull streams run concurrently,
// each independently contained so one stream's failure never blocks
// another's (spec.md §4.5, §5).
func (e *Engine) PullOnce(ctx context.Context) {
	cycle := uuid.New().String()
	log := e.log.With(slog.String("cycle", cycle), slog.String("direction", "pull"))

	var g errgroup.Group
	rosterChanged := make(chan bool, 1)

	g.Go(func() error {
		changed := e.pullEmployees(ctx, log)
		rosterChanged <- changed
		return nil
	})
	g.Go(func() error { e.pullSchedules(ctx, log); return nil })
	g.Go(func() error { e.pullPeriods(ctx, log); return nil })
	g.Go(func() error { e.pullEmployeeSchedules(ctx, log); return nil })
	g.Go(func() error { e.pullDailyAttendance(ctx, log); return nil })
	_ = g.Wait()

	if <-rosterChanged {
		e.rebuildIndex(ctx, log)
	}
}

func (e *Engine) pullEmployees(ctx context.Context, log *slog.Logger) (changed bool) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("pull", string(model.StreamEmployees)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	status, _, err := e.local.GetSyncStatus(ctx, model.StreamEmployees)
	if err != nil {
		log.Warn("pull: read employees sync status failed", slog.Any("error", err))
	}
	since := time.Time{}
	if status.LastPullTime != nil {
		since = *status.LastPullTime
	}

	employees, err := e.remote.FetchEmployeesSince(ctx, since)
	if err != nil {
		e.recordPull(ctx, model.StreamEmployees, false, err.Error())
		log.Warn("pull: fetch employees failed", slog.Any("error", err))
		return false
	}
	for _, emp := range employees {
		if err := e.local.UpsertEmployee(ctx, emp); err != nil {
			e.recordPull(ctx, model.StreamEmployees, false, err.Error())
			log.Warn("pull: upsert employee failed", slog.Int64("employee", emp.PK), slog.Any("error", err))
			return false
		}
		metrics.SyncRows.WithLabelValues("pull", string(model.StreamEmployees), "ok").Inc()
	}
	e.recordPull(ctx, model.StreamEmployees, true, "")
	return len(employees) > 0
}

func (e *Engine) pullSchedules(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("pull", string(model.StreamSchedules)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	schedules, err := e.remote.FetchSchedules(ctx)
	if err != nil {
		e.recordPull(ctx, model.StreamSchedules, false, err.Error())
		log.Warn("pull: fetch schedules failed", slog.Any("error", err))
		return
	}
	for _, sc := range schedules {
		if err := e.local.UpsertSchedule(ctx, sc); err != nil {
			e.recordPull(ctx, model.StreamSchedules, false, err.Error())
			log.Warn("pull: upsert schedule failed", slog.Any("error", err))
			return
		}
		metrics.SyncRows.WithLabelValues("pull", string(model.StreamSchedules), "ok").Inc()
	}
	e.recordPull(ctx, model.StreamSchedules, true, "")
}

func (e *Engine) pullPeriods(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("pull", string(model.StreamSchedulePeriods)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	periods, err := e.remote.FetchPeriods(ctx)
	if err != nil {
		e.recordPull(ctx, model.StreamSchedulePeriods, false, err.Error())
		log.Warn("pull: fetch periods failed", slog.Any("error", err))
		return
	}
	ids := make([]int64, len(periods))
	for i, p := range periods {
		ids[i] = p.PK
	}
	deleted, err := e.local.ReplacePeriods(ctx, periods, ids)
	if err != nil {
		e.recordPull(ctx, model.StreamSchedulePeriods, false, err.Error())
		log.Warn("pull: replace periods failed", slog.Any("error", err))
		return
	}
	metrics.SyncRows.WithLabelValues("pull", string(model.StreamSchedulePeriods), "ok").Add(float64(len(periods)))
	if deleted > 0 {
		log.Info("pull: deleted periods absent remotely", slog.Int("count", deleted))
	}
	e.recordPull(ctx, model.StreamSchedulePeriods, true, "")
}

func (e *Engine) pullEmployeeSchedules(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("pull", string(model.StreamEmployeeSchedules)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	assignments, err := e.remote.FetchEmployeeSchedules(ctx)
	if err != nil {
		e.recordPull(ctx, model.StreamEmployeeSchedules, false, err.Error())
		log.Warn("pull: fetch employee schedules failed", slog.Any("error", err))
		return
	}
	ids := make([]int64, len(assignments))
	for i, a := range assignments {
		ids[i] = a.PK
	}
	deleted, err := e.local.ReplaceEmployeeSchedules(ctx, assignments, ids)
	if err != nil {
		e.recordPull(ctx, model.StreamEmployeeSchedules, false, err.Error())
		log.Warn("pull: replace employee schedules failed", slog.Any("error", err))
		return
	}
	metrics.SyncRows.WithLabelValues("pull", string(model.StreamEmployeeSchedules), "ok").Add(float64(len(assignments)))
	if deleted > 0 {
		log.Info("pull: deleted employee schedules absent remotely", slog.Int("count", deleted))
	}
	e.recordPull(ctx, model.StreamEmployeeSchedules, true, "")
}

func (e *Engine) pullDailyAttendance(ctx context.Context, log *slog.Logger) {
	start := e.clock.Now()
	defer func() {
		metrics.SyncCycleDuration.WithLabelValues("pull", string(model.StreamDailyAttendance)).Observe(e.clock.Now().Sub(start).Seconds())
	}()

	rows, err := e.remote.FetchDailyAttendance(ctx)
	if err != nil {
		e.recordPull(ctx, model.StreamDailyAttendance, false, err.Error())
		log.Warn("pull: fetch daily attendance failed", slog.Any("error", err))
		return
	}
	for _, d := range rows {
		if err := e.local.UpsertDailyAttendance(ctx, d); err != nil {
			e.recordPull(ctx, model.StreamDailyAttendance, false, err.Error())
			log.Warn("pull: upsert daily attendance failed", slog.Any("error", err))
			return
		}
		metrics.SyncRows.WithLabelValues("pull", string(model.StreamDailyAttendance), "ok").Inc()
	}
	e.recordPull(ctx, model.StreamDailyAttendance, true, "")
}

func (e *Engine) recordPull(ctx context.Context, stream model.SyncStream, success bool, errMsg string) {
	if err := e.local.RecordPullResult(ctx, stream, e.clock.Now(), success, errMsg); err != nil {
		e.log.Error("record pull result failed", slog.String("stream", string(stream)), slog.Any("error", err))
	}
}

// rebuildIndex reloads C3 from the local store, the hot-reload path
// triggered after any pull that could affect the roster (spec.md §4.5).
func (e *Engine) rebuildIndex(ctx context.Context, log *slog.Logger) {
	rows, err := e.local.LoadIndexRows(ctx)
	if err != nil {
		log.Warn("rebuild index: load rows failed", slog.Any("error", err))
		return
	}
	idx, err := e.indexer.Build(rows)
	if err != nil {
		log.Warn("rebuild index: build failed", slog.Any("error", err))
		return
	}
	e.index.Store(idx)
	log.Info("rebuilt embedding index", slog.Int("rows", len(rows)))
}
