package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

type syncStatusRow struct {
	ID              int64          `db:"id"`
	TableName       string         `db:"table_name"`
	LastPullTime    sql.NullString `db:"last_pull_time"`
	LastPushTime    sql.NullString `db:"last_push_time"`
	LastPullSuccess sql.NullBool   `db:"last_pull_success"`
	LastPushSuccess sql.NullBool   `db:"last_push_success"`
	PullError       sql.NullString `db:"pull_error_message"`
	PushError       sql.NullString `db:"push_error_message"`
	UpdatedAt       string         `db:"updated_at"`
}

func (r syncStatusRow) toModel() model.SyncStatus {
	var pullTime, pushTime *time.Time
	if r.LastPullTime.Valid {
		t := parseTimestamp(r.LastPullTime.String)
		pullTime = &t
	}
	if r.LastPushTime.Valid {
		t := parseTimestamp(r.LastPushTime.String)
		pushTime = &t
	}
	return model.SyncStatus{
		PK:              r.ID,
		Table:           model.SyncStream(r.TableName),
		LastPullTime:    pullTime,
		LastPushTime:    pushTime,
		LastPullSuccess: r.LastPullSuccess.Bool,
		LastPushSuccess: r.LastPushSuccess.Bool,
		PullError:       r.PullError.String,
		PushError:       r.PushError.String,
		UpdatedAt:       parseTimestamp(r.UpdatedAt),
	}
}

// GetSyncStatus returns the sync_status row for stream, zero-valued with
// ok=false if the stream has never recorded a cycle.
func (s *Store) GetSyncStatus(ctx context.Context, stream model.SyncStream) (model.SyncStatus, bool, error) {
	var row syncStatusRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM sync_status WHERE table_name = ?`, string(stream))
	if err == sql.ErrNoRows {
		return model.SyncStatus{}, false, nil
	}
	if err != nil {
		return model.SyncStatus{}, false, fmt.Errorf("get sync status %s: %w", stream, err)
	}
	return row.toModel(), true, nil
}

// RecordPullResult upserts the pull-side columns of stream's sync_status row.
// A failed attempt only updates the error text and success flag, per
// spec.md §4.5's offline-tolerance contract — it never touches pulled data.
func (s *Store) RecordPullResult(ctx context.Context, stream model.SyncStream, at time.Time, success bool, errMsg string) error {
	var pullTime any
	if success {
		pullTime = formatTimestamp(at)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_status (table_name, last_pull_time, last_pull_success, pull_error_message, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			last_pull_time=COALESCE(excluded.last_pull_time, sync_status.last_pull_time),
			last_pull_success=excluded.last_pull_success,
			pull_error_message=excluded.pull_error_message, updated_at=excluded.updated_at
	`, string(stream), pullTime, success, nullIfEmpty(errMsg), formatTimestamp(at))
	if err != nil {
		return fmt.Errorf("record pull result %s: %w", stream, err)
	}
	return nil
}

// RecordPushResult upserts the push-side columns of stream's sync_status row.
// As with pulls, last_push_time only advances on success.
func (s *Store) RecordPushResult(ctx context.Context, stream model.SyncStream, at time.Time, success bool, errMsg string) error {
	var pushTime any
	if success {
		pushTime = formatTimestamp(at)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_status (table_name, last_push_time, last_push_success, push_error_message, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			last_push_time=COALESCE(excluded.last_push_time, sync_status.last_push_time),
			last_push_success=excluded.last_push_success,
			push_error_message=excluded.push_error_message, updated_at=excluded.updated_at
	`, string(stream), pushTime, success, nullIfEmpty(errMsg), formatTimestamp(at))
	if err != nil {
		return fmt.Errorf("record push result %s: %w", stream, err)
	}
	return nil
}
