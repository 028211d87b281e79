// Package localstore implements the kiosk's durable embedded relational
// store: schema, migrations, and CRUD for every table in spec.md §6's local
// schema. It follows the teacher's (pkg/ottrecdata) own local-store engine —
// github.com/ncruces/go-sqlite3 opened through its database/sql driver, WAL
// mode, a busy timeout, and PRAGMA user_version schema versioning — adapted
// from a single read-mostly cache to the kiosk's read/write roster +
// attendance store.
package localstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed" // statically link sqlite3, no cgo
)

// SchemaVersion should be bumped whenever the DDL below changes.
const SchemaVersion = 1

const schemaOptions = `
PRAGMA journal_mode=wal;
PRAGMA busy_timeout=10000;
PRAGMA foreign_keys=ON;
`

const schemaDDL = `
CREATE TABLE IF NOT EXISTS employees (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL,
	middle_name TEXT,
	last_name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	department TEXT,
	position TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	profile_photo TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_synced TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS embeddings (
	id INTEGER PRIMARY KEY,
	employee_id INTEGER NOT NULL REFERENCES employees(id),
	vector BLOB NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_embeddings_employee ON embeddings(employee_id);

CREATE TABLE IF NOT EXISTS schedules (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_synced TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schedule_periods (
	id INTEGER PRIMARY KEY,
	schedule_id INTEGER NOT NULL REFERENCES schedules(id),
	day_of_week INTEGER NOT NULL,
	period_name TEXT,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_synced TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_periods_schedule_day ON schedule_periods(schedule_id, day_of_week);

CREATE TABLE IF NOT EXISTS employee_schedules (
	id INTEGER PRIMARY KEY,
	employee_id INTEGER NOT NULL REFERENCES employees(id),
	schedule_id INTEGER NOT NULL REFERENCES schedules(id),
	effective_date TEXT NOT NULL,
	end_date TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_synced TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_assignments_employee ON employee_schedules(employee_id);

CREATE TABLE IF NOT EXISTS attendance_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id INTEGER NOT NULL REFERENCES employees(id),
	log_date TEXT NOT NULL,
	log_type TEXT NOT NULL,
	log_time TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'kiosk',
	notes TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	synced INTEGER NOT NULL DEFAULT 0,
	synced_at TEXT,
	mirror_id INTEGER
);
CREATE INDEX IF NOT EXISTS idx_logs_employee_date ON attendance_logs(employee_id, log_date);
CREATE INDEX IF NOT EXISTS idx_logs_unsynced ON attendance_logs(synced);

CREATE TABLE IF NOT EXISTS daily_attendance (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id INTEGER NOT NULL REFERENCES employees(id),
	attendance_date TEXT NOT NULL,
	time_in TEXT,
	time_out TEXT,
	scheduled_hours REAL,
	actual_hours REAL,
	late_minutes INTEGER DEFAULT 0,
	early_departure_minutes INTEGER DEFAULT 0,
	overtime_minutes INTEGER DEFAULT 0,
	break_time_minutes INTEGER DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'incomplete',
	notes TEXT,
	calculated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_synced TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(employee_id, attendance_date)
);
CREATE INDEX IF NOT EXISTS idx_daily_employee_date ON daily_attendance(employee_id, attendance_date);

CREATE TABLE IF NOT EXISTS sync_status (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	table_name TEXT NOT NULL UNIQUE,
	last_pull_time TEXT,
	last_push_time TEXT,
	last_pull_success INTEGER,
	last_push_success INTEGER,
	pull_error_message TEXT,
	push_error_message TEXT,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the kiosk's local embedded store handle.
type Store struct {
	db *sqlx.DB
}

var sqliteURIEscaper = strings.NewReplacer("?", "%3f", "#", "%23")

// Open opens (creating if necessary) the local store at path and applies
// migrations. Unlike the teacher's read-mostly cache, a version mismatch
// here does not reset the database — losing attendance history is never
// acceptable — so an incompatible schema is a LocalStoreCorrupt-class fault
// the caller should surface rather than paper over.
func Open(path string) (*Store, error) {
	sqlDB, err := driver.Open("file:" + sqliteURIEscaper.Replace(path))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db := sqlx.NewDb(sqlDB, "sqlite3")

	if _, err := db.Exec(schemaOptions); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	var current int
	if err := db.Get(&current, `PRAGMA user_version`); err != nil {
		db.Close()
		return nil, fmt.Errorf("get schema version: %w", err)
	}
	if current == 0 {
		if _, err := db.Exec(schemaDDL); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
		if _, err := db.Exec(`PRAGMA user_version = ` + strconv.Itoa(SchemaVersion)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set schema version: %w", err)
		}
	} else if current != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("local store schema version %d does not match %d", current, SchemaVersion)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sqlx.DB for callers that need read access not
// otherwise wrapped here.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping verifies the store connection is alive, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
