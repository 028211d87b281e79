package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maniegokryz-prog/EndDev/pkg/model"
)

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
	LastSynced   string         `db:"last_synced"`
}

func (r employeeRow) toModel() model.Employee {
	return model.Employee{
		PK:           r.ID,
		Code:         r.Code,
		FirstName:    r.FirstName,
		MiddleName:   r.MiddleName.String,
		LastName:     r.LastName,
		Email:        r.Email.String,
		Phone:        r.Phone.String,
		Department:   r.Department.String,
		Position:     r.Position.String,
		Status:       model.EmployeeStatus(r.Status),
		ProfilePhoto: r.ProfilePhoto.String,
		CreatedAt:    parseTimestamp(r.CreatedAt),
		UpdatedAt:    parseTimestamp(r.UpdatedAt),
		LastSynced:   parseTimestamp(r.LastSynced),
	}
}

// UpsertEmployee inserts or updates an employee by primary key (the pull
// path from C6's remote mirror). The kiosk never deletes an employee row;
// deactivation flows through Status alone.
func (s *Store) UpsertEmployee(ctx context.Context, e model.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, code, first_name, middle_name, last_name, email, phone,
			department, position, status, profile_photo, created_at, updated_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code=excluded.code, first_name=excluded.first_name, middle_name=excluded.middle_name,
			last_name=excluded.last_name, email=excluded.email, phone=excluded.phone,
			department=excluded.department, position=excluded.position, status=excluded.status,
			profile_photo=excluded.profile_photo, updated_at=excluded.updated_at,
			last_synced=excluded.last_synced
	`, e.PK, e.Code, e.FirstName, nullIfEmpty(e.MiddleName), e.LastName, nullIfEmpty(e.Email),
		nullIfEmpty(e.Phone), nullIfEmpty(e.Department), nullIfEmpty(e.Position), string(e.Status),
		nullIfEmpty(e.ProfilePhoto), formatTimestamp(e.CreatedAt), formatTimestamp(e.UpdatedAt),
		formatTimestamp(e.LastSynced))
	if err != nil {
		return fmt.Errorf("upsert employee %d: %w", e.PK, err)
	}
	return nil
}

// GetEmployeeByPK returns the employee with the given primary key.
func (s *Store) GetEmployeeByPK(ctx context.Context, pk int64) (model.Employee, bool, error) {
	var row employeeRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM employees WHERE id = ?`, pk)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Employee{}, false, nil
	}
	if err != nil {
		return model.Employee{}, false, fmt.Errorf("get employee %d: %w", pk, err)
	}
	return row.toModel(), true, nil
}

// ListActiveEmployees returns every employee whose status is active, used by
// the day-initializer's schedule scan.
func (s *Store) ListActiveEmployees(ctx context.Context) ([]model.Employee, error) {
	var rows []employeeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM employees WHERE LOWER(status) = 'active'`); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	out := make([]model.Employee, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

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
	if t, err := time.ParseInLocation(time.RFC3339, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
