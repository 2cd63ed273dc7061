package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// AttendanceRepository persists the attendance ledger. The table carries a
// UNIQUE (identity_id, date) constraint; writes lean on it so that two
// near-simultaneous recognitions cannot create two records for one day.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindForDay returns the record for one identity and calendar day, or nil.
func (r *AttendanceRepository) FindForDay(ctx context.Context, identityID int64, date string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT id, identity_id, date, check_in, check_out
         FROM attendance WHERE identity_id = $1 AND date = $2`,
		identityID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &rec, nil
}

// CheckIn inserts the day's record. Returns false when a record already
// exists (the conflict target absorbs the race instead of erroring).
func (r *AttendanceRepository) CheckIn(ctx context.Context, identityID int64, date string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (identity_id, date, check_in)
         VALUES ($1, $2, $3)
         ON CONFLICT (identity_id, date) DO NOTHING`,
		identityID, date, at)
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	return affected == 1, nil
}

// CheckOut sets the checkout timestamp once. The check_out IS NULL guard
// makes a third same-day appearance a no-op rather than an overwrite.
func (r *AttendanceRepository) CheckOut(ctx context.Context, identityID int64, date string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET check_out = $3
         WHERE identity_id = $1 AND date = $2 AND check_out IS NULL`,
		identityID, date, at)
	if err != nil {
		return false, fmt.Errorf("update check-out: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update check-out: %w", err)
	}
	return affected == 1, nil
}

// List returns ledger rows matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.IdentityID > 0 {
		where = append(where, fmt.Sprintf("identity_id = $%d", len(args)+1))
		args = append(args, filter.IdentityID)
	}
	if filter.DateFrom != "" {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, identity_id, date, check_in, check_out
        FROM attendance WHERE %s
        ORDER BY date DESC, check_in DESC
        LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// RecordsForIdentity returns one identity's full history, newest first.
func (r *AttendanceRepository) RecordsForIdentity(ctx context.Context, identityID int64) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, identity_id, date, check_in, check_out
         FROM attendance WHERE identity_id = $1
         ORDER BY date DESC`, identityID)
	if err != nil {
		return nil, fmt.Errorf("list identity attendance: %w", err)
	}
	return rows, nil
}

// Summaries aggregates presence totals per identity for the report index.
func (r *AttendanceRepository) Summaries(ctx context.Context) ([]models.AttendanceSummary, error) {
	var rows []models.AttendanceSummary
	err := r.db.SelectContext(ctx, &rows,
		`SELECT i.id AS identity_id, i.name, i.role, i.phone,
                COUNT(a.id) AS total_days
         FROM identities i
         LEFT JOIN attendance a ON a.identity_id = i.id
         GROUP BY i.id, i.name, i.role, i.phone
         ORDER BY i.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("aggregate attendance summaries: %w", err)
	}
	return rows, nil
}
