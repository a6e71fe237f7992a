package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kyoso-cafe/shift-api/internal/models"
)

// ShiftRepository persists availability submissions.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs the repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// List returns every submission in insertion order.
func (r *ShiftRepository) List(ctx context.Context) ([]models.ShiftSubmission, error) {
	const query = `SELECT id, date, staff_id, staff_name, slot_id, week_key, created_at
FROM shift_submissions ORDER BY created_at ASC`
	var shifts []models.ShiftSubmission
	if err := r.db.SelectContext(ctx, &shifts, query); err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// ListByDate returns submissions for one date.
func (r *ShiftRepository) ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error) {
	const query = `SELECT id, date, staff_id, staff_name, slot_id, week_key, created_at
FROM shift_submissions WHERE date = $1 ORDER BY created_at ASC`
	var shifts []models.ShiftSubmission
	if err := r.db.SelectContext(ctx, &shifts, query, date); err != nil {
		return nil, fmt.Errorf("list shifts for %s: %w", date, err)
	}
	return shifts, nil
}

// Insert stores a new submission.
func (r *ShiftRepository) Insert(ctx context.Context, shift *models.ShiftSubmission) error {
	const query = `INSERT INTO shift_submissions (id, date, staff_id, staff_name, slot_id, week_key, created_at)
VALUES (:id, :date, :staff_id, :staff_name, :slot_id, :week_key, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	return nil
}

// Delete removes a submission by ID and reports whether a row was hit.
func (r *ShiftRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM shift_submissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete shift %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete shift %s: %w", id, err)
	}
	return affected > 0, nil
}

// CountByStaffWeek counts a staff member's submissions inside one week.
func (r *ShiftRepository) CountByStaffWeek(ctx context.Context, staffID, weekKey string) (int, error) {
	const query = `SELECT COUNT(*) FROM shift_submissions WHERE staff_id = $1 AND week_key = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, staffID, weekKey); err != nil {
		return 0, fmt.Errorf("count shifts for %s in %s: %w", staffID, weekKey, err)
	}
	return count, nil
}

// ReplaceAll swaps the full submission set inside one transaction. Used by
// the data bundle restore.
func (r *ShiftRepository) ReplaceAll(ctx context.Context, shifts []models.ShiftSubmission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin shift replace tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_submissions`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear shifts: %w", err)
	}
	const query = `INSERT INTO shift_submissions (id, date, staff_id, staff_name, slot_id, week_key, created_at)
VALUES (:id, :date, :staff_id, :staff_name, :slot_id, :week_key, :created_at)`
	for i := range shifts {
		if _, err := tx.NamedExecContext(ctx, query, shifts[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("restore shift: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit shift replace tx: %w", err)
	}
	return nil
}
