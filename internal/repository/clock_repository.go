package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kyoso-cafe/shift-api/internal/models"
)

// ClockRepository persists punch events.
type ClockRepository struct {
	db *sqlx.DB
}

// NewClockRepository constructs the repository.
func NewClockRepository(db *sqlx.DB) *ClockRepository {
	return &ClockRepository{db: db}
}

// List returns every punch in insertion order. Reconciliation depends on
// this order for its last-processed-wins pairing.
func (r *ClockRepository) List(ctx context.Context) ([]models.ClockRecord, error) {
	const query = `SELECT id, date, staff_id, staff_name, slot_id, slot_label, clock_type, time, status, timestamp
FROM clock_records ORDER BY timestamp ASC, id ASC`
	var records []models.ClockRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list clock records: %w", err)
	}
	return records, nil
}

// ListByFilter narrows punches by optional date and staff ID.
func (r *ClockRepository) ListByFilter(ctx context.Context, date, staffID string) ([]models.ClockRecord, error) {
	query := `SELECT id, date, staff_id, staff_name, slot_id, slot_label, clock_type, time, status, timestamp
FROM clock_records WHERE 1=1`
	args := []interface{}{}
	if date != "" {
		args = append(args, date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if staffID != "" {
		args = append(args, staffID)
		query += fmt.Sprintf(" AND staff_id = $%d", len(args))
	}
	query += " ORDER BY timestamp ASC, id ASC"

	var records []models.ClockRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list clock records: %w", err)
	}
	return records, nil
}

// Latest returns the newest punch for a staff member on a date and slot,
// or nil when no punch exists yet.
func (r *ClockRepository) Latest(ctx context.Context, staffID, date, slotID string) (*models.ClockRecord, error) {
	const query = `SELECT id, date, staff_id, staff_name, slot_id, slot_label, clock_type, time, status, timestamp
FROM clock_records WHERE staff_id = $1 AND date = $2 AND slot_id = $3
ORDER BY timestamp DESC, id DESC LIMIT 1`
	var record models.ClockRecord
	if err := r.db.GetContext(ctx, &record, query, staffID, date, slotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest clock record: %w", err)
	}
	return &record, nil
}

// Insert stores a new punch.
func (r *ClockRepository) Insert(ctx context.Context, record *models.ClockRecord) error {
	const query = `INSERT INTO clock_records (id, date, staff_id, staff_name, slot_id, slot_label, clock_type, time, status, timestamp)
VALUES (:id, :date, :staff_id, :staff_name, :slot_id, :slot_label, :clock_type, :time, :status, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert clock record: %w", err)
	}
	return nil
}

// ReplaceAll swaps the full punch set inside one transaction. Used by the
// data bundle restore.
func (r *ClockRepository) ReplaceAll(ctx context.Context, records []models.ClockRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clock replace tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clock_records`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear clock records: %w", err)
	}
	const query = `INSERT INTO clock_records (id, date, staff_id, staff_name, slot_id, slot_label, clock_type, time, status, timestamp)
VALUES (:id, :date, :staff_id, :staff_name, :slot_id, :slot_label, :clock_type, :time, :status, :timestamp)`
	for i := range records {
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("restore clock record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clock replace tx: %w", err)
	}
	return nil
}
