package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kyoso-cafe/shift-api/internal/models"
)

// SlotConfigRepository persists the three tiers of slot configuration:
// the legacy global slot table, per-date defaults and custom overrides.
type SlotConfigRepository struct {
	db *sqlx.DB
}

// NewSlotConfigRepository constructs the repository.
func NewSlotConfigRepository(db *sqlx.DB) *SlotConfigRepository {
	return &SlotConfigRepository{db: db}
}

// GlobalSlots returns the legacy global slot table.
func (r *SlotConfigRepository) GlobalSlots(ctx context.Context) ([]models.ShiftSlot, error) {
	const query = `SELECT slot_id, label, start_time, end_time, required_staff
FROM shift_slots ORDER BY start_time ASC, slot_id ASC`
	var slots []models.ShiftSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list global slots: %w", err)
	}
	return slots, nil
}

type dateSlotRow struct {
	Date string `db:"date"`
	models.ShiftSlot
}

// DateDefaults returns the per-date default slot lists.
func (r *SlotConfigRepository) DateDefaults(ctx context.Context) (models.DateSlotConfig, error) {
	const query = `SELECT date, slot_id, label, start_time, end_time, required_staff
FROM date_slots ORDER BY date ASC, position ASC`
	var rows []dateSlotRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list date defaults: %w", err)
	}
	config := models.DateSlotConfig{}
	for _, row := range rows {
		config[row.Date] = append(config[row.Date], row.ShiftSlot)
	}
	return config, nil
}

type dateSlotIDRow struct {
	Date   string `db:"date"`
	SlotID string `db:"slot_id"`
}

// LegacyDateSlotIDs returns the per-date slot ID lists kept from the old
// configuration format. IDs resolve against GlobalSlots.
func (r *SlotConfigRepository) LegacyDateSlotIDs(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT date, slot_id FROM date_slot_ids ORDER BY date ASC, position ASC`
	var rows []dateSlotIDRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list legacy date slot ids: %w", err)
	}
	ids := map[string][]string{}
	for _, row := range rows {
		ids[row.Date] = append(ids[row.Date], row.SlotID)
	}
	return ids, nil
}

type customSlotRow struct {
	Date          string         `db:"date"`
	SlotID        sql.NullString `db:"slot_id"`
	Label         sql.NullString `db:"label"`
	Start         sql.NullString `db:"start_time"`
	End           sql.NullString `db:"end_time"`
	RequiredStaff sql.NullInt64  `db:"required_staff"`
}

// CustomOverrides returns the override map. A date stored with a single
// NULL slot row is an explicit deletion and surfaces as an empty,
// non-nil slice.
func (r *SlotConfigRepository) CustomOverrides(ctx context.Context) (models.DateSlotConfig, error) {
	const query = `SELECT date, slot_id, label, start_time, end_time, required_staff
FROM custom_shift_slots ORDER BY date ASC, position ASC`
	var rows []customSlotRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list custom overrides: %w", err)
	}
	config := models.DateSlotConfig{}
	for _, row := range rows {
		if !row.SlotID.Valid {
			if _, ok := config[row.Date]; !ok {
				config[row.Date] = []models.ShiftSlot{}
			}
			continue
		}
		config[row.Date] = append(config[row.Date], models.ShiftSlot{
			ID:            row.SlotID.String,
			Label:         row.Label.String,
			Start:         row.Start.String,
			End:           row.End.String,
			RequiredStaff: int(row.RequiredStaff.Int64),
		})
	}
	return config, nil
}

// SaveOverride replaces one date's override rows.
func (r *SlotConfigRepository) SaveOverride(ctx context.Context, date string, slots []models.ShiftSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin override tx: %w", err)
	}
	if err := saveOverrideTx(ctx, tx, date, slots); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit override tx: %w", err)
	}
	return nil
}

// SaveOverrides replaces several dates' override rows in one transaction.
// Any failure rolls back the whole batch.
func (r *SlotConfigRepository) SaveOverrides(ctx context.Context, config models.DateSlotConfig) error {
	if len(config) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk override tx: %w", err)
	}
	for date, slots := range config {
		if err := saveOverrideTx(ctx, tx, date, slots); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk override tx: %w", err)
	}
	return nil
}

func saveOverrideTx(ctx context.Context, tx *sqlx.Tx, date string, slots []models.ShiftSlot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_shift_slots WHERE date = $1`, date); err != nil {
		return fmt.Errorf("clear overrides for %s: %w", date, err)
	}
	if len(slots) == 0 {
		// Tombstone row: the date stays configured but holds no slots.
		const tombstone = `INSERT INTO custom_shift_slots (date, slot_id, position) VALUES ($1, NULL, 0)`
		if _, err := tx.ExecContext(ctx, tombstone, date); err != nil {
			return fmt.Errorf("write tombstone for %s: %w", date, err)
		}
		return nil
	}
	const query = `INSERT INTO custom_shift_slots (date, slot_id, label, start_time, end_time, required_staff, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, slot := range slots {
		if _, err := tx.ExecContext(ctx, query, date, slot.ID, slot.Label, slot.Start, slot.End, slot.RequiredStaff, i); err != nil {
			return fmt.Errorf("write override for %s: %w", date, err)
		}
	}
	return nil
}

type weekRow struct {
	WeekKey string         `db:"week_key"`
	Label   string         `db:"label"`
	Dates   pq.StringArray `db:"dates"`
}

// StaticWeeks returns the configured week definitions.
func (r *SlotConfigRepository) StaticWeeks(ctx context.Context) ([]models.Week, error) {
	const query = `SELECT week_key, label, dates FROM weeks ORDER BY week_key ASC`
	var rows []weekRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	weeks := make([]models.Week, len(rows))
	for i, row := range rows {
		weeks[i] = models.Week{WeekKey: row.WeekKey, Label: row.Label, Dates: row.Dates}
	}
	return weeks, nil
}
