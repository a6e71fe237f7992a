package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kyoso-cafe/shift-api/internal/models"
)

// StaffRepository persists the staff roster.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns active staff ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, name, role, password_hash, active, created_at
FROM staff WHERE active = TRUE ORDER BY name ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// FindByName fetches one staff member by exact name.
func (r *StaffRepository) FindByName(ctx context.Context, name string) (*models.Staff, error) {
	const query = `SELECT id, name, role, password_hash, active, created_at FROM staff WHERE name = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, name); err != nil {
		return nil, err
	}
	return &staff, nil
}

// FindByID fetches one staff member by ID.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	const query = `SELECT id, name, role, password_hash, active, created_at FROM staff WHERE id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}
