package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
)

type staffRepository interface {
	List(ctx context.Context) ([]models.Staff, error)
}

// StaffService serves the active staff roster.
type StaffService struct {
	repo   staffRepository
	logger *zap.Logger
}

// NewStaffService creates a staff service.
func NewStaffService(repo staffRepository, logger *zap.Logger) *StaffService {
	return &StaffService{repo: repo, logger: logger}
}

// List returns active staff ordered by name.
func (s *StaffService) List(ctx context.Context) ([]models.Staff, error) {
	staff, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list staff", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, nil
}
