package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/internal/repository"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
)

type shiftRepository interface {
	List(ctx context.Context) ([]models.ShiftSubmission, error)
	ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error)
	Insert(ctx context.Context, shift *models.ShiftSubmission) error
	Delete(ctx context.Context, id string) (bool, error)
	CountByStaffWeek(ctx context.Context, staffID, weekKey string) (int, error)
}

type shiftSchedule interface {
	ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error)
	WeekKeyFor(ctx context.Context, date string) (string, error)
}

type staffLister interface {
	List(ctx context.Context) ([]models.Staff, error)
}

type clockLister interface {
	List(ctx context.Context) ([]models.ClockRecord, error)
}

// ShiftService manages availability submissions.
type ShiftService struct {
	repo        shiftRepository
	schedule    shiftSchedule
	staff       staffLister
	clocks      clockLister
	snapshots   snapshotStore
	validator   *validator.Validate
	logger      *zap.Logger
	weeklyLimit int
}

// NewShiftService constructs the service.
func NewShiftService(repo shiftRepository, schedule shiftSchedule, staff staffLister, clocks clockLister, snapshots snapshotStore, validate *validator.Validate, logger *zap.Logger, weeklyLimit int) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if weeklyLimit <= 0 {
		weeklyLimit = 1
	}
	return &ShiftService{
		repo:        repo,
		schedule:    schedule,
		staff:       staff,
		clocks:      clocks,
		snapshots:   snapshots,
		validator:   validate,
		logger:      logger,
		weeklyLimit: weeklyLimit,
	}
}

// List returns all submissions, degrading to the snapshot when the
// database read fails.
func (s *ShiftService) List(ctx context.Context) ([]models.ShiftSubmission, error) {
	shifts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("shift read failed, trying snapshot", zap.Error(err))
		var fallback []models.ShiftSubmission
		if snapErr := s.snapshots.Get(ctx, repository.SnapshotShifts, &fallback); snapErr != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shifts")
		}
		return fallback, nil
	}
	s.snapshots.Set(ctx, repository.SnapshotShifts, shifts)
	return shifts, nil
}

// ListByDate returns submissions for one date.
func (s *ShiftService) ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error) {
	shifts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shifts")
	}
	return shifts, nil
}

// Create stores a submission after confirming the slot exists on an
// operating date. Crossing the weekly limit is flagged in the response
// but never blocks the submission.
func (s *ShiftService) Create(ctx context.Context, req dto.CreateShiftRequest) (*dto.CreateShiftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}

	slots, err := s.schedule.ResolveSlots(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not an operating date", req.Date))
	}
	slotExists := false
	for _, slot := range slots {
		if slot.ID == req.SlotID {
			slotExists = true
			break
		}
	}
	if !slotExists {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %s is not available on %s", req.SlotID, req.Date))
	}

	weekKey, err := s.schedule.WeekKeyFor(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.CountByStaffWeek(ctx, req.StaffID, weekKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count weekly shifts")
	}

	shift := &models.ShiftSubmission{
		ID:        uuid.NewString(),
		Date:      req.Date,
		StaffID:   req.StaffID,
		StaffName: req.StaffName,
		SlotID:    req.SlotID,
		WeekKey:   weekKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store shift")
	}
	s.refreshSnapshot(ctx)

	weeklyCount := existing + 1
	return &dto.CreateShiftResponse{
		ID:           shift.ID,
		WeekKey:      weekKey,
		WeeklyCount:  weeklyCount,
		OverLimit:    weeklyCount > s.weeklyLimit,
		LimitPerWeek: s.weeklyLimit,
	}, nil
}

// Delete removes a submission.
func (s *ShiftService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete shift")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %s not found", id))
	}
	s.refreshSnapshot(ctx)
	return nil
}

// StaffStats tallies submissions and clock-ins per roster member.
func (s *ShiftService) StaffStats(ctx context.Context) ([]models.StaffStats, error) {
	roster, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	shifts, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shifts")
	}
	records, err := s.clocks.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clock records")
	}

	shiftCounts := map[string]int{}
	for _, shift := range shifts {
		shiftCounts[shift.StaffID]++
	}
	clockCounts := map[string]int{}
	for _, record := range records {
		if models.NormalizeClockType(record.ClockType) == models.ClockTypeIn {
			clockCounts[record.StaffID]++
		}
	}

	stats := make([]models.StaffStats, 0, len(roster))
	for _, member := range roster {
		stats = append(stats, models.StaffStats{
			StaffID:    member.ID,
			StaffName:  member.Name,
			ShiftCount: shiftCounts[member.ID],
			ClockCount: clockCounts[member.ID],
		})
	}
	return stats, nil
}

func (s *ShiftService) refreshSnapshot(ctx context.Context) {
	shifts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("snapshot refresh skipped", zap.Error(err))
		return
	}
	s.snapshots.Set(ctx, repository.SnapshotShifts, shifts)
}
