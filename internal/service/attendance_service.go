package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/internal/repository"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/timeutil"
)

type clockRepository interface {
	List(ctx context.Context) ([]models.ClockRecord, error)
	ListByFilter(ctx context.Context, date, staffID string) ([]models.ClockRecord, error)
	Latest(ctx context.Context, staffID, date, slotID string) (*models.ClockRecord, error)
	Insert(ctx context.Context, record *models.ClockRecord) error
}

type slotLookup interface {
	SlotInfo(ctx context.Context, slotID, date string) (*models.ShiftSlot, error)
}

// AttendanceConfig carries the punch tolerances in minutes.
type AttendanceConfig struct {
	EarlyTolerance int
	LateTolerance  int
}

// AttendanceService owns the punch state machine and attendance
// reconciliation.
type AttendanceService struct {
	repo      clockRepository
	schedule  slotLookup
	snapshots snapshotStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AttendanceConfig
	now       func() time.Time
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo clockRepository, schedule slotLookup, snapshots snapshotStore, validate *validator.Validate, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EarlyTolerance <= 0 {
		config.EarlyTolerance = 10
	}
	if config.LateTolerance <= 0 {
		config.LateTolerance = 30
	}
	return &AttendanceService{
		repo:      repo,
		schedule:  schedule,
		snapshots: snapshots,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Punch records a clock-in or clock-out. Transitions follow unpunched →
// clocked-in → clocked-out; anything else is rejected with a typed
// reason. Duplicate punches never reach storage.
func (s *AttendanceService) Punch(ctx context.Context, req dto.PunchRequest) (*models.ClockRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid punch payload")
	}
	clockType := models.NormalizeClockType(req.ClockType)
	if clockType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown clock type %q", req.ClockType))
	}

	now := s.now()
	date := req.Date
	if date == "" {
		date = timeutil.FormatDate(now)
	}
	clock := req.Time
	if clock == "" {
		clock = fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
	}

	latest, err := s.repo.Latest(ctx, req.StaffID, date, req.SlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check punch state")
	}
	switch clockType {
	case models.ClockTypeIn:
		if latest != nil && models.NormalizeClockType(latest.ClockType) == models.ClockTypeIn {
			return nil, appErrors.ErrAlreadyClockedIn
		}
	case models.ClockTypeOut:
		if latest == nil {
			return nil, appErrors.ErrNotClockedIn
		}
		if models.NormalizeClockType(latest.ClockType) == models.ClockTypeOut {
			return nil, appErrors.ErrAlreadyClockedOut
		}
	}

	var slot *models.ShiftSlot
	if req.SlotID != "" {
		slot, err = s.schedule.SlotInfo(ctx, req.SlotID, date)
		if err != nil {
			return nil, err
		}
	}

	record := &models.ClockRecord{
		ID:        uuid.NewString(),
		Date:      date,
		StaffID:   req.StaffID,
		StaffName: req.StaffName,
		SlotID:    req.SlotID,
		ClockType: clockType,
		Time:      clock,
		Status:    s.Classify(clockType, clock, slot),
		Timestamp: now.UTC(),
	}
	if slot != nil {
		record.SlotLabel = slot.Label
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store punch")
	}
	s.refreshSnapshot(ctx)
	return record, nil
}

// Classify assigns a status at punch time. Clock-ins at or beyond the
// late tolerance after the slot start are late; clock-outs before the
// slot end are early leaves. Without a slot the punch is normal.
func (s *AttendanceService) Classify(clockType, clock string, slot *models.ShiftSlot) string {
	if slot == nil {
		return models.StatusNormal
	}
	minutes, err := timeutil.ParseClock(clock)
	if err != nil {
		return models.StatusNormal
	}
	switch clockType {
	case models.ClockTypeIn:
		start, err := timeutil.ParseClock(slot.Start)
		if err != nil {
			return models.StatusNormal
		}
		if minutes >= start+s.config.LateTolerance {
			return models.StatusLate
		}
	case models.ClockTypeOut:
		end, err := timeutil.ParseClock(slot.End)
		if err != nil {
			return models.StatusNormal
		}
		if minutes < end {
			return models.StatusEarlyLeave
		}
	}
	return models.StatusNormal
}

// Records returns punches matching the filter, degrading to the snapshot
// when the database read fails.
func (s *AttendanceService) Records(ctx context.Context, filter dto.RecordFilter) ([]models.ClockRecord, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record filter")
	}
	records, err := s.repo.ListByFilter(ctx, filter.Date, filter.StaffID)
	if err != nil {
		s.logger.Warn("clock record read failed, trying snapshot", zap.Error(err))
		var fallback []models.ClockRecord
		if snapErr := s.snapshots.Get(ctx, repository.SnapshotClockRecords, &fallback); snapErr != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clock records")
		}
		return filterRecords(fallback, filter), nil
	}
	if filter.Date == "" && filter.StaffID == "" {
		s.snapshots.Set(ctx, repository.SnapshotClockRecords, records)
	}
	return records, nil
}

func filterRecords(records []models.ClockRecord, filter dto.RecordFilter) []models.ClockRecord {
	result := make([]models.ClockRecord, 0, len(records))
	for _, record := range records {
		if filter.Date != "" && record.Date != filter.Date {
			continue
		}
		if filter.StaffID != "" && record.StaffID != filter.StaffID {
			continue
		}
		result = append(result, record)
	}
	return result
}

// Reconcile pairs raw punches into attendance rows. Records group by
// date, staff name and slot; within a group the last processed punch of
// each direction wins, tolerating duplicates from offline kiosk replays.
// Rows come back newest date first, then by staff name.
func (s *AttendanceService) Reconcile(records []models.ClockRecord) []models.AttendanceRow {
	type key struct{ date, staffName, slotID string }
	rows := map[key]*models.AttendanceRow{}
	order := []key{}

	for _, record := range records {
		slotID := record.SlotID
		if slotID == "" {
			slotID = "default"
		}
		k := key{date: record.Date, staffName: record.StaffName, slotID: slotID}
		row, ok := rows[k]
		if !ok {
			row = &models.AttendanceRow{
				Date:      record.Date,
				StaffID:   record.StaffID,
				StaffName: record.StaffName,
				SlotID:    record.SlotID,
				SlotLabel: record.SlotLabel,
			}
			rows[k] = row
			order = append(order, k)
		}
		switch models.NormalizeClockType(record.ClockType) {
		case models.ClockTypeIn:
			row.InTime = record.Time
			row.InStatus = record.Status
		case models.ClockTypeOut:
			row.OutTime = record.Time
			row.OutStatus = record.Status
		}
	}

	result := make([]models.AttendanceRow, 0, len(order))
	for _, k := range order {
		result = append(result, *rows[k])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].StaffName < result[j].StaffName
	})
	return result
}

// Summarize aggregates reconciled rows. Worked minutes wrap across
// midnight, so a 23:50 in with a 00:10 out counts twenty minutes.
func (s *AttendanceService) Summarize(rows []models.AttendanceRow) models.AttendanceSummary {
	summary := models.AttendanceSummary{RowCount: len(rows)}
	for _, row := range rows {
		if row.InStatus == models.StatusLate {
			summary.LateCount++
		}
		if row.OutStatus == models.StatusEarlyLeave {
			summary.EarlyLeaveCount++
		}
		if row.InTime == "" || row.OutTime == "" {
			continue
		}
		in, err := timeutil.ParseClock(row.InTime)
		if err != nil {
			continue
		}
		out, err := timeutil.ParseClock(row.OutTime)
		if err != nil {
			continue
		}
		summary.CompletedCount++
		summary.TotalMinutes += timeutil.MinutesBetween(in, out)
	}
	return summary
}

// CurrentSlot picks the slot whose window covers the given time. The
// window opens at the early tolerance before the slot start.
func (s *AttendanceService) CurrentSlot(slots []models.ShiftSlot, clock string) *models.ShiftSlot {
	minutes, err := timeutil.ParseClock(clock)
	if err != nil {
		return nil
	}
	for i := range slots {
		start, err := timeutil.ParseClock(slots[i].Start)
		if err != nil {
			continue
		}
		end, err := timeutil.ParseClock(slots[i].End)
		if err != nil {
			continue
		}
		if minutes >= start-s.config.EarlyTolerance && minutes <= end {
			copied := slots[i]
			return &copied
		}
	}
	return nil
}

// NextSlot picks the earliest slot starting after the given time.
func (s *AttendanceService) NextSlot(slots []models.ShiftSlot, clock string) *models.ShiftSlot {
	minutes, err := timeutil.ParseClock(clock)
	if err != nil {
		return nil
	}
	var next *models.ShiftSlot
	nextStart := 0
	for i := range slots {
		start, err := timeutil.ParseClock(slots[i].Start)
		if err != nil {
			continue
		}
		if start <= minutes {
			continue
		}
		if next == nil || start < nextStart {
			copied := slots[i]
			next = &copied
			nextStart = start
		}
	}
	return next
}

func (s *AttendanceService) refreshSnapshot(ctx context.Context) {
	records, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn("snapshot refresh skipped", zap.Error(err))
		return
	}
	s.snapshots.Set(ctx, repository.SnapshotClockRecords, records)
}
