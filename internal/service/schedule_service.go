package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/internal/repository"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/timeutil"
)

type slotConfigRepository interface {
	GlobalSlots(ctx context.Context) ([]models.ShiftSlot, error)
	DateDefaults(ctx context.Context) (models.DateSlotConfig, error)
	LegacyDateSlotIDs(ctx context.Context) (map[string][]string, error)
	CustomOverrides(ctx context.Context) (models.DateSlotConfig, error)
	SaveOverride(ctx context.Context, date string, slots []models.ShiftSlot) error
	StaticWeeks(ctx context.Context) ([]models.Week, error)
}

type snapshotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{})
}

// scheduleData is one consistent load of every configuration tier.
type scheduleData struct {
	GlobalSlots       []models.ShiftSlot    `json:"globalSlots"`
	DateDefaults      models.DateSlotConfig `json:"dateDefaults"`
	LegacyDateSlotIDs map[string][]string   `json:"legacyDateSlotIds"`
	Overrides         models.DateSlotConfig `json:"overrides"`
	Weeks             []models.Week         `json:"weeks"`
}

// ScheduleService resolves slot configuration, the operation calendar and
// week grouping. Loads are cached until the next mutation; concurrent
// cold loads collapse into a single database round trip.
type ScheduleService struct {
	repo      slotConfigRepository
	snapshots snapshotStore
	validator *validator.Validate
	logger    *zap.Logger

	defaultRequiredStaff int
	weeklyLimit          int

	mu     sync.RWMutex
	cached *scheduleData
	group  singleflight.Group
}

// NewScheduleService constructs the service.
func NewScheduleService(repo slotConfigRepository, snapshots snapshotStore, validate *validator.Validate, logger *zap.Logger, defaultRequiredStaff, weeklyLimit int) *ScheduleService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultRequiredStaff <= 0 {
		defaultRequiredStaff = 3
	}
	if weeklyLimit <= 0 {
		weeklyLimit = 1
	}
	return &ScheduleService{
		repo:                 repo,
		snapshots:            snapshots,
		validator:            validate,
		logger:               logger,
		defaultRequiredStaff: defaultRequiredStaff,
		weeklyLimit:          weeklyLimit,
	}
}

// Invalidate drops the cached configuration. The next read reloads.
func (s *ScheduleService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *ScheduleService) load(ctx context.Context) (*scheduleData, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	result, err, _ := s.group.Do("schedule-config", func() (interface{}, error) {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		data, err := s.loadFromDB(ctx)
		if err != nil {
			s.logger.Warn("schedule config load failed, trying snapshot", zap.Error(err))
			fallback := &scheduleData{}
			if snapErr := s.snapshots.Get(ctx, repository.SnapshotSlotConfig, fallback); snapErr != nil {
				return nil, err
			}
			return fallback, nil
		}

		s.snapshots.Set(ctx, repository.SnapshotSlotConfig, data)
		s.mu.Lock()
		s.cached = data
		s.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot configuration")
	}
	return result.(*scheduleData), nil
}

func (s *ScheduleService) loadFromDB(ctx context.Context) (*scheduleData, error) {
	globalSlots, err := s.repo.GlobalSlots(ctx)
	if err != nil {
		return nil, err
	}
	dateDefaults, err := s.repo.DateDefaults(ctx)
	if err != nil {
		return nil, err
	}
	legacyIDs, err := s.repo.LegacyDateSlotIDs(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.CustomOverrides(ctx)
	if err != nil {
		return nil, err
	}
	weeks, err := s.repo.StaticWeeks(ctx)
	if err != nil {
		return nil, err
	}
	return &scheduleData{
		GlobalSlots:       globalSlots,
		DateDefaults:      dateDefaults,
		LegacyDateSlotIDs: legacyIDs,
		Overrides:         overrides,
		Weeks:             weeks,
	}, nil
}

// ResolveSlots returns the effective slot list for a date. Custom
// overrides win even when empty, then per-date defaults, then the legacy
// ID list resolved against the global slot table. Unknown dates yield an
// empty list, never an error.
func (s *ScheduleService) ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return resolveSlots(data, date), nil
}

func resolveSlots(data *scheduleData, date string) []models.ShiftSlot {
	if slots, ok := data.Overrides[date]; ok {
		return append([]models.ShiftSlot{}, slots...)
	}
	if slots := data.DateDefaults[date]; len(slots) > 0 {
		return append([]models.ShiftSlot{}, slots...)
	}
	ids := data.LegacyDateSlotIDs[date]
	if len(ids) == 0 {
		return []models.ShiftSlot{}
	}
	byID := make(map[string]models.ShiftSlot, len(data.GlobalSlots))
	for _, slot := range data.GlobalSlots {
		byID[slot.ID] = slot
	}
	resolved := make([]models.ShiftSlot, 0, len(ids))
	for _, id := range ids {
		// IDs pointing at deleted global slots are dropped silently.
		if slot, ok := byID[id]; ok {
			resolved = append(resolved, slot)
		}
	}
	return resolved
}

// SlotInfo looks up one slot, preferring the date-aware instance.
func (s *ScheduleService) SlotInfo(ctx context.Context, slotID, date string) (*models.ShiftSlot, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if date != "" {
		for _, slot := range resolveSlots(data, date) {
			if slot.ID == slotID {
				copied := slot
				return &copied, nil
			}
		}
	}
	for _, slot := range data.GlobalSlots {
		if slot.ID == slotID {
			copied := slot
			return &copied, nil
		}
	}
	return nil, nil
}

// ResolveRequiredStaff returns the staffing requirement for a slot,
// falling back from the date-aware instance to the global slot to the
// configured default.
func (s *ScheduleService) ResolveRequiredStaff(ctx context.Context, slotID, date string) (int, error) {
	slot, err := s.SlotInfo(ctx, slotID, date)
	if err != nil {
		return 0, err
	}
	if slot != nil && slot.RequiredStaff > 0 {
		return slot.RequiredStaff, nil
	}
	return s.defaultRequiredStaff, nil
}

// OperatingDates returns every bookable date in ascending order: the
// static calendar plus custom dates that still hold slots.
func (s *ScheduleService) OperatingDates(ctx context.Context) ([]string, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return operatingDates(data), nil
}

func operatingDates(data *scheduleData) []string {
	seen := map[string]struct{}{}
	for date := range data.DateDefaults {
		seen[date] = struct{}{}
	}
	for date := range data.LegacyDateSlotIDs {
		seen[date] = struct{}{}
	}
	for date, slots := range data.Overrides {
		if len(slots) > 0 {
			seen[date] = struct{}{}
		} else {
			// Explicitly emptied dates leave the calendar entirely.
			delete(seen, date)
		}
	}
	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// IsOperatingDate reports whether the date still holds at least one slot.
func (s *ScheduleService) IsOperatingDate(ctx context.Context, date string) (bool, error) {
	slots, err := s.ResolveSlots(ctx, date)
	if err != nil {
		return false, err
	}
	return len(slots) > 0, nil
}

// OperationDate describes one calendar day, synthesizing entries for
// custom-only dates.
func (s *ScheduleService) OperationDate(ctx context.Context, date string) (*models.OperatingDate, error) {
	operating, err := s.IsOperatingDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if !operating {
		return nil, nil
	}
	parsed, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", date))
	}
	return &models.OperatingDate{
		Date:         date,
		Weekday:      timeutil.WeekdayName(parsed),
		HasMorning:   true,
		HasAfternoon: true,
	}, nil
}

// OperationPeriod returns the inclusive calendar bounds. Custom dates
// widen the period only while they still hold slots.
func (s *ScheduleService) OperationPeriod(ctx context.Context) (models.OperationPeriod, error) {
	dates, err := s.OperatingDates(ctx)
	if err != nil {
		return models.OperationPeriod{}, err
	}
	if len(dates) == 0 {
		return models.OperationPeriod{}, nil
	}
	return models.OperationPeriod{Start: dates[0], End: dates[len(dates)-1]}, nil
}

// TotalSlotCount sums slots across all operating dates.
func (s *ScheduleService) TotalSlotCount(ctx context.Context) (int, error) {
	data, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, date := range operatingDates(data) {
		total += len(resolveSlots(data, date))
	}
	return total, nil
}

// Weeks rebuilds the week grouping from the static definitions and the
// current operating dates. The result is a pure function of both inputs,
// so repeated calls are idempotent.
func (s *ScheduleService) Weeks(ctx context.Context) ([]models.Week, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return buildWeeks(data)
}

func buildWeeks(data *scheduleData) ([]models.Week, error) {
	weeks := make([]models.Week, len(data.Weeks))
	for i, week := range data.Weeks {
		weeks[i] = models.Week{
			WeekKey: week.WeekKey,
			Label:   week.Label,
			Dates:   append([]string{}, week.Dates...),
		}
	}

	for _, date := range operatingDates(data) {
		if weekContaining(weeks, date) >= 0 {
			continue
		}
		parsed, err := timeutil.ParseDate(date)
		if err != nil {
			continue
		}
		monday := timeutil.MondayOf(parsed)
		weekKey := timeutil.FormatDate(monday)

		idx := -1
		for i := range weeks {
			if weeks[i].WeekKey == weekKey {
				idx = i
				break
			}
		}
		if idx < 0 {
			weeks = append(weeks, models.Week{
				WeekKey: weekKey,
				Label:   fmt.Sprintf("%d/%d週", int(monday.Month()), monday.Day()),
			})
			idx = len(weeks) - 1
		}
		weeks[idx].Dates = append(weeks[idx].Dates, date)
	}

	for i := range weeks {
		sort.Strings(weeks[i].Dates)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekKey < weeks[j].WeekKey })
	return weeks, nil
}

func weekContaining(weeks []models.Week, date string) int {
	for i := range weeks {
		for _, d := range weeks[i].Dates {
			if d == date {
				return i
			}
		}
	}
	return -1
}

// WeekKeyFor maps a date onto its week, synthesizing the Monday key when
// no configured week contains it.
func (s *ScheduleService) WeekKeyFor(ctx context.Context, date string) (string, error) {
	weeks, err := s.Weeks(ctx)
	if err != nil {
		return "", err
	}
	if idx := weekContaining(weeks, date); idx >= 0 {
		return weeks[idx].WeekKey, nil
	}
	parsed, err := timeutil.ParseDate(date)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", date))
	}
	return timeutil.FormatDate(timeutil.MondayOf(parsed)), nil
}

// WeekInfo returns one week by key.
func (s *ScheduleService) WeekInfo(ctx context.Context, weekKey string) (*models.Week, error) {
	weeks, err := s.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range weeks {
		if weeks[i].WeekKey == weekKey {
			copied := weeks[i]
			return &copied, nil
		}
	}
	return nil, nil
}

// DetectViolations groups submissions by week and staff member and
// reports everyone above the weekly limit. Violations are informational;
// nothing here blocks a submission.
func (s *ScheduleService) DetectViolations(submissions []models.ShiftSubmission) []models.WeeklyViolation {
	type key struct{ weekKey, staffID string }
	grouped := map[key][]models.ShiftSubmission{}
	order := []key{}
	for _, sub := range submissions {
		k := key{weekKey: sub.WeekKey, staffID: sub.StaffID}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], sub)
	}

	violations := []models.WeeklyViolation{}
	for _, k := range order {
		subs := grouped[k]
		if len(subs) <= s.weeklyLimit {
			continue
		}
		violations = append(violations, models.WeeklyViolation{
			WeekKey:     k.weekKey,
			StaffID:     k.staffID,
			StaffName:   subs[0].StaffName,
			Count:       len(subs),
			Submissions: subs,
		})
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].WeekKey != violations[j].WeekKey {
			return violations[i].WeekKey < violations[j].WeekKey
		}
		return violations[i].StaffName < violations[j].StaffName
	})
	return violations
}

// WeeklyOverview summarises submission coverage per week.
func (s *ScheduleService) WeeklyOverview(ctx context.Context, submissions []models.ShiftSubmission) ([]models.WeekSummary, error) {
	weeks, err := s.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.WeekSummary, 0, len(weeks))
	for _, week := range weeks {
		summary := models.WeekSummary{
			WeekKey:    week.WeekKey,
			Label:      week.Label,
			DateCounts: map[string]int{},
		}
		members := map[string]struct{}{}
		for _, date := range week.Dates {
			summary.DateCounts[date] = 0
		}
		for _, sub := range submissions {
			if sub.WeekKey != week.WeekKey {
				continue
			}
			members[sub.StaffID] = struct{}{}
			summary.DateCounts[sub.Date]++
		}
		summary.MemberCount = len(members)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// SaveSlot creates or updates one slot on a date's custom configuration.
// The first edit of a date copies its current effective slots into the
// override so later default changes cannot silently reshape it.
func (s *ScheduleService) SaveSlot(ctx context.Context, req dto.SaveSlotRequest) (*models.ShiftSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	start, err := timeutil.ParseClock(req.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start time %q", req.Start))
	}
	end, err := timeutil.ParseClock(req.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end time %q", req.End))
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}

	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	slots := resolveSlots(data, req.Date)
	slot := models.ShiftSlot{
		ID:            req.SlotID,
		Label:         req.Label,
		Start:         req.Start,
		End:           req.End,
		RequiredStaff: req.RequiredStaff,
	}

	if slot.ID == "" {
		slot.ID = nextSlotID(data)
		slots = append(slots, slot)
	} else {
		updated := false
		for i := range slots {
			if slots[i].ID == slot.ID {
				slots[i] = slot
				updated = true
				break
			}
		}
		if !updated {
			slots = append(slots, slot)
		}
	}

	if err := s.repo.SaveOverride(ctx, req.Date, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save slot")
	}
	s.Invalidate()
	return &slot, nil
}

func nextSlotID(data *scheduleData) string {
	used := map[string]struct{}{}
	for _, slot := range data.GlobalSlots {
		used[slot.ID] = struct{}{}
	}
	for _, slots := range data.DateDefaults {
		for _, slot := range slots {
			used[slot.ID] = struct{}{}
		}
	}
	for _, slots := range data.Overrides {
		for _, slot := range slots {
			used[slot.ID] = struct{}{}
		}
	}
	n := len(data.GlobalSlots) + 1
	for {
		candidate := fmt.Sprintf("SLOT_%d", n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
		n++
	}
}

// DeleteSlot removes one slot from a date. Deleting the last slot stores
// an explicit empty override so per-date defaults do not resurface.
func (s *ScheduleService) DeleteSlot(ctx context.Context, date, slotID string) error {
	data, err := s.load(ctx)
	if err != nil {
		return err
	}
	slots := resolveSlots(data, date)
	remaining := make([]models.ShiftSlot, 0, len(slots))
	found := false
	for _, slot := range slots {
		if slot.ID == slotID {
			found = true
			continue
		}
		remaining = append(remaining, slot)
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("slot %s not configured on %s", slotID, date))
	}
	if err := s.repo.SaveOverride(ctx, date, remaining); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	s.Invalidate()
	return nil
}

// DeleteDate empties a date's configuration, removing it from the
// operation calendar.
func (s *ScheduleService) DeleteDate(ctx context.Context, date string) error {
	if _, err := timeutil.ParseDate(date); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", date))
	}
	if err := s.repo.SaveOverride(ctx, date, []models.ShiftSlot{}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete date configuration")
	}
	s.Invalidate()
	return nil
}

// WeeklyLimit exposes the configured limit for response payloads.
func (s *ScheduleService) WeeklyLimit() int {
	return s.weeklyLimit
}
