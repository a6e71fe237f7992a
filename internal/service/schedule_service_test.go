package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
)

type slotConfigRepoStub struct {
	global   []models.ShiftSlot
	defaults models.DateSlotConfig
	legacy   map[string][]string
	override models.DateSlotConfig
	weeks    []models.Week

	loadErr error
	saved   map[string][]models.ShiftSlot
}

func (s *slotConfigRepoStub) GlobalSlots(ctx context.Context) ([]models.ShiftSlot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.global, nil
}

func (s *slotConfigRepoStub) DateDefaults(ctx context.Context) (models.DateSlotConfig, error) {
	return s.defaults, nil
}

func (s *slotConfigRepoStub) LegacyDateSlotIDs(ctx context.Context) (map[string][]string, error) {
	return s.legacy, nil
}

func (s *slotConfigRepoStub) CustomOverrides(ctx context.Context) (models.DateSlotConfig, error) {
	return s.override, nil
}

func (s *slotConfigRepoStub) SaveOverride(ctx context.Context, date string, slots []models.ShiftSlot) error {
	if s.saved == nil {
		s.saved = map[string][]models.ShiftSlot{}
	}
	s.saved[date] = slots
	if s.override == nil {
		s.override = models.DateSlotConfig{}
	}
	s.override[date] = slots
	return nil
}

func (s *slotConfigRepoStub) StaticWeeks(ctx context.Context) ([]models.Week, error) {
	return s.weeks, nil
}

type snapshotStoreStub struct {
	data map[string]interface{}
	sets int
}

func (s *snapshotStoreStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.data == nil {
		return appErrors.ErrSnapshotMiss
	}
	value, ok := s.data[key]
	if !ok {
		return appErrors.ErrSnapshotMiss
	}
	if snap, ok := value.(*scheduleData); ok {
		if out, ok := dest.(*scheduleData); ok {
			*out = *snap
			return nil
		}
	}
	return appErrors.ErrSnapshotMiss
}

func (s *snapshotStoreStub) Set(ctx context.Context, key string, value interface{}) {
	s.sets++
}

func slotFixture(id, label, start, end string, required int) models.ShiftSlot {
	return models.ShiftSlot{ID: id, Label: label, Start: start, End: end, RequiredStaff: required}
}

func newScheduleServiceForTest(repo *slotConfigRepoStub) *ScheduleService {
	return NewScheduleService(repo, &snapshotStoreStub{}, NewValidator(), nil, 3, 1)
}

func TestResolveSlotsOverrideWinsEvenWhenEmpty(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
		override: models.DateSlotConfig{
			"2026-01-21": {},
		},
	}
	svc := newScheduleServiceForTest(repo)

	slots, err := svc.ResolveSlots(context.Background(), "2026-01-21")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveSlotsFallsBackToDefaults(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	slots, err := svc.ResolveSlots(context.Background(), "2026-01-21")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "SLOT_1", slots[0].ID)
}

func TestResolveSlotsLegacyDropsUnknownIDs(t *testing.T) {
	repo := &slotConfigRepoStub{
		global: []models.ShiftSlot{
			slotFixture("SLOT_1", "午前", "10:00", "12:00", 2),
			slotFixture("SLOT_2", "午後", "14:40", "16:10", 3),
		},
		legacy: map[string][]string{
			"2026-01-22": {"SLOT_2", "SLOT_GONE", "SLOT_1"},
		},
	}
	svc := newScheduleServiceForTest(repo)

	slots, err := svc.ResolveSlots(context.Background(), "2026-01-22")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "SLOT_2", slots[0].ID)
	assert.Equal(t, "SLOT_1", slots[1].ID)
}

func TestResolveSlotsUnknownDateReturnsEmpty(t *testing.T) {
	svc := newScheduleServiceForTest(&slotConfigRepoStub{})

	slots, err := svc.ResolveSlots(context.Background(), "2099-12-31")
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestResolveRequiredStaffFallbackChain(t *testing.T) {
	repo := &slotConfigRepoStub{
		global: []models.ShiftSlot{slotFixture("SLOT_1", "午後", "14:40", "16:10", 5)},
		override: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 2)},
		},
	}
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	dated, err := svc.ResolveRequiredStaff(ctx, "SLOT_1", "2026-01-21")
	require.NoError(t, err)
	assert.Equal(t, 2, dated)

	global, err := svc.ResolveRequiredStaff(ctx, "SLOT_1", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, 5, global)

	fallback, err := svc.ResolveRequiredStaff(ctx, "SLOT_UNKNOWN", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, 3, fallback)
}

func TestOperatingDatesExcludesEmptiedDates(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
			"2026-01-22": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
		override: models.DateSlotConfig{
			"2026-01-22": {},
			"2026-01-30": {slotFixture("SLOT_9", "特別", "10:00", "12:00", 2)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	dates, err := svc.OperatingDates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-21", "2026-01-30"}, dates)

	operating, err := svc.IsOperatingDate(context.Background(), "2026-01-22")
	require.NoError(t, err)
	assert.False(t, operating)
}

func TestOperationPeriodWidensWithCustomDates(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
		override: models.DateSlotConfig{
			"2026-02-10": {slotFixture("SLOT_9", "特別", "10:00", "12:00", 2)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	period, err := svc.OperationPeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-21", period.Start)
	assert.Equal(t, "2026-02-10", period.End)
}

func TestWeeksSynthesizesMondayKeyedGroups(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			// Wednesday and Friday of the week starting Monday 2026-01-19,
			// plus a Sunday that belongs to the same week.
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
			"2026-01-23": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
			"2026-01-25": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
			"2026-01-28": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	weeks, err := svc.Weeks(context.Background())
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	assert.Equal(t, "2026-01-19", weeks[0].WeekKey)
	assert.Equal(t, "1/19週", weeks[0].Label)
	assert.Equal(t, []string{"2026-01-21", "2026-01-23", "2026-01-25"}, weeks[0].Dates)

	assert.Equal(t, "2026-01-26", weeks[1].WeekKey)
	assert.Equal(t, "1/26週", weeks[1].Label)
	assert.Equal(t, []string{"2026-01-28"}, weeks[1].Dates)

	// Rebuilding from the same inputs yields the same grouping.
	again, err := svc.Weeks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, weeks, again)
}

func TestWeekKeyForPrefersConfiguredWeeks(t *testing.T) {
	repo := &slotConfigRepoStub{
		weeks: []models.Week{
			{WeekKey: "2026-01-19", Label: "1/19週", Dates: []string{"2026-01-21"}},
		},
	}
	svc := newScheduleServiceForTest(repo)
	ctx := context.Background()

	key, err := svc.WeekKeyFor(ctx, "2026-01-21")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-19", key)

	synthesized, err := svc.WeekKeyFor(ctx, "2026-02-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02", synthesized)
}

func TestDetectViolationsFlagsAboveLimit(t *testing.T) {
	svc := newScheduleServiceForTest(&slotConfigRepoStub{})
	submissions := []models.ShiftSubmission{
		{ID: "s1", Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", WeekKey: "2026-01-19"},
		{ID: "s2", Date: "2026-01-23", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", WeekKey: "2026-01-19"},
		{ID: "s3", Date: "2026-01-21", StaffID: "staff-2", StaffName: "鈴木", SlotID: "SLOT_1", WeekKey: "2026-01-19"},
	}

	violations := svc.DetectViolations(submissions)
	require.Len(t, violations, 1)
	assert.Equal(t, "staff-1", violations[0].StaffID)
	assert.Equal(t, 2, violations[0].Count)
	assert.Equal(t, "2026-01-19", violations[0].WeekKey)
}

func TestSaveSlotGeneratesIDAndCopiesEffectiveSlots(t *testing.T) {
	repo := &slotConfigRepoStub{
		global: []models.ShiftSlot{slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	slot, err := svc.SaveSlot(context.Background(), dto.SaveSlotRequest{
		Date:          "2026-01-21",
		Label:         "夕方",
		Start:         "17:00",
		End:           "19:00",
		RequiredStaff: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "SLOT_2", slot.ID)

	saved := repo.saved["2026-01-21"]
	require.Len(t, saved, 2)
	assert.Equal(t, "SLOT_1", saved[0].ID)
	assert.Equal(t, "SLOT_2", saved[1].ID)
}

func TestSaveSlotRejectsInvalidPayloads(t *testing.T) {
	repo := &slotConfigRepoStub{}
	svc := newScheduleServiceForTest(repo)

	cases := map[string]dto.SaveSlotRequest{
		"out-of-range times": {Date: "2026-01-21", Label: "夕方", Start: "99:99", End: "88:88", RequiredStaff: 2},
		"headcount too high": {Date: "2026-01-21", Label: "夕方", Start: "17:00", End: "19:00", RequiredStaff: 99},
		"malformed date":     {Date: "01/21", Label: "夕方", Start: "17:00", End: "19:00", RequiredStaff: 2},
		"end before start":   {Date: "2026-01-21", Label: "夕方", Start: "19:00", End: "17:00", RequiredStaff: 2},
		"zero-length slot":   {Date: "2026-01-21", Label: "夕方", Start: "17:00", End: "17:00", RequiredStaff: 2},
	}
	for name, req := range cases {
		_, err := svc.SaveSlot(context.Background(), req)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, name)
	}
	assert.Empty(t, repo.saved)
}

func TestDeleteSlotLastSlotStoresEmptyOverride(t *testing.T) {
	repo := &slotConfigRepoStub{
		defaults: models.DateSlotConfig{
			"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
		},
	}
	svc := newScheduleServiceForTest(repo)

	require.NoError(t, svc.DeleteSlot(context.Background(), "2026-01-21", "SLOT_1"))
	saved, ok := repo.saved["2026-01-21"]
	require.True(t, ok)
	assert.Empty(t, saved)

	operating, err := svc.IsOperatingDate(context.Background(), "2026-01-21")
	require.NoError(t, err)
	assert.False(t, operating)
}

func TestDeleteSlotUnknownSlotReturnsNotFound(t *testing.T) {
	svc := newScheduleServiceForTest(&slotConfigRepoStub{})

	err := svc.DeleteSlot(context.Background(), "2026-01-21", "SLOT_9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLoadFallsBackToSnapshotOnDatabaseFailure(t *testing.T) {
	repo := &slotConfigRepoStub{loadErr: errors.New("connection refused")}
	snapshots := &snapshotStoreStub{
		data: map[string]interface{}{
			"snapshot:slot_config": &scheduleData{
				DateDefaults: models.DateSlotConfig{
					"2026-01-21": {slotFixture("SLOT_1", "午後", "14:40", "16:10", 3)},
				},
			},
		},
	}
	svc := NewScheduleService(repo, snapshots, NewValidator(), nil, 3, 1)

	slots, err := svc.ResolveSlots(context.Background(), "2026-01-21")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "SLOT_1", slots[0].ID)
}

func TestLoadFailsWhenSnapshotMissingToo(t *testing.T) {
	repo := &slotConfigRepoStub{loadErr: errors.New("connection refused")}
	svc := NewScheduleService(repo, &snapshotStoreStub{}, NewValidator(), nil, 3, 1)

	_, err := svc.ResolveSlots(context.Background(), "2026-01-21")
	require.Error(t, err)
}
