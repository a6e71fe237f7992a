package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/pkg/export"
	"github.com/kyoso-cafe/shift-api/pkg/jobs"
	"github.com/kyoso-cafe/shift-api/pkg/storage"
)

type reportShiftStub struct {
	shifts   []models.ShiftSubmission
	replaced []models.ShiftSubmission
}

func (s *reportShiftStub) List(ctx context.Context) ([]models.ShiftSubmission, error) {
	return s.shifts, nil
}

func (s *reportShiftStub) ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error) {
	result := []models.ShiftSubmission{}
	for _, shift := range s.shifts {
		if shift.Date == date {
			result = append(result, shift)
		}
	}
	return result, nil
}

func (s *reportShiftStub) ReplaceAll(ctx context.Context, shifts []models.ShiftSubmission) error {
	s.replaced = shifts
	return nil
}

type reportClockStub struct {
	records  []models.ClockRecord
	replaced []models.ClockRecord
}

func (s *reportClockStub) List(ctx context.Context) ([]models.ClockRecord, error) {
	return s.records, nil
}

func (s *reportClockStub) ReplaceAll(ctx context.Context, records []models.ClockRecord) error {
	s.replaced = records
	return nil
}

type reportScheduleStub struct {
	slots map[string][]models.ShiftSlot
}

func (s reportScheduleStub) ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error) {
	return s.slots[date], nil
}

func (s reportScheduleStub) OperatingDates(ctx context.Context) ([]string, error) {
	dates := []string{}
	for date := range s.slots {
		dates = append(dates, date)
	}
	return dates, nil
}

func (s reportScheduleStub) ResolveRequiredStaff(ctx context.Context, slotID, date string) (int, error) {
	return 3, nil
}

type reconcilerStub struct{}

func (reconcilerStub) Reconcile(records []models.ClockRecord) []models.AttendanceRow {
	return nil
}

type bundleStorageStub struct {
	files map[string][]byte

	cleanups   int
	cleanupTTL time.Duration
}

func (s *bundleStorageStub) Save(filename string, data []byte) (string, error) {
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[filename] = data
	return filename, nil
}

func (s *bundleStorageStub) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *bundleStorageStub) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

func (s *bundleStorageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	s.cleanups++
	s.cleanupTTL = ttl
	return nil, nil
}

func newReportServiceWithStore(shifts *reportShiftStub, clocks *reportClockStub, schedule reportScheduleStub, store *bundleStorageStub) *ReportService {
	return NewReportService(shifts, clocks, schedule, reconcilerStub{},
		export.NewCSVExporter(), export.NewPDFExporter(), store,
		storage.NewSignedURLSigner("test-secret", 0), nil)
}

func newReportServiceForTest(shifts *reportShiftStub, clocks *reportClockStub, schedule reportScheduleStub) *ReportService {
	return newReportServiceWithStore(shifts, clocks, schedule, &bundleStorageStub{})
}

func TestDayFillCapsOverbookedSlots(t *testing.T) {
	schedule := reportScheduleStub{slots: map[string][]models.ShiftSlot{
		"2026-01-21": {
			{ID: "SLOT_1", Label: "午前", Start: "10:00", End: "12:00", RequiredStaff: 2},
			{ID: "SLOT_2", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 3},
		},
	}}
	shifts := &reportShiftStub{shifts: []models.ShiftSubmission{
		{Date: "2026-01-21", SlotID: "SLOT_1", StaffName: "田中"},
		{Date: "2026-01-21", SlotID: "SLOT_1", StaffName: "鈴木"},
		{Date: "2026-01-21", SlotID: "SLOT_1", StaffName: "佐藤"},
		{Date: "2026-01-21", SlotID: "SLOT_2", StaffName: "高橋"},
	}}
	svc := newReportServiceForTest(shifts, &reportClockStub{}, schedule)

	fill, err := svc.DayFill(context.Background(), "2026-01-21")
	require.NoError(t, err)
	require.Len(t, fill.Slots, 2)

	assert.Equal(t, 3, fill.Slots[0].Filled)
	assert.Equal(t, 0, fill.Slots[0].Shortage)
	assert.Equal(t, 1, fill.Slots[1].Filled)
	assert.Equal(t, 2, fill.Slots[1].Shortage)

	// The overbooked morning slot counts as 2, not 3.
	assert.Equal(t, 3, fill.TotalFilled)
	assert.Equal(t, 5, fill.TotalRequired)
}

func TestCalendarStatsCountsShortages(t *testing.T) {
	schedule := reportScheduleStub{slots: map[string][]models.ShiftSlot{
		"2026-01-21": {{ID: "SLOT_1", Label: "午後", RequiredStaff: 1}},
		"2026-01-23": {{ID: "SLOT_1", Label: "午後", RequiredStaff: 2}},
	}}
	shifts := &reportShiftStub{shifts: []models.ShiftSubmission{
		{Date: "2026-01-21", SlotID: "SLOT_1", StaffName: "田中"},
	}}
	svc := newReportServiceForTest(shifts, &reportClockStub{}, schedule)

	stats, err := svc.CalendarStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSlots)
	assert.Equal(t, 1, stats.FilledSlots)
	assert.Equal(t, 1, stats.ShortageSlots)
}

func TestShiftRosterCSVMarksUnfilledSeats(t *testing.T) {
	schedule := reportScheduleStub{slots: map[string][]models.ShiftSlot{
		"2026-01-21": {{ID: "SLOT_1", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 2}},
	}}
	shifts := &reportShiftStub{shifts: []models.ShiftSubmission{
		{Date: "2026-01-21", SlotID: "SLOT_1", StaffName: "田中"},
	}}
	svc := newReportServiceForTest(shifts, &reportClockStub{}, schedule)

	data, err := svc.ShiftRosterCSV(context.Background())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "田中")
	assert.Contains(t, content, "（未定）")
	assert.Contains(t, content, "14:40-16:10")
	assert.Contains(t, content, "水")
}

func TestImportBundleNormalizesLegacyFields(t *testing.T) {
	shifts := &reportShiftStub{}
	clocks := &reportClockStub{}
	svc := newReportServiceForTest(shifts, clocks, reportScheduleStub{})

	err := svc.ImportBundle(context.Background(), dto.ImportBundleRequest{
		Shifts: []dto.ImportedShift{
			{Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1"},
			{Date: "not-a-date", StaffName: "無効"},
		},
		ClockRecords: []dto.ImportedClockRecord{
			{Date: "2026-01-21", LegacyName: "鈴木", LegacyType: "IN", Time: "14:40"},
			{Date: "2026-01-21", StaffName: "佐藤", ClockType: "unknown"},
		},
	})
	require.NoError(t, err)

	require.Len(t, shifts.replaced, 1)
	assert.Equal(t, "2026-01-19", shifts.replaced[0].WeekKey)
	assert.NotEmpty(t, shifts.replaced[0].ID)

	require.Len(t, clocks.replaced, 1)
	assert.Equal(t, "鈴木", clocks.replaced[0].StaffName)
	assert.Equal(t, models.ClockTypeIn, clocks.replaced[0].ClockType)
}

func TestBundleExportImportRoundTrip(t *testing.T) {
	exportedAt := time.Date(2026, 1, 21, 15, 0, 0, 0, time.UTC)
	shifts := &reportShiftStub{shifts: []models.ShiftSubmission{
		{ID: "shift-1", Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", WeekKey: "2026-01-19", CreatedAt: exportedAt},
		{ID: "shift-2", Date: "2026-01-23", StaffID: "staff-2", StaffName: "鈴木", SlotID: "SLOT_1", WeekKey: "2026-01-19", CreatedAt: exportedAt},
	}}
	clocks := &reportClockStub{records: []models.ClockRecord{
		{ID: "rec-1", Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", SlotLabel: "午後", ClockType: models.ClockTypeIn, Time: "14:45", Status: models.StatusNormal, Timestamp: exportedAt},
		{ID: "rec-2", Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", SlotLabel: "午後", ClockType: models.ClockTypeOut, Time: "16:10", Status: models.StatusNormal, Timestamp: exportedAt},
	}}
	store := &bundleStorageStub{}
	svc := newReportServiceWithStore(shifts, clocks, reportScheduleStub{}, store)

	require.NoError(t, svc.ProcessBundle(context.Background(), jobs.Job{ID: "job-1", Kind: "bundle"}))

	payload, ok := store.files["bundles/job-1.json"]
	require.True(t, ok)

	var restored dto.ImportBundleRequest
	require.NoError(t, json.Unmarshal(payload, &restored))
	require.NoError(t, svc.ImportBundle(context.Background(), restored))

	require.Len(t, shifts.replaced, 2)
	for i, got := range shifts.replaced {
		want := shifts.shifts[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Date, got.Date)
		assert.Equal(t, want.StaffID, got.StaffID)
		assert.Equal(t, want.StaffName, got.StaffName)
		assert.Equal(t, want.SlotID, got.SlotID)
		assert.Equal(t, want.WeekKey, got.WeekKey)
	}

	require.Len(t, clocks.replaced, 2)
	for i, got := range clocks.replaced {
		want := clocks.records[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Date, got.Date)
		assert.Equal(t, want.StaffName, got.StaffName)
		assert.Equal(t, want.SlotLabel, got.SlotLabel)
		assert.Equal(t, want.ClockType, got.ClockType)
		assert.Equal(t, want.Time, got.Time)
		assert.Equal(t, want.Status, got.Status)
		assert.True(t, got.Timestamp.Equal(want.Timestamp))
	}
}

func TestProcessBundlePurgesExpiredFiles(t *testing.T) {
	store := &bundleStorageStub{}
	svc := newReportServiceWithStore(&reportShiftStub{}, &reportClockStub{}, reportScheduleStub{}, store)

	require.NoError(t, svc.ProcessBundle(context.Background(), jobs.Job{ID: "job-1", Kind: "bundle"}))

	assert.Equal(t, 1, store.cleanups)
	assert.Equal(t, 24*time.Hour, store.cleanupTTL)
}

func TestAttendanceCSVHasJapaneseHeaders(t *testing.T) {
	svc := newReportServiceForTest(&reportShiftStub{}, &reportClockStub{}, reportScheduleStub{})

	data, err := svc.AttendanceCSV(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "日付,名前,シフト,出勤,退勤,出勤状態,退勤状態"))
}

func TestStartBundleWithoutQueueFails(t *testing.T) {
	svc := newReportServiceForTest(&reportShiftStub{}, &reportClockStub{}, reportScheduleStub{})

	_, err := svc.StartBundle(context.Background())
	require.Error(t, err)
}

func TestBundleStatusUnknownIDNotFound(t *testing.T) {
	svc := newReportServiceForTest(&reportShiftStub{}, &reportClockStub{}, reportScheduleStub{})

	_, err := svc.BundleStatus("missing")
	require.Error(t, err)
}
