package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/export"
	"github.com/kyoso-cafe/shift-api/pkg/jobs"
	"github.com/kyoso-cafe/shift-api/pkg/storage"
	"github.com/kyoso-cafe/shift-api/pkg/timeutil"
)

type reportShiftSource interface {
	List(ctx context.Context) ([]models.ShiftSubmission, error)
	ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error)
	ReplaceAll(ctx context.Context, shifts []models.ShiftSubmission) error
}

type reportClockSource interface {
	List(ctx context.Context) ([]models.ClockRecord, error)
	ReplaceAll(ctx context.Context, records []models.ClockRecord) error
}

type reportSchedule interface {
	ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error)
	OperatingDates(ctx context.Context) ([]string, error)
	ResolveRequiredStaff(ctx context.Context, slotID, date string) (int, error)
}

type reconciler interface {
	Reconcile(records []models.ClockRecord) []models.AttendanceRow
}

type bundleStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportService produces staffing statistics, file exports and the data
// bundle used for backup and restore.
type ReportService struct {
	shifts    reportShiftSource
	clocks    reportClockSource
	schedule  reportSchedule
	recon     reconciler
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	storage   bundleStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger

	queue *jobs.Queue

	mu      sync.Mutex
	bundles map[string]*models.ExportBundleJob
}

// NewReportService constructs the service.
func NewReportService(shifts reportShiftSource, clocks reportClockSource, schedule reportSchedule, recon reconciler, csv *export.CSVExporter, pdf *export.PDFExporter, store bundleStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		shifts:   shifts,
		clocks:   clocks,
		schedule: schedule,
		recon:    recon,
		csv:      csv,
		pdf:      pdf,
		storage:  store,
		signer:   signer,
		logger:   logger,
		bundles:  map[string]*models.ExportBundleJob{},
	}
}

// AttachQueue wires the background queue after construction. The queue
// handler must be ProcessBundle.
func (s *ReportService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// DayFill reports staffing per slot for one date. Filled seats cap at
// the requirement so an overbooked slot cannot hide a shortage in the
// day total.
func (s *ReportService) DayFill(ctx context.Context, date string) (*models.DayFill, error) {
	slots, err := s.schedule.ResolveSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	submissions, err := s.shifts.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, sub := range submissions {
		counts[sub.SlotID]++
	}

	fill := &models.DayFill{Date: date, Slots: make([]models.SlotFill, 0, len(slots))}
	for _, slot := range slots {
		required := slot.RequiredStaff
		if required <= 0 {
			required, err = s.schedule.ResolveRequiredStaff(ctx, slot.ID, date)
			if err != nil {
				return nil, err
			}
		}
		filled := counts[slot.ID]
		shortage := required - filled
		if shortage < 0 {
			shortage = 0
		}
		fill.Slots = append(fill.Slots, models.SlotFill{
			SlotID:   slot.ID,
			Label:    slot.Label,
			Filled:   filled,
			Required: required,
			Shortage: shortage,
		})
		if filled > required {
			filled = required
		}
		fill.TotalFilled += filled
		fill.TotalRequired += required
	}
	return fill, nil
}

// CalendarStats summarises staffing over the whole operation period.
func (s *ReportService) CalendarStats(ctx context.Context) (*models.CalendarStats, error) {
	dates, err := s.schedule.OperatingDates(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.CalendarStats{}
	for _, date := range dates {
		fill, err := s.DayFill(ctx, date)
		if err != nil {
			return nil, err
		}
		for _, slot := range fill.Slots {
			stats.TotalSlots++
			if slot.Filled >= slot.Required {
				stats.FilledSlots++
			} else {
				stats.ShortageSlots++
			}
		}
	}
	return stats, nil
}

var attendanceHeaders = []string{"日付", "名前", "シフト", "出勤", "退勤", "出勤状態", "退勤状態"}

func attendanceDataset(rows []models.AttendanceRow) export.Dataset {
	data := export.Dataset{Headers: attendanceHeaders}
	for _, row := range rows {
		label := row.SlotLabel
		if label == "" {
			label = row.SlotID
		}
		data.Rows = append(data.Rows, map[string]string{
			"日付":   row.Date,
			"名前":   row.StaffName,
			"シフト": label,
			"出勤":   row.InTime,
			"退勤":   row.OutTime,
			"出勤状態": statusLabel(row.InStatus),
			"退勤状態": statusLabel(row.OutStatus),
		})
	}
	return data
}

func statusLabel(status string) string {
	switch status {
	case models.StatusLate:
		return "遅刻"
	case models.StatusEarlyLeave:
		return "早退"
	case models.StatusNormal:
		return "通常"
	default:
		return ""
	}
}

// AttendanceCSV renders the reconciled attendance log.
func (s *ReportService) AttendanceCSV(ctx context.Context) ([]byte, error) {
	records, err := s.clocks.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clock records")
	}
	return s.csv.Render(attendanceDataset(s.recon.Reconcile(records)))
}

// AttendancePDF renders the reconciled attendance log as a PDF table.
func (s *ReportService) AttendancePDF(ctx context.Context) ([]byte, error) {
	records, err := s.clocks.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clock records")
	}
	return s.pdf.Render(attendanceDataset(s.recon.Reconcile(records)), "勤怠記録")
}

// ShiftRosterCSV renders one row per required seat per slot, marking
// unfilled seats with a placeholder.
func (s *ReportService) ShiftRosterCSV(ctx context.Context) ([]byte, error) {
	dates, err := s.schedule.OperatingDates(ctx)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"日付", "曜日", "シフト", "時間", "スタッフ"}}
	for _, date := range dates {
		slots, err := s.schedule.ResolveSlots(ctx, date)
		if err != nil {
			return nil, err
		}
		submissions, err := s.shifts.ListByDate(ctx, date)
		if err != nil {
			return nil, err
		}
		parsed, err := timeutil.ParseDate(date)
		if err != nil {
			continue
		}
		weekday := timeutil.WeekdayName(parsed)

		bySlot := map[string][]string{}
		for _, sub := range submissions {
			bySlot[sub.SlotID] = append(bySlot[sub.SlotID], sub.StaffName)
		}
		for _, slot := range slots {
			names := bySlot[slot.ID]
			required := slot.RequiredStaff
			if required < len(names) {
				required = len(names)
			}
			for seat := 0; seat < required; seat++ {
				name := "（未定）"
				if seat < len(names) {
					name = names[seat]
				}
				data.Rows = append(data.Rows, map[string]string{
					"日付":   date,
					"曜日":   weekday,
					"シフト": slot.Label,
					"時間":   fmt.Sprintf("%s-%s", slot.Start, slot.End),
					"スタッフ": name,
				})
			}
		}
	}
	return s.csv.Render(data)
}

// StartBundle queues an asynchronous data bundle export and returns the
// pending job.
func (s *ReportService) StartBundle(ctx context.Context) (*models.ExportBundleJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}
	job := &models.ExportBundleJob{
		ID:          uuid.NewString(),
		Status:      models.BundleStatusPending,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.bundles[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: "bundle"}); err != nil {
		s.mu.Lock()
		delete(s.bundles, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return s.bundleCopy(job.ID), nil
}

// BundleStatus returns the current state of a bundle job.
func (s *ReportService) BundleStatus(id string) (*models.ExportBundleJob, error) {
	job := s.bundleCopy(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("export %s not found", id))
	}
	return job, nil
}

// ProcessBundle generates the bundle file for a queued job. It runs on
// the export queue workers.
func (s *ReportService) ProcessBundle(ctx context.Context, job jobs.Job) error {
	shifts, err := s.shifts.List(ctx)
	if err != nil {
		s.failBundle(job.ID, err)
		return err
	}
	records, err := s.clocks.List(ctx)
	if err != nil {
		s.failBundle(job.ID, err)
		return err
	}

	bundle := models.ExportBundle{
		ExportedAt:   time.Now().UTC(),
		Shifts:       shifts,
		ClockRecords: records,
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		s.failBundle(job.ID, err)
		return err
	}

	relPath := fmt.Sprintf("bundles/%s.json", job.ID)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		s.failBundle(job.ID, err)
		return err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		s.failBundle(job.ID, err)
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if tracked, ok := s.bundles[job.ID]; ok {
		tracked.Status = models.BundleStatusCompleted
		tracked.FilePath = relPath
		tracked.DownloadURL = fmt.Sprintf("/api/v1/reports/bundles/%s", token)
		tracked.ExpiresAt = &expiresAt
		tracked.CompletedAt = &now
	}
	s.mu.Unlock()
	s.logger.Info("export bundle ready", zap.String("bundle_id", job.ID))

	// Files whose download tokens have expired are unreachable; drop them.
	if removed, err := s.storage.CleanupOlderThan(s.signer.TTL()); err != nil {
		s.logger.Warn("expired bundle cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Info("expired bundles removed", zap.Int("count", len(removed)))
	}
	return nil
}

// OpenBundle validates a signed token and opens the bundle file.
func (s *ReportService) OpenBundle(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	if strings.Contains(relPath, "..") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download path")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "bundle file missing")
	}
	return file, nil
}

// ImportBundle restores a previously exported bundle, replacing both
// collections transactionally. Legacy field names from old exports are
// normalised on the way in.
func (s *ReportService) ImportBundle(ctx context.Context, req dto.ImportBundleRequest) error {
	shifts := make([]models.ShiftSubmission, 0, len(req.Shifts))
	for _, row := range req.Shifts {
		date := timeutil.NormalizeDate(row.Date)
		if date == "" {
			continue
		}
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		parsed, err := timeutil.ParseDate(date)
		if err != nil {
			continue
		}
		shifts = append(shifts, models.ShiftSubmission{
			ID:        id,
			Date:      date,
			StaffID:   row.StaffID,
			StaffName: row.StaffName,
			SlotID:    row.SlotID,
			WeekKey:   timeutil.FormatDate(timeutil.MondayOf(parsed)),
			CreatedAt: time.Now().UTC(),
		})
	}

	records := make([]models.ClockRecord, 0, len(req.ClockRecords))
	for _, row := range req.ClockRecords {
		date := timeutil.NormalizeDate(row.Date)
		if date == "" {
			continue
		}
		name := row.StaffName
		if name == "" {
			name = row.LegacyName
		}
		clockType := models.NormalizeClockType(row.ClockType)
		if clockType == "" {
			clockType = models.NormalizeClockType(row.LegacyType)
		}
		if clockType == "" {
			continue
		}
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		timestamp := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, row.Timestamp); err == nil {
			timestamp = ts
		}
		records = append(records, models.ClockRecord{
			ID:        id,
			Date:      date,
			StaffID:   row.StaffID,
			StaffName: name,
			SlotID:    row.SlotID,
			SlotLabel: row.SlotLabel,
			ClockType: clockType,
			Time:      row.Time,
			Status:    row.Status,
			Timestamp: timestamp,
		})
	}

	if err := s.shifts.ReplaceAll(ctx, shifts); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore shifts")
	}
	if err := s.clocks.ReplaceAll(ctx, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore clock records")
	}
	s.logger.Info("bundle restored", zap.Int("shifts", len(shifts)), zap.Int("clock_records", len(records)))
	return nil
}

func (s *ReportService) bundleCopy(id string) *models.ExportBundleJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.bundles[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (s *ReportService) failBundle(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.bundles[id]; ok {
		job.Status = models.BundleStatusFailed
		job.Error = err.Error()
	}
}
