package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/export"
)

var (
	importDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	importTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

type importConfigRepository interface {
	SaveOverrides(ctx context.Context, config models.DateSlotConfig) error
}

type cacheInvalidator interface {
	Invalidate()
}

// ImportService validates and commits bulk slot imports.
type ImportService struct {
	repo     importConfigRepository
	schedule cacheInvalidator
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(repo importConfigRepository, schedule cacheInvalidator, csv *export.CSVExporter, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, schedule: schedule, csv: csv, logger: logger}
}

// ValidateRows checks every row and returns one message per problem.
// Row numbers are 1-based to match the uploaded file.
func (s *ImportService) ValidateRows(rows []dto.ImportRow) []string {
	errs := []string{}
	for i, row := range rows {
		line := i + 1
		if !importDatePattern.MatchString(row.Date) {
			errs = append(errs, fmt.Sprintf("行%d: 日付の形式が不正です（%s）", line, row.Date))
		}
		if !importTimePattern.MatchString(row.Start) {
			errs = append(errs, fmt.Sprintf("行%d: 開始時刻の形式が不正です（%s）", line, row.Start))
		}
		if !importTimePattern.MatchString(row.End) {
			errs = append(errs, fmt.Sprintf("行%d: 終了時刻の形式が不正です（%s）", line, row.End))
		}
		if importTimePattern.MatchString(row.Start) && importTimePattern.MatchString(row.End) && row.Start >= row.End {
			errs = append(errs, fmt.Sprintf("行%d: 開始時刻が終了時刻以降です", line))
		}
		if row.RequiredStaff < 1 || row.RequiredStaff > 10 {
			errs = append(errs, fmt.Sprintf("行%d: 必要人数は1〜10で指定してください（%d）", line, row.RequiredStaff))
		}
	}
	return errs
}

// Import validates every row and commits the whole batch in one
// transaction. A single bad row aborts the import; nothing partial ever
// lands.
func (s *ImportService) Import(ctx context.Context, rows []dto.ImportRow) (*dto.ImportResult, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no rows to import")
	}
	if errs := s.ValidateRows(rows); len(errs) > 0 {
		return &dto.ImportResult{Errors: errs}, nil
	}

	config := models.DateSlotConfig{}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.Date]++
		config[row.Date] = append(config[row.Date], models.ShiftSlot{
			ID:            fmt.Sprintf("SLOT_%s_%d", strings.ReplaceAll(row.Date, "-", ""), counts[row.Date]),
			Label:         row.Label,
			Start:         row.Start,
			End:           row.End,
			RequiredStaff: row.RequiredStaff,
		})
	}

	if err := s.repo.SaveOverrides(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import slots")
	}
	s.schedule.Invalidate()
	s.logger.Info("slot import committed", zap.Int("rows", len(rows)), zap.Int("dates", len(config)))
	return &dto.ImportResult{Imported: len(rows)}, nil
}

// TemplateCSV produces the downloadable import template.
func (s *ImportService) TemplateCSV() ([]byte, error) {
	return s.csv.Render(export.Dataset{
		Headers: []string{"日付", "ラベル", "開始", "終了", "必要人数"},
		Rows: []map[string]string{
			{"日付": "2026-01-21", "ラベル": "午前", "開始": "10:00", "終了": "12:00", "必要人数": "3"},
			{"日付": "2026-01-21", "ラベル": "午後", "開始": "14:40", "終了": "16:10", "必要人数": "3"},
		},
	})
}
