package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/pkg/export"
)

type importRepoStub struct {
	saved models.DateSlotConfig
	calls int
}

func (s *importRepoStub) SaveOverrides(ctx context.Context, config models.DateSlotConfig) error {
	s.saved = config
	s.calls++
	return nil
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate() {
	s.calls++
}

func validImportRow() dto.ImportRow {
	return dto.ImportRow{Date: "2026-01-21", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 3}
}

func TestValidateRowsReportsEveryProblem(t *testing.T) {
	svc := NewImportService(&importRepoStub{}, &invalidatorStub{}, export.NewCSVExporter(), nil)

	rows := []dto.ImportRow{
		{Date: "2026/01/21", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 3},
		{Date: "2026-01-21", Label: "午後", Start: "1440", End: "16:10", RequiredStaff: 3},
		{Date: "2026-01-21", Label: "午後", Start: "14:40", End: "610", RequiredStaff: 3},
		{Date: "2026-01-21", Label: "午後", Start: "16:10", End: "14:40", RequiredStaff: 3},
		{Date: "2026-01-21", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 11},
	}

	errs := svc.ValidateRows(rows)
	require.Len(t, errs, 5)
	assert.True(t, strings.HasPrefix(errs[0], "行1:"))
	assert.Contains(t, errs[0], "日付")
	assert.Contains(t, errs[1], "開始時刻")
	assert.Contains(t, errs[2], "終了時刻")
	assert.Contains(t, errs[3], "開始時刻が終了時刻以降")
	assert.Contains(t, errs[4], "必要人数")
}

func TestImportAllOrNothing(t *testing.T) {
	repo := &importRepoStub{}
	invalidator := &invalidatorStub{}
	svc := NewImportService(repo, invalidator, export.NewCSVExporter(), nil)

	rows := []dto.ImportRow{
		validImportRow(),
		{Date: "bad", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 3},
	}

	result, err := svc.Import(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 0, repo.calls)
	assert.Equal(t, 0, invalidator.calls)
}

func TestImportCommitsAndInvalidatesCache(t *testing.T) {
	repo := &importRepoStub{}
	invalidator := &invalidatorStub{}
	svc := NewImportService(repo, invalidator, export.NewCSVExporter(), nil)

	rows := []dto.ImportRow{
		validImportRow(),
		{Date: "2026-01-21", Label: "夕方", Start: "16:10", End: "17:40", RequiredStaff: 2},
		{Date: "2026-01-23", Label: "午後", Start: "14:40", End: "16:10", RequiredStaff: 3},
	}

	result, err := svc.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, invalidator.calls)

	require.Len(t, repo.saved["2026-01-21"], 2)
	assert.Equal(t, "SLOT_20260121_1", repo.saved["2026-01-21"][0].ID)
	assert.Equal(t, "SLOT_20260121_2", repo.saved["2026-01-21"][1].ID)
	require.Len(t, repo.saved["2026-01-23"], 1)
	assert.Equal(t, "SLOT_20260123_1", repo.saved["2026-01-23"][0].ID)
}

func TestImportEmptyRowsRejected(t *testing.T) {
	svc := NewImportService(&importRepoStub{}, &invalidatorStub{}, export.NewCSVExporter(), nil)

	_, err := svc.Import(context.Background(), nil)
	require.Error(t, err)
}

func TestTemplateCSVHasHeadersAndSamples(t *testing.T) {
	svc := NewImportService(&importRepoStub{}, &invalidatorStub{}, export.NewCSVExporter(), nil)

	data, err := svc.TemplateCSV()
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "日付,ラベル,開始,終了,必要人数")
	assert.Contains(t, content, "2026-01-21")
}
