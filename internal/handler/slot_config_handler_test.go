package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
)

type slotConfigServiceMock struct {
	slots []models.ShiftSlot

	deletedSlot string
	deletedDate string
}

func (m *slotConfigServiceMock) ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error) {
	return m.slots, nil
}

func (m *slotConfigServiceMock) SaveSlot(ctx context.Context, req dto.SaveSlotRequest) (*models.ShiftSlot, error) {
	return &models.ShiftSlot{ID: "SLOT_2", Label: req.Label}, nil
}

func (m *slotConfigServiceMock) DeleteSlot(ctx context.Context, date, slotID string) error {
	m.deletedDate = date
	m.deletedSlot = slotID
	return nil
}

func (m *slotConfigServiceMock) DeleteDate(ctx context.Context, date string) error {
	m.deletedDate = date
	return nil
}

type slotImportServiceMock struct {
	result *dto.ImportResult
}

func (m *slotImportServiceMock) Import(ctx context.Context, rows []dto.ImportRow) (*dto.ImportResult, error) {
	return m.result, nil
}

func (m *slotImportServiceMock) TemplateCSV() ([]byte, error) {
	return []byte("日付,ラベル,開始,終了,必要人数\n"), nil
}

func TestSlotConfigHandlerSlotsRequiresDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotConfigHandler(&slotConfigServiceMock{}, &slotImportServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/slot-config", nil)

	handler.Slots(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotConfigHandlerDeleteSlotVsDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &slotConfigServiceMock{}
	handler := NewSlotConfigHandler(mock, &slotImportServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/slot-config/2026-01-21?slotId=SLOT_1", nil)
	c.Params = gin.Params{{Key: "date", Value: "2026-01-21"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "SLOT_1", mock.deletedSlot)

	mock.deletedSlot = ""
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/slot-config/2026-01-21", nil)
	c.Params = gin.Params{{Key: "date", Value: "2026-01-21"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, mock.deletedSlot)
	assert.Equal(t, "2026-01-21", mock.deletedDate)
}

func TestSlotConfigHandlerImportReportsRowErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	importer := &slotImportServiceMock{result: &dto.ImportResult{
		Errors: []string{"行1: 日付の形式が不正です（bad）"},
	}}
	handler := NewSlotConfigHandler(&slotConfigServiceMock{}, importer)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ImportRequest{Rows: []dto.ImportRow{{Date: "bad"}}})
	c.Request, _ = http.NewRequest(http.MethodPost, "/slot-config/import", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Import(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Errors, 1)
	assert.Equal(t, 0, envelope.Data.Imported)
}

func TestSlotConfigHandlerTemplateDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotConfigHandler(&slotConfigServiceMock{}, &slotImportServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/slot-config/template", nil)

	handler.Template(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "slot_template.csv")
	assert.Contains(t, w.Body.String(), "日付")
}
