package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/response"
)

type slotConfigService interface {
	ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error)
	SaveSlot(ctx context.Context, req dto.SaveSlotRequest) (*models.ShiftSlot, error)
	DeleteSlot(ctx context.Context, date, slotID string) error
	DeleteDate(ctx context.Context, date string) error
}

type slotImportService interface {
	Import(ctx context.Context, rows []dto.ImportRow) (*dto.ImportResult, error)
	TemplateCSV() ([]byte, error)
}

// SlotConfigHandler exposes per-date slot configuration management.
type SlotConfigHandler struct {
	service  slotConfigService
	importer slotImportService
}

// NewSlotConfigHandler builds a new handler.
func NewSlotConfigHandler(service slotConfigService, importer slotImportService) *SlotConfigHandler {
	return &SlotConfigHandler{service: service, importer: importer}
}

// Slots returns the effective slot configuration for a date.
func (h *SlotConfigHandler) Slots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date query parameter is required"))
		return
	}
	slots, err := h.service.ResolveSlots(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}

// Save creates or updates one slot in a date's custom configuration.
func (h *SlotConfigHandler) Save(c *gin.Context) {
	var req dto.SaveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.SaveSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Delete removes one slot from a date when slotId is given, otherwise
// clears the whole date.
func (h *SlotConfigHandler) Delete(c *gin.Context) {
	date := c.Param("date")
	slotID := c.Query("slotId")
	var err error
	if slotID != "" {
		err = h.service.DeleteSlot(c.Request.Context(), date, slotID)
	} else {
		err = h.service.DeleteDate(c.Request.Context(), date)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import replaces slot configuration from uploaded rows. Row errors come
// back with HTTP 200 so the client can show them inline.
func (h *SlotConfigHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	result, err := h.importer.Import(c.Request.Context(), req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Template serves the CSV import template.
func (h *SlotConfigHandler) Template(c *gin.Context) {
	data, err := h.importer.TemplateCSV()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="slot_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
