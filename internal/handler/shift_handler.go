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

type shiftService interface {
	List(ctx context.Context) ([]models.ShiftSubmission, error)
	ListByDate(ctx context.Context, date string) ([]models.ShiftSubmission, error)
	Create(ctx context.Context, req dto.CreateShiftRequest) (*dto.CreateShiftResponse, error)
	Delete(ctx context.Context, id string) error
	StaffStats(ctx context.Context) ([]models.StaffStats, error)
}

// ShiftHandler exposes availability submission endpoints.
type ShiftHandler struct {
	service shiftService
}

// NewShiftHandler builds a new handler.
func NewShiftHandler(service shiftService) *ShiftHandler {
	return &ShiftHandler{service: service}
}

// List returns submissions, optionally narrowed to one date.
func (h *ShiftHandler) List(c *gin.Context) {
	date := c.Query("date")
	var (
		shifts []models.ShiftSubmission
		err    error
	)
	if date != "" {
		shifts, err = h.service.ListByDate(c.Request.Context(), date)
	} else {
		shifts, err = h.service.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shifts)
}

// Create stores a new submission.
func (h *ShiftHandler) Create(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid shift payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Delete removes a submission.
func (h *ShiftHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StaffStats returns per-staff activity counts.
func (h *ShiftHandler) StaffStats(c *gin.Context) {
	stats, err := h.service.StaffStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
