package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/pkg/response"
)

type scheduleService interface {
	ResolveSlots(ctx context.Context, date string) ([]models.ShiftSlot, error)
	OperatingDates(ctx context.Context) ([]string, error)
	OperationDate(ctx context.Context, date string) (*models.OperatingDate, error)
	OperationPeriod(ctx context.Context) (models.OperationPeriod, error)
	Weeks(ctx context.Context) ([]models.Week, error)
	DetectViolations(submissions []models.ShiftSubmission) []models.WeeklyViolation
	WeeklyOverview(ctx context.Context, submissions []models.ShiftSubmission) ([]models.WeekSummary, error)
}

type scheduleShiftSource interface {
	List(ctx context.Context) ([]models.ShiftSubmission, error)
}

// ScheduleHandler exposes the operation calendar.
type ScheduleHandler struct {
	service scheduleService
	shifts  scheduleShiftSource
}

// NewScheduleHandler builds a new handler.
func NewScheduleHandler(service scheduleService, shifts scheduleShiftSource) *ScheduleHandler {
	return &ScheduleHandler{service: service, shifts: shifts}
}

// Slots returns the effective slot list for a date.
func (h *ScheduleHandler) Slots(c *gin.Context) {
	slots, err := h.service.ResolveSlots(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}

// Dates returns every operating date. When a date query parameter is
// present, the single calendar entry (or null) is returned instead.
func (h *ScheduleHandler) Dates(c *gin.Context) {
	if date := c.Query("date"); date != "" {
		entry, err := h.service.OperationDate(c.Request.Context(), date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entry)
		return
	}
	dates, err := h.service.OperatingDates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates)
}

// Period returns the inclusive operation bounds.
func (h *ScheduleHandler) Period(c *gin.Context) {
	period, err := h.service.OperationPeriod(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period)
}

// Weeks returns the week grouping.
func (h *ScheduleHandler) Weeks(c *gin.Context) {
	weeks, err := h.service.Weeks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks)
}

// Violations reports staff above the weekly submission limit.
func (h *ScheduleHandler) Violations(c *gin.Context) {
	submissions, err := h.shifts.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.DetectViolations(submissions))
}

// WeeklyOverview summarises submissions per configured week.
func (h *ScheduleHandler) WeeklyOverview(c *gin.Context) {
	submissions, err := h.shifts.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.service.WeeklyOverview(c.Request.Context(), submissions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview)
}
