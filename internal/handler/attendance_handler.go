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

type attendanceService interface {
	Punch(ctx context.Context, req dto.PunchRequest) (*models.ClockRecord, error)
	Records(ctx context.Context, filter dto.RecordFilter) ([]models.ClockRecord, error)
	Reconcile(records []models.ClockRecord) []models.AttendanceRow
	Summarize(rows []models.AttendanceRow) models.AttendanceSummary
}

type punchRecorder interface {
	RecordPunch(clockType, status string)
}

// AttendanceHandler exposes punch and attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
	metrics punchRecorder
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService, metrics punchRecorder) *AttendanceHandler {
	return &AttendanceHandler{service: service, metrics: metrics}
}

// Punch records a clock-in or clock-out.
func (h *AttendanceHandler) Punch(c *gin.Context) {
	var req dto.PunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid punch payload"))
		return
	}
	record, err := h.service.Punch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordPunch(record.ClockType, record.Status)
	}
	response.Created(c, record)
}

// Records returns raw punches matching the query filter.
func (h *AttendanceHandler) Records(c *gin.Context) {
	filter := dto.RecordFilter{
		Date:    c.Query("date"),
		StaffID: c.Query("staffId"),
	}
	records, err := h.service.Records(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Attendance returns reconciled rows with a summary in the meta block.
func (h *AttendanceHandler) Attendance(c *gin.Context) {
	filter := dto.RecordFilter{
		Date:    c.Query("date"),
		StaffID: c.Query("staffId"),
	}
	records, err := h.service.Records(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows := h.service.Reconcile(records)
	summary := h.service.Summarize(rows)
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"summary": summary})
}
