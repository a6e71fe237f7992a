package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kyoso-cafe/shift-api/internal/dto"
	"github.com/kyoso-cafe/shift-api/internal/models"
	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
	"github.com/kyoso-cafe/shift-api/pkg/response"
)

type reportService interface {
	DayFill(ctx context.Context, date string) (*models.DayFill, error)
	CalendarStats(ctx context.Context) (*models.CalendarStats, error)
	AttendanceCSV(ctx context.Context) ([]byte, error)
	AttendancePDF(ctx context.Context) ([]byte, error)
	ShiftRosterCSV(ctx context.Context) ([]byte, error)
	StartBundle(ctx context.Context) (*models.ExportBundleJob, error)
	BundleStatus(id string) (*models.ExportBundleJob, error)
	OpenBundle(token string) (*os.File, error)
	ImportBundle(ctx context.Context, req dto.ImportBundleRequest) error
}

// ReportHandler exposes staffing reports and data export endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// DayFill returns slot staffing for one date.
func (h *ReportHandler) DayFill(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "date query parameter is required"))
		return
	}
	fill, err := h.service.DayFill(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fill)
}

// CalendarStats returns staffing totals across the operation period.
func (h *ReportHandler) CalendarStats(c *gin.Context) {
	stats, err := h.service.CalendarStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// AttendanceCSV streams the reconciled attendance table as CSV.
func (h *ReportHandler) AttendanceCSV(c *gin.Context) {
	data, err := h.service.AttendanceCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// AttendancePDF streams the attendance table as a PDF document.
func (h *ReportHandler) AttendancePDF(c *gin.Context) {
	data, err := h.service.AttendancePDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ShiftsCSV streams the seat-expanded roster as CSV.
func (h *ReportHandler) ShiftsCSV(c *gin.Context) {
	data, err := h.service.ShiftRosterCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shifts.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// StartExport queues a full data bundle export.
func (h *ReportHandler) StartExport(c *gin.Context) {
	job, err := h.service.StartBundle(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// ExportStatus reports the state of a queued export.
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	job, err := h.service.BundleStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// DownloadBundle serves a completed export by signed token.
func (h *ReportHandler) DownloadBundle(c *gin.Context) {
	file, err := h.service.OpenBundle(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat bundle"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="export.json"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/json", file, nil)
}

// ImportData replaces submissions and punch records from an uploaded bundle.
func (h *ReportHandler) ImportData(c *gin.Context) {
	var req dto.ImportBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bundle payload"))
		return
	}
	if err := h.service.ImportBundle(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"imported": true})
}
