package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kyoso-cafe/shift-api/internal/handler"
	"github.com/kyoso-cafe/shift-api/internal/middleware"
	"github.com/kyoso-cafe/shift-api/internal/models"
	"github.com/kyoso-cafe/shift-api/internal/repository"
	"github.com/kyoso-cafe/shift-api/internal/service"
	"github.com/kyoso-cafe/shift-api/pkg/cache"
	"github.com/kyoso-cafe/shift-api/pkg/config"
	"github.com/kyoso-cafe/shift-api/pkg/database"
	"github.com/kyoso-cafe/shift-api/pkg/export"
	"github.com/kyoso-cafe/shift-api/pkg/jobs"
	"github.com/kyoso-cafe/shift-api/pkg/logger"
	corsmiddleware "github.com/kyoso-cafe/shift-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kyoso-cafe/shift-api/pkg/middleware/requestid"
	"github.com/kyoso-cafe/shift-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional. Without it snapshots degrade to no-ops and the
	// API keeps serving from the database.
	var snapshots *repository.SnapshotRepository
	if cfg.Snapshot.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, snapshots disabled", "error", err)
			snapshots = repository.NewSnapshotRepository(nil, logr, cfg.Snapshot.TTL)
		} else {
			snapshots = repository.NewSnapshotRepository(redisClient, logr, cfg.Snapshot.TTL)
			defer snapshots.Close() //nolint:errcheck
		}
	} else {
		snapshots = repository.NewSnapshotRepository(nil, logr, cfg.Snapshot.TTL)
	}

	shiftRepo := repository.NewShiftRepository(db)
	clockRepo := repository.NewClockRepository(db)
	slotConfigRepo := repository.NewSlotConfigRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	validate := service.NewValidator()
	metricsSvc := service.NewMetricsService()

	scheduleSvc := service.NewScheduleService(slotConfigRepo, snapshots, validate, logr,
		cfg.Schedule.DefaultRequiredStaff, cfg.Schedule.WeeklyShiftLimit)
	attendanceSvc := service.NewAttendanceService(clockRepo, scheduleSvc, snapshots, validate, logr, service.AttendanceConfig{
		EarlyTolerance: cfg.Schedule.EarlyToleranceMin,
		LateTolerance:  cfg.Schedule.LateToleranceMin,
	})
	shiftSvc := service.NewShiftService(shiftRepo, scheduleSvc, staffRepo, clockRepo, snapshots, validate, logr, cfg.Schedule.WeeklyShiftLimit)
	importSvc := service.NewImportService(slotConfigRepo, scheduleSvc, export.NewCSVExporter(), logr)
	staffSvc := service.NewStaffService(staffRepo, logr)
	authSvc := service.NewAuthService(staffRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	reportSvc := service.NewReportService(shiftRepo, clockRepo, scheduleSvc, attendanceSvc,
		export.NewCSVExporter(), export.NewPDFExporter(), exportStore, signer, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Exports.Enabled {
		queue := jobs.NewQueue("export-bundles", reportSvc.ProcessBundle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.AttachQueue(queue)
	}

	shiftHandler := handler.NewShiftHandler(shiftSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, metricsSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, shiftSvc)
	slotConfigHandler := handler.NewSlotConfigHandler(scheduleSvc, importSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		api.GET("/shifts", shiftHandler.List)
		api.POST("/shifts", shiftHandler.Create)
		api.DELETE("/shifts/:id", shiftHandler.Delete)

		api.POST("/punch", attendanceHandler.Punch)
		api.GET("/records", attendanceHandler.Records)
		api.GET("/attendance", attendanceHandler.Attendance)

		api.GET("/staff", staffHandler.List)

		api.GET("/schedule/slots", scheduleHandler.Slots)
		api.GET("/schedule/dates", scheduleHandler.Dates)
		api.GET("/schedule/period", scheduleHandler.Period)
		api.GET("/schedule/weeks", scheduleHandler.Weeks)
		api.GET("/schedule/violations", scheduleHandler.Violations)
		api.GET("/schedule/overview", scheduleHandler.WeeklyOverview)

		api.GET("/slot-config", slotConfigHandler.Slots)
		api.GET("/slot-config/template", slotConfigHandler.Template)

		api.GET("/reports/day-fill", reportHandler.DayFill)
		api.GET("/reports/calendar-stats", reportHandler.CalendarStats)
		api.GET("/reports/attendance.csv", reportHandler.AttendanceCSV)
		api.GET("/reports/attendance.pdf", reportHandler.AttendancePDF)
		api.GET("/reports/shifts.csv", reportHandler.ShiftsCSV)
		api.GET("/reports/staff-stats", shiftHandler.StaffStats)
		api.GET("/reports/bundles/:token", reportHandler.DownloadBundle)

		admin := api.Group("")
		admin.Use(middleware.JWT(authSvc))
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleLeader))
		{
			admin.GET("/auth/me", authHandler.Me)
			admin.POST("/slot-config", slotConfigHandler.Save)
			admin.DELETE("/slot-config/:date", slotConfigHandler.Delete)
			admin.POST("/slot-config/import", slotConfigHandler.Import)
			admin.POST("/reports/export", reportHandler.StartExport)
			admin.GET("/reports/export/:id", reportHandler.ExportStatus)
			admin.POST("/reports/import", reportHandler.ImportData)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
