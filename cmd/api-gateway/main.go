package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/munivet/campo-api/internal/handler"
	"github.com/munivet/campo-api/internal/middleware"
	"github.com/munivet/campo-api/internal/models"
	"github.com/munivet/campo-api/internal/repository"
	"github.com/munivet/campo-api/internal/service"
	"github.com/munivet/campo-api/internal/tracking"
	"github.com/munivet/campo-api/pkg/cache"
	"github.com/munivet/campo-api/pkg/config"
	"github.com/munivet/campo-api/pkg/database"
	"github.com/munivet/campo-api/pkg/logger"
	corsmiddleware "github.com/munivet/campo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/munivet/campo-api/pkg/middleware/requestid"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	campaignRepo := repository.NewCampaignRepository(db)
	inscriptionRepo := repository.NewInscriptionRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	campaignSvc := service.NewCampaignService(campaignRepo, inscriptionRepo, validate, logr)
	inscriptionSvc := service.NewInscriptionService(inscriptionRepo, campaignRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(scheduleRepo, appointmentRepo, cfg.Citas.SlotMinutes, logr)
	calendarSvc := service.NewCalendarService(scheduleRepo, appointmentRepo, cfg.Citas.SlotMinutes, logr)

	snapshots := tracking.NewSnapshotStore(redisClient, cfg.Tracking.ChannelPrefix, cfg.Tracking.SnapshotTTL)
	transport := tracking.NewRedisTransport(redisClient)
	ingestor := tracking.NewIngestor(transport, snapshots, metricsSvc, tracking.IngestorConfig{
		Prefix:     cfg.Tracking.ChannelPrefix,
		BufferSize: cfg.Tracking.IngestBuffer,
		Logger:     logr,
	})
	hub := tracking.NewHub(transport, snapshots, metricsSvc, tracking.HubConfig{
		Prefix: cfg.Tracking.ChannelPrefix,
		Logger: logr,
	})
	if cfg.Tracking.Enabled {
		ingestor.Start(context.Background())
		defer ingestor.Stop()
	}

	campaignHandler := handler.NewCampaignHandler(campaignSvc)
	inscriptionHandler := handler.NewInscriptionHandler(inscriptionSvc)
	citaHandler := handler.NewCitaHandler(availabilitySvc, calendarSvc)
	horarioHandler := handler.NewHorarioHandler(scheduleSvc)
	trackingHandler := handler.NewTrackingHandler(ingestor, snapshots, hub)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

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

	// Endpoints reachable without a session: the public campaign list,
	// appointment availability, and guest inscription.
	api.GET("/campaigns/public", campaignHandler.ListPublic)
	api.GET("/citas/disponibilidad", citaHandler.Availability)
	api.GET("/citas/resumen-mensual", citaHandler.MonthSummary)
	api.GET("/horarios/config", horarioHandler.GetWeekly)
	api.POST("/campaigns/:id/inscribir", middleware.OptionalJWT(tokenSvc), inscriptionHandler.Register)

	staff := api.Group("", middleware.JWT(tokenSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleVeterinario))
	{
		staff.GET("/campaigns", campaignHandler.List)
		staff.GET("/campaigns/:id", campaignHandler.Get)
		staff.GET("/campaigns/:id/inscripciones", inscriptionHandler.List)
		staff.PUT("/inscriptions/:id/atendido", inscriptionHandler.MarkAttended)
		if cfg.Tracking.Enabled {
			staff.POST("/campaigns/:id/ubicacion", trackingHandler.ReportLocation)
			staff.GET("/campaigns/:id/ubicaciones", trackingHandler.Positions)
			staff.GET("/campaigns/:id/ubicaciones/stream", trackingHandler.Stream)
		}
	}

	admin := api.Group("", middleware.JWT(tokenSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/campaigns", campaignHandler.Create)
		admin.PUT("/campaigns/:id", campaignHandler.Update)
		admin.POST("/campaigns/:id/iniciar", campaignHandler.Start)
		admin.POST("/campaigns/:id/finalizar", campaignHandler.Finish)
		admin.GET("/campaigns/:id/asignaciones", campaignHandler.ListAssignments)
		admin.PUT("/campaigns/:id/asignaciones", campaignHandler.ReplaceAssignments)
		admin.PUT("/horarios/config", horarioHandler.UpdateWeekly)
		admin.GET("/horarios/especiales", horarioHandler.ListSpecialDays)
		admin.POST("/horarios/especiales", horarioHandler.CreateSpecialDay)
		admin.DELETE("/horarios/especiales/:id", horarioHandler.DeleteSpecialDay)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
