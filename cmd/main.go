package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/medplan/reminder-engine/internal/config"
	"github.com/medplan/reminder-engine/internal/handler"
	"github.com/medplan/reminder-engine/internal/health"
	"github.com/medplan/reminder-engine/internal/infra/deliveryrecorder"
	"github.com/medplan/reminder-engine/internal/infra/medmgmt"
	"github.com/medplan/reminder-engine/internal/infra/repository"
	"github.com/medplan/reminder-engine/internal/observability/logging"
	"github.com/medplan/reminder-engine/internal/observability/metrics"
	"github.com/medplan/reminder-engine/internal/observability/middleware"
	"github.com/medplan/reminder-engine/internal/service/engine"
	"github.com/medplan/reminder-engine/internal/service/materialize"
	"github.com/medplan/reminder-engine/internal/service/partition"
	"github.com/medplan/reminder-engine/internal/service/recalc"
)

// Version is set via ldflags at build time
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	obs, err := initObservability(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.SetDefault(obs.Logger())

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	if err := cfg.AlertSurface.Validate(); err != nil {
		slog.Error("alert surface configuration error", slog.String("error", err.Error()))
		return 1
	}

	if cfg.MedicationManagementURL == "" {
		slog.Error("MEDICATION_MANAGEMENT_URL environment variable is required")
		return 1
	}

	httpMetrics, err := metrics.NewHTTPMetrics()
	if err != nil {
		slog.Error("failed to initialize HTTP metrics", slog.String("error", err.Error()))
		return 1
	}

	engineMetrics, err := metrics.NewEngineMetrics()
	if err != nil {
		slog.Error("failed to initialize engine metrics", slog.String("error", err.Error()))
		return 1
	}

	// Delivery recorder (InfluxDB for local, BigQuery for gcloud)
	recorderCfg := deliveryrecorder.LoadConfig()
	recorder, err := deliveryrecorder.NewRecorder(ctx, recorderCfg)
	if err != nil {
		slog.Error("failed to initialize delivery recorder", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			slog.Warn("failed to close delivery recorder", slog.String("error", err.Error()))
		}
	}()

	medClient := medmgmt.NewClient(cfg.MedicationManagementURL)

	alertSurface, cleanup, err := initAlertSurface(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize alert surface", slog.String("error", err.Error()))
		return 1
	}
	if cleanup != nil {
		defer func() {
			if err := cleanup(); err != nil {
				slog.Error("alert surface cleanup error", slog.String("error", err.Error()))
			}
		}()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}()

	slog.Info("redis connected",
		slog.String("addr", cfg.Redis.Addr),
	)

	reminderStore := repository.NewReminderRepository(redisClient)

	partitioner := partition.NewPartitioner()
	recalculator := recalc.NewRecalculator(partitioner, cfg.Engine.MinDoseSpacing)
	materializer := materialize.NewMaterializer(partitioner)

	clock := engine.NewRealClock()
	eng := engine.New(
		reminderStore,
		alertSurface,
		medClient,
		materializer,
		recalculator,
		recorder,
		engineMetrics,
		clock,
		engine.Options{
			SweepInterval:  cfg.Engine.SweepInterval,
			SweepTolerance: cfg.Engine.SweepTolerance,
			Staleness:      cfg.Engine.Staleness,
			ArmingHorizon:  cfg.Engine.ArmingHorizon,
			Snooze:         cfg.Engine.Snooze,
			RuleRefresh:    cfg.Engine.RuleRefresh,
		},
	)

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- eng.Run(ctx)
	}()

	scheduleHandler := handler.NewScheduleHandler(partitioner, recalculator, materializer)
	reminderHandler := handler.NewReminderHandler(eng)
	ruleEventHandler := handler.NewRuleEventHandler(eng, clock)
	interactionHandler := handler.NewInteractionHandler(eng)

	// Setup router with observability middleware
	r := gin.New()
	r.Use(middleware.Gin(middleware.GinConfig{
		SkipPaths:   []string{"/health", "/health/live", "/health/ready", "/metrics"},
		Module:      logging.Module("reminder-engine"),
		TracerName:  "github.com/medplan/reminder-engine/internal/observability/middleware",
		HTTPMetrics: httpMetrics,
	}))
	r.Use(middleware.PanicRecoveryGin())

	// Health check endpoints
	healthChecker := health.NewChecker(redisClient, eng, Version)
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	// API routes
	v1 := r.Group("/api/v1")
	{
		v1.POST("/schedule/generate", scheduleHandler.HandleGenerate)
		v1.POST("/schedule/materialize", scheduleHandler.HandleMaterialize)
		v1.POST("/reminders/schedule", reminderHandler.HandleSchedule)
		v1.POST("/reminders/cancel", reminderHandler.HandleCancel)
		v1.POST("/rules/events", ruleEventHandler.HandleRuleEvent)
		v1.POST("/alerts/interaction", interactionHandler.HandleInteraction)
		v1.POST("/alerts/permission", interactionHandler.HandlePermission)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.Duration("sweep_interval", cfg.Engine.SweepInterval),
			slog.Duration("staleness", cfg.Engine.Staleness),
			slog.Duration("rule_refresh", cfg.Engine.RuleRefresh),
		)
		serverErr <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		<-engineErr

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1

	case err := <-engineErr:
		if errors.Is(err, context.Canceled) {
			return 0
		}
		slog.Error("engine exited with error", slog.String("error", err.Error()))
		return 1
	}
}
