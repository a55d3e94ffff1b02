package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-registry-api/api/swagger"
	"github.com/noah-isme/course-registry-api/internal/handler"
	"github.com/noah-isme/course-registry-api/internal/migrations"
	"github.com/noah-isme/course-registry-api/internal/repository"
	"github.com/noah-isme/course-registry-api/internal/router"
	"github.com/noah-isme/course-registry-api/internal/scheduler"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/broker"
	"github.com/noah-isme/course-registry-api/pkg/cache"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/database"
	"github.com/noah-isme/course-registry-api/pkg/export"
	"github.com/noah-isme/course-registry-api/pkg/logger"
)

// @title Course Registry API
// @version 1.0.0
// @description Course catalog, enrollment and waiting list service
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.NewMigrator(db, logr).Up(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Courses.CacheTTL, logr, cfg.Courses.CacheEnabled && redisClient != nil)
	hooks := service.ChangeHooks{Cache: cacheSvc, Metrics: metrics}
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	if cfg.Events.Enabled {
		publisher := broker.NewPublisher(cfg.Events.URL, cfg.Events.Queue)
		defer publisher.Close() //nolint:errcheck
		events := service.NewEventService(publisher, metrics, logr, service.EventServiceConfig{
			Workers:    cfg.Events.Workers,
			Buffer:     cfg.Events.Buffer,
			Retries:    cfg.Events.Retries,
			RetryDelay: cfg.Events.RetryDelay,
		})
		events.Start()
		defer events.Stop()
		hooks.Events = events
		checks["events"] = events.Check
		logr.Info("event publishing enabled", zap.String("queue", publisher.Queue()))
	}

	data := service.NewDataStore(repository.NewStore(db))
	validate := validator.New()

	courses := service.NewCourseService(service.CourseServiceParams{
		Data:      data,
		Validator: validate,
		Logger:    logr,
		Hooks:     hooks,
		Config: service.CourseServiceConfig{
			DefaultSemester: cfg.Courses.DefaultSemester,
			CacheTTL:        cfg.Courses.CacheTTL,
		},
	})
	enrollments := service.NewEnrollmentService(data, validate, logr, hooks)
	waiting := service.NewWaitingListService(data, validate, logr, hooks)
	registry := service.NewRegistryService(data, validate, logr)
	exports := service.NewExportService(courses, logr, export.NewCSVExporter(), export.NewPDFExporter())
	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	if cfg.Jobs.CapacityEnabled {
		jobs := scheduler.New(logr)
		capacity := scheduler.NewCapacityJob(courses, metrics, logr)
		if err := jobs.Register(cfg.Jobs.CapacitySchedule, "capacity-snapshot", capacity.Run); err != nil {
			return fmt.Errorf("schedule capacity job: %w", err)
		}
		jobs.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			jobs.Stop(stopCtx)
		}()
	}

	engine := router.New(router.Dependencies{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Tokens:  auth,
	}, router.Handlers{
		Courses:     handler.NewCourseHandler(courses, exports),
		Enrollments: handler.NewEnrollmentHandler(enrollments, waiting),
		Registry:    handler.NewRegistryHandler(registry),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
