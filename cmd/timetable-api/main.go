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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable/api/swagger"
	"github.com/noah-isme/sma-timetable/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/repository"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/cache"
	"github.com/noah-isme/sma-timetable/pkg/config"
	"github.com/noah-isme/sma-timetable/pkg/database"
	"github.com/noah-isme/sma-timetable/pkg/jobs"
	"github.com/noah-isme/sma-timetable/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly timetable generation, rebalancing and versioned storage for schools.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	var db *sqlx.DB
	if cfg.Database.Enabled {
		conn, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer conn.Close()
		if cfg.Database.MigrateOnStart {
			migrator, err := database.NewMigrator(conn.DB, logr)
			if err != nil {
				return err
			}
			if err := migrator.Up(ctx); err != nil {
				return err
			}
		}
		db = conn
	} else {
		logr.Warn("database disabled, saved timetables unavailable")
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var (
		cacheSvc    *service.CacheService
		redisClient *redis.Client
	)
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		redisClient = client
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, logr), metricsSvc, cfg.Timetable.CacheTTL, logr, true)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	if db != nil {
		metricsHandler.UseReadiness("database", db.PingContext)
	}
	if redisClient != nil {
		metricsHandler.UseReadiness("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
		r.GET("/metrics/summary", metricsHandler.Summary)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Timetable.Enabled {
		api := r.Group(cfg.APIPrefix)
		timetableSvc := newTimetableService(db, cacheSvc, metricsSvc, logr, service.TimetableConfig{
			RunTTL:        cfg.Timetable.RunTTL,
			PeriodMinutes: cfg.Timetable.PeriodMinutes,
			SchoolDays:    cfg.Timetable.SchoolDays,
			CacheTTL:      cfg.Timetable.CacheTTL,
		})
		handler.NewTimetableHandler(timetableSvc).RegisterRoutes(api)

		if cfg.Archive.Enabled && db != nil {
			archive, queue, err := newTimetableArchive(cfg, db, metricsSvc, logr)
			if err != nil {
				return err
			}
			queue.Start(ctx)
			defer queue.Stop()
			timetableSvc.UseArchive(archive)
			handler.NewTimetableArchiveHandler(archive).RegisterRoutes(api)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Warn("server shutdown", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timetable", cfg.Timetable.Enabled, "database", db != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logr.Info("server stopped")
	return nil
}

// newTimetableService leaves persistence unset when db is nil.
func newTimetableService(db *sqlx.DB, cacheSvc *service.CacheService, metricsSvc *service.MetricsService, logr *zap.Logger, cfg service.TimetableConfig) *service.TimetableService {
	validate := validator.New()
	if db == nil {
		return service.NewTimetableService(nil, nil, nil, cacheSvc, metricsSvc, validate, logr, cfg)
	}
	return service.NewTimetableService(
		repository.NewTimetableRepository(db),
		repository.NewTimetableBlockRepository(db),
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		cfg,
	)
}

func newTimetableArchive(cfg *config.Config, db *sqlx.DB, metricsSvc *service.MetricsService, logr *zap.Logger) (*service.TimetableArchive, *jobs.Queue, error) {
	files, err := storage.NewLocalStorage(cfg.Archive.Dir)
	if err != nil {
		return nil, nil, err
	}
	archive := service.NewTimetableArchive(
		repository.NewTimetableRepository(db),
		repository.NewTimetableBlockRepository(db),
		files,
		storage.NewSignedURLSigner(cfg.Archive.SigningSecret, cfg.Archive.LinkTTL),
		metricsSvc,
		logr,
		service.ArchiveSettings{APIPrefix: cfg.APIPrefix},
	)
	queue := jobs.NewQueue("timetable-archive", archive.Handle, jobs.QueueConfig{
		Workers:    cfg.Archive.Workers,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
		OnGiveUp:   archive.GiveUp,
	})
	archive.UseQueue(queue)
	return archive, queue, nil
}
