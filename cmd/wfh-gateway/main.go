package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/wfh-scheduler/api/swagger"
	"github.com/noah-isme/wfh-scheduler/internal/handler"
	"github.com/noah-isme/wfh-scheduler/internal/middleware"
	"github.com/noah-isme/wfh-scheduler/internal/repository"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	"github.com/noah-isme/wfh-scheduler/pkg/backend"
	"github.com/noah-isme/wfh-scheduler/pkg/cache"
	"github.com/noah-isme/wfh-scheduler/pkg/config"
	"github.com/noah-isme/wfh-scheduler/pkg/database"
	"github.com/noah-isme/wfh-scheduler/pkg/export"
	"github.com/noah-isme/wfh-scheduler/pkg/jobs"
	"github.com/noah-isme/wfh-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/wfh-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/wfh-scheduler/pkg/middleware/requestid"
)

// @title WFH Scheduler Gateway
// @version 1.0.0
// @description WFH request lifecycle and personal calendar API
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()
	rules := service.NewDateRuleService(service.DateWindow{
		LookbackMonths:  cfg.Window.LookbackMonths,
		LookaheadMonths: cfg.Window.LookaheadMonths,
	})
	checks := map[string]handler.Pinger{}

	var store service.Store
	switch cfg.Backend.Mode {
	case config.BackendModePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		store = repository.NewPostgresBackend(db)
		checks["postgres"] = pingFunc(db.PingContext)
	case config.BackendModeHTTP:
		client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout,
			backend.WithLogger(logr.Named("backend")),
			backend.WithObserver(func(method, route string, status int, d time.Duration) {
				metrics.ObserveHTTPRequest(method, "backend "+route, status, d)
			}),
		)
		store = client
		checks["backend"] = client
	default:
		logr.Fatal("unknown backend mode", zap.String("mode", cfg.Backend.Mode))
	}

	var profileCache *service.CacheService
	if cfg.ProfileCache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("profile cache disabled, redis unreachable", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client)
			defer repo.Close() //nolint:errcheck
			profileCache = service.NewCacheService(repo, metrics, cfg.ProfileCache.TTL, logr, true)
			checks["redis"] = profileCache
		}
	}

	queue := jobs.NewQueue("housekeeping", jobs.QueueConfig{Workers: 2, RetryDelay: 2 * time.Second, Logger: logr})
	var housekeeping *service.HousekeepingService
	directory := service.NewStaffDirectoryService(store, profileCache, cfg.ProfileCache.TTL, logr,
		service.WithProfilePrefetcher(func(ids []int) { housekeeping.SchedulePrefetch(ids) }),
	)
	chunking := service.AggregatorConfig{
		ChunkDays:          cfg.Calendar.ChunkDays,
		MaxParallel:        cfg.Calendar.MaxParallel,
		MaxChunks:          cfg.Calendar.MaxChunks,
		DeterministicMerge: cfg.Calendar.DeterministicMerge,
	}
	registry := service.NewWorkspaceRegistry(service.WorkspaceDeps{
		Backend:   store,
		Rules:     rules,
		Directory: directory,
		Validator: validate,
		Metrics:   metrics,
		Logger:    logr,
		Calendar:  chunking,
		IdleTTL:   cfg.Workspace.IdleTTL,
	})
	housekeeping = service.NewHousekeepingService(queue, registry, directory, store, logr)
	queue.Start(ctx)
	defer queue.Stop()
	housekeeping.ScheduleSweeps(cfg.Workspace.SweepInterval)
	if cfg.Expiry.Enabled {
		housekeeping.ScheduleExpiry(cfg.Expiry.Interval, cfg.Expiry.AgeDays)
	}

	auth := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		TokenTTL: cfg.JWT.TokenTTL,
	}, directory, logr)
	withdrawals := service.NewWithdrawalService(rules, store, validate, cfg.Withdrawals.Window, metrics, logr)
	team := service.NewTeamScheduleService(rules, store, chunking, metrics, logr)
	history := service.NewRequestHistoryService(store, logr)
	exports := service.NewCalendarExportService(export.NewCSVExporter(export.WithExcelBOM()), export.NewPDFExporter(), export.NewICSExporter())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Application:  handler.NewApplicationHandler(registry),
		Review:       handler.NewReviewHandler(registry),
		Calendar:     handler.NewCalendarHandler(registry, rules, exports),
		Withdrawal:   handler.NewWithdrawalHandler(withdrawals, validate),
		Metrics:      handler.NewMetricsHandler(metrics, checks),
		Team:         handler.NewTeamHandler(team),
		History:      handler.NewHistoryHandler(history),
		Housekeeping: handler.NewHousekeepingHandler(housekeeping, cfg.Expiry.AgeDays),
	}, handler.RouteDeps{
		Auth:        middleware.JWT(auth),
		RateLimiter: limiter,
		Logger:      logr.Named("audit"),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("backend", cfg.Backend.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
	logr.Info("server stopped")
}
