package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	lcapp "github.com/erp/landedcost/internal/application/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/config"
	"github.com/erp/landedcost/internal/infrastructure/event"
	"github.com/erp/landedcost/internal/infrastructure/lock"
	"github.com/erp/landedcost/internal/infrastructure/logger"
	"github.com/erp/landedcost/internal/infrastructure/persistence"
	"github.com/erp/landedcost/internal/infrastructure/telemetry"
	"github.com/erp/landedcost/internal/interfaces/http/handler"
	"github.com/erp/landedcost/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := loggerProvider.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() { _ = log.Sync() }()

	log.Info("Starting landed cost service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.ServiceVersion),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}
	meter := meterProvider.Meter(telemetry.MeterName)

	metrics, err := telemetry.NewLandedCostMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create landed cost metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   cfg.Database.Driver,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to access connection pool", zap.Error(err))
		}
		dbMetrics, err := telemetry.NewDBMetrics(meter, sqlDB, telemetry.DefaultSlowQueryThreshold, log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := db.DB.Use(dbMetrics); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	var rdb *redis.Client
	if cfg.Lock.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
	}
	baseLocker, err := lock.New(cfg.Lock, rdb, log)
	if err != nil {
		log.Fatal("Failed to create operation locker", zap.Error(err))
	}
	backend := cfg.Lock.Backend
	if backend == "" {
		backend = "memory"
	}
	locker := lock.Instrumented(baseLocker, backend, metrics)

	repos := lcapp.Repositories{
		Components:  persistence.NewGormCostComponentRepository(db.DB, cfg.Database.LockTimeout),
		Operations:  persistence.NewGormTradeOperationRepository(db.DB, cfg.Database.LockTimeout),
		Lines:       persistence.NewGormShipmentLineRepository(db.DB),
		Charges:     persistence.NewGormChargeRepository(db.DB),
		Allocations: persistence.NewGormAllocationRepository(db.DB),
	}
	reconciler := lcapp.NewReconciliationService(log)
	reconciler.SetMetrics(metrics)
	service := lcapp.NewService(repos, persistence.NewGormTransactionScope(db.DB, cfg.Database.LockTimeout), locker, reconciler, log)

	serializer := event.NewEventSerializer()
	event.RegisterLandedCostEvents(serializer)
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(serializer, log))
	eventBus.Subscribe(metrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	service.SetEventPublisher(eventBus)

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tracerProvider.IsEnabled(),
		Profiling:   profiler.IsEnabled(),
		Meter:       httpMeter(meterProvider),
		Logger:      log,
	})
	if err != nil {
		log.Fatal("Failed to configure HTTP engine", zap.Error(err))
	}
	router.RegisterHealthRoutes(engine, handler.NewHealthHandler(db, eventBus, telemetry.ServiceVersion))
	landedCostRoutes := router.LandedCostRoutes(handler.NewLandedCostHandler(service))
	apiBase := router.NewRouter(engine).Register(landedCostRoutes).Setup()
	log.Info("Routes registered",
		zap.String("base_path", apiBase),
		zap.Int("landed_cost_routes", len(landedCostRoutes.Routes())),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down log exporter", zap.Error(err))
	}
}

// httpMeter returns nil when metrics export is off so the HTTP middleware
// skips instrument creation.
func httpMeter(mp *telemetry.MeterProvider) metric.Meter {
	if !mp.IsEnabled() {
		return nil
	}
	return mp.Meter("http.server")
}
