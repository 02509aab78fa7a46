package router

import (
	"github.com/erp/landedcost/internal/infrastructure/config"
	"github.com/erp/landedcost/internal/infrastructure/logger"
	"github.com/erp/landedcost/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig selects the middleware installed by NewEngine
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	Profiling   bool
	Meter       metric.Meter // nil disables HTTP metrics
	Logger      *zap.Logger
}

// NewEngine creates a gin engine with the standard middleware chain:
// recovery, request logging, tracing, metrics, profiling labels, CORS,
// security headers and the body limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter, cfg.Logger),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   cfg.Profiling,
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		}),
		middleware.CORSWithConfig(cors),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodyBytes),
	)
	return engine, nil
}
