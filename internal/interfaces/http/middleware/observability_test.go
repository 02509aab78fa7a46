package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/erp/landedcost/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestTracing_EnrichesAndMarksSpans(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	// otelgin reads the global provider unless one is passed; start the span by hand
	startSpan := func(c *gin.Context) {
		ctx, span := provider.Tracer("test").Start(c.Request.Context(), c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}

	router := gin.New()
	router.Use(startSpan, func(c *gin.Context) { c.Set(requestIDKey, "req-42"); c.Next() })
	router.Use(TracingAttributeInjector(), SpanErrorMarker())
	router.GET("/operations/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	id := uuid.New()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operations/"+id.String(), nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "Not Found", ended[0].Status().Description)

	attrs := attribute.NewSet(ended[0].Attributes()...)
	v, ok := attrs.Value("request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", v.AsString())
	v, ok = attrs.Value("lcm.path_id")
	require.True(t, ok)
	assert.Equal(t, id.String(), v.AsString())
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/ping", func(c *gin.Context) {
		assert.False(t, trace.SpanFromContext(c.Request.Context()).IsRecording())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRequestID_TruncatesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	long := make([]byte, MaxRequestIDLength+20)
	for i := range long {
		long[i] = 'a'
	}
	c.Request.Header.Set("X-Request-ID", string(long))

	assert.Len(t, getRequestID(c), MaxRequestIDLength)
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	router := gin.New()
	router.Use(HTTPMetrics(provider.Meter("http.server"), zap.NewNop()))
	router.GET("/lines/:id/unit-cost", func(c *gin.Context) { c.String(http.StatusOK, "12.500000") })

	for range 2 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lines/"+uuid.NewString()+"/unit-cost", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var total *metricdata.Sum[int64]
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name == "http_server_request_total" {
			sum := m.Data.(metricdata.Sum[int64])
			total = &sum
		}
	}
	require.NotNil(t, total)
	require.Len(t, total.DataPoints, 1, "route template keeps one series")
	assert.Equal(t, int64(2), total.DataPoints[0].Value)

	route, _ := total.DataPoints[0].Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "/lines/:id/unit-cost", route.AsString())
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetrics(nil, zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfilingWithConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var route, method string
	router := gin.New()
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	handler := func(c *gin.Context) {
		route, _ = pprof.Label(c.Request.Context(), telemetry.ProfilingLabelRoute)
		method, _ = pprof.Label(c.Request.Context(), telemetry.ProfilingLabelMethod)
		c.Status(http.StatusOK)
	}
	router.GET("/operations/:id", handler)
	router.GET("/health", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/operations/"+uuid.NewString(), nil))
	assert.Equal(t, "/operations/:id", route)
	assert.Equal(t, http.MethodGet, method)

	route, method = "", ""
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, route)
	assert.Empty(t, method)
}
