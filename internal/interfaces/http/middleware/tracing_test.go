package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// tracedRouter installs a recording tracer provider plus the tracing
// middleware pair, restoring the global provider afterwards.
func tracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{ServiceName: "finz-backend-test", Enabled: true}))
	router.Use(SpanEnrichment())
	return router, recorder
}

func endedSpanAttr(t *testing.T, recorder *tracetest.SpanRecorder, key string) (any, bool) {
	t.Helper()
	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	for _, attr := range spans[len(spans)-1].Attributes() {
		if string(attr.Key) == key {
			return attr.Value.AsInterface(), true
		}
	}
	return nil, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_ProducesRequestSpan(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.GET("/api/v1/taxonomy/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"loaded": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/v1/taxonomy/status")
}

func TestSpanEnrichment_RequestID(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-materialize-7")
		c.Next()
	})
	router.POST("/api/v1/projects/:id/baselines/:baselineId/accept", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/baselines/b1/accept", nil))

	got, ok := endedSpanAttr(t, recorder, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-materialize-7", got)

	project, ok := endedSpanAttr(t, recorder, "project_id")
	require.True(t, ok)
	assert.Equal(t, "p1", project)
}

func TestSpanEnrichment_RequestIDFromHeaderTruncated(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.GET("/api/v1/taxonomy/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/taxonomy/status", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", MaxRequestIDLength+50))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	got, ok := endedSpanAttr(t, recorder, "request_id")
	require.True(t, ok)
	assert.Len(t, got.(string), MaxRequestIDLength)
}

func TestSpanEnrichment_UserIDFromClaims(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.Use(func(c *gin.Context) {
		c.Set(JWTUserIDKey, "analyst-42")
		c.Next()
	})
	router.GET("/api/v1/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))

	got, ok := endedSpanAttr(t, recorder, "user_id")
	require.True(t, ok)
	assert.Equal(t, "analyst-42", got)
}

func TestSpanEnrichment_MarksClientErrors(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.POST("/api/v1/taxonomy/resolve", func(c *gin.Context) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unresolvable identifier"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/taxonomy/resolve", nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, http.StatusText(http.StatusUnprocessableEntity), spans[0].Status().Description)
}

func TestSpanEnrichment_SuccessNotMarked(t *testing.T) {
	router, recorder := tracedRouter(t)
	router.GET("/api/v1/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanEnrichment_WithoutTracerIsHarmless(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// No tracer installed: SpanFromContext yields a non-recording span
	// and enrichment must not panic.
	router := gin.New()
	router.Use(SpanEnrichment())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "finz-backend", cfg.ServiceName)
}
