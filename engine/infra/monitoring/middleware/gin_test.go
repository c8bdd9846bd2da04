package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/refacekit/leadops/pkg/logger"
)

func init() {
	logger.InitForTests()
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Should record request count and latency", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		router := gin.New()
		router.Use(HTTPMetrics(provider.Meter("test")))
		router.POST("/ingest/csv", func(c *gin.Context) {
			c.Status(http.StatusBadRequest)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/csv", http.NoBody))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		found := map[string]bool{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				found[m.Name] = true
				if m.Name != "leadops_http_requests_total" {
					continue
				}
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				require.Len(t, sum.DataPoints, 1)
				attrs := sum.DataPoints[0].Attributes.ToSlice()
				assert.Contains(t, attrs, attribute.String("method", "POST"))
				assert.Contains(t, attrs, attribute.String("path", "/ingest/csv"))
				assert.Contains(t, attrs, attribute.String("status_code", "400"))
			}
		}
		assert.True(t, found["leadops_http_requests_total"])
		assert.True(t, found["leadops_http_request_duration_seconds"])
		assert.True(t, found["leadops_http_requests_in_flight"])
	})

	t.Run("Should label unmatched routes", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		router := gin.New()
		router.Use(HTTPMetrics(provider.Meter("test")))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		var paths []attribute.Value
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "leadops_http_requests_total" {
					for _, dp := range sum.DataPoints {
						v, _ := dp.Attributes.Value("path")
						paths = append(paths, v)
					}
				}
			}
		}
		assert.Equal(t, []attribute.Value{attribute.StringValue("unmatched")}, paths)
	})

	t.Run("Should pass through with a no-op meter", func(t *testing.T) {
		router := gin.New()
		router.Use(HTTPMetrics(noop.NewMeterProvider().Meter("test")))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
