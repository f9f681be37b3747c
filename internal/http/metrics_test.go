package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return nil
}

// requestCount sums requests for route and status. An empty route matches
// any route.
func requestCount(sum metricdata.Sum[int64], route string, status int) int64 {
	var n int64
	for _, dp := range sum.DataPoints {
		r, _ := dp.Attributes.Value("http.route")
		s, _ := dp.Attributes.Value("http.response.status_code")
		if (route == "" || r.AsString() == route) && s.AsInt64() == int64(status) {
			n += dp.Value
		}
	}
	return n
}

func TestAPIMetrics_Middleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newAPIMetrics(mp.Meter(instrumentationName))
	require.NoError(t, err)

	e := echo.New()
	e.Use(m.middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/reports", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "registry unavailable")
	})
	e.GET("/api/v1/namespaces/:name/passages", func(c echo.Context) error {
		return errors.New("store closed")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/health"},
		{http.MethodPost, "/api/v1/reports"},
		{http.MethodGet, "/api/v1/namespaces/pfizer/passages"},
		{http.MethodGet, "/api/v1/namespaces/medtronic/passages"},
		{http.MethodGet, "/nope"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	sum, ok := collect(t, reader, "pharmadd.http.requests").(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), requestCount(sum, "/health", http.StatusOK))
	assert.Equal(t, int64(1), requestCount(sum, "/api/v1/reports", http.StatusBadGateway))
	assert.Equal(t, int64(2), requestCount(sum, "/api/v1/namespaces/:name/passages", http.StatusInternalServerError))
	assert.Equal(t, int64(1), requestCount(sum, "", http.StatusNotFound))

	hist, ok := collect(t, reader, "pharmadd.http.request.duration").(metricdata.Histogram[float64])
	require.True(t, ok)
	var recorded uint64
	for _, dp := range hist.DataPoints {
		recorded += dp.Count
	}
	assert.Equal(t, uint64(6), recorded)

	inFlight, ok := collect(t, reader, "pharmadd.http.requests.in_flight").(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range inFlight.DataPoints {
		assert.Zero(t, dp.Value, dp.Attributes.Encoded(attribute.DefaultEncoder()))
	}
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", routeLabel(""))
	assert.Equal(t, "/api/v1/namespaces/:name/passages", routeLabel("/api/v1/namespaces/:name/passages"))
}

func TestResponseStatus(t *testing.T) {
	e := echo.New()
	newCtx := func() echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	}

	c := newCtx()
	require.NoError(t, c.NoContent(http.StatusAccepted))
	assert.Equal(t, http.StatusAccepted, responseStatus(c, nil))
	assert.Equal(t, http.StatusAccepted, responseStatus(c, errors.New("late")), "committed response wins")

	assert.Equal(t, http.StatusUnprocessableEntity, responseStatus(newCtx(), echo.NewHTTPError(http.StatusUnprocessableEntity)))
	assert.Equal(t, http.StatusInternalServerError, responseStatus(newCtx(), errors.New("boom")))
}
