package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/pharmadd/internal/http"

// apiMetrics counts API traffic per route. Report builds run for minutes,
// so the duration buckets reach well past the usual web latencies.
type apiMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newAPIMetrics(meter metric.Meter) (*apiMetrics, error) {
	var m apiMetrics
	var err, errs error

	m.requests, err = meter.Int64Counter("pharmadd.http.requests",
		metric.WithDescription("API requests by method, route and status code"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	m.duration, err = meter.Float64Histogram("pharmadd.http.request.duration",
		metric.WithDescription("API request duration by method, route and status code"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600))
	errs = errors.Join(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("pharmadd.http.requests.in_flight",
		metric.WithDescription("API requests currently being served, by route"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	return &m, errs
}

// defaultAPIMetrics uses the global meter provider. Instruments that fail
// to register are left as no-ops.
func defaultAPIMetrics() (*apiMetrics, error) {
	return newAPIMetrics(otel.Meter(instrumentationName))
}

func (m *apiMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			route := routeLabel(c.Path())
			inFlight := metric.WithAttributes(attribute.String("http.route", route))

			start := time.Now()
			m.add(m.inFlight, c, 1, inFlight)
			err := next(c)
			m.add(m.inFlight, c, -1, inFlight)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", c.Request().Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", responseStatus(c, err)),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			return err
		}
	}
}

func (m *apiMetrics) add(c metric.Int64UpDownCounter, ec echo.Context, n int64, opt metric.AddOption) {
	if c != nil {
		c.Add(ec.Request().Context(), n, opt)
	}
}

// routeLabel is the registered route pattern, such as
// /api/v1/namespaces/:name/passages. Unmatched requests have no pattern
// and share the "unmatched" label.
func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}

// responseStatus is the status the client will see. A handler error has
// not been written yet when middleware runs, so its code is derived from
// the error the way echo's error handler does.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
