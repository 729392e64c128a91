package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewHTTPMetrics configures HTTP server instruments.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "propline"
	}
	meter := provider.Meter(name)

	requests, err := meter.Int64Counter("propline_http_requests_total")
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("propline_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// Record observes one completed request.
func (m *HTTPMetrics) Record(c *gin.Context, elapsed time.Duration) {
	if m == nil {
		return
	}

	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}
	attrs := FilterAttributes(
		attribute.String("route", route),
		attribute.String("http_method", c.Request.Method),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)

	ctx := c.Request.Context()
	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.Record(c, time.Since(start))
	}
}
