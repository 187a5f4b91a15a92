package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/holeportal"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Login metrics
	LoginAttemptsTotal metric.Int64Counter
	LoginFailuresTotal metric.Int64Counter
	LoginDuration      metric.Float64Histogram

	// Navigation metrics
	GuardRedirectsTotal metric.Int64Counter
	PageViewsTotal      metric.Int64Counter
	ViewLoadErrorsTotal metric.Int64Counter

	// API metrics
	UnauthorizedTotal metric.Int64Counter
	RateLimitedTotal  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"holeportal.login.attempts.total",
		metric.WithDescription("Total number of login attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"holeportal.login.failures.total",
		metric.WithDescription("Total number of rejected or failed logins"),
		metric.WithUnit("{attempt}"),
	)

	m.LoginDuration, _ = meter.Float64Histogram(
		"holeportal.login.duration",
		metric.WithDescription("Duration of login handling including password verification"),
		metric.WithUnit("ms"),
	)

	m.GuardRedirectsTotal, _ = meter.Int64Counter(
		"holeportal.guard.redirects.total",
		metric.WithDescription("Total number of protected navigations redirected to login"),
		metric.WithUnit("{redirect}"),
	)

	m.PageViewsTotal, _ = meter.Int64Counter(
		"holeportal.pages.views.total",
		metric.WithDescription("Total number of rendered page views"),
		metric.WithUnit("{view}"),
	)

	m.ViewLoadErrorsTotal, _ = meter.Int64Counter(
		"holeportal.pages.load_errors.total",
		metric.WithDescription("Total number of failed page view loads"),
		metric.WithUnit("{error}"),
	)

	m.UnauthorizedTotal, _ = meter.Int64Counter(
		"holeportal.api.unauthorized.total",
		metric.WithDescription("Total number of API requests rejected for missing or invalid tokens"),
		metric.WithUnit("{request}"),
	)

	m.RateLimitedTotal, _ = meter.Int64Counter(
		"holeportal.api.rate_limited.total",
		metric.WithDescription("Total number of requests rejected by the per-client rate limit"),
		metric.WithUnit("{request}"),
	)

	return m
}
