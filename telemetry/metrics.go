package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics holds the teardown run metrics, OTEL naming conventions.
// A nil *RunMetrics is valid and records nothing.
type RunMetrics struct {
	outcomes     metric.Int64Counter
	tierDuration metric.Float64Histogram
	activeScopes metric.Int64UpDownCounter
}

// NewRunMetrics creates the run metrics on the global meter.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("purku.teardown")

	outcomes, err := meter.Int64Counter(
		"purku.teardown.outcomes",
		metric.WithDescription("Terminal deletion outcomes by status"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, err
	}

	tierDuration, err := meter.Float64Histogram(
		"purku.teardown.tier.duration",
		metric.WithDescription("Wall-clock duration of one tier in one scope"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeScopes, err := meter.Int64UpDownCounter(
		"purku.teardown.scopes.active",
		metric.WithDescription("Scopes currently being torn down"),
		metric.WithUnit("{scope}"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		outcomes:     outcomes,
		tierDuration: tierDuration,
		activeScopes: activeScopes,
	}, nil
}

// RecordOutcome counts one terminal outcome.
func (m *RunMetrics) RecordOutcome(ctx context.Context, domain, status string) {
	if m == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("status", status),
	))
}

// ObserveTier records one tier's wall-clock duration.
func (m *RunMetrics) ObserveTier(ctx context.Context, domain string, tier int, d time.Duration) {
	if m == nil {
		return
	}
	m.tierDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.Int("tier", tier),
	))
}

// ScopeStarted marks one scope in flight.
func (m *RunMetrics) ScopeStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeScopes.Add(ctx, 1)
}

// ScopeFinished marks one scope complete.
func (m *RunMetrics) ScopeFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeScopes.Add(ctx, -1)
}
