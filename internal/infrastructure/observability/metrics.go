package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pomegranate/internal/core/apperror"
)

// Metrics records entity operations and HTTP requests. It satisfies
// crud.Observer.
type Metrics struct {
	opDuration   metric.Float64Histogram
	opCounter    metric.Int64Counter
	opErrors     metric.Int64Counter
	httpDuration metric.Float64Histogram
	httpCounter  metric.Int64Counter
	httpActive   metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.opDuration, err = meter.Float64Histogram(
		"pomegranate.entity.operation.duration",
		metric.WithDescription("Duration of entity operations in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}
	if m.opCounter, err = meter.Int64Counter(
		"pomegranate.entity.operations",
		metric.WithDescription("Total number of entity operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}
	if m.opErrors, err = meter.Int64Counter(
		"pomegranate.entity.errors",
		metric.WithDescription("Entity operations that returned an error, by error code"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation error counter: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram(
		"pomegranate.http.request.duration",
		metric.WithDescription("Duration of HTTP requests in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if m.httpCounter, err = meter.Int64Counter(
		"pomegranate.http.requests",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.httpActive, err = meter.Int64UpDownCounter(
		"pomegranate.http.requests.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	return m, nil
}

// ObserveOperation records one entity operation.
func (m *Metrics) ObserveOperation(ctx context.Context, entity, op string, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", op),
		attribute.Bool("success", err == nil),
	)
	m.opCounter.Add(ctx, 1, attrs)
	m.opDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	if err != nil {
		m.opErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", op),
			attribute.String("code", errorCode(err)),
		))
	}
}

// RequestStarted marks a request in flight; call the returned func when done.
func (m *Metrics) RequestStarted(ctx context.Context) func() {
	m.httpActive.Add(ctx, 1)
	return func() { m.httpActive.Add(ctx, -1) }
}

// ObserveHTTP records a finished request. route is the matched pattern, not
// the raw path, to keep cardinality bounded.
func (m *Metrics) ObserveHTTP(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	)
	m.httpCounter.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func errorCode(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return apperror.CodeInternal
}
