package association

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/erp/jointenant/association"

	// GuardEvaluationsMetric counts guard runs by join_table and outcome.
	GuardEvaluationsMetric = "jointenant.guard.evaluations"
)

type guardMetrics struct {
	evaluations metric.Int64Counter
}

func newGuardMetrics(meter metric.Meter) *guardMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	counter, err := meter.Int64Counter(GuardEvaluationsMetric,
		metric.WithDescription("Tenant guard evaluations of join row inserts"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter(GuardEvaluationsMetric)
	}
	return &guardMetrics{evaluations: counter}
}

func (m *guardMetrics) evaluated(ctx context.Context, attrs ...attribute.KeyValue) {
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
}
