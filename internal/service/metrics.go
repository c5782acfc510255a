// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

const meterName = "github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"

// Metric names recorded by the services.
const (
	MetricWebhookDeliveries     = "webhook.deliveries"
	MetricReconcileRuns         = "reconcile.runs"
	MetricReconcileAppointments = "reconcile.appointments"
	MetricReconcileDuration     = "reconcile.duration"
)

// Metrics holds the instruments the services record to. A nil *Metrics records nothing.
type Metrics struct {
	webhookDeliveries     metric.Int64Counter
	reconcileRuns         metric.Int64Counter
	reconcileAppointments metric.Int64Counter
	reconcileDuration     metric.Float64Histogram
}

// NewMetrics creates the service instruments on the given provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	webhookDeliveries, errWebhook := meter.Int64Counter(MetricWebhookDeliveries,
		metric.WithDescription("Webhook deliveries by event type and outcome"),
		metric.WithUnit("{delivery}"))
	reconcileRuns, errRuns := meter.Int64Counter(MetricReconcileRuns,
		metric.WithDescription("Reconciliation sweeps by outcome"),
		metric.WithUnit("{run}"))
	reconcileAppointments, errAppointments := meter.Int64Counter(MetricReconcileAppointments,
		metric.WithDescription("Appointments seen by reconciliation, by result"),
		metric.WithUnit("{appointment}"))
	reconcileDuration, errDuration := meter.Float64Histogram(MetricReconcileDuration,
		metric.WithDescription("Wall time of one reconciliation sweep"),
		metric.WithUnit("s"))

	if err := errors.Join(errWebhook, errRuns, errAppointments, errDuration); err != nil {
		return nil, err
	}

	return &Metrics{
		webhookDeliveries:     webhookDeliveries,
		reconcileRuns:         reconcileRuns,
		reconcileAppointments: reconcileAppointments,
		reconcileDuration:     reconcileDuration,
	}, nil
}

// globalMetrics binds to the global meter provider, which forwards to the SDK
// provider once one is installed.
func globalMetrics() *Metrics {
	metrics, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Warn("failed to create service metrics", logging.ErrKey, err)
		return nil
	}
	return metrics
}

func (m *Metrics) recordWebhook(ctx context.Context, result *models.WebhookResult) {
	if m == nil || result == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("event_type", result.EventType),
		attribute.String("status", string(result.Status)),
	}
	if result.ErrorKind != models.WebhookErrorKindNone {
		attrs = append(attrs, attribute.String("error_kind", string(result.ErrorKind)))
	}
	m.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) recordReconcile(ctx context.Context, summary models.ReconciliationSummary) {
	if m == nil {
		return
	}
	outcome := "ok"
	if summary.Error != "" {
		outcome = "error"
	}
	m.reconcileRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.reconcileDuration.Record(ctx, summary.Elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))

	for result, count := range map[string]int{
		"expired":   summary.Expired,
		"completed": summary.Completed,
		"failed":    summary.Failed,
	} {
		if count > 0 {
			m.reconcileAppointments.Add(ctx, int64(count), metric.WithAttributes(attribute.String("result", result)))
		}
	}
}
