// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/concurrent"
)

// ReconciliationService moves upcoming appointments whose end time has passed to completed.
type ReconciliationService struct {
	AppointmentRepository domain.AppointmentRepository
	EventSender           domain.AppointmentEventSender
	WorkerPool            *concurrent.WorkerPool
	Metrics               *Metrics
	Config                ServiceConfig

	now func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	appointmentRepository domain.AppointmentRepository,
	eventSender domain.AppointmentEventSender,
	config ServiceConfig,
) *ReconciliationService {
	config = config.withDefaults()
	return &ReconciliationService{
		AppointmentRepository: appointmentRepository,
		EventSender:           eventSender,
		WorkerPool:            concurrent.NewWorkerPool(config.ReconcileWorkers),
		Metrics:               globalMetrics(),
		Config:                config,
		now:                   time.Now,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *ReconciliationService) ServiceReady() bool {
	return s.AppointmentRepository != nil && s.WorkerPool != nil
}

// Run performs one reconciliation sweep. It never returns an error or panics:
// store failures are recorded on the summary and per-record failures are
// counted without stopping the sweep.
func (s *ReconciliationService) Run(ctx context.Context) (summary models.ReconciliationSummary) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Run")
	defer span.End()

	started := s.clock()
	summary.StartedAt = started

	defer func() {
		if r := recover(); r != nil {
			summary.Error = fmt.Sprintf("reconciliation panic: %v", r)
			slog.ErrorContext(ctx, "reconciliation run panicked", "panic", r, logging.PriorityCritical())
		}
		summary.Elapsed = s.clock().Sub(started)
		span.SetAttributes(
			attribute.Int("reconcile.expired", summary.Expired),
			attribute.Int("reconcile.completed", summary.Completed),
			attribute.Int("reconcile.failed", summary.Failed),
		)
		s.Metrics.recordReconcile(ctx, summary)
		s.logSummary(ctx, summary)
	}()

	if !s.ServiceReady() {
		summary.Error = "reconciliation service not ready"
		return summary
	}

	summary.Before = s.stats(ctx)

	expired, err := s.listExpired(ctx, started)
	if err != nil {
		summary.Error = err.Error()
		return summary
	}
	summary.Expired = len(expired)

	var completed atomic.Int64
	errs := concurrent.ForEach(ctx, s.WorkerPool, expired, func(ctx context.Context, appointment *models.Appointment) error {
		updated, changed, err := s.markCompleted(ctx, appointment.AppointmentID)
		if err != nil {
			return err
		}
		// Another sweep or a cancellation may have reached the record first.
		if !changed {
			slog.DebugContext(ctx, "expired appointment already terminal",
				"appointment_id", updated.AppointmentID, "status", updated.Status)
			return nil
		}
		completed.Add(1)
		s.publish(ctx, updated)
		return nil
	})
	for i, err := range errs {
		if err != nil {
			summary.Failed++
			slog.WarnContext(ctx, "failed to complete expired appointment",
				logging.ErrKey, err,
				"appointment_id", expired[i].AppointmentID,
			)
		}
	}
	summary.Completed = int(completed.Load())

	summary.After = s.stats(ctx)
	return summary
}

func (s *ReconciliationService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// stats is diagnostic only; a failure yields nil.
func (s *ReconciliationService) stats(ctx context.Context) *models.AppointmentStats {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	stats, err := s.AppointmentRepository.GetStats(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to snapshot appointment stats", logging.ErrKey, err)
		return nil
	}
	return stats
}

func (s *ReconciliationService) listExpired(ctx context.Context, now time.Time) ([]*models.Appointment, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.ListExpiredUpcoming(ctx, now)
}

func (s *ReconciliationService) markCompleted(ctx context.Context, appointmentID string) (*models.Appointment, bool, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.MarkCompleted(ctx, appointmentID)
}

func (s *ReconciliationService) publish(ctx context.Context, appointment *models.Appointment) {
	if s.EventSender == nil {
		return
	}
	if err := s.EventSender.SendAppointmentEvent(ctx, models.ActionCompleted, *appointment); err != nil {
		slog.WarnContext(ctx, "failed to publish appointment event",
			logging.ErrKey, err,
			"action", models.ActionCompleted,
			"appointment_id", appointment.AppointmentID,
		)
	}
}

func (s *ReconciliationService) logSummary(ctx context.Context, summary models.ReconciliationSummary) {
	attrs := []any{
		"elapsed_ms", summary.Elapsed.Milliseconds(),
		"expired", summary.Expired,
		"completed", summary.Completed,
		"failed", summary.Failed,
	}
	if summary.Before != nil {
		attrs = append(attrs, "upcoming_before", summary.Before.Upcoming)
	}
	if summary.After != nil {
		attrs = append(attrs, "upcoming_after", summary.After.Upcoming)
	}
	if summary.Error != "" {
		attrs = append(attrs, logging.ErrKey, summary.Error)
		slog.ErrorContext(ctx, "reconciliation run failed", attrs...)
		return
	}
	slog.InfoContext(ctx, "reconciliation run finished", attrs...)
}
