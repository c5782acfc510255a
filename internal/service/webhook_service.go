// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/utils"
)

// Result messages shared by the webhook handlers.
const (
	messageDuplicate           = "duplicate"
	messageCreated             = "appointment created"
	messageCancelled           = "appointment cancelled"
	messageAlreadyTerminal     = "appointment already %s"
	messageRescheduled         = "appointment rescheduled"
	messageNotFound            = "appointment not found"
	messageUnsupportedEvent    = "unsupported event type"
	messageInvalidSignature    = "invalid webhook signature"
	messageServiceUnavailable  = "webhook service not ready"
	messageEndBeforeStart      = "end_time must be after start_time"
	messageMissingFieldsPrefix = "missing required fields: "
)

// WebhookService authenticates scheduling provider deliveries and applies them
// to the appointment store.
type WebhookService struct {
	SignatureVerifier     domain.SignatureVerifier
	AppointmentRepository domain.AppointmentRepository
	IdentityService       *IdentityService
	WebhookLogService     *WebhookLogService
	EventSender           domain.AppointmentEventSender
	Metrics               *Metrics
	Config                ServiceConfig
}

// WebhookRequest represents the webhook processing request
type WebhookRequest struct {
	Signature string
	RawBody   []byte
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	signatureVerifier domain.SignatureVerifier,
	appointmentRepository domain.AppointmentRepository,
	identityService *IdentityService,
	webhookLogService *WebhookLogService,
	eventSender domain.AppointmentEventSender,
	config ServiceConfig,
) *WebhookService {
	return &WebhookService{
		SignatureVerifier:     signatureVerifier,
		AppointmentRepository: appointmentRepository,
		IdentityService:       identityService,
		WebhookLogService:     webhookLogService,
		EventSender:           eventSender,
		Metrics:               globalMetrics(),
		Config:                config.withDefaults(),
	}
}

// ServiceReady checks if the service is ready to process requests.
// Identity resolution and event publishing are optional.
func (s *WebhookService) ServiceReady() bool {
	return s.SignatureVerifier != nil &&
		s.AppointmentRepository != nil &&
		s.WebhookLogService != nil
}

// ProcessWebhook verifies, parses and dispatches one delivery, then records
// exactly one audit entry for it.
func (s *WebhookService) ProcessWebhook(ctx context.Context, req WebhookRequest) *models.WebhookResult {
	ctx, span := tracer.Start(ctx, "WebhookService.ProcessWebhook")
	defer span.End()

	result := s.process(ctx, req)

	span.SetAttributes(
		attribute.String("webhook.event_type", result.EventType),
		attribute.String("webhook.status", string(result.Status)),
		attribute.String("webhook.appointment_id", utils.StringValue(result.AppointmentID)),
	)
	s.Metrics.recordWebhook(ctx, result)
	if s.WebhookLogService != nil {
		s.WebhookLogService.Record(ctx, result, req.RawBody)
	}
	return result
}

func (s *WebhookService) process(ctx context.Context, req WebhookRequest) *models.WebhookResult {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "webhook service not ready", logging.PriorityCritical())
		return errorResult(peekEventType(req.RawBody), models.WebhookErrorKindUnavailable, messageServiceUnavailable)
	}

	if !s.SignatureVerifier.Verify(req.Signature, req.RawBody) {
		eventType := peekEventType(req.RawBody)
		slog.ErrorContext(ctx, "webhook signature verification failed",
			"event_type", eventType,
			"signature_present", req.Signature != "",
		)
		return errorResult(eventType, models.WebhookErrorKindUnauthorized, messageInvalidSignature)
	}

	event, err := models.ParseWebhookEvent(req.RawBody)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse webhook payload", logging.ErrKey, err)
		return errorResult(peekEventType(req.RawBody), models.WebhookErrorKindValidation, err.Error())
	}

	return s.Dispatch(ctx, event)
}

// Dispatch routes a parsed event to its handler. Unsupported event types are skipped.
func (s *WebhookService) Dispatch(ctx context.Context, event models.WebhookEvent) *models.WebhookResult {
	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.EventType()))
	if id := event.ProviderEventID(); id != "" {
		ctx = logging.AppendCtx(ctx, slog.String("provider_event_id", id))
	}

	var result *models.WebhookResult
	switch e := event.(type) {
	case *models.InviteeCreatedEvent:
		result = s.handleInviteeCreated(ctx, e)
	case *models.InviteeCancelledEvent:
		result = s.handleInviteeCancelled(ctx, e)
	case *models.InviteeRescheduledEvent:
		result = s.handleInviteeRescheduled(ctx, e)
	default:
		slog.InfoContext(ctx, "skipping unsupported webhook event type")
		result = skippedResult(event.EventType(), messageUnsupportedEvent)
	}

	if id := event.ProviderEventID(); id != "" {
		result.ProviderEventID = utils.StringPtr(id)
	}
	return result
}

func (s *WebhookService) handleInviteeCreated(ctx context.Context, e *models.InviteeCreatedEvent) *models.WebhookResult {
	if missing := e.MissingFields(); len(missing) > 0 {
		slog.ErrorContext(ctx, "created event is missing required fields", "missing_fields", missing)
		return errorResult(e.Type, models.WebhookErrorKindValidation, messageMissingFieldsPrefix+strings.Join(missing, ", "))
	}
	ctx = logging.AppendCtx(ctx, slog.String("provider_invitee_id", e.InviteeID))

	end := e.EndTime
	if end.IsZero() {
		end = e.StartTime.Add(s.Config.DefaultDuration)
	}
	if !end.After(e.StartTime) {
		slog.ErrorContext(ctx, "created event has end time before start time")
		return errorResult(e.Type, models.WebhookErrorKindValidation, messageEndBeforeStart)
	}

	exists, err := s.exists(ctx, e.InviteeID)
	if err != nil {
		return storeFailure(ctx, e.Type, "failed to check for existing appointment", err)
	}
	if exists {
		slog.InfoContext(ctx, "appointment already recorded for invitee, treating as duplicate")
		return successResult(e.Type, nil, messageDuplicate)
	}

	var userID *string
	if s.IdentityService != nil {
		userID = s.IdentityService.Resolve(ctx, e.Email, e.Name)
	}

	appointment := &models.Appointment{
		UserID:            userID,
		Email:             e.Email,
		ProviderEventID:   e.EventID,
		ProviderInviteeID: e.InviteeID,
		ServiceType:       utils.CoalesceString(e.EventName, s.Config.DefaultServiceType),
		StartTime:         e.StartTime,
		EndTime:           end,
		Timezone:          e.Timezone,
		LeadSource:        s.Config.LeadSource,
	}

	created, err := s.create(ctx, appointment)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeConflict) {
			slog.InfoContext(ctx, "lost creation race for invitee, treating as duplicate")
			return successResult(e.Type, nil, messageDuplicate)
		}
		return storeFailure(ctx, e.Type, "failed to create appointment", err)
	}

	slog.InfoContext(ctx, "appointment created",
		"appointment_id", created.AppointmentID,
		"user_linked", created.UserID != nil,
	)
	s.publish(ctx, models.ActionCreated, created)
	return successResult(e.Type, &created.AppointmentID, messageCreated)
}

func (s *WebhookService) handleInviteeCancelled(ctx context.Context, e *models.InviteeCancelledEvent) *models.WebhookResult {
	if missing := e.MissingFields(); len(missing) > 0 {
		slog.ErrorContext(ctx, "cancelled event is missing required fields", "missing_fields", missing)
		return errorResult(e.Type, models.WebhookErrorKindValidation, messageMissingFieldsPrefix+strings.Join(missing, ", "))
	}
	ctx = logging.AppendCtx(ctx, slog.String("provider_invitee_id", e.InviteeID))

	existing, err := s.getByInviteeID(ctx, e.InviteeID)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			slog.InfoContext(ctx, "no appointment for cancelled invitee, skipping")
			return skippedResult(e.Type, messageNotFound)
		}
		return storeFailure(ctx, e.Type, "failed to look up appointment", err)
	}
	ctx = logging.AppendCtx(ctx, slog.String("appointment_id", existing.AppointmentID))

	var changed bool
	updated, err := s.mutate(ctx, func(ctx context.Context) (appointment *models.Appointment, err error) {
		appointment, changed, err = s.AppointmentRepository.MarkCancelled(ctx, existing.AppointmentID)
		return appointment, err
	})
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			return skippedResult(e.Type, messageNotFound)
		}
		return storeFailure(ctx, e.Type, "failed to cancel appointment", err)
	}

	if updated.Status != models.AppointmentStatusCancelled {
		slog.InfoContext(ctx, "appointment already terminal, cancellation ignored", "status", updated.Status)
		return successResult(e.Type, &updated.AppointmentID, alreadyTerminal(updated.Status))
	}
	if changed {
		slog.InfoContext(ctx, "appointment cancelled")
		s.publish(ctx, models.ActionCancelled, updated)
	}
	return successResult(e.Type, &updated.AppointmentID, messageCancelled)
}

func (s *WebhookService) handleInviteeRescheduled(ctx context.Context, e *models.InviteeRescheduledEvent) *models.WebhookResult {
	if missing := e.MissingFields(); len(missing) > 0 {
		slog.ErrorContext(ctx, "rescheduled event is missing required fields", "missing_fields", missing)
		return errorResult(e.Type, models.WebhookErrorKindValidation, messageMissingFieldsPrefix+strings.Join(missing, ", "))
	}
	if !e.EndTime.After(e.StartTime) {
		slog.ErrorContext(ctx, "rescheduled event has end time before start time")
		return errorResult(e.Type, models.WebhookErrorKindValidation, messageEndBeforeStart)
	}
	ctx = logging.AppendCtx(ctx, slog.String("provider_invitee_id", e.InviteeID))

	existing, err := s.getByInviteeID(ctx, e.InviteeID)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			slog.InfoContext(ctx, "no appointment for rescheduled invitee, skipping")
			return skippedResult(e.Type, messageNotFound)
		}
		return storeFailure(ctx, e.Type, "failed to look up appointment", err)
	}
	ctx = logging.AppendCtx(ctx, slog.String("appointment_id", existing.AppointmentID))

	updated, err := s.mutate(ctx, func(ctx context.Context) (*models.Appointment, error) {
		return s.AppointmentRepository.Reschedule(ctx, existing.AppointmentID, e.StartTime, e.EndTime, e.Timezone)
	})
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			return skippedResult(e.Type, messageNotFound)
		}
		return storeFailure(ctx, e.Type, "failed to reschedule appointment", err)
	}

	slog.InfoContext(ctx, "appointment rescheduled",
		"start_time", updated.StartTime.Format(time.RFC3339),
		"end_time", updated.EndTime.Format(time.RFC3339),
		"status", updated.Status,
	)
	s.publish(ctx, models.ActionRescheduled, updated)
	return successResult(e.Type, &updated.AppointmentID, messageRescheduled)
}

func (s *WebhookService) exists(ctx context.Context, inviteeID string) (bool, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.Exists(ctx, inviteeID)
}

func (s *WebhookService) create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.Create(ctx, appointment)
}

func (s *WebhookService) getByInviteeID(ctx context.Context, inviteeID string) (*models.Appointment, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.GetByInviteeID(ctx, inviteeID)
}

func (s *WebhookService) mutate(ctx context.Context, fn func(context.Context) (*models.Appointment, error)) (*models.Appointment, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return fn(ctx)
}

// publish sends a lifecycle event. Failures are logged only.
func (s *WebhookService) publish(ctx context.Context, action models.MessageAction, appointment *models.Appointment) {
	if s.EventSender == nil {
		return
	}
	if err := s.EventSender.SendAppointmentEvent(ctx, action, *appointment); err != nil {
		slog.WarnContext(ctx, "failed to publish appointment event",
			logging.ErrKey, err,
			"action", action,
		)
	}
}

// peekEventType reads the event type from an unverified or unparseable body for logging.
func peekEventType(raw []byte) string {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Event == "" {
		return models.EventTypeUnknown
	}
	return envelope.Event
}

// storeFailure builds the error result for a failed store call, keeping
// transient unavailability distinct so the caller can ask for a retry.
func storeFailure(ctx context.Context, eventType, message string, err error) *models.WebhookResult {
	kind := models.WebhookErrorKindStore
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		kind = models.WebhookErrorKindValidation
	case domain.ErrorTypeUnavailable:
		kind = models.WebhookErrorKindUnavailable
	}
	slog.ErrorContext(ctx, message, logging.ErrKey, err, "error_kind", kind)
	return errorResult(eventType, kind, message+": "+err.Error())
}

func alreadyTerminal(status models.AppointmentStatus) string {
	return fmt.Sprintf(messageAlreadyTerminal, status)
}

func successResult(eventType string, appointmentID *string, message string) *models.WebhookResult {
	return &models.WebhookResult{
		Status:        models.WebhookStatusSuccess,
		EventType:     eventType,
		AppointmentID: appointmentID,
		Message:       utils.StringPtr(message),
	}
}

func skippedResult(eventType, message string) *models.WebhookResult {
	return &models.WebhookResult{
		Status:    models.WebhookStatusSkipped,
		EventType: eventType,
		Message:   utils.StringPtr(message),
	}
}

func errorResult(eventType string, kind models.WebhookErrorKind, message string) *models.WebhookResult {
	return &models.WebhookResult{
		Status:       models.WebhookStatusError,
		EventType:    eventType,
		ErrorMessage: utils.StringPtr(message),
		ErrorKind:    kind,
	}
}
