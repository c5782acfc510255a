// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/constants"
)

// INatsConn is the NATS connection interface needed to publish lifecycle events.
type INatsConn interface {
	IsConnected() bool
	PublishMsg(msg *nats.Msg) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
	now      func() time.Time
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
		now:      time.Now,
	}
}

// subjectForAction maps a lifecycle action to its subject.
func subjectForAction(action models.MessageAction) (string, error) {
	switch action {
	case models.ActionCreated:
		return models.AppointmentCreatedSubject, nil
	case models.ActionCancelled:
		return models.AppointmentCancelledSubject, nil
	case models.ActionRescheduled:
		return models.AppointmentRescheduledSubject, nil
	case models.ActionCompleted:
		return models.AppointmentCompletedSubject, nil
	}
	return "", fmt.Errorf("unknown appointment action %q", action)
}

// sendMessage sends the message to the NATS server, carrying the request id
// and trace context as headers.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		return domain.NewUnavailableError("NATS connection is not available")
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if requestID, ok := ctx.Value(constants.RequestIDContextID).(string); ok && requestID != "" {
		msg.Header.Set(constants.RequestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	if err := m.NatsConn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// SendAppointmentEvent publishes an appointment lifecycle event.
func (m *MessageBuilder) SendAppointmentEvent(ctx context.Context, action models.MessageAction, appointment models.Appointment) error {
	subject, err := subjectForAction(action)
	if err != nil {
		return domain.NewValidationError(err.Error())
	}

	message := models.AppointmentEventMessage{
		Action:      action,
		Appointment: appointment,
		OccurredAt:  m.now().UTC(),
	}
	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	return m.sendMessage(ctx, subject, messageBytes)
}
