// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
)

// OpsHandler answers operational NATS requests: on-demand reconciliation and
// appointment lookups.
type OpsHandler struct {
	appointmentService    *service.AppointmentService
	reconciliationService *service.ReconciliationService
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(
	appointmentService *service.AppointmentService,
	reconciliationService *service.ReconciliationService,
) *OpsHandler {
	return &OpsHandler{
		appointmentService:    appointmentService,
		reconciliationService: reconciliationService,
	}
}

// Subjects lists the subjects this handler should be subscribed to.
func (h *OpsHandler) Subjects() []string {
	return []string{
		models.ReconcileSubject,
		models.AppointmentGetStatsSubject,
		models.AppointmentGetSubject,
	}
}

func (h *OpsHandler) HandlerReady() bool {
	return h.appointmentService != nil && h.appointmentService.ServiceReady() &&
		h.reconciliationService != nil && h.reconciliationService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *OpsHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.ReconcileSubject:           h.HandleReconcile,
		models.AppointmentGetStatsSubject: h.HandleGetStats,
		models.AppointmentGetSubject:      h.HandleGetAppointment,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		h.respond(ctx, msg, nil)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		response, _ = json.Marshal(opsErrorResponse{
			Error:     err.Error(),
			ErrorType: domain.GetErrorType(err).String(),
		})
	}
	h.respond(ctx, msg, response)
}

type opsErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

func (h *OpsHandler) respond(ctx context.Context, msg domain.Message, response []byte) {
	if !msg.HasReply() {
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return
	}
	slog.DebugContext(ctx, "responded to NATS message", "response_bytes", len(response))
}

// HandleReconcile runs one reconciliation sweep and replies with its summary.
func (h *OpsHandler) HandleReconcile(ctx context.Context, _ domain.Message) ([]byte, error) {
	if h.reconciliationService == nil {
		return nil, domain.NewUnavailableError("reconciliation service not configured", domain.ErrServiceUnavailable)
	}
	summary := h.reconciliationService.Run(ctx)
	return json.Marshal(summary)
}

// HandleGetStats replies with the appointment counts by status.
func (h *OpsHandler) HandleGetStats(ctx context.Context, _ domain.Message) ([]byte, error) {
	if h.appointmentService == nil {
		return nil, domain.NewUnavailableError("appointment service not configured", domain.ErrServiceUnavailable)
	}
	stats, err := h.appointmentService.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stats)
}

// HandleGetAppointment replies with the appointment whose id is the message body.
func (h *OpsHandler) HandleGetAppointment(ctx context.Context, msg domain.Message) ([]byte, error) {
	if h.appointmentService == nil {
		return nil, domain.NewUnavailableError("appointment service not configured", domain.ErrServiceUnavailable)
	}
	appointmentID := strings.TrimSpace(string(msg.Data()))
	ctx = logging.AppendCtx(ctx, slog.String("appointment_id", appointmentID))

	appointment, err := h.appointmentService.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return json.Marshal(appointment)
}
