// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
)

// AppointmentHandler serves the read-only appointment HTTP routes.
type AppointmentHandler struct {
	appointmentService *service.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointmentService *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// HandlerReady reports whether the appointment service can serve queries.
func (h *AppointmentHandler) HandlerReady() bool {
	return h.appointmentService != nil && h.appointmentService.ServiceReady()
}

// HandleGetStats returns the appointment counts by status.
func (h *AppointmentHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.appointmentService.GetStats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error getting appointment stats", logging.ErrKey, err)
		writeError(ctx, w, statusForError(err), "failed to get appointment stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
