// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/constants"
)

// unauthorizedMessage is returned for every failed signature check, without detail.
const unauthorizedMessage = "unauthorized"

// WebhookHandler is the HTTP entry point for scheduling provider deliveries.
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandlerReady reports whether the webhook service can process deliveries.
func (h *WebhookHandler) HandlerReady() bool {
	return h.webhookService != nil && h.webhookService.ServiceReady()
}

// HandleWebhook processes one delivery and answers with the result envelope.
// Accepted results are 200 so the provider stops retrying; validation errors
// are 400 and store failures 5xx so only transient failures are retried.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes))
		if err != nil {
			slog.WarnContext(ctx, "failed to read webhook body", logging.ErrKey, err)
			writeError(ctx, w, http.StatusBadRequest, "failed to read request body")
			return
		}
	}

	result := h.webhookService.ProcessWebhook(ctx, service.WebhookRequest{
		Signature: r.Header.Get(constants.WebhookSignatureHeader),
		RawBody:   body,
	})

	status := statusForResult(result)
	if result.ErrorKind == models.WebhookErrorKindUnauthorized {
		writeError(ctx, w, status, unauthorizedMessage)
		return
	}
	writeJSON(ctx, w, status, result)
}

// statusForResult maps a dispatch outcome to its HTTP status.
func statusForResult(result *models.WebhookResult) int {
	if result.Accepted() {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case models.WebhookErrorKindUnauthorized:
		return http.StatusUnauthorized
	case models.WebhookErrorKindValidation:
		return http.StatusBadRequest
	case models.WebhookErrorKindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
