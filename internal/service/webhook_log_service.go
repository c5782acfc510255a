// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

// WebhookLogService writes the audit entry for each webhook processing attempt.
type WebhookLogService struct {
	WebhookLogRepository domain.WebhookLogRepository
	Config               ServiceConfig
}

// NewWebhookLogService creates a new WebhookLogService.
func NewWebhookLogService(webhookLogRepository domain.WebhookLogRepository, config ServiceConfig) *WebhookLogService {
	return &WebhookLogService{
		WebhookLogRepository: webhookLogRepository,
		Config:               config.withDefaults(),
	}
}

// ServiceReady checks if the service is ready for use.
func (s *WebhookLogService) ServiceReady() bool {
	return s.WebhookLogRepository != nil
}

// Record appends one log entry describing result. The write is detached from
// ctx cancellation so an aborted request still leaves its audit entry. Failures
// are logged and never returned.
func (s *WebhookLogService) Record(ctx context.Context, result *models.WebhookResult, rawPayload []byte) {
	if !s.ServiceReady() || result == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config.LogTimeout)
	defer cancel()

	entry := &models.WebhookLogEntry{
		EventType:       result.EventType,
		ProviderEventID: result.ProviderEventID,
		Status:          result.Status,
		ErrorMessage:    result.ErrorMessage,
		RawPayload:      rawPayload,
	}
	if err := s.WebhookLogRepository.Append(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to write webhook log entry",
			logging.ErrKey, err,
			"event_type", result.EventType,
			"status", result.Status,
			logging.PriorityCritical(),
		)
		return
	}
	slog.DebugContext(ctx, "webhook log entry written", "log_id", entry.LogID)
}

// List returns every recorded entry, oldest first.
func (s *WebhookLogService) List(ctx context.Context) ([]*models.WebhookLogEntry, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("webhook log service not ready", domain.ErrServiceUnavailable)
	}
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.WebhookLogRepository.List(ctx)
}
