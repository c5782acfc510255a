// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// MockWebhookLogRepository implements WebhookLogRepository for testing
type MockWebhookLogRepository struct {
	mock.Mock
}

func (m *MockWebhookLogRepository) Append(ctx context.Context, entry *models.WebhookLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWebhookLogRepository) List(ctx context.Context) ([]*models.WebhookLogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WebhookLogEntry), args.Error(1)
}
