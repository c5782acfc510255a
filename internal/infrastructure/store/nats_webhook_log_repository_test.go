// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/utils"
)

var _ domain.WebhookLogRepository = (*NatsWebhookLogRepository)(nil)

func TestNatsWebhookLogRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsWebhookLogRepository(newMockNatsKeyValue())

	later := &models.WebhookLogEntry{
		EventType:   models.EventTypeInviteeCancelled,
		Status:      models.WebhookStatusSkipped,
		ProcessedAt: time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC),
	}
	earlier := &models.WebhookLogEntry{
		EventType:       models.EventTypeInviteeCreated,
		ProviderEventID: utils.StringPtr("evt_1"),
		Status:          models.WebhookStatusSuccess,
		RawPayload:      []byte(`{"event":"invitee.created"}`),
		ProcessedAt:     time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Append(ctx, later))
	require.NoError(t, repo.Append(ctx, earlier))
	assert.NotEmpty(t, later.LogID)
	assert.NotEqual(t, later.LogID, earlier.LogID)

	entries, err := repo.List(ctx)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, earlier, entries[0])
	assert.Equal(t, later, entries[1])
}

func TestNatsWebhookLogRepository_AppendSetsProcessedAt(t *testing.T) {
	repo := NewNatsWebhookLogRepository(newMockNatsKeyValue())
	entry := &models.WebhookLogEntry{EventType: models.EventTypeUnknown, Status: models.WebhookStatusError}

	require.NoError(t, repo.Append(context.Background(), entry))

	assert.False(t, entry.ProcessedAt.IsZero())
}
