// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// NatsWebhookLogRepository is the append-only NATS KV store for webhook audit entries.
type NatsWebhookLogRepository struct {
	*NatsBaseRepository[models.WebhookLogEntry]
	keyBuilder *KeyBuilder
}

// NewNatsWebhookLogRepository creates a new NATS KV store repository for webhook logs.
func NewNatsWebhookLogRepository(kvStore INatsKeyValue) *NatsWebhookLogRepository {
	return &NatsWebhookLogRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.WebhookLogEntry](kvStore, "webhook log"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// Append stores a new entry, assigning its id and processing time when unset.
func (r *NatsWebhookLogRepository) Append(ctx context.Context, entry *models.WebhookLogEntry) error {
	if entry.LogID == "" {
		entry.LogID = uuid.New().String()
	}
	if entry.ProcessedAt.IsZero() {
		entry.ProcessedAt = time.Now().UTC()
	}

	_, err := r.Create(ctx, r.keyBuilder.EntityKey(KeyPrefixWebhookLog, entry.LogID), entry)
	return err
}

// List returns every entry, oldest first.
func (r *NatsWebhookLogRepository) List(ctx context.Context) ([]*models.WebhookLogEntry, error) {
	entries, _, err := r.ListEntitiesEncoded(ctx, r.keyBuilder.EntityPattern(KeyPrefixWebhookLog), r.keyBuilder)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b *models.WebhookLogEntry) int {
		return a.ProcessedAt.Compare(b.ProcessedAt)
	})
	return entries, nil
}
