// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

// NatsUserRepository is the NATS KV store repository for users, indexed by email.
type NatsUserRepository struct {
	*NatsBaseRepository[models.User]
	keyBuilder *KeyBuilder
}

// NewNatsUserRepository creates a new NATS KV store repository for users.
func NewNatsUserRepository(kvStore INatsKeyValue) *NatsUserRepository {
	return &NatsUserRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.User](kvStore, "user"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// GetByEmail retrieves the user holding the email
func (r *NatsUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	userID, err := r.ResolveIndex(ctx, r.keyBuilder.IndexKey(KeyPrefixIndexEmail, email))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError(fmt.Sprintf("no user with email '%s'", email), domain.ErrUserNotFound)
		}
		return nil, err
	}

	user, err := r.Get(ctx, r.keyBuilder.EntityKey(KeyPrefixUser, userID))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError(fmt.Sprintf("user '%s' indexed for email is missing", userID), domain.ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// Create stores a user and claims its email. When the email is already
// claimed the new record is removed and a Conflict error is returned.
func (r *NatsUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Email == "" {
		return nil, domain.NewValidationError("user email is required")
	}

	record := *user
	if record.UserID == "" {
		record.UserID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	key := r.keyBuilder.EntityKey(KeyPrefixUser, record.UserID)
	if _, err := r.NatsBaseRepository.Create(ctx, key, &record); err != nil {
		return nil, err
	}

	if err := r.ClaimIndex(ctx, r.keyBuilder.IndexKey(KeyPrefixIndexEmail, record.Email), record.UserID); err != nil {
		if errDelete := r.DeleteWithoutRevision(ctx, key); errDelete != nil {
			slog.WarnContext(ctx, "failed to remove unindexed user",
				logging.ErrKey, errDelete, "user_id", record.UserID)
		}
		return nil, err
	}

	return &record, nil
}
