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

// IdentityService maps invitee emails to user ids, creating users on first sight.
// It is best-effort: every failure resolves to no user rather than an error.
type IdentityService struct {
	UserRepository domain.UserRepository
	Config         ServiceConfig
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(userRepository domain.UserRepository, config ServiceConfig) *IdentityService {
	return &IdentityService{
		UserRepository: userRepository,
		Config:         config.withDefaults(),
	}
}

// ServiceReady checks if the service is ready for use.
func (s *IdentityService) ServiceReady() bool {
	return s.UserRepository != nil
}

// Resolve returns the id of the user with the given email, creating the user when
// none exists. It returns nil when the email is empty or the store fails.
func (s *IdentityService) Resolve(ctx context.Context, email, displayName string) *string {
	if email == "" || !s.ServiceReady() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "IdentityService.Resolve")
	defer span.End()

	if user, err := s.lookup(ctx, email); err == nil {
		return &user.UserID
	} else if !domain.IsErrorType(err, domain.ErrorTypeNotFound) {
		slog.WarnContext(ctx, "user lookup failed, continuing without user", logging.ErrKey, err)
		return nil
	}

	user, err := s.create(ctx, email, displayName)
	if err == nil {
		slog.DebugContext(ctx, "created user for invitee", "user_id", user.UserID)
		return &user.UserID
	}
	if !domain.IsErrorType(err, domain.ErrorTypeConflict) {
		slog.WarnContext(ctx, "user creation failed, continuing without user", logging.ErrKey, err)
		return nil
	}

	// Another request claimed the email first.
	user, err = s.lookup(ctx, email)
	if err != nil {
		slog.WarnContext(ctx, "user lookup after conflict failed, continuing without user", logging.ErrKey, err)
		return nil
	}
	return &user.UserID
}

func (s *IdentityService) lookup(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.UserRepository.GetByEmail(ctx, email)
}

func (s *IdentityService) create(ctx context.Context, email, displayName string) (*models.User, error) {
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.UserRepository.Create(ctx, &models.User{
		FullName: displayName,
		Email:    email,
	})
}
