// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

func TestIdentityService_ServiceReady(t *testing.T) {
	assert.True(t, NewIdentityService(&mocks.MockUserRepository{}, ServiceConfig{}).ServiceReady())
	assert.False(t, NewIdentityService(nil, ServiceConfig{}).ServiceReady())
}

func TestIdentityService_Resolve(t *testing.T) {
	ctx := context.Background()
	const email = "a@x.com"

	tests := []struct {
		name       string
		email      string
		setupMocks func(*mocks.MockUserRepository)
		expectedID *string
	}{
		{
			name:       "empty email resolves to nothing",
			email:      "",
			setupMocks: func(*mocks.MockUserRepository) {},
		},
		{
			name:  "existing user",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(&models.User{UserID: "user-1", Email: email}, nil)
			},
			expectedID: ptr("user-1"),
		},
		{
			name:  "missing user is created",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewNotFoundError("user not found", domain.ErrUserNotFound))
				repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Email == email && u.FullName == "Ada"
				})).Return(&models.User{UserID: "user-2", Email: email}, nil)
			},
			expectedID: ptr("user-2"),
		},
		{
			name:  "lost creation race re-reads the winner",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewNotFoundError("user not found")).Once()
				repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, domain.NewConflictError("email already claimed"))
				repo.On("GetByEmail", mock.Anything, email).
					Return(&models.User{UserID: "user-3", Email: email}, nil).Once()
			},
			expectedID: ptr("user-3"),
		},
		{
			name:  "lookup failure degrades to no user",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewUnavailableError("store down", domain.ErrServiceUnavailable))
			},
		},
		{
			name:  "create failure degrades to no user",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewNotFoundError("user not found"))
				repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, domain.NewInternalError("write failed"))
			},
		},
		{
			name:  "re-read failure after conflict degrades to no user",
			email: email,
			setupMocks: func(repo *mocks.MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewNotFoundError("user not found")).Once()
				repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, domain.NewConflictError("email already claimed"))
				repo.On("GetByEmail", mock.Anything, email).
					Return(nil, domain.NewUnavailableError("store down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockUserRepository{}
			tt.setupMocks(repo)
			svc := NewIdentityService(repo, ServiceConfig{})

			userID := svc.Resolve(ctx, tt.email, "Ada")

			if tt.expectedID == nil {
				assert.Nil(t, userID)
			} else {
				require.NotNil(t, userID)
				assert.Equal(t, *tt.expectedID, *userID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func ptr(s string) *string {
	return &s
}
