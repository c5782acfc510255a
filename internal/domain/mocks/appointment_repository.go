// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// MockAppointmentRepository implements AppointmentRepository for testing
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Exists(ctx context.Context, providerInviteeID string) (bool, error) {
	args := m.Called(ctx, providerInviteeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	args := m.Called(ctx, appointment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Get(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetByInviteeID(ctx context.Context, providerInviteeID string) (*models.Appointment, error) {
	args := m.Called(ctx, providerInviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) MarkCancelled(ctx context.Context, appointmentID string) (*models.Appointment, bool, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Appointment), args.Bool(1), args.Error(2)
}

func (m *MockAppointmentRepository) MarkCompleted(ctx context.Context, appointmentID string) (*models.Appointment, bool, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Appointment), args.Bool(1), args.Error(2)
}

func (m *MockAppointmentRepository) Reschedule(ctx context.Context, appointmentID string, start, end time.Time, timezone string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, start, end, timezone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListExpiredUpcoming(ctx context.Context, now time.Time) ([]*models.Appointment, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetStats(ctx context.Context) (*models.AppointmentStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppointmentStats), args.Error(1)
}
