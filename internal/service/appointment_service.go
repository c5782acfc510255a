// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// AppointmentService serves read-only appointment queries.
type AppointmentService struct {
	AppointmentRepository domain.AppointmentRepository
	Config                ServiceConfig
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(appointmentRepository domain.AppointmentRepository, config ServiceConfig) *AppointmentService {
	return &AppointmentService{
		AppointmentRepository: appointmentRepository,
		Config:                config.withDefaults(),
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AppointmentService) ServiceReady() bool {
	return s.AppointmentRepository != nil
}

// GetStats returns the count of appointments by status.
func (s *AppointmentService) GetStats(ctx context.Context) (*models.AppointmentStats, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("appointment service not ready", domain.ErrServiceUnavailable)
	}
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.GetStats(ctx)
}

// GetAppointment returns one appointment by its id.
func (s *AppointmentService) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("appointment service not ready", domain.ErrServiceUnavailable)
	}
	if _, err := uuid.Parse(appointmentID); err != nil {
		return nil, domain.NewValidationError("appointment id must be a UUID", err)
	}
	ctx, cancel := s.Config.storeContext(ctx)
	defer cancel()
	return s.AppointmentRepository.Get(ctx, appointmentID)
}
