// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// MockAppointmentEventSender implements AppointmentEventSender for testing
type MockAppointmentEventSender struct {
	mock.Mock
}

func (m *MockAppointmentEventSender) SendAppointmentEvent(ctx context.Context, action models.MessageAction, appointment models.Appointment) error {
	args := m.Called(ctx, action, appointment)
	return args.Error(0)
}

// MockSignatureVerifier implements SignatureVerifier for testing
type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) Verify(signature string, body []byte) bool {
	args := m.Called(signature, body)
	return args.Bool(0)
}
