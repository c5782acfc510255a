// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
)

func setupOpsHandlerForTesting() (*OpsHandler, *mocks.MockAppointmentRepository) {
	repo := &mocks.MockAppointmentRepository{}
	config := service.ServiceConfig{}
	return NewOpsHandler(
		service.NewAppointmentService(repo, config),
		service.NewReconciliationService(repo, nil, config),
	), repo
}

func TestOpsHandler_Subjects(t *testing.T) {
	h, _ := setupOpsHandlerForTesting()
	assert.ElementsMatch(t, []string{
		models.ReconcileSubject,
		models.AppointmentGetStatsSubject,
		models.AppointmentGetSubject,
	}, h.Subjects())
	assert.True(t, h.HandlerReady())
	assert.False(t, NewOpsHandler(nil, nil).HandlerReady())
}

func TestOpsHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("reconcile replies with the run summary", func(t *testing.T) {
		h, repo := setupOpsHandlerForTesting()
		repo.On("GetStats", mock.Anything).Return(&models.AppointmentStats{Total: 1, Upcoming: 1}, nil)
		repo.On("ListExpiredUpcoming", mock.Anything, mock.Anything).Return([]*models.Appointment{}, nil)

		var response []byte
		h.HandleMessage(ctx, mocks.NewMockRequest(nil, models.ReconcileSubject, &response))

		var summary models.ReconciliationSummary
		require.NoError(t, json.Unmarshal(response, &summary))
		assert.Zero(t, summary.Expired)
		assert.Equal(t, 1, summary.Before.Upcoming)
		assert.Empty(t, summary.Error)
	})

	t.Run("get_stats replies with counts", func(t *testing.T) {
		h, repo := setupOpsHandlerForTesting()
		repo.On("GetStats", mock.Anything).Return(&models.AppointmentStats{Total: 4, Completed: 4}, nil)

		var response []byte
		h.HandleMessage(ctx, mocks.NewMockRequest(nil, models.AppointmentGetStatsSubject, &response))

		var stats models.AppointmentStats
		require.NoError(t, json.Unmarshal(response, &stats))
		assert.Equal(t, models.AppointmentStats{Total: 4, Completed: 4}, stats)
	})

	t.Run("get_appointment replies with the record", func(t *testing.T) {
		h, repo := setupOpsHandlerForTesting()
		id := uuid.NewString()
		repo.On("Get", mock.Anything, id).Return(&models.Appointment{AppointmentID: id, ProviderInviteeID: "inv_1"}, nil)

		var response []byte
		h.HandleMessage(ctx, mocks.NewMockRequest([]byte(" "+id+"\n"), models.AppointmentGetSubject, &response))

		var appointment models.Appointment
		require.NoError(t, json.Unmarshal(response, &appointment))
		assert.Equal(t, id, appointment.AppointmentID)
		assert.Equal(t, "inv_1", appointment.ProviderInviteeID)
	})

	t.Run("errors are answered with their type", func(t *testing.T) {
		tests := []struct {
			name         string
			data         string
			setup        func(repo *mocks.MockAppointmentRepository, id string)
			expectedType string
		}{
			{
				name:         "invalid id",
				data:         "nope",
				setup:        func(*mocks.MockAppointmentRepository, string) {},
				expectedType: "validation",
			},
			{
				name: "not found",
				setup: func(repo *mocks.MockAppointmentRepository, id string) {
					repo.On("Get", mock.Anything, id).Return(nil, domain.NewNotFoundError("appointment not found", domain.ErrAppointmentNotFound))
				},
				expectedType: "not_found",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h, repo := setupOpsHandlerForTesting()
				data := tt.data
				if data == "" {
					data = uuid.NewString()
				}
				tt.setup(repo, data)

				var response []byte
				h.HandleMessage(ctx, mocks.NewMockRequest([]byte(data), models.AppointmentGetSubject, &response))

				var errResp opsErrorResponse
				require.NoError(t, json.Unmarshal(response, &errResp))
				assert.Equal(t, tt.expectedType, errResp.ErrorType)
				assert.NotEmpty(t, errResp.Error)
			})
		}
	})

	t.Run("unknown subject gets an empty reply", func(t *testing.T) {
		h, _ := setupOpsHandlerForTesting()
		response := []byte("unset")

		msg := mocks.NewMockRequest(nil, "lfx.appointment-api.unknown", &response)
		h.HandleMessage(ctx, msg)

		assert.Nil(t, response)
		msg.AssertCalled(t, "Respond", mock.Anything)
	})

	t.Run("messages without a reply subject are not answered", func(t *testing.T) {
		h, repo := setupOpsHandlerForTesting()
		repo.On("GetStats", mock.Anything).Return(&models.AppointmentStats{}, nil)
		msg := mocks.NewMockMessage(nil, models.AppointmentGetStatsSubject)
		msg.On("HasReply").Return(false)

		h.HandleMessage(ctx, msg)

		msg.AssertNotCalled(t, "Respond", mock.Anything)
	})

	t.Run("unconfigured services report unavailable", func(t *testing.T) {
		h := NewOpsHandler(nil, nil)

		var response []byte
		h.HandleMessage(ctx, mocks.NewMockRequest(nil, models.ReconcileSubject, &response))

		var errResp opsErrorResponse
		require.NoError(t, json.Unmarshal(response, &errResp))
		assert.Equal(t, "unavailable", errResp.ErrorType)
	})
}
