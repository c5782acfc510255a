// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/webhook"
)

const scenarioSecret = "s3cret"

type scenario struct {
	t              *testing.T
	appointments   *store.NatsAppointmentRepository
	users          *store.MemoryKeyValue
	logs           *WebhookLogService
	webhooks       *WebhookService
	reconciliation *ReconciliationService
}

func newScenario(t *testing.T) *scenario {
	config := ServiceConfig{}
	appointments := store.NewNatsAppointmentRepository(store.NewMemoryKeyValue(store.KVStoreNameAppointments))
	usersKV := store.NewMemoryKeyValue(store.KVStoreNameUsers)
	logs := NewWebhookLogService(
		store.NewNatsWebhookLogRepository(store.NewMemoryKeyValue(store.KVStoreNameWebhookLogs)), config)

	return &scenario{
		t:            t,
		appointments: appointments,
		users:        usersKV,
		logs:         logs,
		webhooks: NewWebhookService(
			webhook.NewSignatureVerifier(scenarioSecret),
			appointments,
			NewIdentityService(store.NewNatsUserRepository(usersKV), config),
			logs,
			nil,
			config,
		),
		reconciliation: NewReconciliationService(appointments, nil, config),
	}
}

func (s *scenario) deliver(body string) *models.WebhookResult {
	raw := []byte(body)
	return s.webhooks.ProcessWebhook(context.Background(), WebhookRequest{
		Signature: webhook.SignHex(raw, scenarioSecret),
		RawBody:   raw,
	})
}

func (s *scenario) stats() *models.AppointmentStats {
	stats, err := s.appointments.GetStats(context.Background())
	require.NoError(s.t, err)
	return stats
}

func (s *scenario) logCount() int {
	entries, err := s.logs.List(context.Background())
	require.NoError(s.t, err)
	return len(entries)
}

func inviteeURI(inviteeID string) string {
	return "https://api.calendly.com/scheduled_events/evt_1/invitees/" + inviteeID
}

func createdPayload(inviteeID string, start, end time.Time) string {
	return fmt.Sprintf(`{
		"event": "invitee.created",
		"created_at": "2025-01-10T09:00:00Z",
		"data": {
			"event": {"uri": "https://api.calendly.com/scheduled_events/evt_1", "name": "Intro Call"},
			"invitee": {
				"uri": %q,
				"email": "a@x.com",
				"name": "Ada",
				"timezone": "UTC",
				"start_time": %q,
				"end_time": %q
			}
		}
	}`, inviteeURI(inviteeID), start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func cancelledPayload(inviteeID string) string {
	return fmt.Sprintf(`{"event":"invitee.canceled","data":{"invitee":{"uri":%q}}}`, inviteeURI(inviteeID))
}

func rescheduledPayload(inviteeID string, start, end time.Time) string {
	return fmt.Sprintf(`{"event":"invitee.rescheduled","data":{"invitee":{"uri":%q,"timezone":"Europe/Berlin","start_time":%q,"end_time":%q}}}`,
		inviteeURI(inviteeID), start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestScenario_CreateCancelRedeliver(t *testing.T) {
	s := newScenario(t)
	start := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	first := s.deliver(createdPayload("inv_1", start, end))
	require.Equal(t, models.WebhookStatusSuccess, first.Status)
	require.NotNil(t, first.AppointmentID)

	duplicate := s.deliver(createdPayload("inv_1", start, end))
	assert.Equal(t, models.WebhookStatusSuccess, duplicate.Status)
	assert.Equal(t, messageDuplicate, *duplicate.Message)

	cancelled := s.deliver(cancelledPayload("inv_1"))
	assert.Equal(t, models.WebhookStatusSuccess, cancelled.Status)

	// A late redelivery of the original booking must not revive it.
	redelivered := s.deliver(createdPayload("inv_1", start, end))
	assert.Equal(t, models.WebhookStatusSuccess, redelivered.Status)
	assert.Equal(t, messageDuplicate, *redelivered.Message)

	stored, err := s.appointments.GetByInviteeID(context.Background(), "inv_1")
	require.NoError(t, err)
	assert.Equal(t, *first.AppointmentID, stored.AppointmentID)
	assert.Equal(t, models.AppointmentStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	assert.Equal(t, "Intro Call", stored.ServiceType)
	assert.Equal(t, 45, stored.Duration)
	require.NotNil(t, stored.UserID)

	assert.Equal(t, &models.AppointmentStats{Total: 1, Cancelled: 1}, s.stats())
	assert.Equal(t, 4, s.logCount())
}

func TestScenario_CancelBeforeCreate(t *testing.T) {
	s := newScenario(t)
	start := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)

	early := s.deliver(cancelledPayload("inv_2"))
	assert.Equal(t, models.WebhookStatusSkipped, early.Status)
	assert.Zero(t, s.stats().Total)

	created := s.deliver(createdPayload("inv_2", start, start.Add(time.Hour)))
	assert.Equal(t, models.WebhookStatusSuccess, created.Status)
	assert.Equal(t, &models.AppointmentStats{Total: 1, Upcoming: 1}, s.stats())
	assert.Equal(t, 2, s.logCount())
}

func TestScenario_RescheduleKeepsTerminalStatus(t *testing.T) {
	s := newScenario(t)
	start := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)
	newStart := start.Add(48 * time.Hour)
	newEnd := newStart.Add(30 * time.Minute)

	require.Equal(t, models.WebhookStatusSuccess, s.deliver(createdPayload("inv_3", start, start.Add(time.Hour))).Status)
	require.Equal(t, models.WebhookStatusSuccess, s.deliver(cancelledPayload("inv_3")).Status)

	result := s.deliver(rescheduledPayload("inv_3", newStart, newEnd))
	assert.Equal(t, models.WebhookStatusSuccess, result.Status)

	stored, err := s.appointments.GetByInviteeID(context.Background(), "inv_3")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, stored.Status)
	assert.True(t, stored.StartTime.Equal(newStart))
	assert.True(t, stored.EndTime.Equal(newEnd))
	assert.Equal(t, 30, stored.Duration)
	assert.Equal(t, "Europe/Berlin", stored.Timezone)
}

func TestScenario_TamperedBodyIsRejected(t *testing.T) {
	s := newScenario(t)
	start := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)
	raw := []byte(createdPayload("inv_4", start, start.Add(time.Hour)))
	signature := webhook.SignHex(raw, scenarioSecret)
	raw[len(raw)-2] = ' '

	result := s.webhooks.ProcessWebhook(context.Background(), WebhookRequest{Signature: signature, RawBody: raw})

	assert.Equal(t, models.WebhookErrorKindUnauthorized, result.ErrorKind)
	assert.Zero(t, s.stats().Total)
	assert.Zero(t, s.users.Len())
	assert.Equal(t, 1, s.logCount())
}

func TestScenario_ConcurrentDuplicateDeliveries(t *testing.T) {
	s := newScenario(t)
	start := time.Date(2030, 1, 15, 10, 0, 0, 0, time.UTC)
	body := createdPayload("inv_5", start, start.Add(time.Hour))

	const deliveries = 6
	results := make([]*models.WebhookResult, deliveries)
	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.deliver(body)
		}()
	}
	wg.Wait()

	created := 0
	for _, result := range results {
		require.Equal(t, models.WebhookStatusSuccess, result.Status)
		if *result.Message == messageCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, s.stats().Total)
	assert.Equal(t, deliveries, s.logCount())
}

func TestScenario_ReconciliationBoundary(t *testing.T) {
	s := newScenario(t)
	now := time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)
	s.reconciliation.now = func() time.Time { return now }

	cases := map[string]time.Time{
		"inv_past_second": now.Add(-time.Second),
		"inv_future":      now.Add(time.Second),
		"inv_past_hour":   now.Add(-time.Hour),
	}
	for inviteeID, end := range cases {
		result := s.deliver(createdPayload(inviteeID, end.Add(-30*time.Minute), end))
		require.Equal(t, models.WebhookStatusSuccess, result.Status)
	}

	summary := s.reconciliation.Run(context.Background())

	assert.Equal(t, 2, summary.Expired)
	assert.Equal(t, 2, summary.Completed)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, &models.AppointmentStats{Total: 3, Upcoming: 3}, summary.Before)
	assert.Equal(t, &models.AppointmentStats{Total: 3, Upcoming: 1, Completed: 2}, summary.After)

	future, err := s.appointments.GetByInviteeID(context.Background(), "inv_future")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusUpcoming, future.Status)

	again := s.reconciliation.Run(context.Background())
	assert.Zero(t, again.Expired)
}
