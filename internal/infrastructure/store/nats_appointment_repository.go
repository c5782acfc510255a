// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

// maxUpdateAttempts bounds the read-modify-write retries on revision conflicts.
const maxUpdateAttempts = 5

// NatsAppointmentRepository is the NATS KV store repository for appointments.
// Each appointment is stored under its uid, and a unique index maps the
// provider invitee id to that uid.
type NatsAppointmentRepository struct {
	*NatsBaseRepository[models.Appointment]
	keyBuilder *KeyBuilder
	now        func() time.Time
}

// NewNatsAppointmentRepository creates a new NATS KV store repository for appointments.
func NewNatsAppointmentRepository(kvStore INatsKeyValue) *NatsAppointmentRepository {
	return &NatsAppointmentRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Appointment](kvStore, "appointment"),
		keyBuilder:         NewKeyBuilder(""),
		now:                time.Now,
	}
}

func (r *NatsAppointmentRepository) entityKey(appointmentID string) string {
	return r.keyBuilder.EntityKey(KeyPrefixAppointment, appointmentID)
}

func (r *NatsAppointmentRepository) inviteeIndexKey(providerInviteeID string) string {
	return r.keyBuilder.IndexKey(KeyPrefixIndexInvitee, providerInviteeID)
}

// Exists reports whether an appointment holds the provider invitee id.
func (r *NatsAppointmentRepository) Exists(ctx context.Context, providerInviteeID string) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, r.inviteeIndexKey(providerInviteeID))
}

// Create stores a new upcoming appointment. The record is written first and the
// invitee index claimed second, so a crash in between never leaves an index
// pointing at nothing. A lost claim removes the record and returns a Conflict error.
func (r *NatsAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if appointment.ProviderInviteeID == "" {
		return nil, domain.NewValidationError("provider invitee id is required")
	}
	if !appointment.EndTime.After(appointment.StartTime) {
		return nil, domain.NewValidationError("end time must be after start time")
	}

	now := r.now().UTC()
	record := *appointment
	record.AppointmentID = uuid.New().String()
	record.Status = models.AppointmentStatusUpcoming
	record.Duration = models.DurationMinutes(record.StartTime, record.EndTime)
	record.CreatedAt = now
	record.UpdatedAt = now
	record.CancelledAt = nil

	key := r.entityKey(record.AppointmentID)
	if _, err := r.NatsBaseRepository.Create(ctx, key, &record); err != nil {
		return nil, err
	}

	if err := r.ClaimIndex(ctx, r.inviteeIndexKey(record.ProviderInviteeID), record.AppointmentID); err != nil {
		if errDelete := r.DeleteWithoutRevision(ctx, key); errDelete != nil {
			slog.WarnContext(ctx, "failed to remove unindexed appointment",
				logging.ErrKey, errDelete, "appointment_id", record.AppointmentID)
		}
		return nil, err
	}

	return &record, nil
}

// Get retrieves an appointment by uid
func (r *NatsAppointmentRepository) Get(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return r.NatsBaseRepository.Get(ctx, r.entityKey(appointmentID))
}

// GetByInviteeID retrieves the appointment holding the provider invitee id
func (r *NatsAppointmentRepository) GetByInviteeID(ctx context.Context, providerInviteeID string) (*models.Appointment, error) {
	appointmentID, err := r.ResolveIndex(ctx, r.inviteeIndexKey(providerInviteeID))
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError(
				fmt.Sprintf("no appointment for invitee '%s'", providerInviteeID), domain.ErrAppointmentNotFound)
		}
		return nil, err
	}

	appointment, err := r.Get(ctx, appointmentID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError(
				fmt.Sprintf("appointment '%s' indexed for invitee '%s' is missing", appointmentID, providerInviteeID),
				domain.ErrAppointmentNotFound)
		}
		return nil, err
	}
	return appointment, nil
}

// mutate applies change to the latest revision of an appointment, retrying on
// revision conflicts. When change reports false the record is returned as read
// and reported unchanged.
func (r *NatsAppointmentRepository) mutate(ctx context.Context, appointmentID string, change func(a *models.Appointment, now time.Time) bool) (*models.Appointment, bool, error) {
	key := r.entityKey(appointmentID)

	var lastErr error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		appointment, revision, err := r.GetWithRevision(ctx, key)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				return nil, false, domain.NewNotFoundError(
					fmt.Sprintf("appointment '%s' not found", appointmentID), domain.ErrAppointmentNotFound)
			}
			return nil, false, err
		}

		if !change(appointment, r.now().UTC()) {
			return appointment, false, nil
		}

		_, err = r.Update(ctx, key, appointment, revision)
		if err == nil {
			return appointment, true, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, false, err
		}

		lastErr = err
		slog.DebugContext(ctx, "appointment modified concurrently, retrying",
			"appointment_id", appointmentID, "attempt", attempt)
	}

	return nil, false, lastErr
}

// MarkCancelled moves an upcoming appointment to cancelled. Terminal records are
// returned unchanged with changed set to false.
func (r *NatsAppointmentRepository) MarkCancelled(ctx context.Context, appointmentID string) (*models.Appointment, bool, error) {
	return r.mutate(ctx, appointmentID, func(a *models.Appointment, now time.Time) bool {
		if a.Status.IsTerminal() {
			return false
		}
		a.Status = models.AppointmentStatusCancelled
		a.CancelledAt = &now
		a.UpdatedAt = now
		return true
	})
}

// MarkCompleted moves an upcoming appointment to completed. Terminal records are
// returned unchanged with changed set to false.
func (r *NatsAppointmentRepository) MarkCompleted(ctx context.Context, appointmentID string) (*models.Appointment, bool, error) {
	return r.mutate(ctx, appointmentID, func(a *models.Appointment, now time.Time) bool {
		if a.Status != models.AppointmentStatusUpcoming {
			return false
		}
		a.Status = models.AppointmentStatusCompleted
		a.UpdatedAt = now
		return true
	})
}

// Reschedule replaces the times of an appointment without touching its status.
func (r *NatsAppointmentRepository) Reschedule(ctx context.Context, appointmentID string, start, end time.Time, timezone string) (*models.Appointment, error) {
	if !end.After(start) {
		return nil, domain.NewValidationError("end time must be after start time")
	}

	appointment, _, err := r.mutate(ctx, appointmentID, func(a *models.Appointment, now time.Time) bool {
		a.StartTime = start
		a.EndTime = end
		a.Duration = models.DurationMinutes(start, end)
		if timezone != "" {
			a.Timezone = timezone
		}
		a.UpdatedAt = now
		return true
	})
	return appointment, err
}

func (r *NatsAppointmentRepository) listAll(ctx context.Context) ([]*models.Appointment, int, error) {
	return r.ListEntitiesEncoded(ctx, r.keyBuilder.EntityPattern(KeyPrefixAppointment), r.keyBuilder)
}

// ListExpiredUpcoming returns upcoming appointments that ended before now, latest end time first.
func (r *NatsAppointmentRepository) ListExpiredUpcoming(ctx context.Context, now time.Time) ([]*models.Appointment, error) {
	appointments, skipped, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "unreadable appointments left out of expiry listing", "skipped", skipped)
	}

	expired := slices.DeleteFunc(appointments, func(a *models.Appointment) bool {
		return !a.IsExpired(now)
	})
	slices.SortFunc(expired, func(a, b *models.Appointment) int {
		return b.EndTime.Compare(a.EndTime)
	})
	return expired, nil
}

// GetStats counts all appointments by status. Any unreadable record fails the
// count with an Internal error rather than reporting a short total.
func (r *NatsAppointmentRepository) GetStats(ctx context.Context) (*models.AppointmentStats, error) {
	appointments, skipped, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		return nil, domain.NewInternalError(
			fmt.Sprintf("%d appointment records could not be read", skipped), domain.ErrUnmarshal)
	}

	stats := &models.AppointmentStats{}
	for _, appointment := range appointments {
		stats.Add(appointment.Status)
	}
	return stats, nil
}
