// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
)

// AppointmentRepository defines the storage contract for appointments and their state machine.
// Only upcoming -> completed and upcoming -> cancelled transitions are performed; terminal
// records are returned unchanged by the mutating operations.
type AppointmentRepository interface {
	// Exists reports whether an appointment is recorded for the provider invitee.
	Exists(ctx context.Context, providerInviteeID string) (bool, error)
	// Create records a new upcoming appointment, claiming its provider invitee id.
	// A Conflict DomainError is returned when the id was already claimed.
	Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	Get(ctx context.Context, appointmentID string) (*models.Appointment, error)
	// GetByInviteeID returns a NotFound DomainError when no appointment exists.
	GetByInviteeID(ctx context.Context, providerInviteeID string) (*models.Appointment, error)
	// MarkCancelled and MarkCompleted report changed only when this call performed
	// the transition, so a caller racing another writer can tell the two apart.
	MarkCancelled(ctx context.Context, appointmentID string) (appointment *models.Appointment, changed bool, err error)
	MarkCompleted(ctx context.Context, appointmentID string) (appointment *models.Appointment, changed bool, err error)
	Reschedule(ctx context.Context, appointmentID string, start, end time.Time, timezone string) (*models.Appointment, error)
	// ListExpiredUpcoming returns upcoming appointments whose end time is before now,
	// latest end time first.
	ListExpiredUpcoming(ctx context.Context, now time.Time) ([]*models.Appointment, error)
	GetStats(ctx context.Context) (*models.AppointmentStats, error)
}

// UserRepository defines the storage contract for users keyed by email.
type UserRepository interface {
	// GetByEmail returns a NotFound DomainError when no user has the email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create stores a user and claims its email. A Conflict DomainError is
	// returned when another user already holds the email.
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// WebhookLogRepository is the append-only store for webhook audit entries.
type WebhookLogRepository interface {
	Append(ctx context.Context, entry *models.WebhookLogEntry) error
	List(ctx context.Context) ([]*models.WebhookLogEntry, error)
}
