// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

// Appointment lifecycle states. Completed and cancelled are terminal.
const (
	AppointmentStatusUpcoming  AppointmentStatus = "upcoming"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave this status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// IsValid reports whether s is one of the known statuses.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusUpcoming, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is the persisted record of a booking made through the scheduling provider.
type Appointment struct {
	AppointmentID     string            `json:"appointment_id"`
	UserID            *string           `json:"user_id,omitempty"`
	Email             string            `json:"email"`
	ProviderEventID   string            `json:"provider_event_id"`
	ProviderInviteeID string            `json:"provider_invitee_id"`
	ServiceType       string            `json:"service_type"`
	Duration          int               `json:"duration"`
	Status            AppointmentStatus `json:"status"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	Timezone          string            `json:"timezone,omitempty"`
	LeadSource        string            `json:"lead_source,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
}

// IsExpired reports whether an upcoming appointment has ended before now.
func (a *Appointment) IsExpired(now time.Time) bool {
	return a.Status == AppointmentStatusUpcoming && a.EndTime.Before(now)
}

// DurationMinutes returns the minutes between start and end, counting a
// partial minute as a whole one so any positive span is at least 1.
func DurationMinutes(start, end time.Time) int {
	span := end.Sub(start)
	if span <= 0 {
		return 0
	}
	return int((span + time.Minute - 1) / time.Minute)
}

// AppointmentStats is a count of appointments by status.
type AppointmentStats struct {
	Total     int `json:"total"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Add counts a single appointment status.
func (s *AppointmentStats) Add(status AppointmentStatus) {
	s.Total++
	switch status {
	case AppointmentStatusUpcoming:
		s.Upcoming++
	case AppointmentStatusCompleted:
		s.Completed++
	case AppointmentStatusCancelled:
		s.Cancelled++
	}
}
