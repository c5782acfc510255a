// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the appointment service publishes lifecycle events on.
const (
	// AppointmentCreatedSubject is published after an appointment is first recorded.
	// The subject is of the form: lfx.appointment-api.appointment.created
	AppointmentCreatedSubject = "lfx.appointment-api.appointment.created"

	// AppointmentCancelledSubject is published after an appointment moves to cancelled.
	// The subject is of the form: lfx.appointment-api.appointment.cancelled
	AppointmentCancelledSubject = "lfx.appointment-api.appointment.cancelled"

	// AppointmentRescheduledSubject is published after an appointment's times change.
	// The subject is of the form: lfx.appointment-api.appointment.rescheduled
	AppointmentRescheduledSubject = "lfx.appointment-api.appointment.rescheduled"

	// AppointmentCompletedSubject is published after reconciliation completes an appointment.
	// The subject is of the form: lfx.appointment-api.appointment.completed
	AppointmentCompletedSubject = "lfx.appointment-api.appointment.completed"
)

// NATS subjects that the appointment service handles messages about.
const (
	// AppointmentsAPIQueue is the queue group for the appointments API subscriptions.
	// The subject is of the form: lfx.appointment-api.queue
	AppointmentsAPIQueue = "lfx.appointment-api.queue"

	// ReconcileSubject triggers an on-demand reconciliation run and replies with its summary.
	// The subject is of the form: lfx.appointment-api.reconcile
	ReconcileSubject = "lfx.appointment-api.reconcile"

	// AppointmentGetStatsSubject replies with the current appointment stats.
	// The subject is of the form: lfx.appointment-api.get_stats
	AppointmentGetStatsSubject = "lfx.appointment-api.get_stats"

	// AppointmentGetSubject replies with the appointment whose id is the message body.
	// The subject is of the form: lfx.appointment-api.get_appointment
	AppointmentGetSubject = "lfx.appointment-api.get_appointment"
)

// MessageAction is the lifecycle action an event message describes.
type MessageAction string

const (
	ActionCreated     MessageAction = "created"
	ActionCancelled   MessageAction = "cancelled"
	ActionRescheduled MessageAction = "rescheduled"
	ActionCompleted   MessageAction = "completed"
)

// AppointmentEventMessage is the body of a lifecycle event.
type AppointmentEventMessage struct {
	Action      MessageAction `json:"action"`
	Appointment Appointment   `json:"appointment"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// ReconciliationSummary describes one reconciliation run.
type ReconciliationSummary struct {
	StartedAt time.Time         `json:"started_at"`
	Elapsed   time.Duration     `json:"elapsed"`
	Before    *AppointmentStats `json:"before,omitempty"`
	After     *AppointmentStats `json:"after,omitempty"`
	Expired   int               `json:"expired"`
	Completed int               `json:"completed"`
	Failed    int               `json:"failed"`
	Error     string            `json:"error,omitempty"`
}
