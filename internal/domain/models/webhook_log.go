// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// WebhookStatus is the outcome of one webhook processing attempt.
type WebhookStatus string

const (
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusError   WebhookStatus = "error"
	WebhookStatusSkipped WebhookStatus = "skipped"
)

// WebhookLogEntry is the append-only audit record written for every processing attempt.
type WebhookLogEntry struct {
	LogID           string        `json:"log_id"`
	EventType       string        `json:"event_type"`
	ProviderEventID *string       `json:"provider_event_id,omitempty"`
	Status          WebhookStatus `json:"status"`
	ErrorMessage    *string       `json:"error_message,omitempty"`
	RawPayload      []byte        `json:"raw_payload,omitempty"`
	ProcessedAt     time.Time     `json:"processed_at"`
}

// WebhookErrorKind classifies an error result so the transport can pick a retry signal.
type WebhookErrorKind string

const (
	WebhookErrorKindNone         WebhookErrorKind = ""
	WebhookErrorKindUnauthorized WebhookErrorKind = "unauthorized"
	WebhookErrorKindValidation   WebhookErrorKind = "validation"
	WebhookErrorKindUnavailable  WebhookErrorKind = "unavailable"
	WebhookErrorKindStore        WebhookErrorKind = "store"
)

// WebhookResult is the uniform envelope every dispatch path returns.
type WebhookResult struct {
	Status        WebhookStatus    `json:"status"`
	EventType     string           `json:"event_type"`
	AppointmentID *string          `json:"appointment_id,omitempty"`
	Message       *string          `json:"message,omitempty"`
	ErrorMessage  *string          `json:"error_message,omitempty"`
	ErrorKind     WebhookErrorKind `json:"-"`

	// ProviderEventID is recorded on the log entry only.
	ProviderEventID *string `json:"-"`
}

// Accepted reports whether the provider should consider the delivery handled.
func (r *WebhookResult) Accepted() bool {
	return r.Status == WebhookStatusSuccess || r.Status == WebhookStatusSkipped
}
