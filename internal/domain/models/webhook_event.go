// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/utils"
)

// Scheduling provider event types.
const (
	EventTypeInviteeCreated     = "invitee.created"
	EventTypeInviteeCancelled   = "invitee.canceled"
	EventTypeInviteeRescheduled = "invitee.rescheduled"

	// eventTypeInviteeCancelledAlt is the British spelling some senders use.
	eventTypeInviteeCancelledAlt = "invitee.cancelled"

	// EventTypeUnknown is recorded when the body could not be parsed far enough to read its type.
	EventTypeUnknown = "unknown"
)

// ErrMalformedPayload is returned when the webhook body is not a valid envelope.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// WebhookEnvelope is the outer shape of every provider delivery.
type WebhookEnvelope struct {
	Event     string         `json:"event"`
	CreatedAt string         `json:"created_at"`
	Data      map[string]any `json:"data"`
}

// ProviderEventRef identifies the scheduled event type on the provider side.
type ProviderEventRef struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// ProviderInvitee is the invitee block of a delivery.
type ProviderInvitee struct {
	URI       string    `json:"uri"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// WebhookData is the typed form of the envelope's data block.
type WebhookData struct {
	Event         *ProviderEventRef `json:"event"`
	Invitee       *ProviderInvitee  `json:"invitee"`
	CancelURL     string            `json:"cancel_url"`
	RescheduleURL string            `json:"reschedule_url"`
}

// WebhookEvent is one of InviteeCreatedEvent, InviteeCancelledEvent,
// InviteeRescheduledEvent or UnrecognizedEvent.
type WebhookEvent interface {
	// EventType is the type string exactly as the provider sent it.
	EventType() string
	// ProviderEventID is the provider event identifier, empty when absent.
	ProviderEventID() string
	isWebhookEvent()
}

// InviteeCreatedEvent is a new booking.
type InviteeCreatedEvent struct {
	Type          string
	EventID       string
	EventName     string
	InviteeID     string
	Email         string
	Name          string
	Timezone      string
	StartTime     time.Time
	EndTime       time.Time
	CancelURL     string
	RescheduleURL string
}

// InviteeCancelledEvent is a cancellation of an existing booking.
type InviteeCancelledEvent struct {
	Type      string
	EventID   string
	InviteeID string
}

// InviteeRescheduledEvent moves an existing booking to new times.
type InviteeRescheduledEvent struct {
	Type      string
	EventID   string
	InviteeID string
	Timezone  string
	StartTime time.Time
	EndTime   time.Time
}

// UnrecognizedEvent is any event type this service does not handle.
type UnrecognizedEvent struct {
	Type    string
	EventID string
}

func (e *InviteeCreatedEvent) EventType() string           { return e.Type }
func (e *InviteeCreatedEvent) ProviderEventID() string     { return e.EventID }
func (e *InviteeCreatedEvent) isWebhookEvent()             {}
func (e *InviteeCancelledEvent) EventType() string         { return e.Type }
func (e *InviteeCancelledEvent) ProviderEventID() string   { return e.EventID }
func (e *InviteeCancelledEvent) isWebhookEvent()           {}
func (e *InviteeRescheduledEvent) EventType() string       { return e.Type }
func (e *InviteeRescheduledEvent) ProviderEventID() string { return e.EventID }
func (e *InviteeRescheduledEvent) isWebhookEvent()         {}
func (e *UnrecognizedEvent) EventType() string             { return e.Type }
func (e *UnrecognizedEvent) ProviderEventID() string       { return e.EventID }
func (e *UnrecognizedEvent) isWebhookEvent()               {}

// MissingFields returns the names of required fields absent from a created event.
// EndTime is not required; callers fall back to a default duration.
func (e *InviteeCreatedEvent) MissingFields() []string {
	var missing []string
	if e.EventID == "" {
		missing = append(missing, "event.uri")
	}
	if e.InviteeID == "" {
		missing = append(missing, "invitee.uri")
	}
	if e.Email == "" {
		missing = append(missing, "invitee.email")
	}
	if e.StartTime.IsZero() {
		missing = append(missing, "invitee.start_time")
	}
	return missing
}

// MissingFields returns the names of required fields absent from a cancelled event.
func (e *InviteeCancelledEvent) MissingFields() []string {
	if e.InviteeID == "" {
		return []string{"invitee.uri"}
	}
	return nil
}

// MissingFields returns the names of required fields absent from a rescheduled event.
func (e *InviteeRescheduledEvent) MissingFields() []string {
	var missing []string
	if e.InviteeID == "" {
		missing = append(missing, "invitee.uri")
	}
	if e.StartTime.IsZero() {
		missing = append(missing, "invitee.start_time")
	}
	if e.EndTime.IsZero() {
		missing = append(missing, "invitee.end_time")
	}
	return missing
}

// ParseWebhookEvent decodes a raw delivery body into its typed variant.
// Missing required fields are not an error here; handlers check MissingFields.
func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("%w: missing event field", ErrMalformedPayload)
	}

	data, err := decodeWebhookData(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	eventID := ""
	if data.Event != nil {
		eventID = utils.ProviderResourceID(data.Event.URI)
	}
	invitee := ProviderInvitee{}
	if data.Invitee != nil {
		invitee = *data.Invitee
	}
	inviteeID := utils.ProviderResourceID(invitee.URI)

	switch envelope.Event {
	case EventTypeInviteeCreated:
		event := &InviteeCreatedEvent{
			Type:          envelope.Event,
			EventID:       eventID,
			InviteeID:     inviteeID,
			Email:         invitee.Email,
			Name:          invitee.Name,
			Timezone:      invitee.Timezone,
			StartTime:     invitee.StartTime,
			EndTime:       invitee.EndTime,
			CancelURL:     data.CancelURL,
			RescheduleURL: data.RescheduleURL,
		}
		if data.Event != nil {
			event.EventName = data.Event.Name
		}
		return event, nil
	case EventTypeInviteeCancelled, eventTypeInviteeCancelledAlt:
		return &InviteeCancelledEvent{
			Type:      envelope.Event,
			EventID:   eventID,
			InviteeID: inviteeID,
		}, nil
	case EventTypeInviteeRescheduled:
		return &InviteeRescheduledEvent{
			Type:      envelope.Event,
			EventID:   eventID,
			InviteeID: inviteeID,
			Timezone:  invitee.Timezone,
			StartTime: invitee.StartTime,
			EndTime:   invitee.EndTime,
		}, nil
	default:
		return &UnrecognizedEvent{Type: envelope.Event, EventID: eventID}, nil
	}
}

// decodeWebhookData converts the generic data map into WebhookData, parsing RFC 3339 timestamps.
func decodeWebhookData(raw map[string]any) (*WebhookData, error) {
	var data WebhookData
	if raw == nil {
		return &data, nil
	}

	config := mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &data,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			emptyStringToZeroTime,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return &data, nil
}

// emptyStringToZeroTime treats "" as an absent timestamp instead of a parse error.
func emptyStringToZeroTime(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	if s, ok := data.(string); ok && s == "" {
		return time.Time{}, nil
	}
	return data, nil
}
