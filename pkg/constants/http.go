// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
	WebhookSignatureHeader string = "X-Webhook-Signature"
)

// HTTP routes served by the appointment API
const (
	WebhookPath           = "/webhooks/scheduling"
	AppointmentsStatsPath = "/appointments/stats"
	LivezPath             = "/livez"
	ReadyzPath            = "/readyz"
	// DebugVarsPath serves expvar runtime counters
	DebugVarsPath = "/debug/vars"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"
