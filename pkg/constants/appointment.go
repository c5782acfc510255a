// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Defaults applied when the environment does not override them
const (
	DefaultServiceType         = "Discovery Call"
	DefaultLeadSource          = "calendly"
	DefaultAppointmentDuration = 30 * time.Minute
	DefaultReconcileInterval   = 30 * time.Minute
	DefaultStoreTimeout        = 5 * time.Second
	DefaultReconcileWorkers    = 4
)

// MaxWebhookBodyBytes caps the size of an accepted webhook body.
const MaxWebhookBodyBytes = 1 << 20
