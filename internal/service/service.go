// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/constants"
)

var tracer = otel.Tracer("github.com/linuxfoundation/lfx-v2-appointment-service/internal/service")

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// StoreTimeout bounds every individual store or identity call.
	StoreTimeout time.Duration
	// LogTimeout bounds the webhook audit write, which runs detached from the request context.
	LogTimeout time.Duration
	// DefaultDuration is used when a created event carries no end time.
	DefaultDuration time.Duration
	// DefaultServiceType labels appointments whose event carries no name.
	DefaultServiceType string
	// LeadSource is the provider tag stored on every appointment.
	LeadSource string
	// ReconcileWorkers is the number of concurrent completions during reconciliation.
	ReconcileWorkers int
}

// withDefaults fills zero values with the package defaults.
func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = constants.DefaultStoreTimeout
	}
	if c.LogTimeout <= 0 {
		c.LogTimeout = c.StoreTimeout
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = constants.DefaultAppointmentDuration
	}
	if c.DefaultServiceType == "" {
		c.DefaultServiceType = constants.DefaultServiceType
	}
	if c.LeadSource == "" {
		c.LeadSource = constants.DefaultLeadSource
	}
	if c.ReconcileWorkers <= 0 {
		c.ReconcileWorkers = constants.DefaultReconcileWorkers
	}
	return c
}

func (c ServiceConfig) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.StoreTimeout)
}
