// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
)

// flags are the command line flags for the appointment service.
type flags struct {
	Debug  bool
	Port   string
	Bind   string
	Memory bool
}

// environment are the environment variables for the appointment service.
type environment struct {
	Port    string `env:"PORT" envDefault:"8080"`
	NatsURL string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	// WebhookSecret is the shared HMAC secret. When unset every delivery is rejected.
	WebhookSecret    string  `env:"WEBHOOK_SECRET"`
	WebhookRateLimit float64 `env:"WEBHOOK_RATE_LIMIT" envDefault:"10"`
	WebhookRateBurst int     `env:"WEBHOOK_RATE_BURST" envDefault:"20"`

	ReconcileInterval  time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30m"`
	ReconcileWorkers   int           `env:"RECONCILE_WORKERS" envDefault:"4"`
	DefaultDuration    time.Duration `env:"DEFAULT_APPOINTMENT_DURATION" envDefault:"30m"`
	DefaultServiceType string        `env:"DEFAULT_SERVICE_TYPE" envDefault:"Discovery Call"`
	LeadSource         string        `env:"LEAD_SOURCE" envDefault:"calendly"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
}

// serviceConfig maps the environment onto the service layer configuration.
func (e environment) serviceConfig() service.ServiceConfig {
	return service.ServiceConfig{
		StoreTimeout:       e.StoreTimeout,
		DefaultDuration:    e.DefaultDuration,
		DefaultServiceType: e.DefaultServiceType,
		LeadSource:         e.LeadSource,
		ReconcileWorkers:   e.ReconcileWorkers,
	}
}

func (e environment) validate() error {
	var errs []error
	if e.ReconcileInterval <= 0 {
		errs = append(errs, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", e.ReconcileInterval))
	}
	if e.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", e.StoreTimeout))
	}
	if e.DefaultDuration <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_APPOINTMENT_DURATION must be positive, got %s", e.DefaultDuration))
	}
	if e.ReconcileWorkers <= 0 {
		errs = append(errs, fmt.Errorf("RECONCILE_WORKERS must be positive, got %d", e.ReconcileWorkers))
	}
	return errors.Join(errs...)
}

// parseFlags parses command line flags for the appointment service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")
	var memory = flag.Bool("memory", false, "use in-memory stores instead of NATS (development only)")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug:  *debug,
		Port:   *port,
		Bind:   *bind,
		Memory: *memory,
	}
}

// loadEnv reads an optional .env file and parses the environment.
func loadEnv(files ...string) (environment, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return environment{}, fmt.Errorf("load .env: %w", err)
	}

	var e environment
	if err := env.Parse(&e); err != nil {
		return environment{}, fmt.Errorf("parse env: %w", err)
	}
	if err := e.validate(); err != nil {
		return environment{}, err
	}
	return e, nil
}

// parseEnv parses environment variables for the appointment service
func parseEnv() environment {
	e, err := loadEnv()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("invalid configuration")
		os.Exit(1)
	}
	if e.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET is not set, every webhook delivery will be rejected")
	}
	return e
}
