// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the appointment service API that ingests scheduling provider
// webhooks, keeps appointment records in NATS key-value stores and completes
// past appointments on a schedule.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/utils"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	// Setup the stores, either on NATS or in memory for local development.
	var (
		natsConn    *nats.Conn
		repos       *repositories
		eventSender domain.AppointmentEventSender
	)
	if flags.Memory {
		slog.Warn("using in-memory stores, data will not be persisted and lifecycle events are not published")
		repos = getMemoryKeyValueStores()
	} else {
		natsConn, err = setupNATS(ctx, env, &gracefulCloseWG, done)
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting up NATS")
			return
		}

		repos, err = getKeyValueStores(ctx, natsConn)
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error getting key-value stores")
			return
		}
		eventSender = messaging.NewMessageBuilder(natsConn)
	}

	// Initialize services
	serviceConfig := env.serviceConfig()
	appointmentService := service.NewAppointmentService(repos.Appointment, serviceConfig)
	identityService := service.NewIdentityService(repos.User, serviceConfig)
	webhookLogService := service.NewWebhookLogService(repos.WebhookLog, serviceConfig)
	webhookService := service.NewWebhookService(
		webhook.NewSignatureVerifier(env.WebhookSecret),
		repos.Appointment,
		identityService,
		webhookLogService,
		eventSender,
		serviceConfig,
	)
	reconciliationService := service.NewReconciliationService(
		repos.Appointment,
		eventSender,
		serviceConfig,
	)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	opsHandler := handlers.NewOpsHandler(appointmentService, reconciliationService)

	readinessChecks := map[string]handlers.ReadinessCheck{
		"webhook":      webhookHandler.HandlerReady,
		"appointments": appointmentHandler.HandlerReady,
		"ops":          opsHandler.HandlerReady,
	}
	if natsConn != nil {
		readinessChecks["nats"] = natsConn.IsConnected
	}

	rateLimiter := middleware.NewRateLimiter(env.WebhookRateLimit, env.WebhookRateBurst)
	go rateLimiter.Run(ctx)

	httpServer := setupHTTPServer(flags, newRouter(httpHandlers{
		Webhook:     webhookHandler,
		Appointment: appointmentHandler,
		Health:      handlers.NewHealthHandler(readinessChecks),
		RateLimiter: rateLimiter,
	}), &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	if natsConn != nil {
		err = createNatsSubscriptions(ctx, opsHandler, opsHandler.Subjects(), natsConn)
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
			return
		}
	}

	scheduler, err := newReconcileScheduler(ctx, env.ReconcileInterval, func(ctx context.Context) {
		reconciliationService.Run(ctx)
	})
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error scheduling reconciliation")
		return
	}
	scheduler.Start()
	slog.With("interval", env.ReconcileInterval.String()).Info("reconciliation scheduled")

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	// Wait for an in-flight reconciliation before closing the stores.
	<-scheduler.Stop().Done()

	var conn drainer
	if natsConn != nil {
		conn = natsConn
	}
	gracefulShutdown(httpServer, conn, &gracefulCloseWG, cancel)
}
