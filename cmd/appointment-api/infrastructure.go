// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

const (
	serviceName = "lfx-v2-appointment-service"

	// gracefulShutdownSeconds bounds both the HTTP shutdown and the NATS drain.
	gracefulShutdownSeconds = 25
)

// repositories groups the stores the services are built on.
type repositories struct {
	Appointment *store.NatsAppointmentRepository
	User        *store.NatsUserRepository
	WebhookLog  *store.NatsWebhookLogRepository
}

func newRepositories(kvStores map[string]store.INatsKeyValue) *repositories {
	return &repositories{
		Appointment: store.NewNatsAppointmentRepository(kvStores[store.KVStoreNameAppointments]),
		User:        store.NewNatsUserRepository(kvStores[store.KVStoreNameUsers]),
		WebhookLog:  store.NewNatsWebhookLogRepository(kvStores[store.KVStoreNameWebhookLogs]),
	}
}

// setupNATS connects to NATS. The wait group is released once the connection
// is fully closed, and an unexpected close triggers shutdown through done.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	slog.With("nats_url", env.NatsURL).InfoContext(ctx, "connecting to NATS")

	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name(serviceName),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.MaxReconnects(-1),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.With(logging.ErrKey, err).WarnContext(ctx, "NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
				return
			}
			slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			defer gracefulCloseWG.Done()
			if ctx.Err() != nil {
				slog.Debug("NATS connection closed gracefully")
				return
			}
			slog.Error("NATS connection closed unexpectedly, shutting down")
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return natsConn, nil
}

// getKeyValueStores creates or opens every bucket the service needs.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kvStores := make(map[string]store.INatsKeyValue, len(store.KVStoreNames))
	for _, bucket := range store.KVStoreNames {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: serviceName + " " + bucket,
			History:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("open key-value bucket %s: %w", bucket, err)
		}
		kvStores[bucket] = kv
	}

	return newRepositories(kvStores), nil
}

// getMemoryKeyValueStores backs every bucket with a process-local store.
// Data does not survive a restart and is not shared between replicas.
func getMemoryKeyValueStores() *repositories {
	kvStores := make(map[string]store.INatsKeyValue, len(store.KVStoreNames))
	for _, bucket := range store.KVStoreNames {
		kvStores[bucket] = store.NewMemoryKeyValue(bucket)
	}
	return newRepositories(kvStores)
}

// createNatsSubscriptions subscribes the ops handler to its request subjects.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, subjects []string, natsConn *nats.Conn) error {
	slog.With("subjects", subjects, "queue", models.AppointmentsAPIQueue).InfoContext(ctx, "subscribing to NATS subjects")

	if _, err := messaging.SubscribeHandler(ctx, natsConn, models.AppointmentsAPIQueue, handler, subjects...); err != nil {
		return fmt.Errorf("subscribe to NATS subjects: %w", err)
	}
	return nil
}
