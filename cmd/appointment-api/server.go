// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-appointment-service/pkg/constants"
)

// httpHandlers are the HTTP entry points mounted on the router.
type httpHandlers struct {
	Webhook     *handlers.WebhookHandler
	Appointment *handlers.AppointmentHandler
	Health      *handlers.HealthHandler
	RateLimiter *middleware.RateLimiter
}

// newRouter builds the HTTP handler with its middleware chain.
func newRouter(h httpHandlers) http.Handler {
	router := chi.NewRouter()

	router.Get(constants.LivezPath, h.Health.HandleLivez)
	router.Get(constants.ReadyzPath, h.Health.HandleReadyz)
	router.Get(constants.AppointmentsStatsPath, h.Appointment.HandleGetStats)
	router.Method(http.MethodGet, constants.DebugVarsPath, expvar.Handler())

	router.Group(func(r chi.Router) {
		if h.RateLimiter != nil {
			r.Use(middleware.RateLimitMiddleware(h.RateLimiter))
		}
		r.Use(middleware.WebhookBodyCaptureMiddleware(constants.MaxWebhookBodyBytes))
		r.Post(constants.WebhookPath, h.Webhook.HandleWebhook)
	})

	var handler http.Handler = router

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)
	handler = otelhttp.NewHandler(handler, serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case constants.LivezPath, constants.ReadyzPath, constants.DebugVarsPath:
				return false
			}
			return true
		}),
	)

	return handler
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, handler http.Handler, gracefulCloseWG *sync.WaitGroup) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}

// gracefulShutdown stops the HTTP server, drains NATS and waits for both to finish.
func gracefulShutdown(httpServer *http.Server, natsConn drainer, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("shutting down")

	// Stop background work and mark the shutdown as intentional.
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	go func() {
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	waitDone := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		slog.Info("graceful shutdown complete")
	case <-ctx.Done():
		slog.Error("graceful shutdown timed out")
	}
}

// drainer is the part of *nats.Conn used during shutdown.
type drainer interface {
	Drain() error
	IsClosed() bool
}
