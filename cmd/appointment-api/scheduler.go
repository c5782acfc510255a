// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.With(logging.ErrKey, err).Error(msg, keysAndValues...)
}

// newReconcileScheduler runs job every interval. A tick is skipped while the
// previous run is still in progress, and a panicking run does not stop later ones.
func newReconcileScheduler(ctx context.Context, interval time.Duration, job func(context.Context)) (*cron.Cron, error) {
	logger := cronLogger{logger: slog.Default().With("component", "reconcile-scheduler")}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)

	schedule := "@every " + interval.String()
	if _, err := scheduler.AddFunc(schedule, func() {
		job(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", schedule, err)
	}
	return scheduler, nil
}
