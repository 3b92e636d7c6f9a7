// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
)

// SessionCleaner is the single operation the [Janitor] drives.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes stale sessions.
type Janitor struct {
	cleaner  SessionCleaner
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor constructs a [Janitor]. A zero interval disables it.
func NewJanitor(cleaner SessionCleaner, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{cleaner: cleaner, interval: interval, logger: logger}
}

/*
Run cleans up on every tick until ctx is cancelled.

Description: Failures are logged and the next tick retries. Returns
immediately when the interval is not positive.

Parameters:
  - ctx: context.Context
*/
func (janitor *Janitor) Run(ctx context.Context) {
	if janitor.interval <= 0 {
		janitor.logger.Info("session_janitor_disabled")
		return
	}

	ctx = ctxutil.WithLogger(ctx, janitor.logger)

	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := janitor.cleaner.CleanupExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				janitor.logger.Error("session_janitor_failed", slog.Any("error", err))
			}
		}
	}
}
