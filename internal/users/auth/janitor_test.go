// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (cleaner *countingCleaner) CleanupExpiredSessions(context.Context) (int64, error) {
	cleaner.calls.Add(1)
	return 0, cleaner.err
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

/*
TestJanitor_RunsUntilCancelled verifies ticks trigger cleanups and cancellation stops the loop.
*/
func TestJanitor_RunsUntilCancelled(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewJanitor(cleaner, 5*time.Millisecond, quietLogger).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

/*
TestJanitor_Disabled verifies a zero interval returns immediately.
*/
func TestJanitor_Disabled(t *testing.T) {
	cleaner := &countingCleaner{}
	NewJanitor(cleaner, 0, quietLogger).Run(context.Background())
	assert.Zero(t, cleaner.calls.Load())
}
