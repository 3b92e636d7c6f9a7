// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package audit records security-relevant actions to system.auditlog and
serves them back to their owner and to holders of audit:read.

Recording is best-effort: a failed write is logged and swallowed so that an
audit outage never blocks a login or a logout.
*/
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

// Action names an audited operation.
type Action string

const (
	ActionRegister            Action = "REGISTER"
	ActionLogin               Action = "LOGIN"
	ActionLoginFailed         Action = "LOGIN_FAILED"
	ActionLogout              Action = "LOGOUT"
	ActionChangePassword      Action = "CHANGE_PASSWORD"
	ActionRevokeSession       Action = "REVOKE_SESSION"
	ActionRevokeAllSessions   Action = "REVOKE_ALL_SESSIONS"
	ActionRevokeOtherSessions Action = "REVOKE_OTHER_SESSIONS"
	ActionCleanupSessions     Action = "CLEANUP_SESSIONS"
	ActionOAuthLogin          Action = "OAUTH_LOGIN"
	ActionUpdateProfile       Action = "UPDATE_PROFILE"
	ActionActivateAccount     Action = "ACTIVATE_ACCOUNT"
	ActionDeactivateAccount   Action = "DEACTIVATE_ACCOUNT"
	ActionAssignRole          Action = "ASSIGN_ROLE"
	ActionRevokeRole          Action = "REVOKE_ROLE"
)

// Entry is one audit log row.
type Entry struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"userId"`
	Action     Action         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resourceId"`
	Detail     map[string]any `json:"detail,omitempty"`
	IPAddress  string         `json:"ipAddress"`
	UserAgent  string         `json:"userAgent"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Store persists entries.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	UserID   string
	Action   Action
	Resource string
}

// Reader lists entries newest first.
type Reader interface {
	List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, int, error)
}

// Recorder is the write side used by services.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a [Recorder] writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

/*
Record writes entry, filling in its id and timestamp.

Description: Failures are logged at warn with the request logger and
never returned.

Parameters:
  - ctx: context.Context
  - entry: Entry
*/
func (recorder *Recorder) Record(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()
	entry.CreatedAt = recorder.now()

	if err := recorder.store.Insert(ctx, &entry); err != nil {
		ctxutil.GetLogger(ctx).Warn("audit_record_failed",
			slog.String("action", string(entry.Action)),
			slog.String("resource", entry.Resource),
			slog.Any("error", err),
		)
	}
}

// Discard is a [Store] that drops every entry.
type Discard struct{}

// Insert implements [Store].
func (Discard) Insert(context.Context, *Entry) error { return nil }
