// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/sec"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

// # In-memory Stores

// memoryStore backs both repositories so cross-table operations stay consistent.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]*User
	sessions map[string]*Session
	profiles map[string]*MinecraftProfile
	roles    map[string][]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    map[string]*User{},
		sessions: map[string]*Session{},
		profiles: map[string]*MinecraftProfile{},
		roles:    map[string][]string{},
	}
}

type memoryUsers struct{ store *memoryStore }

type memorySessions struct{ store *memoryStore }

type memoryRoles struct{ store *memoryStore }

func (repository memoryUsers) FindByID(_ context.Context, id string) (*User, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	if user, ok := repository.store.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repository memoryUsers) FindByUsername(_ context.Context, username string) (*User, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	for _, user := range repository.store.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository memoryUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	for _, user := range repository.store.users {
		if user.Email != nil && *user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository memoryUsers) Create(_ context.Context, user *User, profile *MinecraftProfile, role string) error {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	for _, existing := range repository.store.users {
		if existing.Username == user.Username {
			return apperr.Conflict("Username is already taken")
		}
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return apperr.Conflict("Email is already registered")
		}
	}
	if profile != nil {
		if _, taken := repository.store.profiles[profile.MinecraftUUID]; taken {
			return apperr.Conflict("Minecraft account is already linked")
		}
		linked := *profile
		linked.UserID = user.ID
		repository.store.profiles[profile.MinecraftUUID] = &linked
	}

	clone := *user
	repository.store.users[user.ID] = &clone
	if role != "" {
		repository.store.roles[user.ID] = append(repository.store.roles[user.ID], role)
	}
	return nil
}

func (repository memoryUsers) ChangePassword(_ context.Context, userID, newHash string) (int64, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	user, ok := repository.store.users[userID]
	if !ok {
		return 0, apperr.NotFound("User")
	}
	user.PasswordHash = &newHash
	user.TokenVersion++
	return repository.store.deactivate(userID, ""), nil
}

func (repository memoryUsers) RevokeAll(_ context.Context, userID string) (int64, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	user, ok := repository.store.users[userID]
	if !ok {
		return 0, apperr.NotFound("User")
	}
	user.TokenVersion++
	return repository.store.deactivate(userID, ""), nil
}

// deactivate must be called with mu held.
func (store *memoryStore) deactivate(userID, keepTokenID string) int64 {
	var count int64
	for _, session := range store.sessions {
		if session.UserID == userID && session.IsActive && session.TokenID != keepTokenID {
			session.IsActive = false
			count++
		}
	}
	return count
}

func (repository memorySessions) Create(_ context.Context, session *Session) error {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	if _, exists := repository.store.sessions[session.TokenID]; exists {
		return apperr.Conflict("Session already exists")
	}
	clone := *session
	repository.store.sessions[session.TokenID] = &clone
	return nil
}

func (repository memorySessions) FindByTokenID(_ context.Context, tokenID string) (*Session, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	if session, ok := repository.store.sessions[tokenID]; ok {
		clone := *session
		return &clone, nil
	}
	return nil, apperr.NotFound("Session")
}

func (repository memorySessions) Touch(_ context.Context, tokenID string, at time.Time) error {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	if session, ok := repository.store.sessions[tokenID]; ok {
		session.LastUsedAt = at
	}
	return nil
}

func (repository memorySessions) ListActive(_ context.Context, userID string, now time.Time) ([]*Session, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	var sessions []*Session
	for _, session := range repository.store.sessions {
		if session.UserID == userID && session.Usable(now) {
			clone := *session
			sessions = append(sessions, &clone)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].LastUsedAt.After(sessions[j].LastUsedAt) })
	return sessions, nil
}

func (repository memorySessions) Revoke(_ context.Context, userID, tokenID string) (bool, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	session, ok := repository.store.sessions[tokenID]
	if !ok || session.UserID != userID {
		return false, nil
	}
	session.IsActive = false
	return true, nil
}

func (repository memorySessions) RevokeAllExcept(_ context.Context, userID, keepTokenID string) (int64, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	return repository.store.deactivate(userID, keepTokenID), nil
}

func (repository memorySessions) DeleteStale(_ context.Context, now time.Time) (int64, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	var deleted int64
	for tokenID, session := range repository.store.sessions {
		if session.ExpiresAt.Before(now) || !session.IsActive {
			delete(repository.store.sessions, tokenID)
			deleted++
		}
	}
	return deleted, nil
}

func (repository memoryRoles) RoleNames(_ context.Context, userID string) ([]string, error) {
	repository.store.mu.Lock()
	defer repository.store.mu.Unlock()

	return append([]string(nil), repository.store.roles[userID]...), nil
}

// # Spies

type auditSpy struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (spy *auditSpy) Record(_ context.Context, entry audit.Entry) {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	spy.entries = append(spy.entries, entry)
}

func (spy *auditSpy) actions() []audit.Action {
	spy.mu.Lock()
	defer spy.mu.Unlock()

	actions := make([]audit.Action, 0, len(spy.entries))
	for _, entry := range spy.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// # Fixture

const testPassword = "correct-horse"

type fixture struct {
	store    *memoryStore
	service  *Service
	tokens   *sec.TokenIssuer
	hasher   *sec.PasswordHasher
	audit    *auditSpy
	clock    *testClock
	registry *prometheus.Registry
}

func newFixture(t *testing.T, options Options) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := sec.NewTokenIssuer(sec.IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "hydroline-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SSOTTL:        15 * time.Minute,
	}).WithClock(clock.Now)

	store := newMemoryStore()
	hasher := sec.NewPasswordHasher(bcrypt.MinCost)
	spy := &auditSpy{}
	registry := prometheus.NewRegistry()

	service := NewService(Dependencies{
		Users:    memoryUsers{store: store},
		Sessions: memorySessions{store: store},
		Hasher:   hasher,
		Tokens:   tokens,
		Roles:    memoryRoles{store: store},
		Audit:    spy,
		Metrics:  NewMetrics(registry),
		Options:  options,
	})
	service.now = clock.Now

	return &fixture{
		store:    store,
		service:  service,
		tokens:   tokens,
		hasher:   hasher,
		audit:    spy,
		clock:    clock,
		registry: registry,
	}
}

func (f *fixture) seedUser(t *testing.T, username string, active bool) *User {
	t.Helper()

	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	email := username + "@hydroline.test"
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        &email,
		PasswordHash: &hash,
		IsActive:     active,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, memoryUsers{store: f.store}.Create(context.Background(), user, nil, DefaultRole))
	return user
}

func (f *fixture) session(t *testing.T, tokenID string) *Session {
	t.Helper()

	session, err := memorySessions{store: f.store}.FindByTokenID(context.Background(), tokenID)
	require.NoError(t, err)
	return session
}

func (f *fixture) counter(t *testing.T, name, label, value string) float64 {
	t.Helper()

	families, err := f.registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := label == ""
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					matched = true
				}
			}
			if matched {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func tokenIDOf(t *testing.T, tokens *sec.TokenIssuer, accessToken string) string {
	t.Helper()

	claims, err := tokens.InspectAccess(accessToken)
	require.NoError(t, err)
	return claims.TokenID()
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	require.Equal(t, code, appError.Code)
}
