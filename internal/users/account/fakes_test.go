// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package account

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/internal/users/auth"
	"github.com/hydroline/hydroline-services/internal/users/rbac"
)

// catalogue mirrors the relevant part of the built-in role grants.
var catalogue = map[string][]string{
	rbac.RoleSuperAdmin: {rbac.PermissionRoleAssign, rbac.PermissionUserRead, rbac.PermissionUserWrite},
	rbac.RoleAdmin:      {rbac.PermissionRoleAssign, rbac.PermissionUserRead, rbac.PermissionUserWrite},
	rbac.RoleModerator:  {rbac.PermissionUserRead},
	rbac.RoleUser:       nil,
}

// memoryRepository implements both [Repository] and [rbac.Store].
type memoryRepository struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	profiles map[string][]auth.MinecraftProfile
	assigned map[string]map[string]*time.Time
	sessions map[string]int64
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		users:    map[string]*auth.User{},
		profiles: map[string][]auth.MinecraftProfile{},
		assigned: map[string]map[string]*time.Time{},
		sessions: map[string]int64{},
	}
}

func (repository *memoryRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repository *memoryRepository) ListMinecraftProfiles(_ context.Context, userID string) ([]auth.MinecraftProfile, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	return append([]auth.MinecraftProfile{}, repository.profiles[userID]...), nil
}

func (repository *memoryRepository) UpdateDisplayName(_ context.Context, userID string, displayName *string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.DisplayName = displayName
	return nil
}

func (repository *memoryRepository) SetActive(_ context.Context, userID string, active bool) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return 0, apperr.NotFound("User")
	}
	user.IsActive = active
	if active {
		return 0, nil
	}

	user.TokenVersion++
	revoked := repository.sessions[userID]
	repository.sessions[userID] = 0
	return revoked, nil
}

func (repository *memoryRepository) AssignRole(_ context.Context, userID, role string, _ *string, expiresAt *time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, known := catalogue[role]; !known {
		return apperr.NotFound("Role")
	}
	if repository.assigned[userID] == nil {
		repository.assigned[userID] = map[string]*time.Time{}
	}
	repository.assigned[userID][role] = expiresAt
	return nil
}

func (repository *memoryRepository) RevokeRole(_ context.Context, userID, role string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, held := repository.assigned[userID][role]; !held {
		return false, nil
	}
	delete(repository.assigned[userID], role)
	return true, nil
}

func (repository *memoryRepository) UserGrants(_ context.Context, userID string, now time.Time) (rbac.Grants, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	grants := rbac.Grants{Roles: []string{}, Permissions: []string{}}
	seen := map[string]struct{}{}
	for role, expiresAt := range repository.assigned[userID] {
		if expiresAt != nil && !expiresAt.After(now) {
			continue
		}
		grants.Roles = append(grants.Roles, role)
		for _, permission := range catalogue[role] {
			if _, ok := seen[permission]; !ok {
				seen[permission] = struct{}{}
				grants.Permissions = append(grants.Permissions, permission)
			}
		}
	}
	sort.Strings(grants.Roles)
	sort.Strings(grants.Permissions)
	return grants, nil
}

type auditSpy struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (spy *auditSpy) Record(_ context.Context, entry audit.Entry) {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	spy.entries = append(spy.entries, entry)
}

func (spy *auditSpy) last() audit.Entry {
	spy.mu.Lock()
	defer spy.mu.Unlock()
	return spy.entries[len(spy.entries)-1]
}

// # Fixture

type fixture struct {
	repository *memoryRepository
	resolver   *rbac.Resolver
	audit      *auditSpy
	service    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repository := newMemoryRepository()
	resolver := rbac.NewResolver(repository)
	spy := &auditSpy{}

	service := NewService(repository, resolver, spy, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &fixture{repository: repository, resolver: resolver, audit: spy, service: service}
}

func (f *fixture) seed(t *testing.T, id, username string, roles ...string) *auth.User {
	t.Helper()

	hash := "$2a$04$hash"
	user := &auth.User{ID: id, Username: username, PasswordHash: &hash, IsActive: true}

	f.repository.mu.Lock()
	f.repository.users[id] = user
	f.repository.sessions[id] = 2
	f.repository.mu.Unlock()

	for _, role := range roles {
		require.NoError(t, f.repository.AssignRole(context.Background(), id, role, nil, nil))
	}
	return user
}

func (f *fixture) user(t *testing.T, id string) *auth.User {
	t.Helper()

	user, err := f.repository.FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	require.Equal(t, code, appError.Code)
}
