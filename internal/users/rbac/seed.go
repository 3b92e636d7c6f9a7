// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package rbac

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/hydroline/hydroline-services/internal/platform/postgres"
	"github.com/hydroline/hydroline-services/pkg/slice"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// # Catalogue

// PermissionSpec declares one permission by its "resource:action" name.
type PermissionSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// RoleSpec declares a role and the permission patterns it is granted.
type RoleSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Priority    int      `yaml:"priority"`
	Grants      []string `yaml:"grants"`
	Exclude     []string `yaml:"exclude"`
}

// AdminSpec is the bootstrap account.
type AdminSpec struct {
	Username    string `yaml:"username"`
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"displayName"`
	Role        string `yaml:"role"`
}

// Catalogue is the full seed document.
type Catalogue struct {
	Permissions []PermissionSpec `yaml:"permissions"`
	Roles       []RoleSpec       `yaml:"roles"`
	Admin       *AdminSpec       `yaml:"admin"`
}

// DefaultCatalogue parses the embedded catalogue.
func DefaultCatalogue() (Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

/*
ParseCatalogue decodes and checks a YAML catalogue.

Parameters:
  - data: []byte

Returns:
  - Catalogue: Decoded document
  - error: Syntax errors, malformed permission names or unknown admin role
*/
func ParseCatalogue(data []byte) (Catalogue, error) {
	var catalogue Catalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return Catalogue{}, fmt.Errorf("rbac_catalogue_parse_failed: %w", err)
	}

	for _, permission := range catalogue.Permissions {
		if _, _, ok := SplitPermission(permission.Name); !ok {
			return Catalogue{}, fmt.Errorf("rbac_catalogue_invalid_permission: %q", permission.Name)
		}
	}

	if catalogue.Admin != nil {
		known := slice.Map(catalogue.Roles, func(role RoleSpec) string { return role.Name })
		if !slice.ContainsAny([]string{catalogue.Admin.Role}, known) {
			return Catalogue{}, fmt.Errorf("rbac_catalogue_unknown_admin_role: %q", catalogue.Admin.Role)
		}
	}

	return catalogue, nil
}

// SplitPermission splits "resource:action".
func SplitPermission(name string) (resource, action string, ok bool) {
	resource, action, ok = strings.Cut(name, ":")
	if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
		return "", "", false
	}
	return resource, action, true
}

// Expand resolves the role's grant patterns against the permission catalogue.
func (role RoleSpec) Expand(permissions []PermissionSpec) []string {
	var granted []string
	for _, permission := range permissions {
		if matchesAny(role.Grants, permission.Name) && !matchesAny(role.Exclude, permission.Name) {
			granted = append(granted, permission.Name)
		}
	}
	return granted
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// # Seeder

// Hasher hashes the bootstrap admin password.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Seeder writes a [Catalogue] into the database.
type Seeder struct {
	db     postgres.DB
	hasher Hasher
	logger *slog.Logger
}

// NewSeeder constructs a [Seeder].
func NewSeeder(db postgres.DB, hasher Hasher, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, hasher: hasher, logger: logger}
}

/*
Seed upserts the catalogue in one transaction.

Description: Existing permissions and roles keep their ids; descriptions
and priorities are refreshed. Role grants are only ever added. An existing
admin account is left untouched apart from re-asserting its role.

Parameters:
  - ctx: context.Context
  - catalogue: Catalogue

Returns:
  - error: Hashing or database failures
*/
func (seeder *Seeder) Seed(ctx context.Context, catalogue Catalogue) error {
	var adminHash string
	if catalogue.Admin != nil {
		hash, err := seeder.hasher.Hash(catalogue.Admin.Password)
		if err != nil {
			return fmt.Errorf("rbac_seed_hash_failed: %w", err)
		}
		adminHash = hash
	}

	err := postgres.WithTx(ctx, seeder.db, func(tx pgx.Tx) error {
		permissionIDs := make(map[string]string, len(catalogue.Permissions))
		for _, permission := range catalogue.Permissions {
			id, err := upsertPermission(ctx, tx, permission)
			if err != nil {
				return err
			}
			permissionIDs[permission.Name] = id
		}

		for _, role := range catalogue.Roles {
			roleID, err := upsertRole(ctx, tx, role)
			if err != nil {
				return err
			}
			for _, name := range role.Expand(catalogue.Permissions) {
				if err := grantPermission(ctx, tx, roleID, permissionIDs[name]); err != nil {
					return err
				}
			}
		}

		if catalogue.Admin == nil {
			return nil
		}

		adminID, err := upsertAdmin(ctx, tx, *catalogue.Admin, adminHash)
		if err != nil {
			return err
		}
		return AssignRole(ctx, tx, adminID, catalogue.Admin.Role, nil)
	})
	if err != nil {
		return fmt.Errorf("rbac_seed_failed: %w", err)
	}

	seeder.logger.Info("rbac_catalogue_seeded",
		slog.Int("permissions", len(catalogue.Permissions)),
		slog.Int("roles", len(catalogue.Roles)),
	)
	return nil
}

func upsertPermission(ctx context.Context, tx pgx.Tx, permission PermissionSpec) (string, error) {
	const query = `
		INSERT INTO rbac.permission (id, name, resource, action, description, issystem)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`

	resource, action, _ := SplitPermission(permission.Name)

	var id string
	err := tx.QueryRow(ctx, query, uuid.New(), permission.Name, resource, action, permission.Description).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres_rbac_repo_upsert_permission_failed: %w", err)
	}
	return id, nil
}

func upsertRole(ctx context.Context, tx pgx.Tx, role RoleSpec) (string, error) {
	const query = `
		INSERT INTO rbac.role (id, name, description, priority, issystem)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, priority = EXCLUDED.priority
		RETURNING id`

	var id string
	err := tx.QueryRow(ctx, query, uuid.New(), role.Name, role.Description, role.Priority).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres_rbac_repo_upsert_role_failed: %w", err)
	}
	return id, nil
}

func grantPermission(ctx context.Context, tx pgx.Tx, roleID, permissionID string) error {
	const query = `
		INSERT INTO rbac.rolepermission (roleid, permissionid)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := tx.Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("postgres_rbac_repo_grant_permission_failed: %w", err)
	}
	return nil
}

func upsertAdmin(ctx context.Context, tx pgx.Tx, admin AdminSpec, passwordHash string) (string, error) {
	const query = `
		INSERT INTO users.account (id, username, email, passwordhash, displayname, isactive, tokenversion, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, TRUE, 0, $6, $6)
		ON CONFLICT (username) DO UPDATE SET updatedat = users.account.updatedat
		RETURNING id`

	var id string
	err := tx.QueryRow(ctx, query, uuid.New(), admin.Username, admin.Email, passwordHash, admin.DisplayName, time.Now()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres_rbac_repo_upsert_admin_failed: %w", err)
	}
	return id, nil
}
