// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/hydroline/hydroline-services/internal/platform/postgres"
)

// PostgresRepository implements [Store] and [Reader] using pgx.
type PostgresRepository struct {
	db postgres.Querier
}

// NewRepository creates a PostgreSQL implementation of [Store].
func NewRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

/*
Insert appends one row to system.auditlog.

Parameters:
  - context: context.Context
  - entry: *Entry

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) Insert(context context.Context, entry *Entry) error {
	const query = `
		INSERT INTO system.auditlog (
			id, userid, action, resource, resourceid, detail, ipaddress, useragent, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := repository.db.Exec(context, query,
		entry.ID,
		entry.UserID,
		string(entry.Action),
		entry.Resource,
		entry.ResourceID,
		entry.Detail,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_audit_repo_insert_failed: %w", err)
	}

	return nil
}

/*
List returns one page of entries matching filter, newest first.

Description: The total is computed with a window function so a single
query answers both the page and the count.

Parameters:
  - context: context.Context
  - filter: Filter
  - limit: int
  - offset: int

Returns:
  - []Entry: The page (empty, never nil)
  - int: Total matching rows
  - error: Query failures
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]Entry, int, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT id, userid, action, resource, resourceid, detail, ipaddress, useragent, createdat,
			COUNT(*) OVER() AS total
		FROM system.auditlog
		WHERE TRUE`)

	var args []any
	where := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&query, " AND %s = $%d", clause, len(args))
	}
	if filter.UserID != "" {
		where("userid", filter.UserID)
	}
	if filter.Action != "" {
		where("action", string(filter.Action))
	}
	if filter.Resource != "" {
		where("resource", filter.Resource)
	}

	args = append(args, limit, offset)
	fmt.Fprintf(&query, " ORDER BY createdat DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := repository.db.Query(context, query.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_list_failed: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	total := 0
	for rows.Next() {
		var entry Entry
		var action string
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&action,
			&entry.Resource,
			&entry.ResourceID,
			&entry.Detail,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_repo_list_scan_failed: %w", err)
		}
		entry.Action = Action(action)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_list_failed: %w", err)
	}

	return entries, total, nil
}
