package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the engine's schema migrations. The partial unique
// indexes on memberships and join_requests are load-bearing: they are what
// makes concurrent submission and approval safe.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create principals and hubs tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS principals (
					id UUID PRIMARY KEY,
					is_platform_admin BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS hubs (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create hub_role_assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS hub_role_assignments (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					hub_id UUID NOT NULL REFERENCES hubs(id) ON DELETE CASCADE,
					principal_id UUID NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					UNIQUE(hub_id, principal_id)
				);

				CREATE INDEX idx_hub_role_assignments_principal ON hub_role_assignments(principal_id);
			`,
		},
		{
			Version:     3,
			Description: "Create resources table",
			SQL: `
				CREATE TABLE IF NOT EXISTS resources (
					id UUID PRIMARY KEY,
					hub_id UUID NOT NULL REFERENCES hubs(id) ON DELETE CASCADE,
					kind VARCHAR(50) NOT NULL,
					visibility VARCHAR(50) NOT NULL DEFAULT 'hub_members',
					programme_id UUID REFERENCES resources(id) ON DELETE SET NULL,
					capacity INTEGER,
					opens_at TIMESTAMP WITH TIME ZONE,
					closes_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_resources_hub_id ON resources(hub_id);
				CREATE INDEX idx_resources_programme_id ON resources(programme_id);
			`,
		},
		{
			Version:     4,
			Description: "Create memberships table",
			SQL: `
				CREATE TABLE IF NOT EXISTS memberships (
					id UUID PRIMARY KEY,
					principal_id UUID NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
					resource_id UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL DEFAULT 'member',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					terminated_at TIMESTAMP WITH TIME ZONE
				);

				CREATE UNIQUE INDEX idx_memberships_active
					ON memberships(principal_id, resource_id)
					WHERE terminated_at IS NULL;
				CREATE INDEX idx_memberships_resource ON memberships(resource_id) WHERE terminated_at IS NULL;
			`,
		},
		{
			Version:     5,
			Description: "Create join_requests table",
			SQL: `
				CREATE TABLE IF NOT EXISTS join_requests (
					id UUID PRIMARY KEY,
					principal_id UUID NOT NULL REFERENCES principals(id) ON DELETE CASCADE,
					resource_id UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
					message TEXT NOT NULL DEFAULT '',
					state VARCHAR(20) NOT NULL DEFAULT 'pending',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					resolved_at TIMESTAMP WITH TIME ZONE,
					resolved_by UUID REFERENCES principals(id) ON DELETE SET NULL,
					response_message TEXT
				);

				CREATE UNIQUE INDEX idx_join_requests_pending
					ON join_requests(principal_id, resource_id)
					WHERE state = 'pending';
				CREATE INDEX idx_join_requests_resource ON join_requests(resource_id, state);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hubaccess_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM hubaccess_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO hubaccess_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
