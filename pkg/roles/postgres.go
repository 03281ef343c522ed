package roles

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
)

// PostgresDirectory implements Directory against the portal's role
// assignment tables.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a new Postgres-backed role directory.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// RoleOf returns the principal's role in the given hub.
func (d *PostgresDirectory) RoleOf(ctx context.Context, principalID, hubID uuid.UUID) (access.HubRole, error) {
	query := `
		SELECT h.id, a.role
		FROM hubs h
		LEFT JOIN hub_role_assignments a ON a.hub_id = h.id AND a.principal_id = $2
		WHERE h.id = $1
	`
	var id uuid.UUID
	var role sql.NullString
	err := d.db.QueryRowContext(ctx, query, hubID, principalID).Scan(&id, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return access.RoleNone, access.NewError(access.KindNotFound, "hub %s not found", hubID)
	}
	if err != nil {
		return access.RoleNone, access.WrapError(access.KindTransient, err, "failed to look up role")
	}

	if !role.Valid {
		return access.RoleNone, nil
	}
	return access.HubRole(role.String), nil
}

// IsPlatformAdmin reports whether the principal holds the platform admin
// flag.
func (d *PostgresDirectory) IsPlatformAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	query := `SELECT is_platform_admin FROM principals WHERE id = $1`

	var admin bool
	err := d.db.QueryRowContext(ctx, query, principalID).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, access.WrapError(access.KindTransient, err, "failed to look up platform admin flag")
	}
	return admin, nil
}
