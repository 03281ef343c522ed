package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campushub/hubaccess/pkg/access"
)

// PostgresRegistry implements Registry using PostgreSQL. Uniqueness of
// active memberships is enforced by a partial unique index on
// (principal_id, resource_id) WHERE terminated_at IS NULL; a conflicting
// insert is converted into returning the existing record.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry creates a new Postgres-backed registry.
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

const membershipColumns = `id, principal_id, resource_id, role, created_at, terminated_at`

// ActiveMembership returns the active membership or nil when absent.
func (r *PostgresRegistry) ActiveMembership(ctx context.Context, principalID, resourceID uuid.UUID) (*access.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE principal_id = $1 AND resource_id = $2 AND terminated_at IS NULL
	`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, principalID, resourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to get membership")
	}
	return m, nil
}

// CreateMembership inserts an active membership, returning the existing one
// on conflict.
func (r *PostgresRegistry) CreateMembership(ctx context.Context, principalID, resourceID uuid.UUID, role access.MemberRole) (*access.Membership, error) {
	query := `
		INSERT INTO memberships (id, principal_id, resource_id, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal_id, resource_id) WHERE terminated_at IS NULL DO NOTHING
		RETURNING ` + membershipColumns

	m, err := scanMembership(r.db.QueryRowContext(ctx, query, uuid.New(), principalID, resourceID, role))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
		return nil, access.WrapError(access.KindTransient, err, "failed to create membership")
	}

	// Conflict: another active membership already exists.
	existing, err := r.ActiveMembership(ctx, principalID, resourceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, access.NewError(access.KindTransient, "membership insert conflicted but no active record found")
	}
	return existing, nil
}

// CountActive returns the number of active memberships in the resource.
func (r *PostgresRegistry) CountActive(ctx context.Context, resourceID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE resource_id = $1 AND terminated_at IS NULL`

	var count int
	if err := r.db.QueryRowContext(ctx, query, resourceID).Scan(&count); err != nil {
		return 0, access.WrapError(access.KindTransient, err, "failed to count memberships")
	}
	return count, nil
}

// MembershipsForPrincipal returns the principal's active memberships.
func (r *PostgresRegistry) MembershipsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*access.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE principal_id = $1 AND terminated_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to list memberships")
	}
	defer rows.Close()

	var memberships []*access.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, access.WrapError(access.KindTransient, err, "failed to scan membership")
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to list memberships")
	}
	return memberships, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row rowScanner) (*access.Membership, error) {
	m := &access.Membership{}
	var terminatedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.PrincipalID, &m.ResourceID, &m.Role, &m.CreatedAt, &terminatedAt); err != nil {
		return nil, err
	}
	if terminatedAt.Valid {
		t := terminatedAt.Time
		m.TerminatedAt = &t
	}
	return m, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
