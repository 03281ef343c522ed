// Package catalog supplies resource and hub facts to the engine. Entity
// content (titles, descriptions, media) is owned by the portal; the engine
// only reads the admission-relevant attributes.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
)

// Catalog resolves resources by id.
type Catalog interface {
	// Resource returns the resource's admission facts, or an
	// access.KindNotFound error for unknown ids.
	Resource(ctx context.Context, id uuid.UUID) (*access.Resource, error)
}

// PostgresCatalog implements Catalog against the portal's resources table.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog creates a new Postgres-backed catalog.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Resource returns a resource by id.
func (c *PostgresCatalog) Resource(ctx context.Context, id uuid.UUID) (*access.Resource, error) {
	query := `
		SELECT id, hub_id, kind, visibility, programme_id, capacity, opens_at, closes_at, created_at
		FROM resources
		WHERE id = $1
	`

	res := &access.Resource{}
	var programmeID uuid.NullUUID
	var capacity sql.NullInt64
	var opensAt, closesAt sql.NullTime

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.HubID, &res.Kind, &res.Visibility,
		&programmeID, &capacity, &opensAt, &closesAt, &res.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.NewError(access.KindNotFound, "resource %s not found", id)
	}
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to get resource")
	}

	if programmeID.Valid {
		pid := programmeID.UUID
		res.ProgrammeID = &pid
	}
	if capacity.Valid {
		n := int(capacity.Int64)
		res.Capacity = &n
	}
	if opensAt.Valid {
		t := opensAt.Time
		res.OpensAt = &t
	}
	if closesAt.Valid {
		t := closesAt.Time
		res.ClosesAt = &t
	}
	return res, nil
}
