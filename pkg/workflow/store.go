package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campushub/hubaccess/pkg/access"
)

// Store handles join request persistence. At most one pending request
// exists per (principal, resource), enforced by a partial unique index;
// conflicting inserts are converted into returning the existing pending
// request.
type Store interface {
	// Get returns a request by id, or an access.KindNotFound error.
	Get(ctx context.Context, id uuid.UUID) (*access.JoinRequest, error)

	// PendingFor returns the pending request for (principal, resource),
	// or nil when none exists.
	PendingFor(ctx context.Context, principalID, resourceID uuid.UUID) (*access.JoinRequest, error)

	// Create inserts a new pending request. When a pending request
	// already exists for (principal, resource), the existing one is
	// returned and created is false.
	Create(ctx context.Context, req *access.JoinRequest) (out *access.JoinRequest, created bool, err error)

	// Resolve transitions a pending request to a terminal state,
	// recording resolver, timestamp, and response message. On approval a
	// membership is created in the same transaction. Returns
	// access.KindInvalidState when the request is no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, state access.RequestState, resolverID uuid.UUID, message string, at time.Time) (*access.JoinRequest, error)

	// Cancel withdraws the requester's own pending request.
	Cancel(ctx context.Context, id, principalID uuid.UUID, at time.Time) (*access.JoinRequest, error)

	// PendingForHub returns all pending requests for resources owned by
	// the hub, oldest first, with resource metadata for review screens.
	PendingForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error)

	// CountPending returns the total number of pending requests.
	CountPending(ctx context.Context) (int, error)
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres-backed join request store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, principal_id, resource_id, message, state, created_at, resolved_at, resolved_by, response_message`

// Get returns a request by id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*access.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE id = $1`

	req, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.NewError(access.KindNotFound, "join request %s not found", id)
	}
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to get join request")
	}
	return req, nil
}

// PendingFor returns the pending request for (principal, resource) or nil.
func (s *PostgresStore) PendingFor(ctx context.Context, principalID, resourceID uuid.UUID) (*access.JoinRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM join_requests
		WHERE principal_id = $1 AND resource_id = $2 AND state = 'pending'
	`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, principalID, resourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to get pending request")
	}
	return req, nil
}

// Create inserts a pending request, returning the existing one on conflict.
func (s *PostgresStore) Create(ctx context.Context, req *access.JoinRequest) (*access.JoinRequest, bool, error) {
	query := `
		INSERT INTO join_requests (id, principal_id, resource_id, message, state, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (principal_id, resource_id) WHERE state = 'pending' DO NOTHING
		RETURNING ` + requestColumns

	created, err := scanRequest(s.db.QueryRowContext(ctx, query,
		req.ID, req.PrincipalID, req.ResourceID, req.Message, req.CreatedAt))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
		return nil, false, access.WrapError(access.KindTransient, err, "failed to create join request")
	}

	// Conflict: a pending request already exists for this pair.
	existing, err := s.PendingFor(ctx, req.PrincipalID, req.ResourceID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, access.NewError(access.KindTransient, "request insert conflicted but no pending record found")
	}
	return existing, false, nil
}

// Resolve transitions a pending request to a terminal state atomically.
func (s *PostgresStore) Resolve(ctx context.Context, id uuid.UUID, state access.RequestState, resolverID uuid.UUID, message string, at time.Time) (*access.JoinRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if req.State != access.StatePending {
		return nil, access.NewError(access.KindInvalidState, "join request %s is already %s", id, req.State)
	}

	update := `
		UPDATE join_requests
		SET state = $1, resolved_at = $2, resolved_by = $3, response_message = $4
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, update, state, at, resolverID, message, id); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to update join request")
	}

	if state == access.StateApproved {
		insert := `
			INSERT INTO memberships (id, principal_id, resource_id, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (principal_id, resource_id) WHERE terminated_at IS NULL DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, insert, uuid.New(), req.PrincipalID, req.ResourceID, access.MemberRoleMember); err != nil {
			return nil, access.WrapError(access.KindTransient, err, "failed to create membership")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to commit resolution")
	}

	req.State = state
	req.ResolvedAt = &at
	req.ResolvedBy = &resolverID
	req.ResponseMessage = message
	return req, nil
}

// Cancel withdraws a pending request.
func (s *PostgresStore) Cancel(ctx context.Context, id, principalID uuid.UUID, at time.Time) (*access.JoinRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if req.PrincipalID != principalID {
		return nil, access.NewError(access.KindForbidden, "only the requester may cancel a join request")
	}
	if req.State != access.StatePending {
		return nil, access.NewError(access.KindInvalidState, "join request %s is already %s", id, req.State)
	}

	update := `UPDATE join_requests SET state = $1, resolved_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, update, access.StateCancelled, at, id); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to cancel join request")
	}

	if err := tx.Commit(); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to commit cancellation")
	}

	req.State = access.StateCancelled
	req.ResolvedAt = &at
	return req, nil
}

// PendingForHub returns the hub's pending requests with resource metadata.
func (s *PostgresStore) PendingForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error) {
	query := `
		SELECT r.id, r.principal_id, r.resource_id, r.message, r.state, r.created_at,
		       r.resolved_at, r.resolved_by, r.response_message,
		       res.kind, res.hub_id
		FROM join_requests r
		JOIN resources res ON res.id = r.resource_id
		WHERE res.hub_id = $1 AND r.state = 'pending'
		ORDER BY r.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, hubID)
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to list pending requests")
	}
	defer rows.Close()

	var reviews []*access.PendingReview
	for rows.Next() {
		review := &access.PendingReview{}
		var resolvedAt sql.NullTime
		var resolvedBy uuid.NullUUID
		var responseMessage sql.NullString
		if err := rows.Scan(
			&review.Request.ID, &review.Request.PrincipalID, &review.Request.ResourceID,
			&review.Request.Message, &review.Request.State, &review.Request.CreatedAt,
			&resolvedAt, &resolvedBy, &responseMessage,
			&review.ResourceKind, &review.HubID,
		); err != nil {
			return nil, access.WrapError(access.KindTransient, err, "failed to scan pending request")
		}
		applyNullables(&review.Request, resolvedAt, resolvedBy, responseMessage)
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to list pending requests")
	}
	return reviews, nil
}

// CountPending returns the total number of pending requests.
func (s *PostgresStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM join_requests WHERE state = 'pending'`).Scan(&count)
	if err != nil {
		return 0, access.WrapError(access.KindTransient, err, "failed to count pending requests")
	}
	return count, nil
}

func lockRequest(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*access.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE id = $1 FOR UPDATE`

	req, err := scanRequest(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.NewError(access.KindNotFound, "join request %s not found", id)
	}
	if err != nil {
		return nil, access.WrapError(access.KindTransient, err, "failed to lock join request")
	}
	return req, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*access.JoinRequest, error) {
	req := &access.JoinRequest{}
	var resolvedAt sql.NullTime
	var resolvedBy uuid.NullUUID
	var responseMessage sql.NullString
	if err := row.Scan(
		&req.ID, &req.PrincipalID, &req.ResourceID, &req.Message, &req.State,
		&req.CreatedAt, &resolvedAt, &resolvedBy, &responseMessage,
	); err != nil {
		return nil, err
	}
	applyNullables(req, resolvedAt, resolvedBy, responseMessage)
	return req, nil
}

func applyNullables(req *access.JoinRequest, resolvedAt sql.NullTime, resolvedBy uuid.NullUUID, responseMessage sql.NullString) {
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		id := resolvedBy.UUID
		req.ResolvedBy = &id
	}
	if responseMessage.Valid {
		req.ResponseMessage = responseMessage.String
	}
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
