package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBLogger writes audit events to PostgreSQL.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger.
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{db: db}
	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}
	return logger, nil
}

// ensureTable creates the audit_events table if it doesn't exist
func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		action VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL,
		actor_id UUID,
		entity_type VARCHAR(50) NOT NULL,
		entity_id UUID NOT NULL,
		detail TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_type, entity_id);
	`

	_, err := l.db.Exec(query)
	return err
}

// Log writes an audit event to the database.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (timestamp, action, status, actor_id, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := l.db.QueryRowContext(ctx, query,
		event.Timestamp,
		event.Action,
		event.Status,
		event.ActorID,
		event.EntityType,
		event.EntityID,
		event.Detail,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Close is a no-op for the database logger; the connection is owned by the
// caller.
func (l *DBLogger) Close() error {
	return nil
}
