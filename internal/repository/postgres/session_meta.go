package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// SessionMetaRepository implements repository.SessionMetaRepository using
// PostgreSQL. Rows are created lazily via upsert on first write.
type SessionMetaRepository struct {
	db *sqlx.DB
}

// NewSessionMetaRepository creates a new PostgreSQL session-meta repository.
func NewSessionMetaRepository(db *sqlx.DB) repository.SessionMetaRepository {
	return &SessionMetaRepository{db: db}
}

func (r *SessionMetaRepository) LastSummaryAt(ctx context.Context, sessionID string) (*int64, error) {
	var ts sql.NullInt64
	err := r.db.GetContext(ctx, &ts,
		`SELECT last_summary_at FROM session_meta WHERE session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last summary time: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Int64, nil
}

func (r *SessionMetaRepository) SetLastSummaryAt(ctx context.Context, sessionID string, ts int64) error {
	query := `
		INSERT INTO session_meta (session_id, last_summary_at)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET last_summary_at = EXCLUDED.last_summary_at
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, ts); err != nil {
		return fmt.Errorf("failed to set last summary time: %w", err)
	}
	return nil
}

func (r *SessionMetaRepository) SetDisabled(ctx context.Context, sessionID string, disabled bool) error {
	query := `
		INSERT INTO session_meta (session_id, disabled)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET disabled = EXCLUDED.disabled
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, disabled); err != nil {
		return fmt.Errorf("failed to set disabled flag: %w", err)
	}
	return nil
}

func (r *SessionMetaRepository) IsDisabled(ctx context.Context, sessionID string) (bool, error) {
	var disabled bool
	err := r.db.GetContext(ctx, &disabled,
		`SELECT disabled FROM session_meta WHERE session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get disabled flag: %w", err)
	}
	return disabled, nil
}
