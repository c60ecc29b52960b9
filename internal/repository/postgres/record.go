package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// RecordRepository implements repository.RecordRepository using PostgreSQL.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(db *sqlx.DB) repository.RecordRepository {
	return &RecordRepository{db: db}
}

// Insert appends a record. The seq column is assigned by the database and
// provides the insertion-order tie-break for equal created_at values.
func (r *RecordRepository) Insert(ctx context.Context, record repository.Record) error {
	query := `
		INSERT INTO records (session_id, message_id, author, content, kind, created_at, is_triggered)
		VALUES (:session_id, :message_id, :author, :content, :kind, :created_at, :is_triggered)
	`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Query fetches the newest qualifying records first so LIMIT keeps the
// latest maxCount, then reverses back to ascending order.
func (r *RecordRepository) Query(ctx context.Context, sessionID string, minCreatedAt int64, maxCount int, authors []string) ([]repository.Record, error) {
	query := `
		SELECT seq, session_id, message_id, author, content, kind, created_at, is_triggered
		FROM records
		WHERE session_id = $1 AND created_at >= $2
	`
	args := []interface{}{sessionID, minCreatedAt}

	if len(authors) > 0 {
		query += ` AND author = ANY($3)`
		args = append(args, pq.Array(authors))
	}

	query += ` ORDER BY created_at DESC, seq DESC`

	if maxCount != repository.NoLimit {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, maxCount)
	}

	var records []repository.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	// Back to chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// PurgeBefore deletes records older than cutoff across all sessions.
func (r *RecordRepository) PurgeBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
