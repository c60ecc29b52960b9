package repository

import "context"

// ContentKind tags the payload type of a stored record.
type ContentKind string

const (
	KindText  ContentKind = "TEXT"
	KindImage ContentKind = "IMAGE"
)

// NoLimit is the count sentinel meaning "return all qualifying records".
const NoLimit = -1

// Record is one stored chat message. Records are immutable once written.
// CreatedAt is the source-assigned timestamp in seconds since epoch, not
// the storage time. Seq is assigned by the store and orders records that
// share a CreatedAt value.
type Record struct {
	Seq         int64       `db:"seq"`
	SessionID   string      `db:"session_id"`
	MessageID   string      `db:"message_id"`
	Author      string      `db:"author"`
	Content     string      `db:"content"`
	Kind        ContentKind `db:"kind"`
	CreatedAt   int64       `db:"created_at"`
	IsTriggered bool        `db:"is_triggered"`
}

// SessionMeta holds the per-session state the summary pipeline depends on.
type SessionMeta struct {
	SessionID     string `db:"session_id"`
	LastSummaryAt *int64 `db:"last_summary_at"`
	Disabled      bool   `db:"disabled"`
}

// RecordRepository defines chat-record storage operations.
type RecordRepository interface {
	// Insert appends a record. It never rejects on content.
	Insert(ctx context.Context, record Record) error

	// Query returns records for sessionID with CreatedAt >= minCreatedAt,
	// restricted to authors when the list is non-empty (case-sensitive),
	// ordered by CreatedAt ascending with ties broken by insertion order.
	// When more than maxCount qualify, the latest maxCount are kept, still
	// returned in ascending order. maxCount of NoLimit returns everything.
	Query(ctx context.Context, sessionID string, minCreatedAt int64, maxCount int, authors []string) ([]Record, error)

	// PurgeBefore deletes records with CreatedAt < cutoff across all
	// sessions and reports how many were removed. Idempotent.
	PurgeBefore(ctx context.Context, cutoff int64) (int64, error)
}

// SessionMetaRepository defines per-session metadata operations. Rows are
// created lazily on first write.
type SessionMetaRepository interface {
	LastSummaryAt(ctx context.Context, sessionID string) (*int64, error)
	SetLastSummaryAt(ctx context.Context, sessionID string, ts int64) error
	SetDisabled(ctx context.Context, sessionID string, disabled bool) error
	IsDisabled(ctx context.Context, sessionID string) (bool, error)
}
