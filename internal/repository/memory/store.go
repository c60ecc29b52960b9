// Package memory provides in-memory implementations of the repository
// interfaces, used in tests and when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// RecordRepository is an in-memory repository.RecordRepository.
type RecordRepository struct {
	mu      sync.RWMutex
	records []repository.Record
	nextSeq int64
}

// NewRecordRepository creates an empty in-memory record repository.
func NewRecordRepository() *RecordRepository {
	return &RecordRepository{nextSeq: 1}
}

func (r *RecordRepository) Insert(_ context.Context, record repository.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.Seq = r.nextSeq
	r.nextSeq++
	r.records = append(r.records, record)
	return nil
}

func (r *RecordRepository) Query(_ context.Context, sessionID string, minCreatedAt int64, maxCount int, authors []string) ([]repository.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	authorSet := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		authorSet[a] = struct{}{}
	}

	var matched []repository.Record
	for _, rec := range r.records {
		if rec.SessionID != sessionID || rec.CreatedAt < minCreatedAt {
			continue
		}
		if len(authorSet) > 0 {
			if _, ok := authorSet[rec.Author]; !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt != matched[j].CreatedAt {
			return matched[i].CreatedAt < matched[j].CreatedAt
		}
		return matched[i].Seq < matched[j].Seq
	})

	if maxCount != repository.NoLimit && len(matched) > maxCount {
		matched = matched[len(matched)-maxCount:]
	}

	return matched, nil
}

func (r *RecordRepository) PurgeBefore(_ context.Context, cutoff int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if rec.CreatedAt < cutoff {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

// SessionMetaRepository is an in-memory repository.SessionMetaRepository.
type SessionMetaRepository struct {
	mu   sync.RWMutex
	meta map[string]*repository.SessionMeta
}

// NewSessionMetaRepository creates an empty in-memory session-meta repository.
func NewSessionMetaRepository() *SessionMetaRepository {
	return &SessionMetaRepository{meta: make(map[string]*repository.SessionMeta)}
}

func (r *SessionMetaRepository) LastSummaryAt(_ context.Context, sessionID string) (*int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meta[sessionID]
	if !ok || m.LastSummaryAt == nil {
		return nil, nil
	}
	ts := *m.LastSummaryAt
	return &ts, nil
}

func (r *SessionMetaRepository) SetLastSummaryAt(_ context.Context, sessionID string, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getOrCreate(sessionID).LastSummaryAt = &ts
	return nil
}

func (r *SessionMetaRepository) SetDisabled(_ context.Context, sessionID string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getOrCreate(sessionID).Disabled = disabled
	return nil
}

func (r *SessionMetaRepository) IsDisabled(_ context.Context, sessionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meta[sessionID]
	if !ok {
		return false, nil
	}
	return m.Disabled, nil
}

func (r *SessionMetaRepository) getOrCreate(sessionID string) *repository.SessionMeta {
	m, ok := r.meta[sessionID]
	if !ok {
		m = &repository.SessionMeta{SessionID: sessionID}
		r.meta[sessionID] = m
	}
	return m
}
