// Package admission enforces per-session single-flight execution and the
// cooldown window between completed summary jobs.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

var (
	// ErrDisabled means the summary feature is turned off for the session.
	ErrDisabled = errors.New("summary disabled for session")
	// ErrInProgress means another summary job is running for the session.
	ErrInProgress = errors.New("summary already in progress")
)

// CooldownError means the cooldown window since the last completed summary
// has not elapsed yet.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining)
}

// Controller guards summary job admission. Each session holds at most one
// in-flight job; the lock map carries one entry per running session, keyed
// by session id, so unrelated sessions never contend.
type Controller struct {
	meta     repository.SessionMetaRepository
	cooldown time.Duration
	locks    sync.Map // session_id -> acquisition time
	now      func() time.Time
	logger   *logrus.Logger
}

// NewController creates a controller with the given cooldown between
// completed jobs.
func NewController(meta repository.SessionMetaRepository, cooldown time.Duration, logger *logrus.Logger) *Controller {
	return &Controller{
		meta:     meta,
		cooldown: cooldown,
		now:      time.Now,
		logger:   logger,
	}
}

// Admit runs the disabled gate, then the cooldown gate, then takes the
// session's single-flight slot. On success the caller must Release exactly
// once, on every exit path.
func (c *Controller) Admit(ctx context.Context, sessionID string) error {
	disabled, err := c.meta.IsDisabled(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("disabled gate: %w", err)
	}
	if disabled {
		return ErrDisabled
	}

	last, err := c.meta.LastSummaryAt(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("cooldown gate: %w", err)
	}
	if last != nil {
		elapsed := c.now().Sub(time.Unix(*last, 0))
		if elapsed < c.cooldown {
			return &CooldownError{Remaining: c.cooldown - elapsed}
		}
	}

	if !c.TryAdmit(sessionID) {
		return ErrInProgress
	}
	return nil
}

// TryAdmit atomically takes the session's slot. It returns false without
// blocking when a job is already running for the session.
func (c *Controller) TryAdmit(sessionID string) bool {
	_, loaded := c.locks.LoadOrStore(sessionID, c.now())
	if loaded {
		return false
	}
	c.logger.WithField("session_id", sessionID).Debug("summary slot acquired")
	return true
}

// Release frees the session's slot. Releasing an idle session is a no-op.
func (c *Controller) Release(sessionID string) {
	c.locks.Delete(sessionID)
}
