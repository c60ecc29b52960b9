// Package sweep runs the periodic retention purge, independent of message
// and command processing.
package sweep

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// Sweeper deletes records older than the retention horizon on a cron
// schedule.
type Sweeper struct {
	records   repository.RecordRepository
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *logrus.Logger
}

// New creates a sweeper. retention <= 0 disables it.
func New(records repository.RecordRepository, retention time.Duration, schedule string, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		records:   records,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:    logger,
	}
}

// Start registers the cron job and runs one purge immediately.
func (s *Sweeper) Start() error {
	if s.retention <= 0 {
		s.logger.Info("retention sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.purge); err != nil {
		return err
	}
	s.cron.Start()
	s.purge()
	s.logger.WithField("schedule", s.schedule).Info("retention sweep started")
	return nil
}

// Stop halts the cron scheduler. Running purges finish on their own.
func (s *Sweeper) Stop() {
	if s.retention <= 0 {
		return
	}
	s.cron.Stop()
}

func (s *Sweeper) purge() {
	cutoff := time.Now().Add(-s.retention).Unix()
	deleted, err := s.records.PurgeBefore(context.Background(), cutoff)
	if err != nil {
		s.logger.WithError(err).Error("retention purge failed")
		return
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("purged expired records")
	}
}
