// Package scheduler triggers incremental pipeline runs on a cron schedule,
// generalized from marlonfan-go-stock-collector's scheduler.go: the fixed
// China-timezone 8am cron becomes a config-driven schedule and timezone
// (SYNC_CRON_SCHEDULE, SYNC_TZ), and the stock-by-stock update loop becomes a
// single pipeline.Orchestrator.RunIncremental call.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/pipeline"
)

// Scheduler wraps a cron.Cron that triggers incremental syncs.
type Scheduler struct {
	orchestrator *pipeline.Orchestrator
	cron         *cron.Cron
	schedule     string
}

// New builds a Scheduler running schedule (standard 5-field cron syntax) in
// the named IANA timezone.
func New(orchestrator *pipeline.Orchestrator, schedule, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		orchestrator: orchestrator,
		cron:         cron.New(cron.WithLocation(loc)),
		schedule:     schedule,
	}, nil
}

// Start registers the incremental sync job and begins the cron scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		log.Printf("[scheduler] triggering scheduled incremental sync (%s)", s.schedule)
		if err := s.orchestrator.RunIncremental(context.Background()); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				log.Printf("[scheduler] skipped: a pipeline run was already in progress")
				return
			}
			log.Printf("[scheduler] incremental sync failed: %v", err)
			return
		}
		log.Printf("[scheduler] scheduled incremental sync completed")
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] started with schedule %q", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for any in-flight job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}
