package worker

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/runner"
)

// Scheduler triggers the weekly distribution run on a cron schedule so
// issues go out without anyone calling the API by hand. An overlapping run
// is reported as busy by the runner and simply skipped here.
type Scheduler struct {
	run    *runner.Runner
	c      *cron.Cron
	spec   string
	logger *zap.Logger
}

// NewScheduler builds a scheduler for the given cron spec. The spec uses
// the standard five-field format; timestamps are evaluated in UTC to match
// the quota window.
func NewScheduler(spec string, run *runner.Runner, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		run:    run,
		spec:   spec,
		logger: logger,
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))

	if _, err := s.c.AddFunc(spec, s.trigger); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing the schedule in a background goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("distribution schedule started", zap.String("spec", s.spec))
	s.c.Start()
}

// Stop halts the schedule and waits for an in-flight trigger to return.
func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
	s.logger.Info("distribution schedule stopped")
}

func (s *Scheduler) trigger() {
	summary, err := s.run.RunDistribution(context.Background(), "")
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.logger.Warn("scheduled run skipped, another run is active")
	case errors.Is(err, domain.ErrNoIssue):
		s.logger.Warn("scheduled run skipped, no issue available")
	case err != nil:
		s.logger.Error("scheduled run failed", zap.Error(err))
	default:
		s.logger.Info("scheduled run completed",
			zap.String("run_id", summary.RunID),
			zap.Int("sent", summary.Sent),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
		)
	}
}
