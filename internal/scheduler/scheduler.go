// Package scheduler runs the periodic admin report.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultReportSpec = "0 21 * * *"

type Scheduler struct {
	cron       *cron.Cron
	spec       string
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	schedule   cron.Schedule
}

// New creates a scheduler evaluating spec (standard five-field cron) in UTC.
func New(spec string, logger *zap.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultReportSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop. Without a report
// function it does nothing.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		s.logger.Warn("report function not set, scheduler idle")
		return nil
	}
	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return fmt.Errorf("schedule report %q: %w", s.spec, err)
	}
	s.schedule = schedule
	s.cron.Schedule(schedule, cron.FuncJob(s.runReport))
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec), zap.Time("next", s.Next()))
	return nil
}

func (s *Scheduler) runReport() {
	s.logger.Info("daily report triggered")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

// Next returns the next scheduled run, zero when not started.
func (s *Scheduler) Next() time.Time {
	if s.schedule == nil {
		return time.Time{}
	}
	return s.schedule.Next(time.Now().UTC())
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
