package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobBackfillSweep = "backfill_sweep"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

// Sweeper repairs reference data for every organization.
type Sweeper interface {
	EnsureAll(ctx context.Context) backfill.Report
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Sweeper    Sweeper
	Config     Config                `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	sweeper Sweeper
	metrics *jobMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Sweeper == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		sweeper: p.Sweeper,
		metrics: newJobMetrics(p.Registerer),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, name)
	s.logJobStart(ctx, run)

	err := fn(ctx, run)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.observe(name, s.clock.Now().Sub(start), err != nil, isTimeout)
	if err == nil {
		return nil
	}

	// A deadline is a soft failure; the next tick resumes the work.
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.runID),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job a single time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobBackfillSweep, s.cfg.Timeout, s.BackfillSweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// BackfillSweepJob makes sure every organization carries its default
// currencies and tax rates.
func (s *Scheduler) BackfillSweepJob(ctx context.Context, run *jobRun) error {
	report := s.sweeper.EnsureAll(ctx)
	run.AddProcessed(len(report.Organizations))

	for _, failure := range report.Failures {
		s.logJobError(ctx, run, "backfill.organization.failed", failure.OrgID, failure.Error)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if report.Failed() {
		return fmt.Errorf("%d organization(s) failed", len(report.Failures))
	}
	return nil
}
