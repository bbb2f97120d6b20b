package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSweeper struct {
	calls  int32
	report backfill.Report
	block  bool
}

func (s *stubSweeper) EnsureAll(ctx context.Context) backfill.Report {
	atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
	}
	return s.report
}

func newScheduler(t *testing.T, sweeper Sweeper, cfg Config) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.SystemClock{},
		Sweeper:    sweeper,
		Config:     cfg,
		Registerer: registry,
	})
	require.NoError(t, err)
	return s, registry
}

func counterValue(t *testing.T, registry *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return jobCounter(family, job)
		}
	}
	return 0
}

func jobCounter(family *dto.MetricFamily, job string) float64 {
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "job" && label.GetValue() == job {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceSweepsOrganizations(t *testing.T) {
	sweeper := &stubSweeper{report: backfill.Report{
		Organizations: []backfill.Result{{OrgID: 1, Outcome: backfill.OutcomeSeeded}, {OrgID: 2, Outcome: backfill.OutcomeSkipped}},
	}}
	s, registry := newScheduler(t, sweeper, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sweeper.calls))
	assert.Equal(t, float64(1), counterValue(t, registry, "repairdesk_scheduler_job_runs_total", jobBackfillSweep))
	assert.Zero(t, counterValue(t, registry, "repairdesk_scheduler_job_errors_total", jobBackfillSweep))
}

func TestRunOnceReportsFailedOrganizations(t *testing.T) {
	sweeper := &stubSweeper{report: backfill.Report{
		Failures: []backfill.Failure{{OrgID: 7, Error: "lock_not_acquired"}},
	}}
	s, registry := newScheduler(t, sweeper, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), jobBackfillSweep)
	assert.Equal(t, float64(1), counterValue(t, registry, "repairdesk_scheduler_job_errors_total", jobBackfillSweep))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	sweeper := &stubSweeper{block: true}
	s, registry := newScheduler(t, sweeper, Config{Timeout: 5 * time.Millisecond})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, float64(1), counterValue(t, registry, "repairdesk_scheduler_job_timeouts_total", jobBackfillSweep))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	sweeper := &stubSweeper{}
	s, _ := newScheduler(t, sweeper, Config{RunInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}
