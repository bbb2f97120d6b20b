package backfill

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/config"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("backfill",
	fx.Provide(New),
	fx.Provide(func(m *Migrator) organizationdomain.Provisioner { return m }),
	fx.Invoke(RunOnStartup),
)

// RunOnStartup seeds reference data in the background once the app starts.
// Startup never waits on the backfill lock; stopping the app cancels the pass
// and waits for it to return. Failures are logged and the process keeps serving.
func RunOnStartup(lc fx.Lifecycle, cfg config.Config, m *Migrator, log *zap.Logger) {
	if !cfg.Bootstrap.EnsureCore && !cfg.Bootstrap.BackfillOnStartup {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runStartup(ctx, cfg.Bootstrap, m, log)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func runStartup(ctx context.Context, cfg config.BootstrapConfig, m *Migrator, log *zap.Logger) {
	if cfg.BackfillOnStartup {
		report := m.EnsureAll(ctx)
		fields := []zap.Field{
			zap.Int("organizations", len(report.Organizations)),
			zap.Int("failures", len(report.Failures)),
		}
		if report.Failed() {
			log.Warn("startup backfill finished with failures", fields...)
		} else {
			log.Info("startup backfill finished", fields...)
		}
		return
	}
	if _, err := m.EnsureCore(ctx); err != nil {
		log.Warn("core currency seed failed", zap.Error(err))
	}
}
