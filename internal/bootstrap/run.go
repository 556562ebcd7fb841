package bootstrap

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/browser"
	"visa-rescheduler/internal/usecase"
)

func runScheduler(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *browser.Launcher,
	service *usecase.Service,
	_ *trace.TracerProvider,
	logger *zap.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("Starting visa rescheduler...")

			if err := launcher.Start(startCtx); err != nil {
				logger.Error("Failed to start browser driver", zap.Error(err))

				return err
			}

			go func() {
				defer close(done)

				exitCode := 0

				if err := service.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Scheduler error", zap.Error(err))

					exitCode = 1
				}

				if ctx.Err() == nil {
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Error("Failed to request shutdown", zap.Error(err))
					}
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Shutting down visa rescheduler...")

			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn("Scheduler did not stop in time", zap.Error(stopCtx.Err()))
			}

			if err := launcher.Stop(stopCtx); err != nil {
				logger.Error("Failed to stop browser driver", zap.Error(err))
			}

			_ = logger.Sync()

			return nil
		},
	})
}
