package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"visa-rescheduler/internal/browser"
	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/element"
	"visa-rescheduler/internal/notifier"
	"visa-rescheduler/internal/pause"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/internal/selectors"
	"visa-rescheduler/internal/usecase"
)

// NewApp wires the scheduler around an already validated config.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Supply(cfg),

		fx.Provide(
			newLogger,
			newTraceProvider,
			selectors.Load,

			fx.Annotate(browser.NewLauncher, fx.As(fx.Self()), fx.As(new(ports.Launcher))),
			fx.Annotate(element.NewResolver, fx.As(new(ports.Resolver))),
			fx.Annotate(element.NewSynchronizer, fx.As(new(ports.Synchronizer))),
			notifier.New,
			fx.Annotate(pause.NewFileRegistry, fx.As(new(ports.PauseRegistry))),

			usecase.NewUsecase,
		),

		fx.Invoke(
			runScheduler,
		),

		fx.NopLogger,
		// The first start may download the browser.
		fx.StartTimeout(5*time.Minute),
	)
}
