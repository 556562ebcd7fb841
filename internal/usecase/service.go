package usecase

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/internal/selectors"
	"visa-rescheduler/internal/usecase/adapters"
)

type Service struct {
	Attempt   adapters.AttemptService
	Scheduler adapters.SchedulerService
}

type Params struct {
	fx.In

	Logger       *zap.Logger
	Config       *config.Config
	Selectors    *selectors.Catalogue
	Resolver     ports.Resolver
	Synchronizer ports.Synchronizer
	Launcher     ports.Launcher
	Notifier     ports.Notifier
	Registry     ports.PauseRegistry
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	scanner := factory.CreateCalendarScanner()
	workflow := factory.CreateWorkflow(scanner)

	return &Service{
		Attempt:   workflow,
		Scheduler: factory.CreateOrchestrator(workflow),
	}
}
