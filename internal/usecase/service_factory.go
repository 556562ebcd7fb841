package usecase

import (
	"visa-rescheduler/internal/notifier"
	"visa-rescheduler/internal/ports"
)

type serviceFactory struct {
	deps     Params
	notifier ports.Notifier
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
		// A failed notification must never change an attempt's outcome.
		notifier: notifier.NewBestEffort(deps.Notifier, deps.Logger),
	}
}

func (f *serviceFactory) CreateCalendarScanner() *CalendarScanner {
	return NewCalendarScanner(CalendarScannerParams{
		Config:       f.deps.Config,
		Logger:       f.deps.Logger,
		Selectors:    f.deps.Selectors,
		Resolver:     f.deps.Resolver,
		Synchronizer: f.deps.Synchronizer,
	})
}

func (f *serviceFactory) CreateWorkflow(scanner *CalendarScanner) *Workflow {
	return NewWorkflow(WorkflowParams{
		Config:       f.deps.Config,
		Logger:       f.deps.Logger,
		Selectors:    f.deps.Selectors,
		Resolver:     f.deps.Resolver,
		Synchronizer: f.deps.Synchronizer,
		Notifier:     f.notifier,
		Scanner:      scanner,
	})
}

func (f *serviceFactory) CreateOrchestrator(runner ports.AttemptRunner) *Orchestrator {
	return NewOrchestrator(OrchestratorParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Launcher: f.deps.Launcher,
		Registry: f.deps.Registry,
		Runner:   runner,
		Notifier: f.notifier,
	})
}
