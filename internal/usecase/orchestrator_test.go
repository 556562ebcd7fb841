package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visa-rescheduler/internal/browser/browsertest"
	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/pause"
	"visa-rescheduler/internal/ports"
)

type runnerFunc func(ctx context.Context, page ports.Page) entity.AttemptOutcome

func (f runnerFunc) Run(ctx context.Context, page ports.Page) entity.AttemptOutcome {
	return f(ctx, page)
}

func (h *harness) orchestrator(runner ports.AttemptRunner) *Orchestrator {
	return newServiceFactory(h.params()).CreateOrchestrator(runner)
}

func TestScheduler_SucceedsOnFirstAttempt(t *testing.T) {
	h := newHarness(t)
	h.launcher.Build = func(int) *browsertest.Page { return happySite(h).Page }

	err := NewUsecase(h.params()).Scheduler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, h.launcher.Launches())
	assert.True(t, h.launcher.AllClosed())
	assert.Equal(t, 1, h.registry.Writes)
	assert.Equal(t, []string{
		"Found an earlier date! 2024-05-10 for " + testUser,
		"Successfully scheduled a new appointment for " + testUser,
	}, h.notifier.Sent())
}

func TestScheduler_RetriesUntilBetterDate(t *testing.T) {
	h := newHarness(t)
	h.launcher.Build = func(n int) *browsertest.Page {
		if n < 2 {
			return newSite(h.sel, availabilityJSON("2024-09-01"), enabledDay(2024, time.May, 10)).Page
		}

		return happySite(h).Page
	}

	err := NewUsecase(h.params()).Scheduler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, h.launcher.Launches())
	assert.True(t, h.launcher.AllClosed())
	assert.Equal(t, 1, h.registry.Writes)
	assert.Len(t, h.logs.FilterMessage("Attempt found no better date").All(), 2)
}

func TestScheduler_RecoversFromStructuralFailure(t *testing.T) {
	h := newHarness(t)
	h.launcher.Build = func(n int) *browsertest.Page {
		s := happySite(h)
		if n == 0 {
			s.confirm.Hidden = true
		}

		return s.Page
	}

	err := NewUsecase(h.params()).Scheduler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, h.launcher.Launches())
	assert.True(t, h.launcher.AllClosed())
	assert.Len(t, h.logs.FilterMessage("Attempt failed").All(), 1)
}

func TestScheduler_RecoversFromNavigationError(t *testing.T) {
	h := newHarness(t)

	var first *browsertest.Page
	h.launcher.Build = func(n int) *browsertest.Page {
		s := happySite(h)
		if n == 0 {
			s.Respond(appointmentURL, browsertest.Response{Err: errors.New("net::ERR_CONNECTION_RESET")})
			first = s.Page
		}

		return s.Page
	}

	err := NewUsecase(h.params()).Scheduler.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, h.launcher.Launches())
	assert.True(t, h.launcher.AllClosed())
	require.NotNil(t, first)
	assert.True(t, first.Closed)

	failed := h.logs.FilterMessage("Attempt failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, string(entity.OutcomeStructuralFailure), failed[0].ContextMap()["outcome"])
	assert.Equal(t, 1, h.registry.Writes)
}

func TestScheduler_StopsWhenContextEnds(t *testing.T) {
	h := newHarness(t)
	runs := 0
	o := h.orchestrator(runnerFunc(func(context.Context, ports.Page) entity.AttemptOutcome {
		runs++

		return entity.AttemptOutcome{Kind: entity.OutcomeNoBetterDate}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := o.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, runs)
	assert.Equal(t, runs, h.launcher.Launches())
	assert.True(t, h.launcher.AllClosed())
	assert.Zero(t, h.registry.Writes)
}

func TestAttempt_PanicIsStructuralFailure(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(runnerFunc(func(context.Context, ports.Page) entity.AttemptOutcome {
		panic("boom")
	}))

	attempt := o.Attempt(context.Background(), 1)

	assert.Equal(t, entity.StateRetrying, attempt.State)
	assert.Equal(t, entity.OutcomeStructuralFailure, attempt.Outcome.Kind)
	assert.Contains(t, attempt.Outcome.Reason, "boom")
	assert.True(t, h.launcher.AllClosed())
	assert.Len(t, h.logs.FilterMessage("Attempt panicked").All(), 1)
}

func TestAttempt_LaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.launcher.Err = errors.New("no browser")
	o := h.orchestrator(runnerFunc(func(context.Context, ports.Page) entity.AttemptOutcome {
		t.Fatal("runner must not run without a session")

		return entity.AttemptOutcome{}
	}))

	attempt := o.Attempt(context.Background(), 1)

	assert.Equal(t, entity.StateRetrying, attempt.State)
	assert.Equal(t, entity.OutcomeStructuralFailure, attempt.Outcome.Kind)
	assert.Contains(t, attempt.Outcome.Reason, "no browser")
}

func TestAttempt_PausedIdentityDoesNotLaunch(t *testing.T) {
	h := newHarness(t)
	h.registry.Content = "someone@example.com\n" + testUser + "\n"
	o := h.orchestrator(runnerFunc(func(context.Context, ports.Page) entity.AttemptOutcome {
		t.Fatal("runner must not run for a paused identity")

		return entity.AttemptOutcome{}
	}))

	for n := 1; n <= 3; n++ {
		attempt := o.Attempt(context.Background(), n)
		assert.Equal(t, entity.StatePaused, attempt.State)
	}

	assert.Zero(t, h.launcher.Launches())
	assert.Zero(t, h.registry.Writes)
	assert.Len(t, h.logs.FilterMessage("Paused account").All(), 3)
}

func TestAttempt_SuccessPausesIdentity(t *testing.T) {
	h := newHarness(t)
	h.cfg.PauseConfig.Path = filepath.Join(t.TempDir(), "PAUSE")
	h.launcher.Build = func(int) *browsertest.Page { return happySite(h).Page }

	params := h.params()
	params.Registry = pause.NewFileRegistry(pause.Params{Config: h.cfg, Logger: h.logger})

	f := newServiceFactory(params)
	o := f.CreateOrchestrator(f.CreateWorkflow(f.CreateCalendarScanner()))

	first := o.Attempt(context.Background(), 1)
	require.Equal(t, entity.StateSucceeded, first.State, first.Outcome.Reason)
	assert.NotEqual(t, first.ID, o.Attempt(context.Background(), 2).ID)

	second := o.Attempt(context.Background(), 3)
	assert.Equal(t, entity.StatePaused, second.State)
	assert.Equal(t, 1, h.launcher.Launches())

	data, err := os.ReadFile(h.cfg.PauseConfig.Path)
	require.NoError(t, err)
	assert.Equal(t, testUser+"\n", string(data))
}

func TestAttempt_NotifierFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness(t)
	h.notifier.Err = errors.New("telegram down")
	h.launcher.Build = func(int) *browsertest.Page { return happySite(h).Page }

	attempt := NewUsecase(h.params()).Scheduler.Attempt(context.Background(), 1)

	assert.Equal(t, entity.StateSucceeded, attempt.State)
	assert.Len(t, h.notifier.Sent(), 2)
	assert.Len(t, h.logs.FilterMessage("Failed to deliver notification").All(), 2)
}
