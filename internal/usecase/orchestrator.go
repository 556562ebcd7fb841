package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/poll"
	"visa-rescheduler/pkg/tracing"
)

const (
	orchestratorName   = "Orchestrator"
	orchestratorTracer = "usecase.orchestrator"
)

// Orchestrator repeats attempts until one succeeds. Nothing an attempt does
// stops the loop except success; a paused identity is skipped and the loop
// keeps sleeping.
type Orchestrator struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	launcher ports.Launcher
	registry ports.PauseRegistry
	runner   ports.AttemptRunner
	notifier ports.Notifier
	identity entity.Identity
	interval time.Duration
}

type OrchestratorParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Launcher ports.Launcher
	Registry ports.PauseRegistry
	Runner   ports.AttemptRunner
	Notifier ports.Notifier
}

func NewOrchestrator(params OrchestratorParams) *Orchestrator {
	return &Orchestrator{
		logger:   params.Logger.With(zap.String(logg.Layer, orchestratorName)),
		tracer:   otel.Tracer(orchestratorTracer),
		launcher: params.Launcher,
		registry: params.Registry,
		runner:   params.Runner,
		notifier: params.Notifier,
		identity: params.Config.Identity(),
		interval: params.Config.ScheduleConfig.RetryInterval,
	}
}

// Run loops until an attempt succeeds (nil) or ctx ends (ctx.Err()).
func (o *Orchestrator) Run(ctx context.Context) error {
	logger := o.logger.With(zap.String(logg.Operation, "Run"), zap.String(logg.Username, o.identity.Username))
	logger.Info("Scheduler started", zap.Duration("retry_interval", o.interval))

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt := o.Attempt(ctx, n)
		if attempt.State == entity.StateSucceeded {
			logger.Info("Scheduler finished", zap.Int("attempts", n))

			return nil
		}

		if err := poll.Sleep(ctx, o.interval); err != nil {
			logger.Info("Scheduler stopped", zap.Int("attempts", n), zap.Error(err))

			return err
		}
	}
}

// Attempt runs one pass of the state machine and reports the state it ended
// in: paused, succeeded or retrying.
func (o *Orchestrator) Attempt(ctx context.Context, n int) (attempt entity.Attempt) {
	const op = "Attempt"

	attempt = entity.Attempt{
		ID:        uuid.New(),
		Number:    n,
		StartedAt: time.Now(),
		State:     entity.StateAttempting,
	}

	logger := o.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.AttemptID, attempt.ID.String()),
		zap.Int("attempt", n),
	)

	ctx, step := tracing.StartSpan(ctx, o.tracer, logger, op,
		attribute.String("attempt_id", attempt.ID.String()),
		attribute.Int("attempt", n))
	defer func() {
		attempt.EndedAt = time.Now()
		logger.Debug("Attempt ended", zap.String(logg.State, string(attempt.State)))
		step.SetAttributes(attribute.String("state", string(attempt.State)))
		step.End(attempt.Outcome.Err)
	}()

	paused, err := o.registry.IsPaused(ctx, o.identity.Username)
	if err != nil {
		attempt.Outcome = structuralFailure(err)
		attempt.State = entity.StateRetrying
		logger.Error("Failed to read pause record", zap.Error(err))

		return attempt
	}

	if paused {
		attempt.State = entity.StatePaused
		logger.Info("Paused account", zap.String(logg.Username, o.identity.Username))

		return attempt
	}

	attempt.Outcome = o.runInSession(ctx, logger)

	outcomeFields := []zap.Field{
		zap.String(logg.Outcome, string(attempt.Outcome.Kind)),
		zap.Duration("elapsed", time.Since(attempt.StartedAt)),
	}
	if !attempt.Outcome.Date.IsZero() {
		outcomeFields = append(outcomeFields, zap.String(logg.Date, attempt.Outcome.Date.Format(entity.DateLayout)))
	}

	if !attempt.Outcome.Retry() {
		attempt.State = entity.StateSucceeded
		logger.Info("Attempt succeeded", outcomeFields...)

		if err := o.registry.MarkPaused(ctx, o.identity.Username); err != nil {
			logger.Error("Failed to write pause record", zap.Error(err))
		}

		_ = o.notifier.Notify(ctx, fmt.Sprintf("Successfully scheduled a new appointment for %s", o.identity.Username))

		return attempt
	}

	attempt.State = entity.StateRetrying

	switch attempt.Outcome.Kind {
	case entity.OutcomeNoBetterDate, entity.OutcomeDateExpired:
		logger.Info("Attempt found no better date", outcomeFields...)
	default:
		logger.Error("Attempt failed", append(outcomeFields,
			zap.String(apperr.MetaReason, attempt.Outcome.Reason))...)
	}

	return attempt
}

// runInSession opens a dedicated browser for one attempt and always closes
// it, whether the attempt returns, fails or panics.
func (o *Orchestrator) runInSession(ctx context.Context, logger *zap.Logger) (outcome entity.AttemptOutcome) {
	const op = "runInSession"

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Attempt panicked", zap.Any("panic", r))
			outcome = panicFailure(r)
		}
	}()

	session, err := o.launcher.Launch(ctx)
	if err != nil {
		return structuralFailure(apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		}))
	}

	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close browser session", zap.Error(err))
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return structuralFailure(apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "page_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		}))
	}

	return o.runner.Run(ctx, page)
}
