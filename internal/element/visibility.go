package element

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/poll"
	"visa-rescheduler/pkg/tracing"
)

const synchronizerName = "VisibilitySynchronizer"

type Synchronizer struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewSynchronizer(params Params) *Synchronizer {
	return &Synchronizer{
		logger: params.Logger.With(zap.String(logg.Layer, synchronizerName)),
		tracer: otel.Tracer(elementTracer),
	}
}

// EnsureInteractable waits until el is attached to the document and inside
// the viewport, scrolling it to the center when it is not.
func (s *Synchronizer) EnsureInteractable(ctx context.Context, el ports.Element, timeout time.Duration) (err error) {
	const op = "EnsureInteractable"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = poll.Until(ctx, timeout, el.IsConnected); err != nil {
		return waitError(op, "not_connected", err)
	}

	inView, err := el.IsInViewport(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "viewport_check_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if inView {
		return nil
	}

	step.AddEvent("scrolling into view")

	if err = el.ScrollIntoCenter(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if err = poll.Until(ctx, timeout, el.IsInViewport); err != nil {
		return waitError(op, "not_in_viewport", err)
	}

	return nil
}

func waitError(op, reason string, err error) error {
	code := apperr.CodeInternal
	if errors.Is(err, poll.ErrTimeout) {
		code = apperr.CodeTimeout
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageInteraction,
	})
}
