package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/internal/selectors"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/poll"
)

// interactor bundles resolve → synchronize → act for one page.
type interactor struct {
	resolver     ports.Resolver
	synchronizer ports.Synchronizer
	timeout      time.Duration
	logger       *zap.Logger
}

// locate resolves target within scope and makes it interactable.
func (i *interactor) locate(ctx context.Context, scope ports.Scope, target selectors.Target, resolveTimeout time.Duration) (ports.Element, error) {
	el, err := i.resolver.Resolve(ctx, scope, target.Chain, resolveTimeout)
	if err != nil {
		return nil, err
	}

	if err := i.synchronizer.EnsureInteractable(ctx, el, i.timeout); err != nil {
		return nil, err
	}

	return el, nil
}

func (i *interactor) click(ctx context.Context, scope ports.Scope, target selectors.Target) error {
	const op = "click"

	el, err := i.locate(ctx, scope, target, i.timeout)
	if err != nil {
		return err
	}

	if err := el.Click(ctx, target.Offset); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: target.Chain.String(),
		})
	}

	return nil
}

// enterText clicks the field and enters text according to the element's
// input capability.
func (i *interactor) enterText(ctx context.Context, scope ports.Scope, target selectors.Target, text string) error {
	const op = "enterText"

	el, err := i.locate(ctx, scope, target, i.timeout)
	if err != nil {
		return err
	}

	if target.Offset != nil {
		if err := el.Click(ctx, target.Offset); err != nil {
			return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
				apperr.MetaReason:   "click_failed",
				apperr.MetaStage:    apperr.StageInteraction,
				apperr.MetaSelector: target.Chain.String(),
			})
		}
	}

	domType, err := el.InputType(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "input_type_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: target.Chain.String(),
		})
	}

	capability := entity.CapabilityOf(domType)
	i.logger.Debug("Entering text", zap.String(logg.Selector, target.Chain.String()), zap.Stringer("capability", capability))

	switch capability {
	case entity.InputTextual:
		err = el.Type(ctx, text)
	default:
		if err = el.Focus(ctx); err == nil {
			err = el.SetValue(ctx, text)
		}
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "enter_text_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: target.Chain.String(),
		})
	}

	return nil
}

func settle(ctx context.Context, d time.Duration) error {
	return poll.Sleep(ctx, d)
}
