// Package element locates DOM nodes through fallback selector chains and
// makes them safe to interact with.
package element

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/poll"
	"visa-rescheduler/pkg/tracing"
)

const (
	resolverName  = "ElementResolver"
	elementTracer = "element"
)

var errEmptyChain = errors.New("empty selector chain")

type Resolver struct {
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Logger *zap.Logger
}

func NewResolver(params Params) *Resolver {
	return &Resolver{
		logger: params.Logger.With(zap.String(logg.Layer, resolverName)),
		tracer: otel.Tracer(elementTracer),
	}
}

// Resolve returns the first visible element matched by chain within scope.
//
// Every poll tries the groups in declaration order; a group stops at its
// first selector without a match and the next group is tried. The timeout
// bounds the whole chain, not each group.
func (r *Resolver) Resolve(ctx context.Context, scope ports.Scope, chain entity.SelectorChain, timeout time.Duration) (found ports.Element, err error) {
	const op = "Resolve"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, chain.String()))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("chain", chain.String()))
	defer func() {
		step.End(err)
	}()

	if len(chain) == 0 {
		return nil, apperr.InvalidReqError(op, "chain", errEmptyChain)
	}

	var lastErr error

	err = poll.Until(ctx, timeout, func(ctx context.Context) (bool, error) {
		for _, group := range chain {
			el, gerr := resolveGroup(ctx, scope, group)
			if gerr != nil {
				// The DOM may be mid-mutation; try the next group and poll again.
				lastErr = gerr
				logger.Debug("Selector group failed", zap.Stringer("group", group), zap.Error(gerr))

				continue
			}

			if el != nil {
				found = el

				return true, nil
			}
		}

		return false, nil
	})

	switch {
	case err == nil:
		step.AddEvent("resolved")

		return found, nil
	case errors.Is(err, poll.ErrTimeout):
		cause := fmt.Errorf("could not find element for selectors %s", chain)
		if lastErr != nil {
			cause = fmt.Errorf("%w: %w", cause, lastErr)
		}

		return nil, apperr.Wrap(op, apperr.CodeNotFound, cause, map[string]any{
			apperr.MetaReason:   "selector_not_found",
			apperr.MetaSelector: chain.String(),
		})
	default:
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "resolve_aborted",
			apperr.MetaSelector: chain.String(),
		})
	}
}

// resolveGroup walks one group, narrowing into shadow roots between steps.
// A nil element with a nil error means the group has no visible match yet.
func resolveGroup(ctx context.Context, scope ports.Scope, group entity.SelectorGroup) (ports.Element, error) {
	if len(group) == 0 {
		return nil, nil
	}

	cur := scope

	var el ports.Element

	for i, sel := range group {
		next, err := cur.QuerySelector(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", sel, err)
		}

		if next == nil {
			return nil, nil
		}

		visible, err := next.IsVisible(ctx)
		if err != nil {
			return nil, fmt.Errorf("visibility of %q: %w", sel, err)
		}

		if !visible {
			return nil, nil
		}

		el = next

		if i < len(group)-1 {
			cur, err = next.ShadowScope(ctx)
			if err != nil {
				return nil, fmt.Errorf("shadow scope of %q: %w", sel, err)
			}
		}
	}

	return el, nil
}
