package usecase

import (
	"fmt"
	"time"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/pkg/apperr"
)

// classify turns the error an attempt ended with into its outcome.
func classify(err error, date time.Time) entity.AttemptOutcome {
	if err == nil {
		return entity.AttemptOutcome{Kind: entity.OutcomeSuccess, Date: date}
	}

	switch apperr.CodeOf(err) {
	case apperr.CodeNoBetterDate:
		return entity.AttemptOutcome{Kind: entity.OutcomeNoBetterDate, Date: date, Err: err}
	case apperr.CodeDateExpired:
		return entity.AttemptOutcome{Kind: entity.OutcomeDateExpired, Date: date, Err: err}
	default:
		return structuralFailure(err)
	}
}

func structuralFailure(err error) entity.AttemptOutcome {
	return entity.AttemptOutcome{
		Kind:   entity.OutcomeStructuralFailure,
		Reason: err.Error(),
		Err:    err,
	}
}

func panicFailure(r any) entity.AttemptOutcome {
	return structuralFailure(apperr.Wrap("attempt", apperr.CodeStructural, fmt.Errorf("panic: %v", r), map[string]any{
		apperr.MetaReason: "panic",
	}))
}
