package adapters

import (
	"context"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
)

type AttemptService interface {
	Run(ctx context.Context, page ports.Page) entity.AttemptOutcome
}

type SchedulerService interface {
	Run(ctx context.Context) error
	Attempt(ctx context.Context, n int) entity.Attempt
}
