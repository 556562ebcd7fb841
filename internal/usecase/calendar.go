package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/internal/selectors"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/tracing"
)

const (
	calendarScannerName = "CalendarScanner"
	calendarTracer      = "usecase.calendar"
)

// CalendarScanner pages through the date picker month by month until it
// finds the first enabled day.
type CalendarScanner struct {
	interactor
	tracer      trace.Tracer
	day         selectors.Target
	nextMonth   selectors.Target
	scanTimeout time.Duration
	maxAdvances int
}

type CalendarScannerParams struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Selectors    *selectors.Catalogue
	Resolver     ports.Resolver
	Synchronizer ports.Synchronizer
}

func NewCalendarScanner(params CalendarScannerParams) *CalendarScanner {
	logger := params.Logger.With(zap.String(logg.Layer, calendarScannerName))

	return &CalendarScanner{
		interactor: interactor{
			resolver:     params.Resolver,
			synchronizer: params.Synchronizer,
			timeout:      params.Config.BrowserConfig.StepTimeout,
			logger:       logger,
		},
		tracer:      otel.Tracer(calendarTracer),
		day:         params.Selectors.Day,
		nextMonth:   params.Selectors.NextMonth,
		scanTimeout: params.Config.TimingConfig.CalendarScanTimeout,
		maxAdvances: params.Config.TimingConfig.CalendarMaxAdvances,
	}
}

// ScanResult describes where the scan stopped.
type ScanResult struct {
	Date     time.Time
	Advances int
}

// Scan selects the first enabled day when it is before cutoff. If that day is
// on or after cutoff the scan stops with a date_expired error; later months
// can only be later. Months without an enabled day are skipped, at most
// maxAdvances times.
func (s *CalendarScanner) Scan(ctx context.Context, page ports.Scope, cutoff time.Time) (res ScanResult, err error) {
	const op = "Scan"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("cutoff", cutoff.Format(entity.DateLayout)))
	defer func() {
		step.SetAttributes(attribute.Int("advances", res.Advances))
		step.End(err)
	}()

	for {
		el, err := s.resolver.Resolve(ctx, page, s.day.Chain, s.scanTimeout)

		switch {
		case err == nil:
			return s.decide(ctx, el, cutoff, res.Advances)
		case !apperr.Is(err, apperr.CodeNotFound):
			return res, err
		}

		logger.Debug("No enabled day in displayed month", zap.Int("advances", res.Advances))

		if res.Advances >= s.maxAdvances {
			return res, apperr.Wrap(op, apperr.CodeDateExpired,
				fmt.Errorf("no enabled day within %d months", s.maxAdvances),
				map[string]any{
					apperr.MetaReason: "calendar_exhausted",
					apperr.MetaStage:  apperr.StageCalendar,
				})
		}

		if err := s.click(ctx, page, s.nextMonth); err != nil {
			return res, err
		}

		res.Advances++
		step.AddEvent("advanced month")
	}
}

func (s *CalendarScanner) decide(ctx context.Context, el ports.Element, cutoff time.Time, advances int) (ScanResult, error) {
	const op = "decide"

	res := ScanResult{Advances: advances}

	if err := s.synchronizer.EnsureInteractable(ctx, el, s.timeout); err != nil {
		return res, err
	}

	candidate, err := readDay(ctx, el)
	if err != nil {
		return res, apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "unreadable_day",
			apperr.MetaStage:  apperr.StageCalendar,
		})
	}

	res.Date = candidate
	day := candidate.Format(entity.DateLayout)

	if !candidate.Before(cutoff) {
		s.logger.Info("Date has gone, first enabled day is too late", zap.String(logg.Date, day))

		return res, apperr.Wrap(op, apperr.CodeDateExpired,
			fmt.Errorf("first enabled day %s is not before %s", day, cutoff.Format(entity.DateLayout)),
			map[string]any{
				apperr.MetaReason: "first_day_too_late",
				apperr.MetaStage:  apperr.StageCalendar,
				apperr.MetaDate:   day,
			})
	}

	if err := el.Click(ctx, s.day.Offset); err != nil {
		return res, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "day_click_failed",
			apperr.MetaStage:  apperr.StageCalendar,
			apperr.MetaDate:   day,
		})
	}

	s.logger.Info("Selected day", zap.String(logg.Date, day), zap.Int("advances", advances))

	return res, nil
}

// readDay builds the date of a picker cell. The cell carries the year and
// the zero-based month; the link text is the day of month.
func readDay(ctx context.Context, el ports.Element) (time.Time, error) {
	rawYear, err := el.ParentAttribute(ctx, "data-year")
	if err != nil {
		return time.Time{}, err
	}

	rawMonth, err := el.ParentAttribute(ctx, "data-month")
	if err != nil {
		return time.Time{}, err
	}

	rawDay, err := el.Text(ctx)
	if err != nil {
		return time.Time{}, err
	}

	year, err := strconv.Atoi(strings.TrimSpace(rawYear))
	if err != nil {
		return time.Time{}, fmt.Errorf("year %q: %w", rawYear, err)
	}

	month, err := strconv.Atoi(strings.TrimSpace(rawMonth))
	if err != nil || month < 0 || month > 11 {
		return time.Time{}, fmt.Errorf("month %q out of range", rawMonth)
	}

	day, err := strconv.Atoi(strings.TrimSpace(rawDay))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day %q out of range", rawDay)
	}

	date := time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC)
	if date.Month() != time.Month(month+1) || date.Day() != day {
		return time.Time{}, fmt.Errorf("day %d does not exist in %d-%02d", day, year, month+1)
	}

	return date, nil
}
