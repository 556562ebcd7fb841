package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
)

var jsonHeaders = map[string]string{
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"X-Requested-With": "XMLHttpRequest",
}

// DecideAvailability returns the earliest listed date when it is strictly
// before cutoff. An empty list, or an earliest date on or after cutoff,
// yields a no_better_date error.
func DecideAvailability(days []entity.AvailableDay, cutoff time.Time) (time.Time, error) {
	const op = "DecideAvailability"

	if len(days) == 0 {
		return time.Time{}, apperr.WrapErrorWithReason(op, apperr.CodeNoBetterDate, "no_available_dates")
	}

	var earliest time.Time

	for i, d := range days {
		t, err := d.Time()
		if err != nil {
			return time.Time{}, apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
				apperr.MetaReason: "malformed_date",
				apperr.MetaStage:  apperr.StageAvailability,
				apperr.MetaDate:   d.Date,
			})
		}

		if i == 0 || t.Before(earliest) {
			earliest = t
		}
	}

	if !earliest.Before(cutoff) {
		return earliest, apperr.Wrap(op, apperr.CodeNoBetterDate,
			fmt.Errorf("earliest date %s is not before %s", earliest.Format(entity.DateLayout), cutoff.Format(entity.DateLayout)),
			map[string]any{
				apperr.MetaReason: "no_earlier_date",
				apperr.MetaDate:   earliest.Format(entity.DateLayout),
			})
	}

	return earliest, nil
}

// fetchAvailability switches the page to JSON requests, loads the day list
// for the configured facility and switches back.
func (w *Workflow) fetchAvailability(ctx context.Context, page ports.Page) ([]entity.AvailableDay, error) {
	const op = "fetchAvailability"
	logger := w.logger.With(zap.String(logg.Operation, op))

	if err := page.SetExtraHTTPHeaders(ctx, jsonHeaders); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "set_headers_failed",
			apperr.MetaStage:  apperr.StageAvailability,
		})
	}

	url := w.daysURL()
	resp, err := page.Goto(ctx, url)

	if rerr := page.SetExtraHTTPHeaders(ctx, map[string]string{}); rerr != nil {
		logger.Warn("Failed to reset request headers", zap.Error(rerr))
	}

	if err != nil {
		return nil, err
	}

	logger.Info("Availability response", zap.Int("status", resp.Status), zap.String(logg.URL, url))

	if resp.Status != 0 && resp.Status != http.StatusOK {
		return nil, apperr.Wrap(op, apperr.CodeStructural, fmt.Errorf("unexpected status %d", resp.Status), map[string]any{
			apperr.MetaReason: "unexpected_status",
			apperr.MetaStage:  apperr.StageAvailability,
			apperr.MetaStatus: resp.Status,
			apperr.MetaURL:    url,
		})
	}

	var days []entity.AvailableDay
	if err := json.Unmarshal(resp.Body, &days); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "malformed_json",
			apperr.MetaStage:  apperr.StageAvailability,
			apperr.MetaURL:    url,
		})
	}

	logger.Debug("Available dates", zap.Any("days", days))

	return days, nil
}

func (w *Workflow) pollAvailability(ctx context.Context, page ports.Page, st *attemptState) error {
	days, err := w.fetchAvailability(ctx, page)
	if err != nil {
		return err
	}

	earliest, err := DecideAvailability(days, w.window.Cutoff)
	st.date = earliest

	if err != nil {
		if apperr.Is(err, apperr.CodeNoBetterDate) {
			w.logger.Info("No earlier date available",
				zap.String("facility_id", w.window.FacilityID),
				zap.String("cutoff", w.window.Cutoff.Format(entity.DateLayout)))
		}

		return err
	}

	w.logger.Info("Found an earlier date", zap.String(logg.Date, earliest.Format(entity.DateLayout)))

	_ = w.notifier.Notify(ctx, fmt.Sprintf("Found an earlier date! %s for %s", earliest.Format(entity.DateLayout), w.identity.Username))

	return nil
}
