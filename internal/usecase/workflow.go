package usecase

import (
	"context"
	"fmt"
	"net/url"
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
	workflowName   = "Workflow"
	workflowTracer = "usecase.workflow"

	// The first option of the time select is a blank placeholder.
	firstTimeSlotIndex = 1
)

// Workflow is the fixed sign-in through confirmation pipeline of one attempt.
type Workflow struct {
	interactor
	config   *config.Config
	tracer   trace.Tracer
	sel      *selectors.Catalogue
	scanner  *CalendarScanner
	notifier ports.Notifier
	identity entity.Identity
	window   entity.AppointmentWindow
}

type WorkflowParams struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Selectors    *selectors.Catalogue
	Resolver     ports.Resolver
	Synchronizer ports.Synchronizer
	Notifier     ports.Notifier
	Scanner      *CalendarScanner
}

func NewWorkflow(params WorkflowParams) *Workflow {
	logger := params.Logger.With(zap.String(logg.Layer, workflowName))

	return &Workflow{
		interactor: interactor{
			resolver:     params.Resolver,
			synchronizer: params.Synchronizer,
			timeout:      params.Config.BrowserConfig.StepTimeout,
			logger:       logger,
		},
		config:   params.Config,
		tracer:   otel.Tracer(workflowTracer),
		sel:      params.Selectors,
		scanner:  params.Scanner,
		notifier: params.Notifier,
		identity: params.Config.Identity(),
		window:   params.Config.Window(),
	}
}

type attemptState struct {
	// date is the earliest available date, then the selected one.
	date time.Time
}

type workflowStep struct {
	name string
	run  func(ctx context.Context, page ports.Page, st *attemptState) error
}

// Run executes every step in order. The first failing step ends the attempt.
func (w *Workflow) Run(ctx context.Context, page ports.Page) (outcome entity.AttemptOutcome) {
	const op = "Run"
	logger := w.logger.With(zap.String(logg.Operation, op))

	ctx, span := tracing.StartSpan(ctx, w.tracer, logger, op)

	var err error
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
		span.End(err)
	}()

	st := &attemptState{}
	err = w.execute(ctx, page, st)

	return classify(err, st.date)
}

func (w *Workflow) execute(ctx context.Context, page ports.Page, st *attemptState) error {
	for _, s := range w.steps() {
		logger := w.logger.With(zap.String(logg.Step, s.name))

		stepCtx, span := tracing.StartSpan(ctx, w.tracer, logger, s.name)
		logger.Debug("Step started")

		err := s.run(stepCtx, page, st)
		span.End(err)

		if err != nil {
			return apperr.Wrap(s.name, apperr.CodeOf(err), err, map[string]any{
				apperr.MetaStep: s.name,
			})
		}
	}

	return nil
}

func (w *Workflow) steps() []workflowStep {
	return []workflowStep{
		{"navigate_sign_in", w.navigateSignIn},
		{"fill_email", w.fillEmail},
		{"tab_to_password", w.tabToPassword},
		{"fill_password", w.fillPassword},
		{"accept_terms", w.acceptTerms},
		{"submit_sign_in", w.submitSignIn},
		{"poll_availability", w.pollAvailability},
		{"open_appointment_form", w.openAppointmentForm},
		{"select_group", w.selectGroup},
		{"select_facility", w.selectFacility},
		{"open_date_picker", w.openDatePicker},
		{"scan_calendar", w.scanCalendar},
		{"pick_time", w.pickTime},
		{"submit_reschedule", w.submitReschedule},
		{"confirm", w.confirm},
	}
}

func (w *Workflow) navigateSignIn(ctx context.Context, page ports.Page, _ *attemptState) error {
	_, err := page.Goto(ctx, w.siteURL("users/sign_in"))

	return err
}

func (w *Workflow) fillEmail(ctx context.Context, page ports.Page, _ *attemptState) error {
	return w.enterText(ctx, page, w.sel.Email, w.identity.Username)
}

func (w *Workflow) tabToPassword(ctx context.Context, page ports.Page, _ *attemptState) error {
	return page.PressKey(ctx, "Tab")
}

func (w *Workflow) fillPassword(ctx context.Context, page ports.Page, _ *attemptState) error {
	return w.enterText(ctx, page, w.sel.Password, w.identity.Password)
}

func (w *Workflow) acceptTerms(ctx context.Context, page ports.Page, _ *attemptState) error {
	return w.click(ctx, page, w.sel.Agreement)
}

func (w *Workflow) submitSignIn(ctx context.Context, page ports.Page, _ *attemptState) error {
	const op = "submitSignIn"

	el, err := w.locate(ctx, page, w.sel.SignIn, w.timeout)
	if err != nil {
		return err
	}

	if err := page.ClickAndWaitForNavigation(ctx, el, w.sel.SignIn.Offset); err != nil {
		return apperr.Wrap(op, apperr.CodeStructural, err, map[string]any{
			apperr.MetaReason: "sign_in_navigation_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	w.logger.Info("Signed in", zap.String(logg.Username, w.identity.Username))

	return nil
}

func (w *Workflow) openAppointmentForm(ctx context.Context, page ports.Page, _ *attemptState) error {
	target := w.appointmentURL()
	w.logger.Info("Opening appointment form", zap.String(logg.URL, target))

	if _, err := page.Goto(ctx, target); err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.SettleDelay)
}

func (w *Workflow) selectGroup(ctx context.Context, page ports.Page, _ *attemptState) error {
	if !w.config.ScheduleConfig.GroupAppointment {
		return nil
	}

	if err := w.click(ctx, page, w.sel.GroupContinue); err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.SettleDelay)
}

func (w *Workflow) selectFacility(ctx context.Context, page ports.Page, _ *attemptState) error {
	const op = "selectFacility"

	if _, err := w.locate(ctx, page, w.sel.Facility, w.timeout); err != nil {
		return err
	}

	if err := page.SelectOption(ctx, w.sel.Facility.CSS, w.window.FacilityID); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "select_facility_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: w.sel.Facility.CSS,
		})
	}

	return settle(ctx, w.config.TimingConfig.SettleDelay)
}

func (w *Workflow) openDatePicker(ctx context.Context, page ports.Page, _ *attemptState) error {
	if err := w.click(ctx, page, w.sel.Date); err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.SettleDelay)
}

func (w *Workflow) scanCalendar(ctx context.Context, page ports.Page, st *attemptState) error {
	res, err := w.scanner.Scan(ctx, page, w.window.Cutoff)
	if !res.Date.IsZero() {
		st.date = res.Date
	}

	if err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.SettleDelay)
}

func (w *Workflow) pickTime(ctx context.Context, page ports.Page, _ *attemptState) error {
	const op = "pickTime"

	if _, err := w.locate(ctx, page, w.sel.Time, w.timeout); err != nil {
		return err
	}

	if err := page.ChooseOptionAt(ctx, w.sel.Time.CSS, firstTimeSlotIndex); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "choose_time_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: w.sel.Time.CSS,
		})
	}

	return settle(ctx, w.config.TimingConfig.SubmitSettleDelay)
}

func (w *Workflow) submitReschedule(ctx context.Context, page ports.Page, _ *attemptState) error {
	if err := w.click(ctx, page, w.sel.Reschedule); err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.SubmitSettleDelay)
}

func (w *Workflow) confirm(ctx context.Context, page ports.Page, _ *attemptState) error {
	if err := w.click(ctx, page, w.sel.Confirm); err != nil {
		return err
	}

	return settle(ctx, w.config.TimingConfig.ConfirmSettleDelay)
}

func (w *Workflow) siteURL(path string) string {
	base := strings.TrimRight(w.config.ScheduleConfig.BaseURL, "/")

	return fmt.Sprintf("%s/en-%s/niv/%s", base, url.PathEscape(w.window.Region), path)
}

func (w *Workflow) appointmentURL() string {
	return w.siteURL(fmt.Sprintf("schedule/%s/appointment", url.PathEscape(w.window.AppointmentID)))
}

func (w *Workflow) daysURL() string {
	return w.siteURL(fmt.Sprintf("schedule/%s/appointment/days/%s.json?appointments[expedite]=false",
		url.PathEscape(w.window.AppointmentID), url.PathEscape(w.window.FacilityID)))
}
