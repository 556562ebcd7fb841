package usecase

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"visa-rescheduler/internal/browser/browsertest"
	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/element"
	"visa-rescheduler/internal/selectors"
)

const (
	testUser       = "user@example.com"
	testBaseURL    = "https://visa.example.test"
	daysPrefix     = testBaseURL + "/en-ca/niv/schedule/123/appointment/days/94.json"
	appointmentURL = testBaseURL + "/en-ca/niv/schedule/123/appointment"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig:     &config.AppConfig{LogLevel: "debug"},
		BrowserConfig: &config.BrowserConfig{StepTimeout: 300 * time.Millisecond},
		ScheduleConfig: &config.ScheduleConfig{
			Username:      testUser,
			Password:      "secret",
			AppointmentID: "123",
			FacilityID:    "94",
			CutoffDate:    "2024-06-01",
			Cutoff:        day(2024, time.June, 1),
			RetryInterval: 10 * time.Millisecond,
			Region:        "ca",
			BaseURL:       testBaseURL,
		},
		TimingConfig: &config.TimingConfig{
			CalendarScanTimeout: 20 * time.Millisecond,
			CalendarMaxAdvances: 36,
		},
		NotifierConfig:  &config.NotifierConfig{},
		PauseConfig:     &config.PauseConfig{},
		SelectorsConfig: &config.SelectorsConfig{},
	}
}

type harness struct {
	cfg      *config.Config
	sel      *selectors.Catalogue
	logger   *zap.Logger
	logs     *observer.ObservedLogs
	launcher *browsertest.Launcher
	notifier *browsertest.Notifier
	registry *browsertest.PauseRegistry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sel, err := selectors.Default()
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)

	return &harness{
		cfg:      testConfig(),
		sel:      sel,
		logger:   zap.New(core),
		logs:     logs,
		launcher: &browsertest.Launcher{},
		notifier: &browsertest.Notifier{},
		registry: &browsertest.PauseRegistry{},
	}
}

func (h *harness) params() Params {
	return Params{
		Logger:       h.logger,
		Config:       h.cfg,
		Selectors:    h.sel,
		Resolver:     element.NewResolver(element.Params{Logger: h.logger}),
		Synchronizer: element.NewSynchronizer(element.Params{Logger: h.logger}),
		Launcher:     h.launcher,
		Notifier:     h.notifier,
		Registry:     h.registry,
	}
}

func (h *harness) workflow() *Workflow {
	f := newServiceFactory(h.params())

	return f.CreateWorkflow(f.CreateCalendarScanner())
}

func (h *harness) scanner() *CalendarScanner {
	return newServiceFactory(h.params()).CreateCalendarScanner()
}

// site is a scripted copy of the booking pages, reachable through the
// structural CSS group of every catalogue target.
type site struct {
	*browsertest.Page
	calendar *calendar

	email, password, agreement, signIn, group *browsertest.Node
	facility, date, timeSelect, reschedule       *browsertest.Node
	confirm                                      *browsertest.Node
}

func newSite(sel *selectors.Catalogue, availability string, months ...*browsertest.Node) *site {
	page := browsertest.NewPage()
	page.Respond(daysPrefix, browsertest.Response{Body: availability})

	s := &site{Page: page}
	s.email = place(page, sel.Email, "email")
	s.email.DOMType = "email"
	s.password = place(page, sel.Password, "password")
	s.password.DOMType = "password"
	s.agreement = place(page, sel.Agreement, "agreement")
	s.signIn = place(page, sel.SignIn, "sign_in")
	s.group = place(page, sel.GroupContinue, "group_continue")
	s.facility = place(page, sel.Facility, "facility")
	s.date = place(page, sel.Date, "date")
	s.timeSelect = place(page, sel.Time, "time")
	s.reschedule = place(page, sel.Reschedule, "reschedule")
	s.confirm = place(page, sel.Confirm, "confirm")
	s.calendar = newCalendar(page, sel, months...)

	return s
}

func place(page *browsertest.Page, target selectors.Target, name string) *browsertest.Node {
	return page.AddPath(target.Chain[len(target.Chain)-1], browsertest.NewNode(name))
}

func availabilityJSON(dates ...string) string {
	body := "["
	for i, d := range dates {
		if i > 0 {
			body += ","
		}

		body += `{"date":` + strconv.Quote(d) + `,"business_day":true}`
	}

	return body + "]"
}

// enabledDay is a picker cell for the given date. month is 1-based here and
// stored zero-based like the widget does.
func enabledDay(y int, m time.Month, d int) *browsertest.Node {
	n := browsertest.NewNode("day")
	n.TextContent = strconv.Itoa(d)
	n.ParentAttrs = map[string]string{
		"data-year":  strconv.Itoa(y),
		"data-month": strconv.Itoa(int(m) - 1),
	}

	return n
}

// calendar shows one month at a time. A nil month has no enabled day.
// Clicking next shows the following month, or keeps the last one.
type calendar struct {
	page   *browsertest.Page
	daySel string
	months []*browsertest.Node
	shown  int
	next   *browsertest.Node
}

func newCalendar(page *browsertest.Page, sel *selectors.Catalogue, months ...*browsertest.Node) *calendar {
	c := &calendar{
		page:   page,
		daySel: sel.Day.Chain[len(sel.Day.Chain)-1][0],
		months: months,
	}

	c.next = place(page, sel.NextMonth, "next_month")
	c.next.OnClick = func() {
		if c.shown < len(c.months)-1 {
			c.shown++
		}

		c.render()
	}

	c.render()

	return c
}

func (c *calendar) render() {
	c.page.Remove(c.daySel)

	if len(c.months) == 0 {
		return
	}

	if m := c.months[c.shown]; m != nil {
		c.page.Add(c.daySel, m)
	}
}
