package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"visa-rescheduler/internal/browser/browsertest"
	"visa-rescheduler/internal/entity"
)

func happySite(h *harness) *site {
	return newSite(h.sel, availabilityJSON("2024-05-20", "2024-05-10"), enabledDay(2024, time.May, 10))
}

func TestWorkflow_Success(t *testing.T) {
	h := newHarness(t)
	s := happySite(h)

	outcome := h.workflow().Run(context.Background(), s)

	require.Equal(t, entity.OutcomeSuccess, outcome.Kind, outcome.Reason)
	assert.Equal(t, day(2024, time.May, 10), outcome.Date)

	assert.Equal(t, []string{
		testBaseURL + "/en-ca/niv/users/sign_in",
		daysPrefix + "?appointments[expedite]=false",
		testBaseURL + "/en-ca/niv/schedule/123/appointment",
	}, s.VisitedURLs())

	_, typed, _ := s.email.Snapshot()
	assert.Equal(t, testUser, typed)
	assert.Equal(t, h.sel.Email.Offset, s.email.LastOffset)

	_, typed, _ = s.password.Snapshot()
	assert.Equal(t, "secret", typed)

	assert.Equal(t, []string{"Tab"}, s.Keys)
	assert.Equal(t, 1, s.Navigated)
	assert.Equal(t, []map[string]string{jsonHeaders, {}}, s.Headers)
	assert.Equal(t, "94", s.Selected[h.sel.Facility.CSS])
	assert.Equal(t, firstTimeSlotIndex, s.Chosen[h.sel.Time.CSS])

	for _, n := range []*browsertest.Node{s.agreement, s.date, s.reschedule, s.confirm} {
		clicks, _, _ := n.Snapshot()
		assert.Equal(t, 1, clicks, n.Name)
	}

	groupClicks, _, _ := s.group.Snapshot()
	assert.Zero(t, groupClicks)

	assert.Equal(t, []string{"Found an earlier date! 2024-05-10 for " + testUser}, h.notifier.Sent())
}

func TestWorkflow_GroupAppointment(t *testing.T) {
	h := newHarness(t)
	h.cfg.ScheduleConfig.GroupAppointment = true
	s := happySite(h)

	outcome := h.workflow().Run(context.Background(), s)

	require.Equal(t, entity.OutcomeSuccess, outcome.Kind, outcome.Reason)

	clicks, _, _ := s.group.Snapshot()
	assert.Equal(t, 1, clicks)
}

func TestWorkflow_NoBetterDate(t *testing.T) {
	cases := []struct {
		name string
		body string
		date time.Time
	}{
		{"empty list", "[]", time.Time{}},
		{"all later", availabilityJSON("2024-07-01"), day(2024, time.July, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			s := newSite(h.sel, tc.body, enabledDay(2024, time.May, 10))

			outcome := h.workflow().Run(context.Background(), s)

			assert.Equal(t, entity.OutcomeNoBetterDate, outcome.Kind)
			assert.Equal(t, tc.date, outcome.Date)
			assert.Len(t, s.VisitedURLs(), 2)
			assert.Empty(t, h.notifier.Sent())

			clicks, _, _ := s.confirm.Snapshot()
			assert.Zero(t, clicks)
		})
	}
}

func TestWorkflow_DateGoneDuringSelection(t *testing.T) {
	h := newHarness(t)
	s := newSite(h.sel, availabilityJSON("2024-05-10"), enabledDay(2024, time.June, 15))

	outcome := h.workflow().Run(context.Background(), s)

	assert.Equal(t, entity.OutcomeDateExpired, outcome.Kind)
	assert.Equal(t, day(2024, time.June, 15), outcome.Date)
	assert.Empty(t, s.Chosen)

	clicks, _, _ := s.reschedule.Snapshot()
	assert.Zero(t, clicks)
}

func TestWorkflow_StructuralFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(s *site)
		step   string
	}{
		{
			name:   "missing confirm button",
			mutate: func(s *site) { s.confirm.Hidden = true },
			step:   "confirm",
		},
		{
			name: "navigation error on appointment page",
			mutate: func(s *site) {
				s.Respond(appointmentURL, browsertest.Response{Err: errors.New("net::ERR_CONNECTION_RESET")})
			},
			step: "open_appointment_form",
		},
		{
			name: "availability rejected",
			mutate: func(s *site) {
				s.Respond(daysPrefix, browsertest.Response{Status: 401, Body: "unauthorized"})
			},
			step: "poll_availability",
		},
		{
			name: "availability not json",
			mutate: func(s *site) {
				s.Respond(daysPrefix, browsertest.Response{Body: "<html></html>"})
			},
			step: "poll_availability",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			s := happySite(h)
			tc.mutate(s)

			outcome := h.workflow().Run(context.Background(), s)

			assert.Equal(t, entity.OutcomeStructuralFailure, outcome.Kind)
			assert.Contains(t, outcome.Reason, tc.step)
			assert.Error(t, outcome.Err)
		})
	}
}

func TestWorkflow_CustomInputGetsValueAssigned(t *testing.T) {
	h := newHarness(t)
	s := happySite(h)
	s.email.DOMType = "x-masked-input"

	outcome := h.workflow().Run(context.Background(), s)

	require.Equal(t, entity.OutcomeSuccess, outcome.Kind, outcome.Reason)

	_, typed, value := s.email.Snapshot()
	assert.Empty(t, typed)
	assert.Equal(t, testUser, value)
	assert.True(t, s.email.Focused)
	assert.Equal(t, []string{"input", "change"}, s.email.Events)
}

func TestWorkflow_CancelledContext(t *testing.T) {
	h := newHarness(t)
	s := happySite(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := h.workflow().Run(ctx, s)

	assert.Equal(t, entity.OutcomeStructuralFailure, outcome.Kind)
}

func TestWorkflow_SpanEndsWhenStepPanics(t *testing.T) {
	h := newHarness(t)
	s := happySite(h)
	s.agreement.OnClick = func() { panic("detached frame") }

	assert.Panics(t, func() { h.workflow().Run(context.Background(), s) })

	ended := h.logs.FilterMessage("span done").FilterField(zap.String("span", "Run"))
	assert.Equal(t, 1, ended.Len())
}
