package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of dates on the availability endpoint and in
// configuration.
const DateLayout = "2006-01-02"

// SelectorGroup is an ordered list of selectors, each one evaluated inside
// the scope of the previous match (its shadow root when it has one).
type SelectorGroup []string

func (g SelectorGroup) String() string {
	return strings.Join(g, " >> ")
}

// SelectorChain is an ordered list of alternative groups. The first group
// that resolves wins.
type SelectorChain []SelectorGroup

func (c SelectorChain) String() string {
	parts := make([]string, 0, len(c))
	for _, g := range c {
		parts = append(parts, g.String())
	}

	return strings.Join(parts, " | ")
}

// Offset is a click position relative to the element's top-left corner.
type Offset struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// InputCapability decides how text is entered into an element.
type InputCapability int

const (
	// InputTextual elements accept simulated keystrokes.
	InputTextual InputCapability = iota
	// InputCustom elements get their value set directly followed by
	// synthetic input and change events.
	InputCustom
)

var textualInputTypes = map[string]struct{}{
	"textarea":   {},
	"select-one": {},
	"text":       {},
	"url":        {},
	"tel":        {},
	"search":     {},
	"password":   {},
	"number":     {},
	"email":      {},
}

// CapabilityOf maps an element's DOM "type" property to its input capability.
func CapabilityOf(domType string) InputCapability {
	if _, ok := textualInputTypes[strings.ToLower(domType)]; ok {
		return InputTextual
	}

	return InputCustom
}

func (c InputCapability) String() string {
	if c == InputTextual {
		return "textual"
	}

	return "custom"
}

type Identity struct {
	Username string
	Password string
}

// AppointmentWindow is what the run is trying to improve on. It does not
// change for the lifetime of the process.
type AppointmentWindow struct {
	FacilityID    string
	AppointmentID string
	Region        string
	Cutoff        time.Time
}

// AvailableDay is one entry of the availability endpoint's response.
type AvailableDay struct {
	Date        string `json:"date"`
	BusinessDay bool   `json:"business_day"`
}

func (d AvailableDay) Time() (time.Time, error) {
	return time.Parse(DateLayout, d.Date)
}

type PageResponse struct {
	URL    string
	Status int
	Body   []byte
}

type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeNoBetterDate      OutcomeKind = "no_better_date"
	OutcomeDateExpired       OutcomeKind = "date_expired_during_selection"
	OutcomeStructuralFailure OutcomeKind = "structural_failure"
)

// AttemptOutcome is the single result of one attempt.
type AttemptOutcome struct {
	Kind OutcomeKind
	// Reason is set for structural failures.
	Reason string
	// Date is the earliest date seen, when one was found.
	Date time.Time
	Err  error
}

func (o AttemptOutcome) Retry() bool {
	return o.Kind != OutcomeSuccess
}

// RunState is the orchestrator's position in its loop.
type RunState string

const (
	StateAttempting RunState = "attempting"
	StatePaused     RunState = "paused"
	StateSucceeded  RunState = "succeeded"
	StateRetrying   RunState = "retrying"
)

// Attempt is one run of the sign-in through reschedule pipeline.
type Attempt struct {
	ID        uuid.UUID
	Number    int
	StartedAt time.Time
	EndedAt   time.Time
	State     RunState
	Outcome   AttemptOutcome
}
