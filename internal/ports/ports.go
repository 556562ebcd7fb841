package ports

import (
	"context"
	"time"

	"visa-rescheduler/internal/entity"
)

// Scope is anything selectors can be evaluated in: a page, an element or a
// shadow root.
type Scope interface {
	// QuerySelector returns the first match or nil when nothing matches.
	QuerySelector(ctx context.Context, selector string) (Element, error)
}

// Element is a handle to a live DOM node, valid only on the page it was
// resolved from.
type Element interface {
	Scope

	// ShadowScope returns the node's open shadow root, or the node itself.
	ShadowScope(ctx context.Context) (Scope, error)
	IsVisible(ctx context.Context) (bool, error)
	IsConnected(ctx context.Context) (bool, error)
	IsInViewport(ctx context.Context) (bool, error)
	ScrollIntoCenter(ctx context.Context) error

	Click(ctx context.Context, offset *entity.Offset) error
	Focus(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// InputType returns the DOM "type" property.
	InputType(ctx context.Context) (string, error)
	// SetValue assigns .value and dispatches bubbling input and change events.
	SetValue(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	ParentAttribute(ctx context.Context, name string) (string, error)
}

type Page interface {
	Scope

	Goto(ctx context.Context, url string) (*entity.PageResponse, error)
	SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error
	SelectOption(ctx context.Context, selector, value string) error
	// ChooseOptionAt selects the option at index (0-based) of the select
	// matched by selector and dispatches a change event.
	ChooseOptionAt(ctx context.Context, selector string, index int) error
	PressKey(ctx context.Context, key string) error
	ClickAndWaitForNavigation(ctx context.Context, el Element, offset *entity.Offset) error
}

// Session is one browser instance owned by a single attempt.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	// Close closes every page and then the browser.
	Close(ctx context.Context) error
}

type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

type Resolver interface {
	Resolve(ctx context.Context, scope Scope, chain entity.SelectorChain, timeout time.Duration) (Element, error)
}

type Synchronizer interface {
	EnsureInteractable(ctx context.Context, el Element, timeout time.Duration) error
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type PauseRegistry interface {
	IsPaused(ctx context.Context, username string) (bool, error)
	MarkPaused(ctx context.Context, username string) error
}

// AttemptRunner drives one attempt on an already opened page.
type AttemptRunner interface {
	Run(ctx context.Context, page Page) entity.AttemptOutcome
}
