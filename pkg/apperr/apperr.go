package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaStep     = "step"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaDate     = "date"
	MetaStatus   = "status"

	StagePreparation  = "preparation"
	StageBrowser      = "browser"
	StageNavigation   = "navigation"
	StageInteraction  = "interaction"
	StageAvailability = "availability"
	StageCalendar     = "calendar"
	StageNotification = "notification"
	StagePause        = "pause"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnavailable     = "unavailable"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeActionFailed    = "action_failed"
	CodeNoBetterDate    = "no_better_date"
	CodeDateExpired     = "date_expired"
	CodeStructural      = "structural"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

// CodeOf returns the code of the innermost *Error in err's chain whose code
// is one of the decisive outcome codes, or the outermost code otherwise.
// Errors that carry no *Error at all report CodeInternal.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}

	outer := ""

	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		var e *Error
		if !errors.As(cur, &e) {
			break
		}

		if outer == "" {
			outer = e.Code
		}

		switch e.Code {
		case CodeNoBetterDate, CodeDateExpired:
			return e.Code
		}

		cur = e
	}

	if outer == "" {
		return CodeInternal
	}

	return outer
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code string) bool {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		var e *Error
		if !errors.As(cur, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		cur = e
	}

	return false
}

// Reason returns the reason recorded on the outermost *Error, if any.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if r, ok := e.Metadata[MetaReason].(string); ok {
			return r
		}
	}

	return ""
}
