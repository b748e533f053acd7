// Package workflow drives a session page: staging and saving contributions,
// combining sessions, and the review-then-submit state machine.
package workflow

import (
	"errors"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

type State string

const (
	StateIdle            State = "idle"
	StateModeSelect      State = "mode_select"
	StateConfirmPending  State = "confirm_pending"
	StateSessionSelect   State = "session_select"
	StateComparing       State = "comparing"
	StateComparisonShown State = "comparison_shown"
	StateReviewLoading   State = "review_loading"
	StateReviewEditing   State = "review_editing"
	StateFinalizing      State = "finalizing"
	StateSubmitting      State = "submitting"
	StateNeedsDisplay    State = "needs_display"
	StateDone            State = "done"
)

// Transient reports whether the state only exists while a backend call is in
// flight.
func (s State) Transient() bool {
	return s == StateComparing || s == StateReviewLoading || s == StateSubmitting
}

// Slot names the error slot an action reports into. A slot is cleared by the
// next successful attempt of the same action or by DismissError.
type Slot string

const (
	SlotSave       Slot = "save"
	SlotLoad       Slot = "load"
	SlotCompare    Slot = "compare"
	SlotMerge      Slot = "merge"
	SlotSubmit     Slot = "submit"
	SlotValidation Slot = "validation"
)

var (
	ErrInvalidTransition = errors.New("event not allowed in current state")
	ErrBusy              = errors.New("workflow is busy")
	ErrUnknownItem       = errors.New("unknown item")
)

// Event is one user action fed to Dispatch.
type Event interface {
	eventName() string
}

// OpenSubmit starts the submit flow from Idle.
type OpenSubmit struct{}

// ChooseOnlyThisSession picks the single-session branch in ModeSelect.
type ChooseOnlyThisSession struct{}

// ChooseCombine picks the combine branch in ModeSelect.
type ChooseCombine struct{}

// Confirm states that every contributor is done saving.
type Confirm struct{}

// SelectSession picks the session to compare against.
type SelectSession struct {
	SessionID string
}

// Merge combines the compared session into this one.
type Merge struct{}

// Close dismisses the current dialog.
type Close struct{}

// EditItem changes one field of a review item. Negative values clamp to 0.
type EditItem struct {
	Key   domain.ItemKey
	Field domain.EditField
	Value int
}

// Advance moves from review to the final choice.
type Advance struct{}

// Finalize submits the reviewed items.
type Finalize struct {
	IsFinal bool
}

// Acknowledge dismisses the needs-display notice.
type Acknowledge struct{}

func (OpenSubmit) eventName() string            { return "open_submit" }
func (ChooseOnlyThisSession) eventName() string { return "choose_only_this_session" }
func (ChooseCombine) eventName() string         { return "choose_combine" }
func (Confirm) eventName() string               { return "confirm" }
func (SelectSession) eventName() string         { return "select_session" }
func (Merge) eventName() string                 { return "merge" }
func (Close) eventName() string                 { return "close" }
func (EditItem) eventName() string              { return "edit_item" }
func (Advance) eventName() string               { return "advance" }
func (Finalize) eventName() string              { return "finalize" }
func (Acknowledge) eventName() string           { return "acknowledge" }
