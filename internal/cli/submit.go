package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/workflow"
)

var errSubmitCancelled = errors.New("submit cancelled")

// submitUI answers the questions the submit workflow asks in each state.
// Every method sees the workflow snapshot of the state it is asked in.
type submitUI interface {
	mode(snap workflow.Snapshot) (submitMode, error)
	confirmPending(snap workflow.Snapshot) (bool, error)
	// selectSession returns "" to go back.
	selectSession(snap workflow.Snapshot) (string, error)
	confirmMerge(snap workflow.Snapshot) (bool, error)
	// review edits items through edit; false cancels the submit.
	review(snap workflow.Snapshot, edit func(domain.EditableItem) error) (bool, error)
	// finalChoice returns ok=false to go back to review.
	finalChoice(snap workflow.Snapshot) (isFinal bool, ok bool, err error)
	needsDisplay(snap workflow.Snapshot) error
	// failed reports an error left in a slot; true keeps the flow going.
	failed(slot workflow.Slot, err error) bool
}

// submitRunner walks a page's workflow from Idle to Done, asking ui at each
// step and printing comparisons and merge outcomes to out.
type submitRunner struct {
	page *workflow.Page
	ui   submitUI
	out  io.Writer
}

func (r *submitRunner) run(ctx context.Context) (*domain.SubmitResult, error) {
	wf := r.page.Workflow()
	opened, reopen := false, false

	for {
		snap := wf.Snapshot()
		switch snap.State {
		case workflow.StateIdle:
			if opened && !reopen {
				return nil, errSubmitCancelled
			}
			opened, reopen = true, false
			if err := r.page.Dispatch(ctx, workflow.OpenSubmit{}); err != nil {
				return nil, err
			}
			if wf.State() == workflow.StateIdle {
				return nil, wf.Err(workflow.SlotSubmit)
			}

		case workflow.StateModeSelect:
			m, err := r.ui.mode(snap)
			if err != nil {
				return nil, err
			}
			switch m {
			case modeCombine:
				err = r.page.Dispatch(ctx, workflow.ChooseCombine{})
			case modeOnly:
				err = r.page.Dispatch(ctx, workflow.ChooseOnlyThisSession{})
			default:
				err = r.page.Dispatch(ctx, workflow.Close{})
			}
			if err != nil {
				return nil, err
			}

		case workflow.StateConfirmPending:
			ok, err := r.ui.confirmPending(snap)
			if err != nil {
				return nil, err
			}
			if !ok {
				if err := r.page.Dispatch(ctx, workflow.Close{}); err != nil {
					return nil, err
				}
				continue
			}
			if err := r.page.Dispatch(ctx, workflow.Confirm{}); err != nil {
				return nil, err
			}
			if wf.State() == workflow.StateConfirmPending {
				slot := workflow.SlotLoad
				if wf.Err(workflow.SlotValidation) != nil {
					slot = workflow.SlotValidation
				}
				if !r.ui.failed(slot, wf.Err(slot)) {
					return nil, wf.Err(slot)
				}
			}

		case workflow.StateSessionSelect:
			id, err := r.ui.selectSession(snap)
			if err != nil {
				return nil, err
			}
			if id == "" {
				if err := r.page.Dispatch(ctx, workflow.Close{}); err != nil {
					return nil, err
				}
				continue
			}
			if err := r.page.Dispatch(ctx, workflow.SelectSession{SessionID: id}); err != nil {
				return nil, err
			}
			if wf.State() == workflow.StateSessionSelect && !r.ui.failed(workflow.SlotCompare, wf.Err(workflow.SlotCompare)) {
				return nil, wf.Err(workflow.SlotCompare)
			}

		case workflow.StateComparisonShown:
			fmt.Fprintln(r.out, formatter.FormatComparison(snap.Comparison))
			ok, err := r.ui.confirmMerge(snap)
			if err != nil {
				return nil, err
			}
			ev := workflow.Event(workflow.Merge{})
			if !ok {
				ev = workflow.Close{}
			}
			if err := r.page.Dispatch(ctx, ev); err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if wf.State() == workflow.StateComparisonShown {
				if !r.ui.failed(workflow.SlotMerge, wf.Err(workflow.SlotMerge)) {
					return nil, wf.Err(workflow.SlotMerge)
				}
				continue
			}
			if merged := wf.Snapshot().LastMerge; merged != nil {
				fmt.Fprintln(r.out, formatter.FormatMergeOutcome(merged))
			}
			reopen = true

		case workflow.StateReviewEditing:
			edit := func(it domain.EditableItem) error {
				if err := r.page.Dispatch(ctx, workflow.EditItem{Key: it.Key, Field: domain.FieldQuantity, Value: it.Quantity}); err != nil {
					return err
				}
				return r.page.Dispatch(ctx, workflow.EditItem{Key: it.Key, Field: domain.FieldQuantityRejected, Value: it.QuantityRejected})
			}
			ok, err := r.ui.review(snap, edit)
			if err != nil {
				return nil, err
			}
			ev := workflow.Event(workflow.Advance{})
			if !ok {
				ev = workflow.Close{}
			}
			if err := r.page.Dispatch(ctx, ev); err != nil {
				return nil, err
			}

		case workflow.StateFinalizing:
			isFinal, ok, err := r.ui.finalChoice(snap)
			if err != nil {
				return nil, err
			}
			if !ok {
				if err := r.page.Dispatch(ctx, workflow.Close{}); err != nil {
					return nil, err
				}
				continue
			}
			if err := r.page.Dispatch(ctx, workflow.Finalize{IsFinal: isFinal}); err != nil {
				return nil, err
			}
			switch wf.State() {
			case workflow.StateReviewEditing:
				if !r.ui.failed(workflow.SlotValidation, wf.Err(workflow.SlotValidation)) {
					return nil, wf.Err(workflow.SlotValidation)
				}
			case workflow.StateFinalizing:
				if !r.ui.failed(workflow.SlotSubmit, wf.Err(workflow.SlotSubmit)) {
					return nil, wf.Err(workflow.SlotSubmit)
				}
			}

		case workflow.StateNeedsDisplay:
			if err := r.ui.needsDisplay(snap); err != nil {
				return nil, err
			}
			if err := r.page.Dispatch(ctx, workflow.Acknowledge{}); err != nil {
				return nil, err
			}

		case workflow.StateDone:
			return snap.Result, nil

		default:
			return nil, fmt.Errorf("submit stopped in state %s", snap.State)
		}
	}
}
