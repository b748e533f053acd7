package cli

import (
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/JINL2/mystorecluade-sub001/internal/cli/formatter"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/workflow"
)

// flagUI answers the workflow from command-line flags. Any error ends the
// submit.
type flagUI struct {
	wantMode submitMode
	with     string
	isFinal  bool
	edits    []reviewEdit
}

func (u *flagUI) mode(snap workflow.Snapshot) (submitMode, error) {
	if u.wantMode == modeCombine {
		if u.with == "" {
			return "", errors.New("--mode combine requires --with SESSION")
		}
		if !snap.CanCombine() {
			return "", fmt.Errorf("no other active session shares this session's store, type and shipment")
		}
		return modeCombine, nil
	}
	return modeOnly, nil
}

func (u *flagUI) confirmPending(workflow.Snapshot) (bool, error) { return true, nil }

func (u *flagUI) selectSession(workflow.Snapshot) (string, error) { return u.with, nil }

func (u *flagUI) confirmMerge(workflow.Snapshot) (bool, error) {
	// A combine run merges once, then submits only this session.
	u.wantMode = modeOnly
	return true, nil
}

func (u *flagUI) review(snap workflow.Snapshot, edit func(domain.EditableItem) error) (bool, error) {
	for _, e := range u.edits {
		var item *domain.EditableItem
		for i := range snap.Items {
			if snap.Items[i].Key == e.Key {
				item = &snap.Items[i]
				break
			}
		}
		if item == nil {
			return false, fmt.Errorf("--set %s: %w", e.Key, workflow.ErrUnknownItem)
		}
		item.Quantity = e.Quantity
		if e.Rejected != nil {
			item.QuantityRejected = *e.Rejected
		}
		if err := edit(*item); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (u *flagUI) finalChoice(workflow.Snapshot) (bool, bool, error) { return u.isFinal, true, nil }

func (u *flagUI) needsDisplay(workflow.Snapshot) error { return nil }

func (u *flagUI) failed(workflow.Slot, error) bool { return false }

// promptUI answers the workflow with huh prompts and the review editor.
type promptUI struct {
	out io.Writer
}

func (u *promptUI) mode(snap workflow.Snapshot) (submitMode, error) {
	choice := modeOnly
	options := []huh.Option[submitMode]{huh.NewOption("Submit only this session", modeOnly)}
	if snap.CanCombine() {
		options = append(options, huh.NewOption(fmt.Sprintf("Combine with another session (%d open)", len(snap.Candidates)), modeCombine))
	}
	options = append(options, huh.NewOption("Cancel", modeCancel))

	err := themedForm(huh.NewGroup(
		huh.NewSelect[submitMode]().
			Title("Submit " + snap.Session.Name).
			Options(options...).
			Value(&choice),
	)).Run()
	return choice, promptErr(err)
}

func (u *promptUI) confirmPending(snap workflow.Snapshot) (bool, error) {
	ok := true
	err := themedForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Has everyone finished saving their items?").
			Description("Items still on other devices will not be included.").
			Affirmative("Yes, continue").
			Negative("Not yet").
			Value(&ok),
	)).Run()
	return ok, promptErr(err)
}

func (u *promptUI) selectSession(snap workflow.Snapshot) (string, error) {
	var choice string
	options := make([]huh.Option[string], 0, len(snap.Candidates)+1)
	for _, c := range snap.Candidates {
		label := fmt.Sprintf("%s (%s, %s)", c.Name, c.CreatedBy, formatter.HumanTimestamp(c.CreatedAt))
		options = append(options, huh.NewOption(label, c.SessionID))
	}
	options = append(options, huh.NewOption("Back", ""))

	err := themedForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Compare with which session?").
			Options(options...).
			Value(&choice),
	)).Run()
	return choice, promptErr(err)
}

func (u *promptUI) confirmMerge(snap workflow.Snapshot) (bool, error) {
	ok := false
	err := themedForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Merge the other session into this one?").
			Description("Its items are copied here and it is closed.").
			Value(&ok),
	)).Run()
	return ok, promptErr(err)
}

func (u *promptUI) review(snap workflow.Snapshot, edit func(domain.EditableItem) error) (bool, error) {
	problem := ""
	if err := snap.Errors[workflow.SlotValidation]; err != nil {
		problem = err.Error()
	}
	m := newReviewModel(snap.Session.Name, snap.Items, problem)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return false, err
	}
	if !m.accepted {
		return false, nil
	}
	for _, it := range m.Changes() {
		if err := edit(it); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (u *promptUI) finalChoice(snap workflow.Snapshot) (bool, bool, error) {
	const (
		final   = "final"
		partial = "partial"
		back    = "back"
	)
	choice := partial
	err := themedForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("How should this be submitted?").
			Options(
				huh.NewOption("Partial: keep the session open for more items", partial),
				huh.NewOption("Final: close the session", final),
				huh.NewOption("Back to review", back),
			).
			Value(&choice),
	)).Run()
	if err := promptErr(err); err != nil {
		return false, false, err
	}
	return choice == final, choice != back, nil
}

func (u *promptUI) needsDisplay(snap workflow.Snapshot) error {
	fmt.Fprintln(u.out, formatter.FormatNeedsDisplay(snap.NeedsDisplay))
	ok := true
	err := themedForm(huh.NewGroup(
		huh.NewConfirm().Title("Put these products on display").Affirmative("Done").Negative("").Value(&ok),
	)).Run()
	return promptErr(err)
}

func (u *promptUI) failed(slot workflow.Slot, err error) bool {
	if err == nil {
		return true
	}
	fmt.Fprintf(u.out, "%s %s\n", formatter.ErrorCodeBadge(domain.CodeOf(err)), err)
	return true
}

func promptErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errSubmitCancelled
	}
	return err
}
