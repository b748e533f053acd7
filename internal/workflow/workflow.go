package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/registry"
	"github.com/JINL2/mystorecluade-sub001/internal/validate"
)

type Config struct {
	Client  app.SessionClient
	Merger  *MergeCoordinator
	Guard   registry.SubmitGuard
	Logger  *slog.Logger
	Session *domain.Session
	UserID  string
}

// Workflow is the submit state machine of one session page. All input goes
// through Dispatch; read state with Snapshot.
//
// Dispatch holds the workflow while a backend call is in flight and rejects
// any other event with ErrBusy, which is what keeps a second submit from
// starting while one is running.
type Workflow struct {
	client  app.SessionClient
	merger  *MergeCoordinator
	guard   registry.SubmitGuard
	logger  *slog.Logger
	session domain.Session
	userID  string

	mu          sync.Mutex
	busy        bool
	state       State
	errs        map[Slot]error
	candidates  []registry.Entry
	selected    string
	comparison  *domain.ComparisonResult
	items       []domain.EditableItem
	isFinal     bool
	result      *domain.SubmitResult
	lastMerge   *domain.MergeOutcome
	needsReload bool
}

func New(cfg Config) *Workflow {
	logger := loggerOrDiscard(cfg.Logger)
	merger := cfg.Merger
	if merger == nil {
		merger = NewMergeCoordinator(cfg.Client, nil, logger)
	}
	guard := cfg.Guard
	if guard == nil {
		guard = registry.NewLocalGuard()
	}
	return &Workflow{
		client:  cfg.Client,
		merger:  merger,
		guard:   guard,
		logger:  logger,
		session: *cfg.Session,
		userID:  cfg.UserID,
		state:   StateIdle,
		errs:    make(map[Slot]error),
	}
}

// Snapshot is a copy of the workflow's observable state.
type Snapshot struct {
	State             State
	Busy              bool
	Session           domain.Session
	Candidates        []registry.Entry
	SelectedSessionID string
	Comparison        *domain.ComparisonResult
	Items             []domain.EditableItem
	IsFinal           bool
	Result            *domain.SubmitResult
	NeedsDisplay      []domain.StockSnapshot
	LastMerge         *domain.MergeOutcome
	Errors            map[Slot]error
}

// CanCombine reports whether the combine branch is offered.
func (s Snapshot) CanCombine() bool {
	return len(s.Candidates) > 0
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		State:             w.state,
		Busy:              w.busy,
		Session:           w.session,
		Candidates:        append([]registry.Entry(nil), w.candidates...),
		SelectedSessionID: w.selected,
		Comparison:        w.comparison,
		Items:             append([]domain.EditableItem(nil), w.items...),
		IsFinal:           w.isFinal,
		Result:            w.result,
		LastMerge:         w.lastMerge,
		Errors:            make(map[Slot]error, len(w.errs)),
	}
	if w.result != nil {
		snap.NeedsDisplay = w.result.NeedsDisplay()
	}
	for k, v := range w.errs {
		snap.Errors[k] = v
	}
	return snap
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the error held in slot, if any.
func (w *Workflow) Err(slot Slot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errs[slot]
}

func (w *Workflow) DismissError(slot Slot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.errs, slot)
}

// ConsumeReload reports, once, that a merge changed the session and the
// page must reload its aggregate.
func (w *Workflow) ConsumeReload() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.needsReload
	w.needsReload = false
	return r
}

// Reset returns a finished or abandoned workflow to Idle, dropping all
// review and comparison state.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	w.discard()
	w.result = nil
	w.lastMerge = nil
	w.errs = make(map[Slot]error)
	w.state = StateIdle
	return nil
}

// Dispatch applies one event. Illegal events return ErrInvalidTransition and
// leave the state alone. Failed backend calls, validation failures and
// state conflicts are not returned: they land in their error slot and the
// workflow returns to the state the call was made from.
func (w *Workflow) Dispatch(ctx context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}

	switch e := ev.(type) {
	case OpenSubmit:
		return w.openSubmit(ctx, e)
	case ChooseOnlyThisSession:
		return w.move(e, StateModeSelect, StateConfirmPending)
	case ChooseCombine:
		if w.state == StateModeSelect && len(w.candidates) == 0 {
			return fmt.Errorf("%w: no other active session for this shipment", ErrInvalidTransition)
		}
		return w.move(e, StateModeSelect, StateSessionSelect)
	case Confirm:
		return w.confirm(ctx, e)
	case SelectSession:
		return w.selectSession(ctx, e)
	case Merge:
		return w.merge(ctx, e)
	case Close:
		return w.close(e)
	case EditItem:
		return w.editItem(e)
	case Advance:
		return w.move(e, StateReviewEditing, StateFinalizing)
	case Finalize:
		return w.finalize(ctx, e)
	case Acknowledge:
		return w.move(e, StateNeedsDisplay, StateDone)
	default:
		return fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

func (w *Workflow) openSubmit(ctx context.Context, ev OpenSubmit) error {
	if w.state != StateIdle {
		return w.invalid(ev)
	}
	if err := w.session.CanContribute(); err != nil {
		w.errs[SlotSubmit] = err
		return nil
	}

	var candidates []registry.Entry
	err := w.call(func() error {
		var err error
		candidates, err = w.merger.Candidates(ctx, &w.session)
		return err
	})
	if err != nil {
		w.fail(ctx, SlotLoad, domain.Fail(domain.CodeLoadFailed, "list sessions", err))
	} else {
		delete(w.errs, SlotLoad)
	}
	w.candidates = candidates
	w.transition(ev, StateModeSelect)
	return nil
}

func (w *Workflow) confirm(ctx context.Context, ev Confirm) error {
	if w.state != StateConfirmPending {
		return w.invalid(ev)
	}
	w.transition(ev, StateReviewLoading)

	// Always re-read: other members may have saved since the page loaded.
	var res *app.ItemsResult
	err := w.call(func() error {
		var err error
		res, err = w.client.GetItems(ctx, w.session.ID, w.userID)
		return err
	})
	if err != nil {
		w.fail(ctx, SlotLoad, domain.Fail(domain.CodeLoadFailed, "get items", err))
		w.transition(ev, StateConfirmPending)
		return nil
	}
	agg, err := res.Aggregate()
	if err != nil {
		w.fail(ctx, SlotLoad, err)
		w.transition(ev, StateConfirmPending)
		return nil
	}
	delete(w.errs, SlotLoad)

	if agg.Len() == 0 {
		w.errs[SlotValidation] = domain.Conflict(domain.CodeNoItems, "submit session", "there are no items to submit")
		w.transition(ev, StateConfirmPending)
		return nil
	}
	delete(w.errs, SlotValidation)
	w.items = agg.ToEditableItems()
	w.isFinal = false
	w.transition(ev, StateReviewEditing)
	return nil
}

func (w *Workflow) selectSession(ctx context.Context, ev SelectSession) error {
	if w.state != StateSessionSelect {
		return w.invalid(ev)
	}
	if !w.isCandidate(ev.SessionID) {
		return fmt.Errorf("%w: session %s is not a merge candidate", ErrInvalidTransition, ev.SessionID)
	}
	w.selected = ev.SessionID
	w.transition(ev, StateComparing)

	var res *domain.ComparisonResult
	err := w.call(func() error {
		var err error
		res, err = w.client.CompareSessions(ctx, w.session.ID, ev.SessionID, w.userID)
		return err
	})
	if err != nil {
		w.fail(ctx, SlotCompare, domain.Fail(domain.CodeCompareFailed, "compare sessions", err))
		w.transition(ev, StateSessionSelect)
		return nil
	}
	delete(w.errs, SlotCompare)
	w.comparison = res
	w.transition(ev, StateComparisonShown)
	return nil
}

func (w *Workflow) merge(ctx context.Context, ev Merge) error {
	if w.state != StateComparisonShown {
		return w.invalid(ev)
	}
	source := w.selected

	var out *domain.MergeOutcome
	err := w.call(func() error {
		var err error
		out, err = w.merger.Merge(ctx, &w.session, source, w.userID)
		return err
	})
	if err != nil {
		w.fail(ctx, SlotMerge, err)
		return nil
	}
	delete(w.errs, SlotMerge)

	w.lastMerge = out
	w.needsReload = true
	w.candidates = removeEntry(w.candidates, source)
	w.discard()
	w.transition(ev, StateIdle)
	return nil
}

func (w *Workflow) close(ev Close) error {
	switch w.state {
	case StateModeSelect, StateConfirmPending, StateSessionSelect, StateComparisonShown, StateReviewEditing:
		w.discard()
		w.transition(ev, StateIdle)
	case StateFinalizing:
		w.transition(ev, StateReviewEditing)
	case StateNeedsDisplay:
		w.transition(ev, StateDone)
	default:
		return w.invalid(ev)
	}
	return nil
}

func (w *Workflow) editItem(ev EditItem) error {
	if w.state != StateReviewEditing {
		return w.invalid(ev)
	}
	for i := range w.items {
		if w.items[i].Key == ev.Key {
			w.items[i].Set(ev.Field, ev.Value)
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not under review", ErrUnknownItem, ev.Key)
}

func (w *Workflow) finalize(ctx context.Context, ev Finalize) error {
	const op = "submit session"
	if w.state != StateFinalizing {
		return w.invalid(ev)
	}
	w.isFinal = ev.IsFinal

	inputs := domain.EditableInputs(w.items)
	if res := validate.ValidateSubmitBatch(inputs); !res.IsValid() {
		w.errs[SlotValidation] = res.Err(op)
		w.transition(ev, StateReviewEditing)
		return nil
	}
	delete(w.errs, SlotValidation)

	release, err := w.guard.Acquire(ctx, w.session.ID)
	if err != nil {
		w.fail(ctx, SlotSubmit, domain.Fail(domain.CodeSubmitFailed, op, err))
		return nil
	}
	w.transition(ev, StateSubmitting)

	req := app.SubmitRequest{SessionID: w.session.ID, UserID: w.userID, Items: inputs, IsFinal: ev.IsFinal}
	var res *domain.SubmitResult
	err = w.call(func() error {
		defer func() {
			if err := release(ctx); err != nil {
				w.logger.WarnContext(ctx, "releasing submit lock failed", "session_id", req.SessionID, "error", err)
			}
		}()
		var err error
		res, err = w.client.SubmitSession(ctx, req)
		return err
	})
	if err != nil {
		w.fail(ctx, SlotSubmit, domain.Fail(domain.CodeSubmitFailed, op, err))
		w.transition(ev, StateFinalizing)
		return nil
	}
	delete(w.errs, SlotSubmit)

	w.result = res
	if res.IsFinal {
		w.session.Finalize(time.Now().UTC())
	}
	if len(res.NeedsDisplay()) > 0 {
		w.transition(ev, StateNeedsDisplay)
		w.discard()
		return nil
	}
	w.discard()
	w.transition(ev, StateDone)
	return nil
}

// call runs fn with the lock released and the workflow marked busy.
func (w *Workflow) call(fn func() error) error {
	w.busy = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.busy = false
	}()
	return fn()
}

func (w *Workflow) move(ev Event, from, to State) error {
	if w.state != from {
		return w.invalid(ev)
	}
	w.transition(ev, to)
	return nil
}

func (w *Workflow) transition(ev Event, to State) {
	w.logger.Debug("workflow transition",
		"session_id", w.session.ID,
		"event", ev.eventName(),
		"from", string(w.state),
		"to", string(to),
	)
	w.state = to
}

func (w *Workflow) invalid(ev Event) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev.eventName(), w.state)
}

// fail stores err in slot. Only transport failures are logged; validation
// and state conflicts are expected outcomes.
func (w *Workflow) fail(ctx context.Context, slot Slot, err error) {
	w.errs[slot] = err
	if domain.CodeOf(err).Kind() == domain.KindTransport {
		w.logger.WarnContext(ctx, "backend call failed",
			"session_id", w.session.ID, "slot", string(slot), "error", err)
	}
}

// record stores err in slot from outside Dispatch.
func (w *Workflow) record(slot Slot, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.errs, slot)
		return
	}
	w.errs[slot] = err
}

// discard drops the per-attempt state. Done and merge never carry review
// items or a comparison forward.
func (w *Workflow) discard() {
	w.items = nil
	w.comparison = nil
	w.selected = ""
}

func (w *Workflow) isCandidate(id string) bool {
	for _, e := range w.candidates {
		if e.SessionID == id {
			return true
		}
	}
	return false
}

func removeEntry(entries []registry.Entry, id string) []registry.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.SessionID != id {
			out = append(out, e)
		}
	}
	return out
}
