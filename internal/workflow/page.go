package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/validate"
)

// Page is the controller of one open session. It owns the session's
// aggregate, the entries staged but not yet saved, and the submit workflow.
type Page struct {
	client   app.SessionClient
	workflow *Workflow
	logger   *slog.Logger
	session  *domain.Session
	userID   string

	mu        sync.Mutex
	aggregate *domain.Aggregate
	staged    []domain.ItemInput
}

// NewPage builds the page controller for cfg.Session. The aggregate stays
// empty until Load.
func NewPage(cfg Config) *Page {
	logger := loggerOrDiscard(cfg.Logger)
	cfg.Logger = logger
	return &Page{
		client:    cfg.Client,
		workflow:  New(cfg),
		logger:    logger,
		session:   cfg.Session,
		userID:    cfg.UserID,
		aggregate: domain.NewAggregate(cfg.Session.ID),
	}
}

func (p *Page) Workflow() *Workflow {
	return p.workflow
}

// Aggregate returns a copy of the page's current aggregate.
func (p *Page) Aggregate() *domain.Aggregate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aggregate.Clone()
}

// Load replaces the aggregate with the backend's. A failure keeps the
// previous aggregate and is reported in SlotLoad.
func (p *Page) Load(ctx context.Context) error {
	res, err := p.client.GetItems(ctx, p.session.ID, p.userID)
	if err != nil {
		err = domain.Fail(domain.CodeLoadFailed, "get items", err)
		p.workflow.record(SlotLoad, err)
		p.logger.WarnContext(ctx, "loading session items failed", "session_id", p.session.ID, "error", err)
		return err
	}
	agg, err := res.Aggregate()
	if err != nil {
		p.workflow.record(SlotLoad, err)
		p.logger.WarnContext(ctx, "session items are inconsistent", "session_id", p.session.ID, "error", err)
		return err
	}
	p.workflow.record(SlotLoad, nil)

	if got := agg.Totals(); !got.Matches(res.Summary) {
		p.logger.WarnContext(ctx, "session totals disagree with reported summary",
			"session_id", p.session.ID,
			"products", got.TotalProducts, "reported_products", res.Summary.TotalProducts,
			"quantity", got.TotalQuantity, "reported_quantity", res.Summary.TotalQuantity,
		)
	}

	p.mu.Lock()
	p.aggregate = agg
	p.mu.Unlock()
	return nil
}

// Stage validates one entry and holds it until Save. It returns the entry's
// position in the staged list.
func (p *Page) Stage(item domain.ItemInput) (int, error) {
	if res := validate.ValidateItem(item); !res.IsValid() {
		return 0, res.Err("stage item")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged = append(p.staged, item)
	return len(p.staged) - 1, nil
}

// UpdateStaged sets one quantity field of a staged entry, clamping at 0.
func (p *Page) UpdateStaged(index int, field domain.EditField, value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.staged) {
		return fmt.Errorf("staged entry %d: %w", index, ErrUnknownItem)
	}
	if value < 0 {
		value = 0
	}
	switch field {
	case domain.FieldQuantity:
		p.staged[index].Quantity = value
	case domain.FieldQuantityRejected:
		p.staged[index].QuantityRejected = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func (p *Page) RemoveStaged(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.staged) {
		return fmt.Errorf("staged entry %d: %w", index, ErrUnknownItem)
	}
	p.staged = append(p.staged[:index], p.staged[index+1:]...)
	return nil
}

func (p *Page) Staged() []domain.ItemInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ItemInput(nil), p.staged...)
}

// Save sends every staged entry as one addItems batch. Validation failures
// go to SlotValidation and send nothing; a backend failure goes to SlotSave
// and keeps the staged entries for a retry. On success the entries are
// folded into the aggregate and the aggregate is re-read.
func (p *Page) Save(ctx context.Context) error {
	const op = "add items"
	batch := p.Staged()
	if res := validate.ValidateItemBatch(batch); !res.IsValid() {
		err := res.Err(op)
		p.workflow.record(SlotValidation, err)
		return err
	}
	p.workflow.record(SlotValidation, nil)

	if err := p.client.AddItems(ctx, p.session.ID, p.userID, batch); err != nil {
		err = domain.Fail(domain.CodeSaveFailed, op, err)
		p.workflow.record(SlotSave, err)
		if domain.CodeOf(err).Kind() == domain.KindTransport {
			p.logger.WarnContext(ctx, "saving items failed", "session_id", p.session.ID, "error", err)
		}
		return err
	}
	p.workflow.record(SlotSave, nil)

	p.mu.Lock()
	for _, it := range batch {
		p.aggregate.AddContribution(it.Key(), p.userID, it.Quantity, it.QuantityRejected)
	}
	p.staged = p.staged[len(batch):]
	p.mu.Unlock()

	// The optimistic copy stands if the reload fails.
	_ = p.Load(ctx)
	return nil
}

// Dispatch forwards ev to the workflow and reloads the aggregate when the
// event merged another session into this one.
func (p *Page) Dispatch(ctx context.Context, ev Event) error {
	if err := p.workflow.Dispatch(ctx, ev); err != nil {
		return err
	}
	if p.workflow.ConsumeReload() {
		// A failed reload is reported in SlotLoad like any other load.
		_ = p.Load(ctx)
	}
	return nil
}
