package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/reconcile"
)

// Operation names used as keys for FakeClient failure injection and call
// counting.
const (
	OpCreate  = "create"
	OpJoin    = "join"
	OpAdd     = "add"
	OpGet     = "get"
	OpCompare = "compare"
	OpMerge   = "merge"
	OpSubmit  = "submit"
	OpList    = "list"
	OpSession = "session"
)

// FakeClient is an in-memory app.SessionClient for workflow tests. Any
// operation can be made to fail through Fail, and Gate can hold an operation
// in flight until the test releases it.
type FakeClient struct {
	mu         sync.Mutex
	sessions   map[string]*domain.Session
	aggregates map[string]*domain.Aggregate

	// Stock is the on-hand quantity per product used by receiving submits.
	Stock map[domain.ItemKey]int
	// Fail maps an operation name to the error it returns.
	Fail map[string]error
	// Gate, when set, is read once before an operation touches state.
	Gate chan struct{}
	// Rewrite, when set, edits every GetItems result before it is returned.
	Rewrite func(*app.ItemsResult)

	calls     map[string]int
	Submitted []app.SubmitRequest
}

var _ app.SessionClient = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		sessions:   make(map[string]*domain.Session),
		aggregates: make(map[string]*domain.Aggregate),
		Stock:      make(map[domain.ItemKey]int),
		Fail:       make(map[string]error),
		calls:      make(map[string]int),
	}
}

// AddSession registers a session directly, bypassing CreateSession.
func (f *FakeClient) AddSession(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	if _, ok := f.aggregates[s.ID]; !ok {
		f.aggregates[s.ID] = domain.NewAggregate(s.ID)
	}
}

// Contribute records a contribution as if another member had saved it.
func (f *FakeClient) Contribute(sessionID string, key domain.ItemKey, userID string, qty, rejected int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates[sessionID].AddContribution(key, userID, qty, rejected)
}

func (f *FakeClient) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeClient) Session(id string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := *f.sessions[id]
	return &s
}

func (f *FakeClient) SetFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail[op] = err
}

func (f *FakeClient) begin(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Fail[op]
}

func (f *FakeClient) CreateSession(ctx context.Context, req app.CreateSessionRequest) (*domain.Session, error) {
	if err := f.begin(OpCreate); err != nil {
		return nil, domain.Fail(domain.CodeCreateFailed, "create session", err)
	}
	s := NewTestSession(WithSessionType(req.Type), WithStore(req.StoreID), WithCreator(req.UserID))
	s.CompanyID = req.CompanyID
	s.ShipmentID = req.ShipmentID
	if req.Name != "" {
		s.Name = req.Name
	}
	f.AddSession(s)
	return s, nil
}

func (f *FakeClient) JoinSession(ctx context.Context, sessionID, userID string) (*app.JoinResult, error) {
	if err := f.begin(OpJoin); err != nil {
		return nil, domain.Fail(domain.CodeJoinFailed, "join session", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.Conflict(domain.CodeNotFound, "join session", "session not found")
	}
	return &app.JoinResult{MemberID: uuid.New().String(), SessionID: s.ID, CreatedBy: s.CreatedBy}, nil
}

func (f *FakeClient) AddItems(ctx context.Context, sessionID, userID string, items []domain.ItemInput) error {
	if err := f.begin(OpAdd); err != nil {
		return domain.Fail(domain.CodeSaveFailed, "add items", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return domain.Conflict(domain.CodeNotFound, "add items", "session not found")
	}
	if err := s.CanContribute(); err != nil {
		return err
	}
	for _, it := range items {
		f.aggregates[sessionID].AddContribution(it.Key(), userID, it.Quantity, it.QuantityRejected)
	}
	return nil
}

func (f *FakeClient) GetItems(ctx context.Context, sessionID, userID string) (*app.ItemsResult, error) {
	if err := f.begin(OpGet); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, "get items", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	agg, ok := f.aggregates[sessionID]
	if !ok {
		return nil, domain.Conflict(domain.CodeNotFound, "get items", "session not found")
	}
	res := &app.ItemsResult{
		SessionID:    sessionID,
		Items:        agg.Items(),
		Participants: agg.Participants(),
		Summary:      agg.Totals(),
	}
	if f.Rewrite != nil {
		f.Rewrite(res)
	}
	return res, nil
}

func (f *FakeClient) CompareSessions(ctx context.Context, idA, idB, userID string) (*domain.ComparisonResult, error) {
	if err := f.begin(OpCompare); err != nil {
		return nil, domain.Fail(domain.CodeCompareFailed, "compare sessions", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, okA := f.aggregates[idA]
	b, okB := f.aggregates[idB]
	if !okA || !okB {
		return nil, domain.Conflict(domain.CodeNotFound, "compare sessions", "session not found")
	}
	return reconcile.Compare(a, b), nil
}

func (f *FakeClient) MergeSessions(ctx context.Context, targetID, sourceID, userID string) (*domain.MergeOutcome, error) {
	if err := f.begin(OpMerge); err != nil {
		return nil, domain.Fail(domain.CodeMergeFailed, "merge sessions", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	target, source := f.sessions[targetID], f.sessions[sourceID]
	if target == nil || source == nil {
		return nil, domain.Conflict(domain.CodeNotFound, "merge sessions", "session not found")
	}
	if !target.IsActive {
		return nil, domain.Conflict(domain.CodeTargetInactive, "merge sessions", "target session is not active")
	}
	if !source.IsActive {
		return nil, domain.Conflict(domain.CodeSessionInactive, "merge sessions", "source session is not active")
	}
	merged, out := reconcile.Merge(f.aggregates[targetID], f.aggregates[sourceID])
	f.aggregates[targetID] = merged
	source.Deactivate(time.Now().UTC())
	return &out, nil
}

func (f *FakeClient) SubmitSession(ctx context.Context, req app.SubmitRequest) (*domain.SubmitResult, error) {
	if err := f.begin(OpSubmit); err != nil {
		return nil, domain.Fail(domain.CodeSubmitFailed, "submit session", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[req.SessionID]
	if !ok {
		return nil, domain.Conflict(domain.CodeNotFound, "submit session", "session not found")
	}
	f.Submitted = append(f.Submitted, req)

	res := &domain.SubmitResult{
		SubmissionID:    uuid.New().String(),
		ReceivingNumber: fmt.Sprintf("%s-20250615-%06d", s.Type.SubmissionPrefix(), len(f.Submitted)),
		SessionID:       s.ID,
		IsFinal:         req.IsFinal,
		TotalCost:       decimal.Zero,
		SubmittedBy:     req.UserID,
		SubmittedAt:     time.Now().UTC(),
	}
	for _, it := range req.Items {
		res.ItemsCount++
		res.TotalQuantity += it.Quantity
		res.TotalRejected += it.QuantityRejected
		if s.Type != domain.SessionReceiving {
			continue
		}
		before := f.Stock[it.Key()]
		received := it.Quantity - it.QuantityRejected
		f.Stock[it.Key()] = before + received
		res.StockChanges = append(res.StockChanges, domain.StockSnapshot{
			Key:              it.Key(),
			QuantityBefore:   before,
			QuantityReceived: received,
			QuantityAfter:    before + received,
		})
	}
	f.aggregates[s.ID] = domain.NewAggregate(s.ID)
	if req.IsFinal {
		s.Finalize(time.Now().UTC())
	}
	return res, nil
}

func (f *FakeClient) ListSessions(ctx context.Context, filter app.SessionFilter) ([]*domain.Session, error) {
	if err := f.begin(OpList); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, "list sessions", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, s := range f.sessions {
		if filter.StoreID != "" && s.StoreID != filter.StoreID {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (f *FakeClient) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := f.begin(OpSession); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, "get session", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.Conflict(domain.CodeNotFound, "get session", "session not found")
	}
	c := *s
	return &c, nil
}
