package app

import "github.com/JINL2/mystorecluade-sub001/internal/domain"

type CreateSessionRequest struct {
	CompanyID  string
	StoreID    string
	UserID     string
	Type       domain.SessionType
	ShipmentID *string
	Name       string
}

type JoinResult struct {
	MemberID      string
	SessionID     string
	CreatedBy     string
	AlreadyJoined bool
}

// ItemsResult is the authoritative aggregate of a session's open
// contributions.
type ItemsResult struct {
	SessionID    string
	Items        []domain.SessionItem
	Participants []domain.Participant
	Summary      domain.Totals
}

// Aggregate rebuilds the in-memory rollup from the item list. It fails with
// LOAD_FAILED when an item's totals disagree with its contributions.
func (r *ItemsResult) Aggregate() (*domain.Aggregate, error) {
	if err := domain.VerifyItems(r.Items); err != nil {
		return nil, err
	}
	return domain.AggregateFromItems(r.SessionID, r.Items), nil
}

type SubmitRequest struct {
	SessionID string
	UserID    string
	Items     []domain.ItemInput
	IsFinal   bool
}

// SessionFilter narrows ListSessions. Empty fields do not filter.
type SessionFilter struct {
	CompanyID  string
	StoreID    string
	Type       domain.SessionType
	ShipmentID *string
	ActiveOnly bool
}
