package domain

import "time"

type Session struct {
	ID          string
	Name        string
	Type        SessionType
	CompanyID   string
	StoreID     string
	ShipmentID  *string
	IsActive    bool
	IsFinal     bool
	CreatedBy   string
	CreatedAt   time.Time
	CompletedAt *time.Time
	MemberCount int
}

// CanContribute reports whether members may still add items to the session.
func (s *Session) CanContribute() error {
	if s.IsFinal {
		return &SessionError{Code: CodeSessionFinal, Op: "add items", Message: "session is finalized"}
	}
	if !s.IsActive {
		return &SessionError{Code: CodeSessionInactive, Op: "add items", Message: "session is not active. Cannot save items to a closed session"}
	}
	return nil
}

// SameShipment reports whether both sessions belong to the same store and
// shipment (a nil shipment only matches another nil shipment).
func (s *Session) SameShipment(other *Session) bool {
	if s.StoreID != other.StoreID || s.Type != other.Type {
		return false
	}
	if s.ShipmentID == nil || other.ShipmentID == nil {
		return s.ShipmentID == nil && other.ShipmentID == nil
	}
	return *s.ShipmentID == *other.ShipmentID
}

// Finalize locks the session. A finalized session is never active.
func (s *Session) Finalize(now time.Time) {
	s.IsFinal = true
	s.IsActive = false
	s.CompletedAt = &now
}

// Deactivate closes the session to further contributions without
// finalizing it, as happens to the source of a merge.
func (s *Session) Deactivate(now time.Time) {
	s.IsActive = false
	s.CompletedAt = &now
}

type Member struct {
	ID        string
	SessionID string
	UserID    string
	UserName  string
	JoinedAt  time.Time
	IsActive  bool
}

// Participant is a per-user rollup of contributions within a session.
type Participant struct {
	UserID       string
	UserName     string
	ProductCount int
	TotalScanned int
}
