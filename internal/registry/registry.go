// Package registry keeps the cross-page list of sessions a client knows
// about, most importantly the sessions still available as merge partners,
// and guards against duplicate submissions of the same session.
package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

var (
	ErrNotFound = errors.New("session not registered")
	ErrLocked   = errors.New("session is already being submitted")
)

// Entry is what the registry remembers about one session.
type Entry struct {
	SessionID  string             `json:"session_id"`
	Name       string             `json:"name"`
	Type       domain.SessionType `json:"session_type"`
	StoreID    string             `json:"store_id"`
	ShipmentID *string            `json:"shipment_id,omitempty"`
	IsActive   bool               `json:"is_active"`
	CreatedBy  string             `json:"created_by"`
	CreatedAt  time.Time          `json:"created_at"`
}

// EntryOf snapshots a session into a registry entry.
func EntryOf(s *domain.Session) Entry {
	return Entry{
		SessionID:  s.ID,
		Name:       s.Name,
		Type:       s.Type,
		StoreID:    s.StoreID,
		ShipmentID: s.ShipmentID,
		IsActive:   s.IsActive,
		CreatedBy:  s.CreatedBy,
		CreatedAt:  s.CreatedAt,
	}
}

func (e Entry) session() *domain.Session {
	return &domain.Session{ID: e.SessionID, Type: e.Type, StoreID: e.StoreID, ShipmentID: e.ShipmentID, IsActive: e.IsActive}
}

// Registry stores entries by session id. The medium is up to the
// implementation.
type Registry interface {
	Get(ctx context.Context, sessionID string) (Entry, error)
	Put(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, sessionID string) error
}

// Scope is the slice of sessions one backend listing covered. Empty fields
// match anything.
type Scope struct {
	StoreID    string
	Type       domain.SessionType
	ShipmentID *string
}

func (s Scope) covers(e Entry) bool {
	if s.StoreID != "" && e.StoreID != s.StoreID {
		return false
	}
	if s.Type != "" && e.Type != s.Type {
		return false
	}
	if s.ShipmentID != nil && (e.ShipmentID == nil || *e.ShipmentID != *s.ShipmentID) {
		return false
	}
	return true
}

// Sync makes the registry agree with a backend listing of scope: every
// listed session is stored, and entries inside scope the listing no longer
// returns are removed. Entries outside scope are left alone.
func Sync(ctx context.Context, reg Registry, scope Scope, sessions []*domain.Session) error {
	listed := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if err := reg.Put(ctx, EntryOf(s)); err != nil {
			return err
		}
		listed[s.ID] = true
	}
	known, err := reg.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range known {
		if listed[e.SessionID] || !scope.covers(e) {
			continue
		}
		if err := reg.Remove(ctx, e.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// Candidates lists the sessions current could be combined with: active,
// same store, same type, same shipment, and not current itself.
func Candidates(ctx context.Context, reg Registry, current *domain.Session) ([]Entry, error) {
	all, err := reg.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.SessionID == current.ID || !e.IsActive {
			continue
		}
		if !current.SameShipment(e.session()) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// sortEntries orders oldest first, breaking ties by id.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].SessionID < entries[j].SessionID
	})
}
