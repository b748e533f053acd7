package workflow

import (
	"context"
	"io"
	"log/slog"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/registry"
)

// MergeCoordinator combines a source session into a target through the
// backend and keeps the registry of merge candidates in step.
type MergeCoordinator struct {
	client   app.SessionClient
	registry registry.Registry
	logger   *slog.Logger
}

func NewMergeCoordinator(client app.SessionClient, reg registry.Registry, logger *slog.Logger) *MergeCoordinator {
	if reg == nil {
		reg = registry.NewMemoryStore()
	}
	return &MergeCoordinator{client: client, registry: reg, logger: loggerOrDiscard(logger)}
}

// Refresh pulls the sessions of current's store and type from the backend
// into the registry, inactive ones included so stale entries are corrected.
// Registered sessions of that scope the backend no longer lists are dropped.
func (m *MergeCoordinator) Refresh(ctx context.Context, current *domain.Session) error {
	sessions, err := m.client.ListSessions(ctx, app.SessionFilter{
		CompanyID:  current.CompanyID,
		StoreID:    current.StoreID,
		Type:       current.Type,
		ShipmentID: current.ShipmentID,
	})
	if err != nil {
		return err
	}
	scope := registry.Scope{StoreID: current.StoreID, Type: current.Type, ShipmentID: current.ShipmentID}
	if err := registry.Sync(ctx, m.registry, scope, sessions); err != nil {
		return err
	}
	return m.registry.Put(ctx, registry.EntryOf(current))
}

// Candidates refreshes the registry and lists the sessions current can be
// combined with. A failed refresh falls back to what the registry already
// holds.
func (m *MergeCoordinator) Candidates(ctx context.Context, current *domain.Session) ([]registry.Entry, error) {
	if err := m.Refresh(ctx, current); err != nil {
		m.logger.WarnContext(ctx, "refreshing merge candidates failed, using cached registry",
			"session_id", current.ID, "error", err)
	}
	return registry.Candidates(ctx, m.registry, current)
}

// Merge copies source into target. Nothing is sent when target is inactive.
// On success the source leaves the registry so it is never offered again.
func (m *MergeCoordinator) Merge(ctx context.Context, target *domain.Session, sourceID, userID string) (*domain.MergeOutcome, error) {
	const op = "merge sessions"
	if !target.IsActive {
		return nil, domain.Conflict(domain.CodeTargetInactive, op, "target session is not active")
	}
	if target.ID == sourceID {
		return nil, domain.Conflict(domain.CodeMergeFailed, op, "cannot merge a session into itself")
	}

	out, err := m.client.MergeSessions(ctx, target.ID, sourceID, userID)
	if err != nil {
		return nil, domain.Fail(domain.CodeMergeFailed, op, err)
	}
	if err := m.registry.Remove(ctx, sourceID); err != nil {
		m.logger.WarnContext(ctx, "removing merged session from registry failed",
			"session_id", sourceID, "error", err)
	}
	return out, nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
