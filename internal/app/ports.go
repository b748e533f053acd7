package app

import (
	"context"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SessionClient is the contract the reconciliation core needs from the
// store of record. Every operation is atomic from the caller's side: it
// either takes full effect or none.
type SessionClient interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error)
	JoinSession(ctx context.Context, sessionID, userID string) (*JoinResult, error)
	AddItems(ctx context.Context, sessionID, userID string, items []domain.ItemInput) error
	GetItems(ctx context.Context, sessionID, userID string) (*ItemsResult, error)
	CompareSessions(ctx context.Context, sessionIDA, sessionIDB, userID string) (*domain.ComparisonResult, error)
	MergeSessions(ctx context.Context, targetID, sourceID, userID string) (*domain.MergeOutcome, error)
	SubmitSession(ctx context.Context, req SubmitRequest) (*domain.SubmitResult, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

type ProductCatalog interface {
	SearchProducts(ctx context.Context, storeID, query string, limit int) ([]domain.Product, error)
}

// SessionHistory reads what already happened to a session: the merges it
// took part in and its submission rounds, oldest first.
type SessionHistory interface {
	MergeHistory(ctx context.Context, sessionID string) ([]domain.MergeRecord, error)
	ListSubmissions(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error)
}

// ShipmentTracker reports how much of a shipment's expected lines receiving
// submissions have covered.
type ShipmentTracker interface {
	ShipmentProgress(ctx context.Context, shipmentID string) (*domain.ShipmentProgress, error)
}

// Backend bundles everything the CLI and the RPC server talk to.
type Backend interface {
	SessionClient
	ProductCatalog
	SessionHistory
	ShipmentTracker
}
