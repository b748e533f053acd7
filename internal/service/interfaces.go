package service

import (
	"context"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

type SessionService interface {
	CreateSession(ctx context.Context, req app.CreateSessionRequest) (*domain.Session, error)
	JoinSession(ctx context.Context, sessionID, userID string) (*app.JoinResult, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context, filter app.SessionFilter) ([]*domain.Session, error)
}

type ItemService interface {
	AddItems(ctx context.Context, sessionID, userID string, items []domain.ItemInput) error
	GetItems(ctx context.Context, sessionID, userID string) (*app.ItemsResult, error)
}

type ReconcileService interface {
	CompareSessions(ctx context.Context, sessionIDA, sessionIDB, userID string) (*domain.ComparisonResult, error)
	MergeSessions(ctx context.Context, targetID, sourceID, userID string) (*domain.MergeOutcome, error)
	MergeHistory(ctx context.Context, sessionID string) ([]domain.MergeRecord, error)
}

type SubmitService interface {
	SubmitSession(ctx context.Context, req app.SubmitRequest) (*domain.SubmitResult, error)
	ListSubmissions(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error)
}

// ShipmentService keeps the expected lines of inbound shipments and reports
// receiving progress against them.
type ShipmentService interface {
	ShipmentProgress(ctx context.Context, shipmentID string) (*domain.ShipmentProgress, error)
	UpsertShipment(ctx context.Context, s *domain.Shipment) error
}

// CatalogService searches products and maintains the store catalog the
// embedded backend resolves items against.
type CatalogService interface {
	SearchProducts(ctx context.Context, storeID, query string, limit int) ([]domain.Product, error)
	UpsertStore(ctx context.Context, s *domain.Store) error
	UpsertProduct(ctx context.Context, companyID string, p *domain.Product) error
	SetStock(ctx context.Context, storeID string, key domain.ItemKey, quantity int) error
}
