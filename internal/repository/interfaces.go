package repository

import (
	"context"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// Contribution is one stored addItems line.
type Contribution struct {
	ID               string
	SessionID        string
	Key              domain.ItemKey
	UserID           string
	UserName         string
	Quantity         int
	QuantityRejected int
	MergedFrom       *string
	SubmittedIn      *string
	CreatedAt        time.Time
}

// SubmissionLine is one stored line of a submission together with the stock
// movement it caused.
type SubmissionLine struct {
	Key              domain.ItemKey
	Quantity         int
	QuantityRejected int
	Stock            domain.StockSnapshot
}

type SessionListFilter struct {
	CompanyID  string
	StoreID    string
	Type       domain.SessionType
	ShipmentID *string
	ActiveOnly bool
}

type StoreRepo interface {
	Upsert(ctx context.Context, s *domain.Store) error
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	List(ctx context.Context, companyID string) ([]*domain.Store, error)
}

type ProductRepo interface {
	Upsert(ctx context.Context, companyID string, p *domain.Product) error
	Get(ctx context.Context, key domain.ItemKey) (*domain.Product, error)
	// Search returns catalog lines of the store's company with on-hand stock
	// for that store.
	Search(ctx context.Context, storeID, query string, limit int) ([]domain.Product, error)
}

type StockRepo interface {
	Get(ctx context.Context, storeID string, key domain.ItemKey) (int, error)
	Set(ctx context.Context, storeID string, key domain.ItemKey, quantity int) error
}

type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, f SessionListFilter) ([]*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
}

type MemberRepo interface {
	Add(ctx context.Context, m *domain.Member) error
	Get(ctx context.Context, sessionID, userID string) (*domain.Member, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Member, error)
}

type ContributionRepo interface {
	Create(ctx context.Context, c *Contribution) error
	// ListOpen returns contributions not yet consumed by a submission, in
	// arrival order.
	ListOpen(ctx context.Context, sessionID string) ([]*Contribution, error)
	CloseOpen(ctx context.Context, sessionID, submissionID string) (int, error)
}

type SubmissionRepo interface {
	Create(ctx context.Context, r *domain.SubmitResult) error
	AddLine(ctx context.Context, submissionID string, line SubmissionLine) error
	GetByID(ctx context.Context, id string) (*domain.SubmitResult, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error)
}

type ShipmentRepo interface {
	Upsert(ctx context.Context, s *domain.Shipment) error
	GetByID(ctx context.Context, id string) (*domain.Shipment, error)
	Received(ctx context.Context, shipmentID string) (map[domain.ItemKey]domain.Received, error)
}

type MergeRepo interface {
	Create(ctx context.Context, r *domain.MergeRecord) error
	// ListBySession returns merges the session took part in as target or
	// source, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]domain.MergeRecord, error)
}
