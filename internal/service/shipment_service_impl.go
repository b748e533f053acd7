package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
)

type shipmentService struct {
	db       *sql.DB
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewShipmentService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) ShipmentService {
	return &shipmentService{
		db:       database,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
	}
}

// ShipmentProgress folds every receiving submission made against the
// shipment into its expected lines.
func (s *shipmentService) ShipmentProgress(ctx context.Context, shipmentID string) (p *domain.ShipmentProgress, err error) {
	const op = "shipment progress"
	startedAt := time.Now().UTC()
	fields := map[string]any{"shipment_id": shipmentID}
	defer func() { observe(ctx, s.observer, "shipment-progress", startedAt, fields, &err) }()

	shipments := repository.NewSQLiteShipmentRepo(s.db)
	ship, err := shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	received, err := shipments.Received(ctx, shipmentID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	p = domain.NewShipmentProgress(ship, received)

	products := repository.NewSQLiteProductRepo(s.db)
	for i := range p.Unexpected {
		prod, err := products.Get(ctx, p.Unexpected[i].Key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fail(domain.CodeLoadFailed, op, err)
		}
		p.Unexpected[i].ProductName = prod.Name
		p.Unexpected[i].VariantName = prod.VariantName
		p.Unexpected[i].SKU = prod.SKU
	}

	fields["status"] = string(p.Status)
	fields["progress"] = p.Summary.ProgressPercentage
	return p, nil
}

// UpsertShipment stores the shipment and replaces its expected lines in one
// transaction. Every line must name a catalog product.
func (s *shipmentService) UpsertShipment(ctx context.Context, ship *domain.Shipment) error {
	const op = "upsert shipment"
	if ship.ID == "" || ship.StoreID == "" {
		return domain.Conflict(domain.CodeInvalidItem, op, "shipment id and store are required")
	}
	seen := make(map[domain.ItemKey]bool, len(ship.Lines))
	for i, l := range ship.Lines {
		if l.QuantityShipped < 0 {
			return domain.Conflict(domain.CodeInvalidItem, op, fmt.Sprintf("line %d: shipped quantity cannot be negative", i+1))
		}
		if seen[l.Key] {
			return domain.Conflict(domain.CodeInvalidItem, op, fmt.Sprintf("line %d: %s is listed twice", i+1, l.Key))
		}
		seen[l.Key] = true
	}
	if ship.CreatedAt.IsZero() {
		ship.CreatedAt = time.Now().UTC()
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		store, err := repository.NewSQLiteStoreRepo(tx).GetByID(ctx, ship.StoreID)
		if err != nil {
			return err
		}
		if ship.CompanyID == "" {
			ship.CompanyID = store.CompanyID
		}
		products := repository.NewSQLiteProductRepo(tx)
		for i, l := range ship.Lines {
			if _, err := products.Get(ctx, l.Key); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Conflict(domain.CodeInvalidItem, op, fmt.Sprintf("line %d: unknown product %s", i+1, l.Key))
				}
				return err
			}
		}
		return repository.NewSQLiteShipmentRepo(tx).Upsert(ctx, ship)
	})
	return fail(domain.CodeSaveFailed, op, err)
}
