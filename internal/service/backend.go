package service

import (
	"database/sql"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/db"
)

// LocalBackend is the embedded store of record: every session operation
// runs against SQLite in-process.
type LocalBackend struct {
	SessionService
	ItemService
	ReconcileService
	SubmitService
	CatalogService
	ShipmentService
}

var _ app.Backend = (*LocalBackend)(nil)

type BackendOptions struct {
	SearchMinLength int
}

func NewLocalBackend(database *sql.DB, uow db.UnitOfWork, opts BackendOptions, observers ...UseCaseObserver) *LocalBackend {
	return &LocalBackend{
		SessionService:   NewSessionService(database, uow, observers...),
		ItemService:      NewItemService(database, uow, observers...),
		ReconcileService: NewReconcileService(database, uow, observers...),
		SubmitService:    NewSubmitService(database, uow, observers...),
		CatalogService:   NewCatalogService(database, opts.SearchMinLength, observers...),
		ShipmentService:  NewShipmentService(database, uow, observers...),
	}
}
