package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
	"github.com/JINL2/mystorecluade-sub001/internal/validate"
)

// DefaultSearchMinLength is the shortest product query accepted when the
// caller configures none.
const DefaultSearchMinLength = 2

type catalogService struct {
	stores    repository.StoreRepo
	products  repository.ProductRepo
	stock     repository.StockRepo
	minLength int
	observer  UseCaseObserver
}

func NewCatalogService(database *sql.DB, searchMinLength int, observers ...UseCaseObserver) CatalogService {
	if searchMinLength <= 0 {
		searchMinLength = DefaultSearchMinLength
	}
	return &catalogService{
		stores:    repository.NewSQLiteStoreRepo(database),
		products:  repository.NewSQLiteProductRepo(database),
		stock:     repository.NewSQLiteStockRepo(database),
		minLength: searchMinLength,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *catalogService) SearchProducts(ctx context.Context, storeID, query string, limit int) (found []domain.Product, err error) {
	const op = "search products"
	startedAt := time.Now().UTC()
	fields := map[string]any{"store_id": storeID, "query": query}
	defer func() { observe(ctx, s.observer, "search-products", startedAt, fields, &err) }()

	if err = validate.ValidateSearchQuery(query, s.minLength).Err(op); err != nil {
		return nil, err
	}
	if _, err = s.stores.GetByID(ctx, storeID); err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	found, err = s.products.Search(ctx, storeID, query, limit)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	fields["results"] = len(found)
	return found, nil
}

func (s *catalogService) UpsertStore(ctx context.Context, store *domain.Store) error {
	return s.stores.Upsert(ctx, store)
}

func (s *catalogService) UpsertProduct(ctx context.Context, companyID string, p *domain.Product) error {
	return s.products.Upsert(ctx, companyID, p)
}

func (s *catalogService) SetStock(ctx context.Context, storeID string, key domain.ItemKey, quantity int) error {
	return s.stock.Set(ctx, storeID, key, quantity)
}
