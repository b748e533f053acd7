package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

var testSessionCounter atomic.Int64

// Session options
type SessionOption func(*domain.Session)

func WithSessionType(st domain.SessionType) SessionOption {
	return func(s *domain.Session) {
		s.Type = st
	}
}

func WithShipment(id string) SessionOption {
	return func(s *domain.Session) {
		s.ShipmentID = &id
	}
}

func WithStore(storeID string) SessionOption {
	return func(s *domain.Session) {
		s.StoreID = storeID
	}
}

func WithCreator(userID string) SessionOption {
	return func(s *domain.Session) {
		s.CreatedBy = userID
	}
}

func Inactive() SessionOption {
	return func(s *domain.Session) {
		s.IsActive = false
	}
}

func Finalized() SessionOption {
	return func(s *domain.Session) {
		now := time.Now().UTC()
		s.Finalize(now)
	}
}

func NewTestSession(opts ...SessionOption) *domain.Session {
	n := testSessionCounter.Add(1)
	s := &domain.Session{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("Session %02d", n),
		Type:      domain.SessionReceiving,
		CompanyID: "company-1",
		StoreID:   "store-1",
		IsActive:  true,
		CreatedBy: "user-1",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Product options
type ProductOption func(*domain.Product)

func WithVariant(variantID, variantName string) ProductOption {
	return func(p *domain.Product) {
		p.Key.VariantID = variantID
		p.VariantName = variantName
	}
}

func WithUnitCost(cost string) ProductOption {
	return func(p *domain.Product) {
		p.UnitCost = decimal.RequireFromString(cost)
	}
}

func WithSKU(sku string) ProductOption {
	return func(p *domain.Product) {
		p.SKU = sku
	}
}

func NewTestProduct(id, name string, opts ...ProductOption) *domain.Product {
	p := &domain.Product{
		Key:      domain.ItemKey{ProductID: id},
		Name:     name,
		SKU:      "SKU-" + id,
		UnitCost: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Item builds an ItemInput.
func Item(productID string, qty, rejected int) domain.ItemInput {
	return domain.ItemInput{ProductID: productID, Quantity: qty, QuantityRejected: rejected}
}

// SeedCatalog writes a store, its products and their on-hand stock directly,
// bypassing the repositories.
func SeedCatalog(t *testing.T, database *sql.DB, store domain.Store, products []*domain.Product, stock map[domain.ItemKey]int) {
	t.Helper()
	ctx := context.Background()
	_, err := database.ExecContext(ctx,
		`INSERT OR REPLACE INTO stores (id, company_id, name) VALUES (?, ?, ?)`,
		store.ID, store.CompanyID, store.Name)
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	for _, p := range products {
		_, err := database.ExecContext(ctx,
			`INSERT OR REPLACE INTO products (id, variant_id, company_id, name, variant_name, sku, barcode, unit_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Key.ProductID, p.Key.VariantID, store.CompanyID, p.Name, p.VariantName, p.SKU, p.Barcode, p.UnitCost.String())
		if err != nil {
			t.Fatalf("seeding product %s: %v", p.Key, err)
		}
	}
	for key, qty := range stock {
		_, err := database.ExecContext(ctx,
			`INSERT OR REPLACE INTO stock_levels (store_id, product_id, variant_id, quantity, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			store.ID, key.ProductID, key.VariantID, qty, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			t.Fatalf("seeding stock for %s: %v", key, err)
		}
	}
}

// DefaultStore is the store most fixtures point at.
var DefaultStore = domain.Store{ID: "store-1", CompanyID: "company-1", Name: "Main Street"}
