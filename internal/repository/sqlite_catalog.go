package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SQLiteStoreRepo implements StoreRepo using a SQLite database.
type SQLiteStoreRepo struct {
	db db.DBTX
}

func NewSQLiteStoreRepo(conn db.DBTX) *SQLiteStoreRepo {
	return &SQLiteStoreRepo{db: conn}
}

func (r *SQLiteStoreRepo) Upsert(ctx context.Context, s *domain.Store) error {
	query := `INSERT INTO stores (id, company_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET company_id = excluded.company_id, name = excluded.name`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.CompanyID, s.Name); err != nil {
		return fmt.Errorf("upserting store: %w", err)
	}
	return nil
}

func (r *SQLiteStoreRepo) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	var s domain.Store
	err := r.db.QueryRowContext(ctx, `SELECT id, company_id, name FROM stores WHERE id = ?`, id).
		Scan(&s.ID, &s.CompanyID, &s.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning store: %w", err)
	}
	return &s, nil
}

func (r *SQLiteStoreRepo) List(ctx context.Context, companyID string) ([]*domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, company_id, name FROM stores WHERE company_id = ? ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	defer rows.Close()

	var stores []*domain.Store
	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.Name); err != nil {
			return nil, fmt.Errorf("scanning store row: %w", err)
		}
		stores = append(stores, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stores: %w", err)
	}
	return stores, nil
}

// SQLiteProductRepo implements ProductRepo using a SQLite database.
type SQLiteProductRepo struct {
	db db.DBTX
}

func NewSQLiteProductRepo(conn db.DBTX) *SQLiteProductRepo {
	return &SQLiteProductRepo{db: conn}
}

func (r *SQLiteProductRepo) Upsert(ctx context.Context, companyID string, p *domain.Product) error {
	query := `INSERT INTO products (id, variant_id, company_id, name, variant_name, sku, barcode, unit_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, variant_id) DO UPDATE SET
			company_id = excluded.company_id,
			name = excluded.name,
			variant_name = excluded.variant_name,
			sku = excluded.sku,
			barcode = excluded.barcode,
			unit_cost = excluded.unit_cost`
	_, err := r.db.ExecContext(ctx, query,
		p.Key.ProductID,
		p.Key.VariantID,
		companyID,
		p.Name,
		p.VariantName,
		p.SKU,
		p.Barcode,
		p.UnitCost.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}
	return nil
}

func (r *SQLiteProductRepo) Get(ctx context.Context, key domain.ItemKey) (*domain.Product, error) {
	query := `SELECT id, variant_id, name, variant_name, sku, barcode, unit_cost, 0
		FROM products WHERE id = ? AND variant_id = ?`
	row := r.db.QueryRowContext(ctx, query, key.ProductID, key.VariantID)
	p, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *SQLiteProductRepo) Search(ctx context.Context, storeID, query string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := containsPattern(query)
	q := `SELECT p.id, p.variant_id, p.name, p.variant_name, p.sku, p.barcode, p.unit_cost, COALESCE(sl.quantity, 0)
		FROM products p
		JOIN stores s ON s.company_id = p.company_id AND s.id = ?
		LEFT JOIN stock_levels sl ON sl.store_id = s.id AND sl.product_id = p.id AND sl.variant_id = p.variant_id
		WHERE p.name LIKE ? ESCAPE '\' OR p.variant_name LIKE ? ESCAPE '\'
		   OR p.sku LIKE ? ESCAPE '\' OR p.barcode LIKE ? ESCAPE '\'
		ORDER BY p.name, p.variant_name
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, storeID, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		p.StoreID = storeID
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return out, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var cost string
	err := row.Scan(&p.Key.ProductID, &p.Key.VariantID, &p.Name, &p.VariantName, &p.SKU, &p.Barcode, &cost, &p.OnHand)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	p.UnitCost, err = decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("parsing unit_cost %q: %w", cost, err)
	}
	return &p, nil
}

// SQLiteStockRepo implements StockRepo using a SQLite database.
type SQLiteStockRepo struct {
	db db.DBTX
}

func NewSQLiteStockRepo(conn db.DBTX) *SQLiteStockRepo {
	return &SQLiteStockRepo{db: conn}
}

// Get returns the on-hand quantity; a product never stocked in the store has
// zero on hand.
func (r *SQLiteStockRepo) Get(ctx context.Context, storeID string, key domain.ItemKey) (int, error) {
	var qty int
	err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM stock_levels WHERE store_id = ? AND product_id = ? AND variant_id = ?`,
		storeID, key.ProductID, key.VariantID,
	).Scan(&qty)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("reading stock level: %w", err)
	}
	return qty, nil
}

func (r *SQLiteStockRepo) Set(ctx context.Context, storeID string, key domain.ItemKey, quantity int) error {
	query := `INSERT INTO stock_levels (store_id, product_id, variant_id, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store_id, product_id, variant_id) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, storeID, key.ProductID, key.VariantID, quantity, formatTime(time.Now())); err != nil {
		return fmt.Errorf("setting stock level: %w", err)
	}
	return nil
}
