package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SQLiteShipmentRepo implements ShipmentRepo using a SQLite database.
type SQLiteShipmentRepo struct {
	db db.DBTX
}

func NewSQLiteShipmentRepo(conn db.DBTX) *SQLiteShipmentRepo {
	return &SQLiteShipmentRepo{db: conn}
}

// Upsert writes the shipment and replaces its lines. Run it inside a
// transaction so a failed line leaves the previous lines in place.
func (r *SQLiteShipmentRepo) Upsert(ctx context.Context, s *domain.Shipment) error {
	query := `INSERT INTO shipments (id, company_id, store_id, number, supplier_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			store_id = excluded.store_id,
			number = excluded.number,
			supplier_name = excluded.supplier_name`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.CompanyID, s.StoreID, s.Number, s.SupplierName, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("upserting shipment: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shipment_items WHERE shipment_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clearing shipment items: %w", err)
	}
	for _, l := range s.Lines {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO shipment_items (shipment_id, product_id, variant_id, quantity_shipped, unit_cost)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID, l.Key.ProductID, l.Key.VariantID, l.QuantityShipped, l.UnitCost.String())
		if err != nil {
			return fmt.Errorf("inserting shipment item %s: %w", l.Key, err)
		}
	}
	return nil
}

func (r *SQLiteShipmentRepo) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	var s domain.Shipment
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, company_id, store_id, number, supplier_name, created_at FROM shipments WHERE id = ?`, id,
	).Scan(&s.ID, &s.CompanyID, &s.StoreID, &s.Number, &s.SupplierName, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning shipment: %w", err)
	}
	if s.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT si.product_id, si.variant_id, COALESCE(p.name, ''), COALESCE(p.variant_name, ''),
			COALESCE(p.sku, ''), si.quantity_shipped, si.unit_cost
		FROM shipment_items si
		LEFT JOIN products p ON p.id = si.product_id AND p.variant_id = si.variant_id
		WHERE si.shipment_id = ?
		ORDER BY si.rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("listing shipment items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.ShipmentLine
		var cost string
		if err := rows.Scan(&l.Key.ProductID, &l.Key.VariantID, &l.ProductName, &l.VariantName,
			&l.SKU, &l.QuantityShipped, &cost); err != nil {
			return nil, fmt.Errorf("scanning shipment item: %w", err)
		}
		if l.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parsing unit_cost %q: %w", cost, err)
		}
		s.Lines = append(s.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shipment items: %w", err)
	}
	return &s, nil
}

// Received sums every submitted line of the receiving sessions that count
// against the shipment, across all rounds.
func (r *SQLiteShipmentRepo) Received(ctx context.Context, shipmentID string) (map[domain.ItemKey]domain.Received, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT si.product_id, si.variant_id, SUM(si.quantity), SUM(si.quantity_rejected)
		FROM submission_items si
		JOIN submissions sub ON sub.id = si.submission_id
		JOIN sessions s ON s.id = sub.session_id
		WHERE s.shipment_id = ? AND s.session_type = ?
		GROUP BY si.product_id, si.variant_id`,
		shipmentID, string(domain.SessionReceiving))
	if err != nil {
		return nil, fmt.Errorf("summing received items: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ItemKey]domain.Received)
	for rows.Next() {
		var key domain.ItemKey
		var rec domain.Received
		if err := rows.Scan(&key.ProductID, &key.VariantID, &rec.Quantity, &rec.QuantityRejected); err != nil {
			return nil, fmt.Errorf("scanning received item: %w", err)
		}
		out[key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating received items: %w", err)
	}
	return out, nil
}
