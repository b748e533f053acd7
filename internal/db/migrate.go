package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillMemberNames(db); err != nil {
		return fmt.Errorf("backfilling member names: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		id         TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		name       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_stores_company ON stores(company_id)`,

	// variant_id is '' for products without variants so that the
	// (id, variant_id) pair can serve as a primary key.
	`CREATE TABLE IF NOT EXISTS products (
		id           TEXT NOT NULL,
		variant_id   TEXT NOT NULL DEFAULT '',
		company_id   TEXT NOT NULL,
		name         TEXT NOT NULL,
		variant_name TEXT NOT NULL DEFAULT '',
		sku          TEXT NOT NULL DEFAULT '',
		barcode      TEXT NOT NULL DEFAULT '',
		unit_cost    TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (id, variant_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_products_company ON products(company_id)`,

	`CREATE TABLE IF NOT EXISTS stock_levels (
		store_id   TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		variant_id TEXT NOT NULL DEFAULT '',
		quantity   INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (store_id, product_id, variant_id),
		FOREIGN KEY (product_id, variant_id) REFERENCES products(id, variant_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		session_type TEXT NOT NULL CHECK(session_type IN ('counting','receiving')),
		company_id   TEXT NOT NULL,
		store_id     TEXT NOT NULL REFERENCES stores(id),
		shipment_id  TEXT,
		is_active    INTEGER NOT NULL DEFAULT 1,
		is_final     INTEGER NOT NULL DEFAULT 0,
		created_by   TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		completed_at TEXT,
		CHECK(is_final = 0 OR is_active = 0)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_store ON sessions(store_id, session_type)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_shipment ON sessions(shipment_id)`,

	`CREATE TABLE IF NOT EXISTS session_members (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		joined_at  TEXT NOT NULL,
		is_active  INTEGER NOT NULL DEFAULT 1,
		UNIQUE (session_id, user_id)
	)`,

	// One row per addItems line. Rows are never updated in place except to
	// close them into a submission.
	`CREATE TABLE IF NOT EXISTS session_items (
		id                TEXT PRIMARY KEY,
		session_id        TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		product_id        TEXT NOT NULL,
		variant_id        TEXT NOT NULL DEFAULT '',
		user_id           TEXT NOT NULL,
		quantity          INTEGER NOT NULL CHECK(quantity >= 0),
		quantity_rejected INTEGER NOT NULL DEFAULT 0 CHECK(quantity_rejected >= 0),
		created_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_session_items_session ON session_items(session_id)`,

	`CREATE TABLE IF NOT EXISTS submissions (
		id             TEXT PRIMARY KEY,
		session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		number         TEXT NOT NULL UNIQUE,
		is_final       INTEGER NOT NULL,
		items_count    INTEGER NOT NULL,
		total_quantity INTEGER NOT NULL,
		total_rejected INTEGER NOT NULL,
		total_cost     TEXT NOT NULL DEFAULT '0',
		submitted_by   TEXT NOT NULL,
		submitted_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_submissions_session ON submissions(session_id)`,

	`CREATE TABLE IF NOT EXISTS submission_items (
		submission_id     TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
		product_id        TEXT NOT NULL,
		variant_id        TEXT NOT NULL DEFAULT '',
		quantity          INTEGER NOT NULL,
		quantity_rejected INTEGER NOT NULL,
		quantity_before   INTEGER NOT NULL,
		quantity_received INTEGER NOT NULL,
		quantity_after    INTEGER NOT NULL,
		PRIMARY KEY (submission_id, product_id, variant_id)
	)`,

	`CREATE TABLE IF NOT EXISTS session_merges (
		id                TEXT PRIMARY KEY,
		target_session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		source_session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		items_copied      INTEGER NOT NULL,
		quantity_copied   INTEGER NOT NULL,
		merged_by         TEXT NOT NULL,
		merged_at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_session_merges_target ON session_merges(target_session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_session_merges_source ON session_merges(source_session_id)`,

	// Rounds: partial submissions close the rows they consumed.
	`ALTER TABLE session_items ADD COLUMN submitted_in TEXT REFERENCES submissions(id)`,
	`CREATE INDEX IF NOT EXISTS idx_session_items_open ON session_items(session_id, submitted_in)`,

	// Merge provenance for copied rows.
	`ALTER TABLE session_items ADD COLUMN merged_from TEXT`,

	// Display names for members.
	`ALTER TABLE session_members ADD COLUMN user_name TEXT NOT NULL DEFAULT ''`,

	// Shipments and the lines receiving sessions count against.
	`CREATE TABLE IF NOT EXISTS shipments (
		id            TEXT PRIMARY KEY,
		company_id    TEXT NOT NULL,
		store_id      TEXT NOT NULL REFERENCES stores(id),
		number        TEXT NOT NULL,
		supplier_name TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_shipments_store ON shipments(store_id)`,

	`CREATE TABLE IF NOT EXISTS shipment_items (
		shipment_id      TEXT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
		product_id       TEXT NOT NULL,
		variant_id       TEXT NOT NULL DEFAULT '',
		quantity_shipped INTEGER NOT NULL CHECK(quantity_shipped >= 0),
		unit_cost        TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (shipment_id, product_id, variant_id),
		FOREIGN KEY (product_id, variant_id) REFERENCES products(id, variant_id)
	)`,
}

// migrateBackfillMemberNames fills user_name for members that joined before
// the column existed. The user id is the best name available for them.
// Idempotent: only touches rows with an empty name.
func migrateBackfillMemberNames(db *sql.DB) error {
	ctx := context.Background()
	res, err := db.ExecContext(ctx, `UPDATE session_members SET user_name = user_id WHERE user_name = ''`)
	if err != nil {
		return fmt.Errorf("updating session_members: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("counting backfilled members: %w", err)
	}
	return nil
}
