package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func columnNames(t *testing.T, db *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := db.Query(`PRAGMA table_info(` + table + `)`)
	require.NoError(t, err)
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		require.NoError(t, rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk))
		cols[name] = true
	}
	require.NoError(t, rows.Err())
	return cols
}

func seedSession(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO stores (id, company_id, name) VALUES ('st1', 'c1', 'Main')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sessions (id, name, session_type, company_id, store_id, created_by, created_at)
		VALUES ('s1', 'Count', 'counting', 'c1', 'st1', 'u1', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// A second run is a no-op.
	err := Migrate(db)
	require.NoError(t, err)

	err = Migrate(db)
	require.NoError(t, err)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"stores", "products", "stock_levels", "sessions", "session_members",
		"session_items", "submissions", "submission_items", "session_merges", "shipments", "shipment_items"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_stores_company",
		"idx_products_company",
		"idx_sessions_store",
		"idx_sessions_shipment",
		"idx_session_items_session",
		"idx_session_items_open",
		"idx_submissions_session",
		"idx_session_merges_target",
		"idx_session_merges_source",
		"idx_shipments_store",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign keys should be enabled")
}

func TestMigrate_WALModeRequested(t *testing.T) {
	// In-memory SQLite reports "memory"; WAL only applies to file DBs.
	db := openTestDB(t)

	var mode string
	err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "memory", mode)
}

func TestMigrate_SessionItemsRoundColumns(t *testing.T) {
	db := openTestDB(t)

	cols := columnNames(t, db, "session_items")
	assert.True(t, cols["submitted_in"], "session_items should have submitted_in")
	assert.True(t, cols["merged_from"], "session_items should have merged_from")
	assert.True(t, columnNames(t, db, "session_members")["user_name"])
}

func TestMigrate_SessionTypeCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO stores (id, company_id, name) VALUES ('st1', 'c1', 'Main')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO sessions (id, name, session_type, company_id, store_id, created_by, created_at)
		VALUES ('s1', 'Audit', 'audit', 'c1', 'st1', 'u1', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "unknown session type should be rejected by CHECK constraint")
}

func TestMigrate_FinalSessionMustBeInactive(t *testing.T) {
	db := openTestDB(t)
	seedSession(t, db)

	_, err := db.Exec(`UPDATE sessions SET is_final = 1 WHERE id = 's1'`)
	assert.Error(t, err, "a final session that is still active violates the CHECK constraint")

	_, err = db.Exec(`UPDATE sessions SET is_final = 1, is_active = 0 WHERE id = 's1'`)
	assert.NoError(t, err)
}

func TestMigrate_SessionItemsRejectNegativeQuantity(t *testing.T) {
	db := openTestDB(t)
	seedSession(t, db)

	_, err := db.Exec(`INSERT INTO session_items (id, session_id, product_id, user_id, quantity, created_at)
		VALUES ('i1', 's1', 'p1', 'u1', -1, '2025-01-01T00:00:00Z')`)
	assert.Error(t, err)
}

func TestMigrate_MembersUniquePerSession(t *testing.T) {
	db := openTestDB(t)
	seedSession(t, db)

	_, err := db.Exec(`INSERT INTO session_members (id, session_id, user_id, joined_at) VALUES ('m1', 's1', 'u1', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO session_members (id, session_id, user_id, joined_at) VALUES ('m2', 's1', 'u1', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "a user joins a session at most once")
}

func TestMigrate_CascadeDeleteSession(t *testing.T) {
	db := openTestDB(t)
	seedSession(t, db)

	_, err := db.Exec(`INSERT INTO session_items (id, session_id, product_id, user_id, quantity, created_at)
		VALUES ('i1', 's1', 'p1', 'u1', 2, '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM sessions WHERE id = 's1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_items`).Scan(&n))
	assert.Equal(t, 0, n)
}
