package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SQLiteContributionRepo implements ContributionRepo using a SQLite database.
type SQLiteContributionRepo struct {
	db db.DBTX
}

func NewSQLiteContributionRepo(conn db.DBTX) *SQLiteContributionRepo {
	return &SQLiteContributionRepo{db: conn}
}

func (r *SQLiteContributionRepo) Create(ctx context.Context, c *Contribution) error {
	query := `INSERT INTO session_items (id, session_id, product_id, variant_id, user_id,
		quantity, quantity_rejected, created_at, merged_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.SessionID,
		c.Key.ProductID,
		c.Key.VariantID,
		c.UserID,
		c.Quantity,
		c.QuantityRejected,
		formatTime(c.CreatedAt),
		nullableString(c.MergedFrom),
	)
	if err != nil {
		return fmt.Errorf("inserting session item: %w", err)
	}
	return nil
}

func (r *SQLiteContributionRepo) ListOpen(ctx context.Context, sessionID string) ([]*Contribution, error) {
	query := `SELECT i.id, i.session_id, i.product_id, i.variant_id, i.user_id,
		COALESCE(m.user_name, ''), i.quantity, i.quantity_rejected, i.merged_from, i.submitted_in, i.created_at
		FROM session_items i
		LEFT JOIN session_members m ON m.session_id = i.session_id AND m.user_id = i.user_id
		WHERE i.session_id = ? AND i.submitted_in IS NULL
		ORDER BY i.rowid`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing open session items: %w", err)
	}
	defer rows.Close()

	var out []*Contribution
	for rows.Next() {
		var c Contribution
		var mergedFrom, submittedIn sql.NullString
		var createdAt string
		err := rows.Scan(
			&c.ID, &c.SessionID, &c.Key.ProductID, &c.Key.VariantID, &c.UserID,
			&c.UserName, &c.Quantity, &c.QuantityRejected, &mergedFrom, &submittedIn, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning session item row: %w", err)
		}
		c.MergedFrom = stringPtr(mergedFrom)
		c.SubmittedIn = stringPtr(submittedIn)
		if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session items: %w", err)
	}
	return out, nil
}

// CloseOpen assigns every open contribution of the session to the given
// submission and returns how many rows were closed.
func (r *SQLiteContributionRepo) CloseOpen(ctx context.Context, sessionID, submissionID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_items SET submitted_in = ? WHERE session_id = ? AND submitted_in IS NULL`,
		submissionID, sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("closing session items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("closing session items: %w", err)
	}
	return int(n), nil
}

// BuildAggregate folds stored contributions into a session aggregate.
func BuildAggregate(sessionID string, contributions []*Contribution) *domain.Aggregate {
	items := make([]domain.SessionItem, 0)
	index := make(map[domain.ItemKey]int)
	for _, c := range contributions {
		i, ok := index[c.Key]
		if !ok {
			i = len(items)
			index[c.Key] = i
			items = append(items, domain.SessionItem{Key: c.Key})
		}
		items[i].Contributions = append(items[i].Contributions, domain.ContributionEntry{
			UserID:           c.UserID,
			UserName:         c.UserName,
			Quantity:         c.Quantity,
			QuantityRejected: c.QuantityRejected,
		})
	}
	return domain.AggregateFromItems(sessionID, items)
}
