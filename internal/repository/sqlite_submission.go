package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SQLiteSubmissionRepo implements SubmissionRepo using a SQLite database.
type SQLiteSubmissionRepo struct {
	db db.DBTX
}

func NewSQLiteSubmissionRepo(conn db.DBTX) *SQLiteSubmissionRepo {
	return &SQLiteSubmissionRepo{db: conn}
}

func (r *SQLiteSubmissionRepo) Create(ctx context.Context, s *domain.SubmitResult) error {
	query := `INSERT INTO submissions (id, session_id, number, is_final, items_count,
		total_quantity, total_rejected, total_cost, submitted_by, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.SubmissionID,
		s.SessionID,
		s.ReceivingNumber,
		boolToInt(s.IsFinal),
		s.ItemsCount,
		s.TotalQuantity,
		s.TotalRejected,
		s.TotalCost.String(),
		s.SubmittedBy,
		formatTime(s.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

func (r *SQLiteSubmissionRepo) AddLine(ctx context.Context, submissionID string, line SubmissionLine) error {
	query := `INSERT INTO submission_items (submission_id, product_id, variant_id, quantity,
		quantity_rejected, quantity_before, quantity_received, quantity_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		submissionID,
		line.Key.ProductID,
		line.Key.VariantID,
		line.Quantity,
		line.QuantityRejected,
		line.Stock.QuantityBefore,
		line.Stock.QuantityReceived,
		line.Stock.QuantityAfter,
	)
	if err != nil {
		return fmt.Errorf("inserting submission item: %w", err)
	}
	return nil
}

const submissionColumns = `id, session_id, number, is_final, items_count, total_quantity,
	total_rejected, total_cost, submitted_by, submitted_at`

func (r *SQLiteSubmissionRepo) GetByID(ctx context.Context, id string) (*domain.SubmitResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := r.loadLines(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteSubmissionRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE session_id = ? ORDER BY submitted_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	var out []*domain.SubmitResult
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}
	rows.Close()

	for _, s := range out {
		if err := r.loadLines(ctx, s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteSubmissionRepo) loadLines(ctx context.Context, s *domain.SubmitResult) error {
	query := `SELECT si.product_id, si.variant_id, COALESCE(p.name, ''), COALESCE(p.sku, ''),
		si.quantity_before, si.quantity_received, si.quantity_after
		FROM submission_items si
		LEFT JOIN products p ON p.id = si.product_id AND p.variant_id = si.variant_id
		WHERE si.submission_id = ?
		ORDER BY si.rowid`
	rows, err := r.db.QueryContext(ctx, query, s.SubmissionID)
	if err != nil {
		return fmt.Errorf("listing submission items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap domain.StockSnapshot
		err := rows.Scan(&snap.Key.ProductID, &snap.Key.VariantID, &snap.ProductName, &snap.SKU,
			&snap.QuantityBefore, &snap.QuantityReceived, &snap.QuantityAfter)
		if err != nil {
			return fmt.Errorf("scanning submission item: %w", err)
		}
		s.StockChanges = append(s.StockChanges, snap)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating submission items: %w", err)
	}
	return nil
}

func scanSubmission(row rowScanner) (*domain.SubmitResult, error) {
	var s domain.SubmitResult
	var isFinal int
	var cost, submittedAt string
	err := row.Scan(&s.SubmissionID, &s.SessionID, &s.ReceivingNumber, &isFinal, &s.ItemsCount,
		&s.TotalQuantity, &s.TotalRejected, &cost, &s.SubmittedBy, &submittedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning submission: %w", err)
	}
	s.IsFinal = intToBool(isFinal)
	if s.TotalCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parsing total_cost %q: %w", cost, err)
	}
	if s.SubmittedAt, err = parseTime("submitted_at", submittedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// SQLiteMergeRepo implements MergeRepo using a SQLite database.
type SQLiteMergeRepo struct {
	db db.DBTX
}

func NewSQLiteMergeRepo(conn db.DBTX) *SQLiteMergeRepo {
	return &SQLiteMergeRepo{db: conn}
}

func (r *SQLiteMergeRepo) Create(ctx context.Context, m *domain.MergeRecord) error {
	query := `INSERT INTO session_merges (id, target_session_id, source_session_id,
		items_copied, quantity_copied, merged_by, merged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.TargetSessionID,
		m.SourceSessionID,
		m.ItemsCopied,
		m.QuantityCopied,
		m.MergedBy,
		formatTime(m.MergedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session merge: %w", err)
	}
	return nil
}

func (r *SQLiteMergeRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.MergeRecord, error) {
	query := `SELECT id, target_session_id, source_session_id, items_copied, quantity_copied, merged_by, merged_at
		FROM session_merges
		WHERE target_session_id = ? OR source_session_id = ?
		ORDER BY merged_at, rowid`
	rows, err := r.db.QueryContext(ctx, query, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing session merges: %w", err)
	}
	defer rows.Close()

	var out []domain.MergeRecord
	for rows.Next() {
		var m domain.MergeRecord
		var mergedAt string
		if err := rows.Scan(&m.ID, &m.TargetSessionID, &m.SourceSessionID, &m.ItemsCopied,
			&m.QuantityCopied, &m.MergedBy, &mergedAt); err != nil {
			return nil, fmt.Errorf("scanning session merge: %w", err)
		}
		if m.MergedAt, err = parseTime("merged_at", mergedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session merges: %w", err)
	}
	return out, nil
}
