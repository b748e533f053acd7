package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

const sessionColumns = `s.id, s.name, s.session_type, s.company_id, s.store_id, s.shipment_id,
	s.is_active, s.is_final, s.created_by, s.created_at, s.completed_at,
	(SELECT COUNT(*) FROM session_members m WHERE m.session_id = s.id AND m.is_active = 1)`

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (id, name, session_type, company_id, store_id, shipment_id,
		is_active, is_final, created_by, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		string(s.Type),
		s.CompanyID,
		s.StoreID,
		nullableString(s.ShipmentID),
		boolToInt(s.IsActive),
		boolToInt(s.IsFinal),
		s.CreatedBy,
		formatTime(s.CreatedAt),
		nullableTime(s.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *SQLiteSessionRepo) List(ctx context.Context, f SessionListFilter) ([]*domain.Session, error) {
	var where []string
	var args []any
	if f.CompanyID != "" {
		where = append(where, "s.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.StoreID != "" {
		where = append(where, "s.store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.Type != "" {
		where = append(where, "s.session_type = ?")
		args = append(args, string(f.Type))
	}
	if f.ShipmentID != nil {
		where = append(where, "s.shipment_id = ?")
		args = append(args, *f.ShipmentID)
	}
	if f.ActiveOnly {
		where = append(where, "s.is_active = 1")
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions s`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.created_at DESC, s.rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Update persists the lifecycle fields. Identity fields never change.
func (r *SQLiteSessionRepo) Update(ctx context.Context, s *domain.Session) error {
	query := `UPDATE sessions SET name = ?, is_active = ?, is_final = ?, completed_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.Name,
		boolToInt(s.IsActive),
		boolToInt(s.IsFinal),
		nullableTime(s.CompletedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var sessionType, createdAt string
	var shipmentID, completedAt sql.NullString
	var isActive, isFinal int

	err := row.Scan(
		&s.ID, &s.Name, &sessionType, &s.CompanyID, &s.StoreID, &shipmentID,
		&isActive, &isFinal, &s.CreatedBy, &createdAt, &completedAt,
		&s.MemberCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	s.Type = domain.SessionType(sessionType)
	s.ShipmentID = stringPtr(shipmentID)
	s.IsActive = intToBool(isActive)
	s.IsFinal = intToBool(isFinal)
	s.CompletedAt = parseNullableTime(completedAt)
	if s.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// SQLiteMemberRepo implements MemberRepo using a SQLite database.
type SQLiteMemberRepo struct {
	db db.DBTX
}

func NewSQLiteMemberRepo(conn db.DBTX) *SQLiteMemberRepo {
	return &SQLiteMemberRepo{db: conn}
}

func (r *SQLiteMemberRepo) Add(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO session_members (id, session_id, user_id, user_name, joined_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.SessionID,
		m.UserID,
		m.UserName,
		formatTime(m.JoinedAt),
		boolToInt(m.IsActive),
	)
	if err != nil {
		return fmt.Errorf("inserting session member: %w", err)
	}
	return nil
}

func (r *SQLiteMemberRepo) Get(ctx context.Context, sessionID, userID string) (*domain.Member, error) {
	query := `SELECT id, session_id, user_id, user_name, joined_at, is_active
		FROM session_members WHERE session_id = ? AND user_id = ?`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, sessionID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session member %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func (r *SQLiteMemberRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.Member, error) {
	query := `SELECT id, session_id, user_id, user_name, joined_at, is_active
		FROM session_members WHERE session_id = ? ORDER BY joined_at, rowid`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing session members: %w", err)
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session members: %w", err)
	}
	return members, nil
}

func scanMember(row rowScanner) (*domain.Member, error) {
	var m domain.Member
	var joinedAt string
	var isActive int
	err := row.Scan(&m.ID, &m.SessionID, &m.UserID, &m.UserName, &joinedAt, &isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session member: %w", err)
	}
	m.IsActive = intToBool(isActive)
	if m.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
