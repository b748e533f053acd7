package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UnitOfWork runs fn inside one transaction. Merges and submissions write
// several tables and go through it so a session is never left half-copied
// or half-submitted. Callers build tx-scoped repositories from tx.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

const (
	defaultBusyRetries = 3
	defaultBusyBackoff = 50 * time.Millisecond
)

// SQLiteUnitOfWork implements UnitOfWork using database/sql transactions.
type SQLiteUnitOfWork struct {
	db        *sql.DB
	retries   int
	backoff   time.Duration
	retryable func(error) bool
}

func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{
		db:        db,
		retries:   defaultBusyRetries,
		backoff:   defaultBusyBackoff,
		retryable: IsBusy,
	}
}

// WithinTx commits when fn returns nil and rolls back otherwise, panics
// included. A transaction that lost a write race with another member's
// connection is run again from the start, so fn must not keep state across
// calls.
func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	for attempt := 1; ; attempt++ {
		err := u.run(ctx, fn)
		if err == nil || attempt > u.retries || !u.retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retrying busy transaction: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * u.backoff):
		}
	}
}

func (u *SQLiteUnitOfWork) run(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsBusy reports whether err is SQLite's "database is locked" condition,
// raised when another connection holds the write lock past busy_timeout.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_BUSY
}
