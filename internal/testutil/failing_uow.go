package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
)

// FailingUoW runs each transaction on DB but fails the first write to
// FailTable with Err, so a test can break a merge or submit at a chosen
// step and check that nothing of it was kept. Reads pass through.
type FailingUoW struct {
	DB        *sql.DB
	FailTable string
	Err       error

	mu      sync.Mutex
	written []string
}

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, &failingTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Written lists the tables written through the unit of work, in order,
// including the write that was failed.
func (u *FailingUoW) Written() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.written...)
}

type failingTx struct {
	db.DBTX
	uow *FailingUoW
}

func (f *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	table := writtenTable(query)
	f.uow.mu.Lock()
	f.uow.written = append(f.uow.written, table)
	f.uow.mu.Unlock()
	if table != "" && table == f.uow.FailTable {
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

// writtenTable returns the table an INSERT or UPDATE statement targets.
func writtenTable(query string) string {
	fields := strings.Fields(query)
	for i := 0; i+1 < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "INTO", "UPDATE":
			table, _, _ := strings.Cut(fields[i+1], "(")
			return table
		}
	}
	return ""
}
